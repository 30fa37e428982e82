package it

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"groupchat/internal/chat"
	"groupchat/internal/chatpb"
	"groupchat/internal/config"
	"groupchat/internal/node"
	"groupchat/internal/overlay"
)

// Cluster is an in-process deployment: one discovery node and any number
// of peers, all on loopback ports chosen by the OS.
type Cluster struct {
	mu        sync.Mutex
	discovery *node.DiscoveryNode
	discAddr  string
	peers     map[string]*Peer
	logger    *slog.Logger
}

// Peer is one chat client in the cluster.
type Peer struct {
	ID   string
	node *node.PeerNode

	mu       sync.Mutex
	received []chat.Message
}

// NewCluster creates an empty cluster harness.
func NewCluster() *Cluster {
	return &Cluster{
		peers:  make(map[string]*Peer),
		logger: slog.Default(),
	}
}

// StartDiscovery starts the discovery node with the given settings and
// waits until its health service reports SERVING.
func (c *Cluster) StartDiscovery(ctx context.Context, mutate func(*config.Discovery)) error {
	cfg := config.DefaultDiscovery()
	cfg.ListenAddr = "127.0.0.1:0"
	if mutate != nil {
		mutate(&cfg)
	}

	dn, err := node.NewDiscoveryNode(cfg, node.WithLogger(c.logger))
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	go func() {
		if err := dn.Serve(lis); err != nil {
			c.logger.Error("discovery stopped", "error", err)
		}
	}()

	c.mu.Lock()
	c.discovery = dn
	c.discAddr = lis.Addr().String()
	c.mu.Unlock()

	return c.waitForReady(ctx, c.discAddr, chatpb.Discovery_ServiceDesc.ServiceName, 10*time.Second)
}

// waitForReady polls the gRPC health service at addr.
func (c *Cluster) waitForReady(ctx context.Context, addr, service string, timeout time.Duration) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return fmt.Errorf("timeout waiting for %s at %s", service, addr)
			}
			healthCtx, cancel := context.WithTimeout(ctx, time.Second)
			resp, err := client.Check(healthCtx, &healthpb.HealthCheckRequest{Service: service})
			cancel()
			if err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
				return nil
			}
		}
	}
}

// StartPeer starts a peer named userID and waits for it to serve.
func (c *Cluster) StartPeer(ctx context.Context, userID string, mutate func(*config.Peer)) (*Peer, error) {
	c.mu.Lock()
	discAddr := c.discAddr
	c.mu.Unlock()
	if discAddr == "" {
		return nil, fmt.Errorf("discovery not started")
	}

	cfg := config.DefaultPeer()
	cfg.UserID = userID
	cfg.DiscoveryAddr = discAddr
	cfg.SendTimeout = 500 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	p := &Peer{ID: userID}
	pn, err := node.NewPeerNode(cfg,
		node.WithLogger(c.logger),
		node.WithMessageHandler(p.record),
	)
	if err != nil {
		return nil, err
	}
	p.node = pn
	go func() {
		if err := pn.Start(); err != nil {
			c.logger.Error("peer stopped", "user", userID, "error", err)
		}
	}()

	if err := c.waitForReady(ctx, pn.Addr(), chatpb.Peer_ServiceDesc.ServiceName, 10*time.Second); err != nil {
		pn.Kill()
		return nil, err
	}

	c.mu.Lock()
	c.peers[userID] = p
	c.mu.Unlock()
	return p, nil
}

// GetPeer returns a peer by user ID.
func (c *Cluster) GetPeer(userID string) *Peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peers[userID]
}

// Discovery returns the discovery node.
func (c *Cluster) Discovery() *node.DiscoveryNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discovery
}

// KillPeer crashes a peer without an explicit leave.
func (c *Cluster) KillPeer(userID string) error {
	c.mu.Lock()
	p, ok := c.peers[userID]
	delete(c.peers, userID)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("peer %s not found", userID)
	}
	p.node.Kill()
	return nil
}

// Stop stops every peer, then discovery.
func (c *Cluster) Stop() {
	c.mu.Lock()
	peers := c.peers
	c.peers = make(map[string]*Peer)
	dn := c.discovery
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, p := range peers {
		p.node.Stop(ctx)
	}
	if dn != nil {
		dn.Stop()
	}
}

// Overlay returns the peer's overlay.
func (p *Peer) Overlay() *overlay.Overlay {
	return p.node.Overlay()
}

// Node returns the underlying peer node.
func (p *Peer) Node() *node.PeerNode {
	return p.node
}

func (p *Peer) record(msg chat.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, msg)
}

// Received returns the messages handed to the application so far.
func (p *Peer) Received() []chat.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]chat.Message(nil), p.received...)
}
