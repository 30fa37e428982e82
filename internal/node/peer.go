package node

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"groupchat/internal/chatpb"
	"groupchat/internal/config"
	"groupchat/internal/discovery"
	"groupchat/internal/overlay"
	"groupchat/internal/peer"
)

// PeerNode is a chat client process: an overlay plus the gRPC server other
// peers deliver to.
type PeerNode struct {
	cfg        config.Peer
	opts       options
	lis        net.Listener
	disc       *discovery.Client
	overlay    *overlay.Overlay
	grpcServer *grpc.Server
}

// NewPeerNode binds the peer listener, so the advertised address is known
// before the first join, and connects to discovery lazily.
func NewPeerNode(cfg config.Peer, opts ...Option) (*PeerNode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid peer config: %w", err)
	}
	o := buildOptions(opts)

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}
	disc, err := discovery.Dial(cfg.DiscoveryAddr)
	if err != nil {
		_ = lis.Close()
		return nil, err
	}

	logger := o.logger.With("peer", cfg.UserID)
	ovOpts := []overlay.Option{
		overlay.WithLogger(logger),
		overlay.WithMetricSink(o.msink),
	}
	if o.onMessage != nil {
		ovOpts = append(ovOpts, overlay.WithMessageHandler(o.onMessage))
	}
	ov, err := overlay.New(cfg.OverlayConfig(lis.Addr().String()), disc, peer.NewDialer(), ovOpts...)
	if err != nil {
		_ = lis.Close()
		_ = disc.Close()
		return nil, err
	}

	srv := grpc.NewServer()
	chatpb.RegisterPeerServer(srv, peer.NewServer(ov, logger))
	hs := health.NewServer()
	hs.SetServingStatus(chatpb.Peer_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &PeerNode{
		cfg:        cfg,
		opts:       o,
		lis:        lis,
		disc:       disc,
		overlay:    ov,
		grpcServer: srv,
	}, nil
}

// Start serves inbound peer traffic until Stop.
func (n *PeerNode) Start() error {
	n.opts.logger.Info("peer listening", "user", n.cfg.UserID, "addr", n.lis.Addr().String())
	if err := n.grpcServer.Serve(n.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Addr returns the address the peer server listens on.
func (n *PeerNode) Addr() string {
	return n.lis.Addr().String()
}

// Overlay returns the chat overlay driven by this node.
func (n *PeerNode) Overlay() *overlay.Overlay {
	return n.overlay
}

// Discovery returns the discovery client, for group administration.
func (n *PeerNode) Discovery() *discovery.Client {
	return n.disc
}

// Stop leaves the current group, if any, and shuts the node down.
func (n *PeerNode) Stop(ctx context.Context) {
	if n.overlay.State() == overlay.StateMember {
		if err := n.overlay.Leave(ctx); err != nil {
			n.opts.logger.Warn("leave on shutdown", "user", n.cfg.UserID, "error", err)
		}
	}
	n.grpcServer.GracefulStop()
	if err := n.disc.Close(); err != nil {
		n.opts.logger.Debug("closing discovery client", "error", err)
	}
}

// Kill stops the node the way a crash would: inbound traffic stops and the
// discovery connection drops without an explicit leave, so discovery only
// learns of the departure from the broken event stream.
func (n *PeerNode) Kill() {
	n.grpcServer.Stop()
	_ = n.disc.Close()
	if n.overlay.State() == overlay.StateMember {
		// The discovery call fails; this only stops the watcher and links.
		_ = n.overlay.Leave(context.Background())
	}
}
