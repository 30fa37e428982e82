package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"groupchat/internal/admin"
	"groupchat/internal/chatpb"
	"groupchat/internal/config"
	"groupchat/internal/discovery"
)

const adminShutdownTimeout = 5 * time.Second

// DiscoveryNode runs the discovery service behind gRPC, with the optional
// admin HTTP API next to it.
type DiscoveryNode struct {
	cfg  config.Discovery
	opts options
	svc  *discovery.Service

	mu         sync.Mutex
	grpcServer *grpc.Server
	health     *health.Server
	adminSrv   *http.Server
	addr       net.Addr
}

// NewDiscoveryNode builds the service and creates the configured groups.
func NewDiscoveryNode(cfg config.Discovery, opts ...Option) (*DiscoveryNode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid discovery config: %w", err)
	}
	o := buildOptions(opts)
	svcOpts := append(cfg.ServiceOptions(),
		discovery.WithLogger(o.logger),
		discovery.WithMetricSink(o.msink),
	)
	svc := discovery.New(svcOpts...)
	for _, g := range cfg.Groups {
		if err := svc.CreateGroup(g.ID, g.Password); err != nil {
			return nil, fmt.Errorf("create group %q: %w", g.ID, err)
		}
	}
	return &DiscoveryNode{cfg: cfg, opts: o, svc: svc}, nil
}

// Service returns the underlying registry.
func (n *DiscoveryNode) Service() *discovery.Service {
	return n.svc
}

// Start listens on the configured address and serves until Stop.
func (n *DiscoveryNode) Start() error {
	lis, err := net.Listen("tcp", n.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.ListenAddr, err)
	}
	return n.Serve(lis)
}

// Serve serves gRPC on lis until Stop.
func (n *DiscoveryNode) Serve(lis net.Listener) error {
	srv := grpc.NewServer()
	chatpb.RegisterDiscoveryServer(srv, discovery.NewServer(n.svc))

	hs := health.NewServer()
	hs.SetServingStatus(chatpb.Discovery_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	// Enable gRPC reflection for grpcurl
	reflection.Register(srv)

	n.mu.Lock()
	n.grpcServer = srv
	n.health = hs
	n.addr = lis.Addr()
	n.mu.Unlock()

	if n.cfg.AdminAddr != "" {
		if err := n.startAdmin(); err != nil {
			return err
		}
	}

	n.opts.logger.Info("discovery listening", "addr", lis.Addr().String(), "groups", len(n.cfg.Groups))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func (n *DiscoveryNode) startAdmin() error {
	lis, err := net.Listen("tcp", n.cfg.AdminAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on admin %s: %w", n.cfg.AdminAddr, err)
	}
	srv := &http.Server{
		Handler:           admin.NewHandler(n.svc, n.opts.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	n.mu.Lock()
	n.adminSrv = srv
	n.mu.Unlock()

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.opts.logger.Error("admin server failed", "error", err)
		}
	}()
	n.opts.logger.Info("admin API listening", "addr", lis.Addr().String())
	return nil
}

// Addr returns the gRPC listen address once serving.
func (n *DiscoveryNode) Addr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.addr
}

// Stop ends every subscription and stops the servers gracefully.
func (n *DiscoveryNode) Stop() {
	n.mu.Lock()
	srv, hs, adminSrv := n.grpcServer, n.health, n.adminSrv
	n.mu.Unlock()

	if hs != nil {
		hs.Shutdown()
	}
	n.svc.Close()
	if srv != nil {
		n.opts.logger.Info("stopping discovery")
		srv.GracefulStop()
	}
	if adminSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), adminShutdownTimeout)
		defer cancel()
		if err := adminSrv.Shutdown(ctx); err != nil {
			n.opts.logger.Warn("admin shutdown", "error", err)
		}
	}
}
