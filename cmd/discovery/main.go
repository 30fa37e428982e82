package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-metrics"

	"groupchat/internal/config"
	"groupchat/internal/node"
)

func main() {
	defaults := config.DefaultDiscovery()

	listen := flag.String("listen", defaults.ListenAddr, "gRPC listen address")
	adminAddr := flag.String("admin", "", "Admin HTTP listen address (disabled when empty)")
	maxGroupSize := flag.Int("max-group-size", defaults.MaxGroupSize, "Maximum participants per group")
	historySize := flag.Int("history-size", defaults.HistorySize, "Messages kept per group")
	eventBuffer := flag.Int("event-buffer", defaults.EventBuffer, "Queued membership events per subscriber")
	groups := flag.String("groups", "", "Groups to create at startup (format: id[=password],...)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	seeds, err := config.ParseGroups(*groups)
	if err != nil {
		logger.Error("invalid --groups", "error", err)
		os.Exit(2)
	}

	cfg := config.Discovery{
		ListenAddr:   *listen,
		AdminAddr:    *adminAddr,
		MaxGroupSize: *maxGroupSize,
		HistorySize:  *historySize,
		EventBuffer:  *eventBuffer,
		Groups:       seeds,
	}

	// Metrics are kept in memory; send SIGUSR1 to dump them to stderr.
	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	metrics.DefaultInmemSignal(sink)

	n, err := node.NewDiscoveryNode(cfg, node.WithLogger(logger), node.WithMetricSink(sink))
	if err != nil {
		logger.Error("failed to create discovery node", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		n.Stop()
	case err := <-errCh:
		if err != nil {
			logger.Error("discovery failed", "error", err)
			os.Exit(1)
		}
	}
}
