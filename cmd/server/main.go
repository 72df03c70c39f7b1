package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barter_backend/internal/config"
	"barter_backend/internal/platform/elasticsearch"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "sync-listings" {
		os.Exit(syncListings(os.Args[2:]))
	}
	startServer()
}

// syncListings bulk-indexes every active listing into Elasticsearch and
// returns the process exit code.
func syncListings(args []string) int {
	syncCmd := flag.NewFlagSet("sync-listings", flag.ExitOnError)
	batchSize := syncCmd.Int("batch-size", 500, "Number of listings indexed per bulk request")
	_ = syncCmd.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for sync: %v", err)
	}
	cmd, cleanup, err := initializeSync(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize listing sync: %v", err)
	}
	defer cleanup()

	if cmd.ES == nil {
		cmd.Logger.Error("ELASTICSEARCH_URL is not set; nothing to sync to")
		return 1
	}
	ctx := context.Background()
	if err := elasticsearch.CreateListingsIndexIfNotExists(ctx, cmd.ES, cmd.Logger); err != nil {
		cmd.Logger.Error("Failed to create or verify the listings index", zap.Error(err))
		return 1
	}

	start := time.Now()
	indexed, err := cmd.Listings.ReindexAll(ctx, *batchSize)
	if err != nil {
		cmd.Logger.Error("Listing synchronization failed", zap.Int("indexed", indexed), zap.Error(err))
		return 1
	}
	cmd.Logger.Info("Listing synchronization completed",
		zap.Int("indexed", indexed),
		zap.Duration("took", time.Since(start)),
	)
	return 0
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	if server.ESClient != nil {
		if err := elasticsearch.CreateListingsIndexIfNotExists(context.Background(), server.ESClient, server.AppLogger); err != nil {
			server.AppLogger.Error("Failed to create Elasticsearch listings index", zap.Error(err))
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		server.AppLogger.Info("Received signal, shutting down server", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			server.AppLogger.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		server.AppLogger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		server.AppLogger.Info("Server shutdown complete")
	}
}
