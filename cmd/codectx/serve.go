package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/guvensoft/codectx-mcp/internal/config"
	"github.com/guvensoft/codectx-mcp/internal/engine"
	"github.com/guvensoft/codectx-mcp/internal/indexer"
	"github.com/guvensoft/codectx-mcp/internal/manifest"
	"github.com/guvensoft/codectx-mcp/internal/orchestrator"
	"github.com/guvensoft/codectx-mcp/internal/rpc"
	"github.com/guvensoft/codectx-mcp/internal/store"
	"github.com/guvensoft/codectx-mcp/internal/watcher"
	"github.com/guvensoft/codectx-mcp/internal/weights"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "launch the watcher, indexer, and JSON-RPC surface (stdio + HTTP)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPathFlag)
	if err != nil {
		return err
	}

	filter, err := buildFilter(cfg)
	if err != nil {
		return err
	}

	ix, err := indexer.New(buildIndexerConfig(cfg, indexer.ModeIncremental), filter)
	if err != nil {
		return fmt.Errorf("serve: build indexer: %w", err)
	}
	defer func() { _ = ix.Close() }()

	m, err := manifest.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("serve: manifest: %w", err)
	}

	graphStore, err := store.Open(cfg.SQLiteDB)
	if err != nil {
		return fmt.Errorf("serve: open graph store: %w", err)
	}
	defer func() { _ = graphStore.Close() }()

	wm, err := weights.Load(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("serve: load weights: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engineHandle, err := engine.Launch(ctx, engine.LaunchConfig{
		ExternalURL:    cfg.EngineURL,
		RerankURL:      cfg.RerankURL,
		FallbackSource: m.LoadSemanticEntries,
	})
	if err != nil {
		return fmt.Errorf("serve: launch semantic engine: %w", err)
	}
	defer func() { _ = engineHandle.Shutdown(context.Background()) }()

	orc := orchestrator.New(engineHandle.Client, graphStore, wm, m)

	runIndexPass := func(ctx context.Context) error {
		stats, err := ix.Run(ctx)
		if err != nil {
			return err
		}
		orc.ReloadFiles()
		log.Printf("reindexed: %d files, %d symbols, %d edges in %s",
			stats.FilesTotal, stats.Symbols, stats.Edges, stats.Duration)
		return nil
	}

	if cfg.FastStart {
		log.Println("MCP_FAST_START=1: serving before the initial index pass completes")
		go func() {
			if err := runIndexPass(ctx); err != nil {
				log.Printf("initial index pass failed: %v", err)
			}
		}()
	} else {
		if err := runIndexPass(ctx); err != nil {
			return fmt.Errorf("serve: initial index pass: %w", err)
		}
	}

	w, err := watcher.New(cfg.IndexRoot, filter, runIndexPass, nil)
	if err != nil {
		return fmt.Errorf("serve: build watcher: %w", err)
	}
	w.Start(ctx)
	defer func() { _ = w.Stop() }()

	server := rpc.NewServer(orc, graphStore, filter, wm, cfg.DataDir)
	reg := server.Registry()

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: &rpc.HTTPHandler{Registry: reg},
	}

	errCh := make(chan error, 2)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errCh <- rpc.ServeStdio(ctx, reg, os.Stdin, os.Stdout)
	}()
	go func() {
		log.Printf("MCP HTTP server listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down gracefully...", sig)
	case err := <-errCh:
		if err != nil {
			log.Printf("server error: %v", err)
		}
	}

	cancel()
	_ = httpSrv.Shutdown(context.Background())
	log.Println("server stopped")
	return nil
}
