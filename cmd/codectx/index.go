package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/guvensoft/codectx-mcp/internal/config"
	"github.com/guvensoft/codectx-mcp/internal/indexer"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "run one indexing pass over the configured root and exit",
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
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
		return err
	}
	defer func() { _ = ix.Close() }()

	stats, err := ix.Run(context.Background())
	if err != nil {
		return err
	}
	log.Printf("indexed %d files (%d parsed, %d reused, %d failed), %d symbols, %d edges, %d semantic entries in %s",
		stats.FilesTotal, stats.FilesParsed, stats.FilesReused, stats.FilesFailed,
		stats.Symbols, stats.Edges, stats.SemanticEntries, stats.Duration)
	return nil
}
