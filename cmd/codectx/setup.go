package main

import (
	"github.com/guvensoft/codectx-mcp/internal/config"
	"github.com/guvensoft/codectx-mcp/internal/indexer"
	"github.com/guvensoft/codectx-mcp/internal/policy"
)

// buildFilter scopes a policy.Filter to cfg.IndexRoot with no extra deny
// patterns; the indexer and watcher skip the reserved directories in
// their own directory walks.
func buildFilter(cfg config.Config) (*policy.Filter, error) {
	return policy.New([]string{cfg.IndexRoot}, nil)
}

// buildIndexerConfig maps resolved process config onto one indexing pass's
// configuration.
func buildIndexerConfig(cfg config.Config, mode indexer.Mode) indexer.Config {
	return indexer.Config{
		Root:        cfg.IndexRoot,
		DataDir:     cfg.DataDir,
		GraphDBPath: cfg.SQLiteDB,
		Mode:        mode,
		Namespace:   cfg.Namespace,
		Tenant:      cfg.Tenant,
	}
}
