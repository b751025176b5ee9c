// Package config resolves process configuration from an optional TOML file
// plus a handful of environment variables, environment taking precedence
// over the file.
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the full set of process settings.
type Config struct {
	IndexRoot   string `toml:"index_root"`
	DataDir     string `toml:"data_dir"`
	SQLiteDB    string `toml:"sqlite_db"`
	EngineURL   string `toml:"engine_url"`
	RerankURL   string `toml:"rerank_url"`
	HTTPPort    int    `toml:"mcp_http_port"`
	FastStart   bool   `toml:"mcp_fast_start"`
	Namespace   string `toml:"namespace"`
	Tenant      string `toml:"tenant"`
}

// DefaultHTTPPort is the MCP_HTTP_PORT value used when nothing overrides it.
const DefaultHTTPPort = 7450

// Load reads an optional TOML file at path (skipped if path is empty or the
// file doesn't exist), then overlays every recognized environment variable
// that is set, and finally applies defaults for anything still empty.
func Load(path string) (Config, error) {
	cfg := Config{HTTPPort: DefaultHTTPPort}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, err
			}
		}
	}

	overlayString(&cfg.IndexRoot, "INDEX_ROOT")
	overlayString(&cfg.DataDir, "DATA_DIR")
	overlayString(&cfg.SQLiteDB, "SQLITE_DB")
	overlayString(&cfg.EngineURL, "ENGINE_URL")
	overlayString(&cfg.Namespace, "INDEX_NAMESPACE")
	overlayString(&cfg.Tenant, "INDEX_TENANT")

	if v := os.Getenv("MCP_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.HTTPPort = port
		}
	}
	if v := os.Getenv("MCP_FAST_START"); v == "1" {
		cfg.FastStart = true
	}

	if cfg.IndexRoot == "" {
		cfg.IndexRoot = "."
	}
	if cfg.DataDir == "" {
		cfg.DataDir = ".codectx"
	}
	if cfg.SQLiteDB == "" {
		cfg.SQLiteDB = cfg.DataDir + "/graph.db"
	}
	return cfg, nil
}

func overlayString(field *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*field = v
	}
}
