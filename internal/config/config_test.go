package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, v := range []string{
		"INDEX_ROOT", "DATA_DIR", "SQLITE_DB", "ENGINE_URL",
		"INDEX_NAMESPACE", "INDEX_TENANT", "MCP_HTTP_PORT", "MCP_FAST_START",
	} {
		t.Setenv(v, "")
	}
}

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ".", cfg.IndexRoot)
	require.Equal(t, ".codectx", cfg.DataDir)
	require.Equal(t, ".codectx/graph.db", cfg.SQLiteDB)
	require.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	require.False(t, cfg.FastStart)
}

func TestLoadReadsTOMLFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "codectx.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
index_root = "/repo"
data_dir = "/repo/.codectx"
mcp_http_port = 9000
namespace = "acme"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/repo", cfg.IndexRoot)
	require.Equal(t, "/repo/.codectx", cfg.DataDir)
	require.Equal(t, 9000, cfg.HTTPPort)
	require.Equal(t, "acme", cfg.Namespace)
}

func TestLoadToleratesMissingFilePath(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	require.Equal(t, ".", cfg.IndexRoot)
}

func TestEnvOverlayTakesPrecedenceOverFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "codectx.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
index_root = "/from-file"
mcp_http_port = 1111
`), 0o644))

	t.Setenv("INDEX_ROOT", "/from-env")
	t.Setenv("MCP_HTTP_PORT", "2222")
	t.Setenv("MCP_FAST_START", "1")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/from-env", cfg.IndexRoot)
	require.Equal(t, 2222, cfg.HTTPPort)
	require.True(t, cfg.FastStart)
}

func TestSQLiteDBDefaultsUnderDataDir(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/var/codectx")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/var/codectx/graph.db", cfg.SQLiteDB)
}

func TestInvalidHTTPPortEnvIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("MCP_HTTP_PORT", "not-a-number")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
}
