package rpc

import (
	"context"
	"os/exec"
	"time"

	"github.com/guvensoft/codectx-mcp/internal/orchestrator"
	"github.com/guvensoft/codectx-mcp/internal/policy"
	"github.com/guvensoft/codectx-mcp/internal/store"
	"github.com/guvensoft/codectx-mcp/internal/weights"
)

// ServerName and ServerVersion populate initialize's serverInfo.
const (
	ServerName    = "codectx-mcp"
	ServerVersion = "0.1.0"
	ProtocolVersion = "2024-11-05"
)

// Server owns the long-lived values every handler closes over, constructed
// once at startup and injected into each handler, and builds the Registry
// that the stdio and HTTP transports both dispatch through.
type Server struct {
	Orchestrator *orchestrator.Orchestrator
	Store        store.Store
	Filter       *policy.Filter
	Weights      *weights.Manager
	DataDir      string
	StartedAt    time.Time

	// RunCommand executes a shell command for run_tests/run_task. It
	// inherits no timeout of its own; the caller is expected to provide one
	// via ctx. Overridable in tests.
	RunCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewServer builds a Server with the default RunCommand implementation.
func NewServer(orc *orchestrator.Orchestrator, st store.Store, filter *policy.Filter, wm *weights.Manager, dataDir string) *Server {
	return &Server{
		Orchestrator: orc,
		Store:        st,
		Filter:       filter,
		Weights:      wm,
		DataDir:      dataDir,
		StartedAt:    time.Now(),
		RunCommand:   runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Registry builds the full method dispatch table: lifecycle, tools,
// resources, and prompts.
func (s *Server) Registry() *Registry {
	reg := NewRegistry()
	s.registerLifecycle(reg)
	s.registerTools(reg)
	s.registerResources(reg)
	s.registerPrompts(reg)
	return reg
}
