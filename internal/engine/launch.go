package engine

import (
	"context"
	"net"
	"net/http"
	"os/exec"
	"time"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// LaunchConfig configures the startup sequence: attempt to launch an
// external engine process and wait on its health, falling back to the
// in-process FallbackEngine if it never becomes healthy.
type LaunchConfig struct {
	// ExternalURL is the base URL an already-running (or launchable)
	// external engine listens on. Empty skips straight to the fallback.
	ExternalURL string
	// Command/Args optionally launch the external engine as a child
	// process before probing ExternalURL. Empty Command means the engine
	// is expected to already be running at ExternalURL, or not at all.
	Command string
	Args    []string
	// RerankURL optionally enables the reranker signal.
	RerankURL string
	// FallbackSource feeds the in-process fallback engine.
	FallbackSource func() []types.SemanticEntry
	// FallbackAddr is the loopback address the fallback engine's HTTP
	// server binds to when the external engine is unavailable.
	FallbackAddr string
}

// Handle is the running engine's client plus its shutdown function.
type Handle struct {
	Client   *Client
	Shutdown func(context.Context) error
}

// Launch implements the startup sequence: try the external engine, then
// fall back to the in-process one.
func Launch(ctx context.Context, cfg LaunchConfig) (*Handle, error) {
	var proc *exec.Cmd
	if cfg.Command != "" {
		proc = exec.CommandContext(ctx, cfg.Command, cfg.Args...)
		_ = proc.Start() // best-effort; health probing below decides success.
	}

	if cfg.ExternalURL != "" {
		client := NewClient(cfg.ExternalURL, cfg.RerankURL)
		if probeHealth(ctx, client) {
			return &Handle{
				Client: client,
				Shutdown: func(context.Context) error {
					if proc != nil && proc.Process != nil {
						return proc.Process.Kill()
					}
					return nil
				},
			}, nil
		}
	}
	if proc != nil && proc.Process != nil {
		_ = proc.Process.Kill()
	}

	return startFallback(cfg)
}

// probeHealth polls GET /health up to HealthProbeBudget/HealthProbeInterval
// times (40 probes x 500ms = 20s), returning true on the first 2xx.
func probeHealth(ctx context.Context, client *Client) bool {
	deadline := time.Now().Add(HealthProbeBudget)
	for time.Now().Before(deadline) {
		probeCtx, cancel := context.WithTimeout(ctx, HealthProbeInterval)
		ok := client.Health(probeCtx)
		cancel()
		if ok {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(HealthProbeInterval):
		}
	}
	return false
}

func startFallback(cfg LaunchConfig) (*Handle, error) {
	addr := cfg.FallbackAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	handler := NewFallbackEngine(cfg.FallbackSource)
	srv := &http.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()

	client := NewClient("http://"+ln.Addr().String(), cfg.RerankURL)
	return &Handle{
		Client: client,
		Shutdown: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	}, nil
}
