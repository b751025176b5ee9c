package rpc

import (
	"context"
	"encoding/json"
)

type initializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      serverInfo             `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// registerLifecycle wires initialize/ping/shutdown and the two notifications
// the client may send unsolicited.
func (s *Server) registerLifecycle(reg *Registry) {
	reg.Register("initialize", s.handleInitialize)
	reg.Register("ping", s.handlePing)
	reg.Register("shutdown", s.handleShutdown)
	reg.RegisterNotification("initialized", noop)
	reg.RegisterNotification("sessionConfigured", noop)
}

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return initializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: map[string]interface{}{
			"tools":     map[string]interface{}{},
			"resources": map[string]interface{}{},
			"prompts":   map[string]interface{}{},
		},
		ServerInfo: serverInfo{Name: ServerName, Version: ServerVersion},
	}, nil
}

func (s *Server) handlePing(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return map[string]interface{}{"ok": true}, nil
}

func (s *Server) handleShutdown(ctx context.Context, params json.RawMessage) (interface{}, error) {
	// shutdown only acknowledges the request: it does not stop the
	// watcher, the semantic engine or the process. That teardown lives in
	// cmd/codectx and runs on SIGINT/SIGTERM or when the stdio stream ends.
	return map[string]interface{}{"ok": true}, nil
}

func noop(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return nil, nil
}
