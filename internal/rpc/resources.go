package rpc

import (
	"context"
	"encoding/json"
	"os"
	"strings"
)

type resourceDescriptor struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type readResourceParams struct {
	URI string `json:"uri"`
}

// registerResources wires resources/list, resources/read, and roots/list.
func (s *Server) registerResources(reg *Registry) {
	reg.Register("resources/list", s.handleResourcesList)
	reg.Register("resources/read", s.handleResourcesRead)
	reg.Register("roots/list", s.handleRootsList)
}

func (s *Server) handleResourcesList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	paths := s.Orchestrator.Files()
	out := make([]resourceDescriptor, 0, len(paths))
	for _, p := range paths {
		out = append(out, resourceDescriptor{URI: toFileURI(p), Name: p})
	}
	return map[string]interface{}{"resources": out}, nil
}

func (s *Server) handleRootsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	roots := append([]string{}, s.Filter.Roots()...)
	roots = append(roots, s.DataDir)
	return map[string]interface{}{"roots": roots}, nil
}

func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p readResourceParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, NewError(CodeInvalidParams, "invalid params", nil)
		}
	}
	path := fromFileURI(p.URI)
	if path == "" {
		return nil, NewError(CodeInvalidParams, "uri is required", nil)
	}

	allowed, err := s.Filter.AllowRead(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewError(CodeReadFailure, "file not found", map[string]string{"path": path})
		}
		return nil, NewError(CodeReadFailure, err.Error(), map[string]string{"path": path})
	}
	if !allowed {
		if !rootContained(s.Filter.Roots(), path) {
			return nil, NewError(CodeRootNotAllowed, "path is outside allowed roots", map[string]string{"path": path})
		}
		return nil, NewError(CodePolicyDenied, "path denied by policy", map[string]string{"path": path})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewError(CodeReadFailure, err.Error(), map[string]string{"path": path})
	}
	return map[string]interface{}{
		"uri":      toFileURI(path),
		"mimeType": "text/plain",
		"text":     string(data),
	}, nil
}

func toFileURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	return "file://" + path
}

func fromFileURI(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func rootContained(roots []string, path string) bool {
	for _, r := range roots {
		if strings.HasPrefix(path, r) {
			return true
		}
	}
	return false
}
