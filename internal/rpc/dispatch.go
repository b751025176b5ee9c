package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler answers one dispatched method call. params is the raw JSON
// params object/array (nil if omitted); the return value is marshaled as
// the response's result.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Registry is the method-name-keyed dispatch table mapping a JSON-RPC
// method to the handler that answers it.
type Registry struct {
	handlers map[string]Handler
	// notifications are methods with no response, dispatched the same
	// way but never producing output.
	notifications map[string]Handler
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:      make(map[string]Handler),
		notifications: make(map[string]Handler),
	}
}

// Register adds a request handler for method.
func (r *Registry) Register(method string, h Handler) { r.handlers[method] = h }

// RegisterNotification adds a handler for a notification method; its
// return value (if any) is discarded.
func (r *Registry) RegisterNotification(method string, h Handler) { r.notifications[method] = h }

// Dispatch runs one request through the registry, converting panics and
// unknown methods into JSON-RPC error responses. It always returns a
// non-nil *Response for a request with an id; for a notification it
// returns nil (no response is ever emitted).
func (r *Registry) Dispatch(ctx context.Context, req *Request) *Response {
	if req.IsNotification() {
		if h, ok := r.notifications[req.Method]; ok {
			safeCall(ctx, h, req.Params)
		}
		// Unknown notifications are silently ignored; there is no id to reply to.
		return nil
	}

	h, ok := r.handlers[req.Method]
	if !ok {
		return errorResponse(req.ID, NewError(CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil))
	}

	result, err := safeCall(ctx, h, req.Params)
	if err != nil {
		if rpcErr, ok := err.(*Error); ok {
			return errorResponse(req.ID, rpcErr)
		}
		return errorResponse(req.ID, NewError(CodeInternal, err.Error(), nil))
	}
	return successResponse(req.ID, result)
}

// safeCall wraps a handler invocation in a recover so a panicking handler
// never crashes the dispatcher; a recovered panic is reported as a
// CodeInternal error.
func safeCall(ctx context.Context, h Handler, params json.RawMessage) (result interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = NewError(CodeInternal, fmt.Sprintf("internal error: %v", rec), nil)
		}
	}()
	return h(ctx, params)
}
