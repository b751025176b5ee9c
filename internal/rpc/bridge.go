package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BridgeTimeout is the per-request reap budget for a pending correlator
// entry: a call that outlives it is failed with ErrBridgeTimeout.
const BridgeTimeout = 30 * time.Second

// ErrBridgeTimeout is returned by Call when a stdio child never answers
// within BridgeTimeout. Call returns it as a plain error; Bridge does not
// itself build a JSON-RPC error response for it.
var ErrBridgeTimeout = errors.New("rpc: bridge timed out waiting for child response")

// Bridge fronts a stdio child process with an HTTP-facing correlator: every
// forwarded request is registered under a fresh id, the frame is written to
// the child's stdin, and the call blocks until a response with the matching
// id arrives on the child's stdout.
type Bridge struct {
	writer io.Writer

	mu      sync.Mutex
	pending map[string]chan *Response
}

// NewBridge wraps a child process's stdin/stdout. Callers must also run
// ReadLoop on the child's stdout in a separate goroutine.
func NewBridge(stdin io.Writer) *Bridge {
	return &Bridge{writer: stdin, pending: make(map[string]chan *Response)}
}

// ReadLoop consumes newline-delimited responses from the child's stdout and
// resolves the matching pending call. It returns when r is exhausted or
// returns an error.
func (b *Bridge) ReadLoop(r io.Reader) error {
	return ServeLines(r, func(line []byte) {
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			return
		}
		key := string(resp.ID)
		b.mu.Lock()
		ch, ok := b.pending[key]
		if ok {
			delete(b.pending, key)
		}
		b.mu.Unlock()
		if ok {
			ch <- &resp
		}
	})
}

// Call forwards req to the child, substituting a fresh correlator id, and
// blocks for either a matching response, ctx cancellation, or BridgeTimeout.
// Notifications are forwarded without correlation and Call returns
// immediately with a nil response.
func (b *Bridge) Call(ctx context.Context, req *Request) (*Response, error) {
	if req.IsNotification() {
		return nil, b.write(req)
	}

	idJSON, _ := json.Marshal(uuid.NewString())
	key := string(idJSON)
	outbound := *req
	outbound.ID = idJSON

	ch := make(chan *Response, 1)
	b.mu.Lock()
	b.pending[key] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, key)
		b.mu.Unlock()
	}()

	if err := b.write(&outbound); err != nil {
		return nil, err
	}

	timer := time.NewTimer(BridgeTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		resp.ID = req.ID // translate back to the caller's original id
		return resp, nil
	case <-timer.C:
		return nil, ErrBridgeTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bridge) write(req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.writer.Write(data); err != nil {
		return err
	}
	_, err = b.writer.Write([]byte("\n"))
	return err
}
