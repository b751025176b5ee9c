package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// echoChild reads newline-framed requests off stdinR and answers each one
// with a success response carrying the same id, simulating a well-behaved
// stdio child on the other end of a Bridge.
func echoChild(t *testing.T, stdinR io.Reader, stdoutW io.WriteCloser) {
	scanner := bufio.NewScanner(stdinR)
	for scanner.Scan() {
		var req Request
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &req))
		resp := Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]bool{"ok": true}}
		data, err := json.Marshal(resp)
		require.NoError(t, err)
		_, _ = stdoutW.Write(append(data, '\n'))
	}
}

func TestBridgeCallRoundTripsThroughFreshCorrelationID(t *testing.T) {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	defer stdinW.Close()
	defer stdoutW.Close()

	b := NewBridge(stdinW)
	go func() { _ = b.ReadLoop(stdoutR) }()
	go echoChild(t, stdinR, stdoutW)

	req := &Request{JSONRPC: "2.0", ID: json.RawMessage(`42`), Method: "ping"}
	resp, err := b.Call(context.Background(), req)
	require.NoError(t, err)
	require.JSONEq(t, `42`, string(resp.ID))
	require.Nil(t, resp.Error)
}

func TestBridgeCallTranslatesIDBackEvenWhenChildSeesAFreshOne(t *testing.T) {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	defer stdinW.Close()
	defer stdoutW.Close()

	seen := make(chan json.RawMessage, 1)
	b := NewBridge(stdinW)
	go func() { _ = b.ReadLoop(stdoutR) }()
	go func() {
		scanner := bufio.NewScanner(stdinR)
		for scanner.Scan() {
			var req Request
			_ = json.Unmarshal(scanner.Bytes(), &req)
			seen <- req.ID
			resp := Response{JSONRPC: "2.0", ID: req.ID, Result: "pong"}
			data, _ := json.Marshal(resp)
			_, _ = stdoutW.Write(append(data, '\n'))
		}
	}()

	req := &Request{JSONRPC: "2.0", ID: json.RawMessage(`"caller-id"`), Method: "ping"}
	resp, err := b.Call(context.Background(), req)
	require.NoError(t, err)

	childSawID := <-seen
	require.NotEqual(t, `"caller-id"`, string(childSawID)) // bridge substitutes a fresh correlator id
	require.JSONEq(t, `"caller-id"`, string(resp.ID))      // but translates the response back
}

func TestBridgeCallForwardsNotificationWithoutCorrelation(t *testing.T) {
	stdinR, stdinW := io.Pipe()
	defer stdinW.Close()

	b := NewBridge(stdinW)

	lineCh := make(chan []byte, 1)
	go func() {
		scanner := bufio.NewScanner(stdinR)
		if scanner.Scan() {
			lineCh <- append([]byte{}, scanner.Bytes()...)
		}
	}()

	req := &Request{JSONRPC: "2.0", Method: "initialized"}
	resp, err := b.Call(context.Background(), req)
	require.NoError(t, err)
	require.Nil(t, resp)

	select {
	case line := <-lineCh:
		var forwarded Request
		require.NoError(t, json.Unmarshal(line, &forwarded))
		require.Equal(t, "initialized", forwarded.Method)
		require.True(t, forwarded.IsNotification())
	case <-time.After(time.Second):
		t.Fatal("notification was never forwarded to the child")
	}
}

func TestBridgeCallReturnsContextErrorWhenChildNeverAnswers(t *testing.T) {
	b := NewBridge(io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req := &Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "ping"}
	resp, err := b.Call(ctx, req)
	require.Nil(t, resp)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
