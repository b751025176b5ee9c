package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guvensoft/codectx-mcp/internal/engine"
	"github.com/guvensoft/codectx-mcp/internal/manifest"
	"github.com/guvensoft/codectx-mcp/internal/orchestrator"
	"github.com/guvensoft/codectx-mcp/internal/policy"
	"github.com/guvensoft/codectx-mcp/internal/store"
	"github.com/guvensoft/codectx-mcp/internal/weights"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	m, err := manifest.New(dir)
	require.NoError(t, err)
	entries := []types.SemanticEntry{
		{ID: "orders/order.service.ts:OrderService.createOrder", File: "orders/order.service.ts",
			Symbol: "OrderService.createOrder", StartLine: 1, EndLine: 5, Text: "class OrderService { createOrder(items) {} }"},
	}
	files := []types.File{{Path: "orders/order.service.ts"}}
	require.NoError(t, m.WriteAll(files, entries, nil))

	handle, err := engine.Launch(context.Background(), engine.LaunchConfig{
		FallbackSource: func() []types.SemanticEntry { return entries },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Shutdown(context.Background()) })

	st, err := store.Open(filepath.Join(dir, "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tx, err := st.BeginRebuild(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Clear(context.Background()))
	fid, err := tx.UpsertFile(context.Background(), "orders/order.service.ts")
	require.NoError(t, err)
	require.NoError(t, tx.InsertSymbols(context.Background(), fid, []types.Symbol{
		{Name: "OrderService.createOrder", Kind: types.KindMethod, File: "orders/order.service.ts", StartLine: 2, EndLine: 4},
	}))
	require.NoError(t, tx.Commit())

	wm, err := weights.Load(dir)
	require.NoError(t, err)

	filter, err := policy.New([]string{dir}, nil)
	require.NoError(t, err)

	orc := orchestrator.New(handle.Client, st, wm, m)
	return NewServer(orc, st, filter, wm, dir)
}

func TestInitializeReturnsProtocolAndCapabilities(t *testing.T) {
	s := newTestServer(t)
	reg := s.Registry()

	req := &Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "initialize",
		Params: json.RawMessage(`{"clientInfo":{"name":"probe"}}`)}
	resp := reg.Dispatch(context.Background(), req)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result initializeResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Equal(t, "2024-11-05", result.ProtocolVersion)
	require.Contains(t, result.Capabilities, "tools")
	require.Contains(t, result.Capabilities, "resources")
	require.Contains(t, result.Capabilities, "prompts")
	require.NotEmpty(t, result.ServerInfo.Name)
}

func TestRootsListIncludesAllowedRootsAndDataDir(t *testing.T) {
	s := newTestServer(t)
	reg := s.Registry()

	resp := reg.Dispatch(context.Background(), &Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "roots/list"})
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	data, _ := json.Marshal(resp.Result)
	var out struct{ Roots []string }
	require.NoError(t, json.Unmarshal(data, &out))
	require.Contains(t, out.Roots, s.DataDir)
	require.Subset(t, out.Roots, s.Filter.Roots())
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	s := newTestServer(t)
	reg := s.Registry()

	resp := reg.Dispatch(context.Background(), &Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "does/not/exist"})
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestNotificationProducesNoResponse(t *testing.T) {
	s := newTestServer(t)
	reg := s.Registry()

	resp := reg.Dispatch(context.Background(), &Request{JSONRPC: "2.0", Method: "initialized"})
	require.Nil(t, resp)
}

func TestToolsCallSearchCodeFindsCreateOrder(t *testing.T) {
	s := newTestServer(t)
	reg := s.Registry()

	params, err := json.Marshal(toolCallParams{Name: "search_code", Arguments: json.RawMessage(`{"query":"create order","topK":3}`)})
	require.NoError(t, err)

	resp := reg.Dispatch(context.Background(), &Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "tools/call", Params: params})
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	require.Contains(t, strings.ToLower(mustMarshal(resp.Result)), "createorder")
}

func mustMarshal(v interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// TestHTTPBatchReturnsOnlyNonNotificationResponses checks that a batch
// request's response array omits an entry for every notification in the
// batch, returning only responses to requests that carried an id.
func TestHTTPBatchReturnsOnlyNonNotificationResponses(t *testing.T) {
	s := newTestServer(t)
	h := &HTTPHandler{Registry: s.Registry()}
	srv := httptest.NewServer(h)
	defer srv.Close()

	body := `[{"jsonrpc":"2.0","id":1,"method":"initialize"},{"jsonrpc":"2.0","method":"initialized"},{"jsonrpc":"2.0","id":2,"method":"tools/list"}]`
	resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 2)
	require.JSONEq(t, "1", string(out[0].ID))
	require.JSONEq(t, "2", string(out[1].ID))
}

func TestHTTPSingleNotificationReturns204(t *testing.T) {
	s := newTestServer(t)
	h := &HTTPHandler{Registry: s.Registry()}
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(`{"jsonrpc":"2.0","method":"initialized"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHTTPWrongMethodReturns405(t *testing.T) {
	s := newTestServer(t)
	h := &HTTPHandler{Registry: s.Registry()}
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/mcp")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHTTPWrongPathReturns404(t *testing.T) {
	s := newTestServer(t)
	h := &HTTPHandler{Registry: s.Registry()}
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/other", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResourcesReadDeniesPathOutsideRoots(t *testing.T) {
	s := newTestServer(t)
	reg := s.Registry()

	params, _ := json.Marshal(readResourceParams{URI: "file:///etc/passwd"})
	resp := reg.Dispatch(context.Background(), &Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "resources/read", Params: params})
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeRootNotAllowed, resp.Error.Code)
}

func TestPromptsCallUnknownIntentIsMethodNotFound(t *testing.T) {
	s := newTestServer(t)
	reg := s.Registry()

	params, _ := json.Marshal(promptCallParams{Name: "bogus"})
	resp := reg.Dispatch(context.Background(), &Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "prompts/call", Params: params})
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestGetWeightsReturnsNormalizedDefaults(t *testing.T) {
	s := newTestServer(t)
	reg := s.Registry()

	params, _ := json.Marshal(toolCallParams{Name: "get_weights"})
	resp := reg.Dispatch(context.Background(), &Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "tools/call", Params: params})
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var out struct{ Content types.Weights }
	require.NoError(t, json.Unmarshal(data, &out))
	require.InDelta(t, types.DefaultWeights().Semantic, out.Content.Semantic, 1e-9)
	require.InDelta(t, 1.0, out.Content.Semantic+out.Content.Lexical+out.Content.Graph+out.Content.Reranker, 1e-9)
}
