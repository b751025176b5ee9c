// Package rpc is the JSON-RPC surface: a hand-rolled dispatch table serving
// both a newline-delimited stdio transport and an HTTP POST /mcp transport,
// exposing the MCP-flavored lifecycle, tools, resources, and prompts method
// set. Handlers are a registry keyed by method name rather than an
// inheritance hierarchy, so adding a method is one Register call.
package rpc
