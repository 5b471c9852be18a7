package mcp

import "context"

// InitializeResult is the subset of an MCP server's initialize response the
// virtualizer cares about (spec §4.6: protocol version, capabilities, and
// any top-level instructions the server wants surfaced to clients).
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      map[string]any `json:"serverInfo"`
	Instructions    string         `json:"instructions"`
}

// Initialize issues the best-effort handshake call. A server that rejects
// or ignores initialize is not fatal to virtualization; callers should log
// the error and continue with whatever listing calls the server does
// support (spec §4.6: initialize is advisory, not a precondition).
func (c *Client) Initialize(ctx context.Context, clientName, clientVersion string) (*InitializeResult, error) {
	params := map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": clientVersion,
		},
	}
	var result InitializeResult
	if err := c.Call(ctx, "initialize", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
