// Package mcp implements the JSON-RPC 2.0 HTTP client and virtualizer for
// Model Context Protocol servers (spec §4.6): request framing, retry
// with jittered backoff, SSE-tolerant response parsing, cursor-paginated
// listing, best-effort initialize, gated resource reading, and projection
// of remote server state into a virtual file tree the scanning engine
// can process like any other target.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"scanguard/internal/scanerr"
)

const maxResponseBytes = 10 * 1024 * 1024

// ClientOptions configures a Client.
type ClientOptions struct {
	BearerToken string
	Headers     map[string]string
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	// RequestsPerSecond paces outgoing calls so a scan never hammers a
	// remote MCP server; 0 uses the default of 5 req/s.
	RequestsPerSecond float64
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 5
	}
	return o
}

// Client is a JSON-RPC 2.0 client for a single MCP server endpoint.
type Client struct {
	url     string
	opts    ClientOptions
	http    *http.Client
	limiter *rate.Limiter
	nextID  int64
}

// NewClient builds a Client for serverURL. opts.Timeout bounds every
// individual HTTP call (spec §4.6 per-call timeout); opts.RequestsPerSecond
// paces them.
func NewClient(serverURL string, opts ClientOptions) *Client {
	opts = opts.withDefaults()
	return &Client{
		url:     serverURL,
		opts:    opts,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// Call issues a single JSON-RPC method call with retry/backoff, decoding
// the result into out (which may be nil to discard it). A -32601 "method
// not found" error is returned unwrapped via scanerr.ErrMcpMethodNotFound
// so callers that treat an absent feature as "empty list" can match it
// with errors.Is.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	id := atomic.AddInt64(&c.nextID, 1)
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, c.opts.RetryDelay, attempt); err != nil {
				return err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, status, err := c.doOnce(ctx, body)
		if status >= 400 && status < 500 {
			return &scanerr.McpNetworkError{Cause: fmt.Errorf("http %d", status)}
		}
		if status >= 500 {
			lastErr = &scanerr.McpNetworkError{Cause: fmt.Errorf("http %d", status)}
			continue
		}
		if err != nil {
			lastErr = &scanerr.McpNetworkError{Cause: err}
			continue
		}

		if resp.Error != nil {
			if resp.Error.Code == -32601 {
				return scanerr.ErrMcpMethodNotFound
			}
			return &scanerr.McpRPCError{Code: resp.Error.Code, Message: resp.Error.Message}
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("mcp: decode result: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, body []byte) (*rpcResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if c.opts.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.BearerToken)
	}
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}

	parsed, err := parseResponse(raw)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return parsed, resp.StatusCode, nil
}

// parseResponse decodes raw as a plain JSON-RPC object, or, if it looks
// like an SSE frame ("event: ..." on the first line), extracts the first
// "data:" line's JSON payload (spec §4.6 transport).
func parseResponse(raw []byte) (*rpcResponse, error) {
	trimmed := bytes.TrimSpace(raw)
	if bytes.HasPrefix(trimmed, []byte("event:")) {
		data := extractSSEData(trimmed)
		if data == nil {
			return nil, fmt.Errorf("mcp: sse frame without data line")
		}
		trimmed = data
	}
	var resp rpcResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("mcp: decode response: %w", err)
	}
	return &resp, nil
}

func extractSSEData(frame []byte) []byte {
	for _, line := range strings.Split(string(frame), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "data:") {
			return []byte(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	return nil
}

// sleepBackoff waits base*2^(attempt-1) (attempt counts retries from 1)
// plus 0-30% jitter, or returns ctx's
// error if it is cancelled first (spec §4.6 retry policy).
func sleepBackoff(ctx context.Context, base time.Duration, attempt int) error {
	delay := base << uint(attempt-1)
	jitter := time.Duration(rand.Int63n(int64(delay)*3/10 + 1))
	select {
	case <-time.After(delay + jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
