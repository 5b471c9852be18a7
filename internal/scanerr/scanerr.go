// Package scanerr defines the recoverable failure taxonomy used across the
// scanner. Nothing in internal/* panics across a package boundary; a
// function either returns a value or one of these tagged errors.
package scanerr

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	ErrBinaryDetected        = errors.New("binary content detected")
	ErrMcpMethodNotFound     = errors.New("mcp method not found")
	ErrFindingBudgetExceeded = errors.New("finding budget exceeded")
	ErrUsage                 = errors.New("usage error")
)

// PathUnsafe describes a rejected path. No package in this module
// constructs it; pathsafe.IsSafe reports rejections with pathsafe.Unsafe.
type PathUnsafe struct {
	Path   string
	Reason string
}

func (e *PathUnsafe) Error() string {
	return fmt.Sprintf("unsafe path %s: %s", e.Path, e.Reason)
}

// FileTooLarge is returned when a file exceeds MaxScanBytes.
type FileTooLarge struct {
	Path  string
	Bytes int64
}

func (e *FileTooLarge) Error() string {
	return fmt.Sprintf("file too large: %s (%d bytes)", e.Path, e.Bytes)
}

// RegexTimeout describes a rule whose cumulative match time exceeded the
// ReDoS cap on a given file. No package in this module constructs it.
type RegexTimeout struct {
	RuleID string
	File   string
}

func (e *RegexTimeout) Error() string {
	return fmt.Sprintf("regex timeout: rule %s on %s", e.RuleID, e.File)
}

// RuleCompileError is recorded when a rule's pattern fails to compile; the
// pattern is dropped at load time (the whole rule only when none of its
// patterns compile) and the catalog load continues.
type RuleCompileError struct {
	RuleID  string
	Pattern string
	Cause   error
}

func (e *RuleCompileError) Error() string {
	return fmt.Sprintf("rule %s: pattern %q failed to compile: %v", e.RuleID, e.Pattern, e.Cause)
}

func (e *RuleCompileError) Unwrap() error { return e.Cause }

// CacheIOError wraps a cache persistence or read failure; callers log it
// and proceed without caching rather than failing the scan.
type CacheIOError struct {
	Op    string
	Cause error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Cause)
}

func (e *CacheIOError) Unwrap() error { return e.Cause }

// McpRPCError carries a JSON-RPC error object after retry exhaustion.
type McpRPCError struct {
	Code    int
	Message string
}

func (e *McpRPCError) Error() string {
	return fmt.Sprintf("mcp rpc error %d: %s", e.Code, e.Message)
}

// McpNetworkError wraps a transport-level failure after retry exhaustion.
type McpNetworkError struct {
	Cause error
}

func (e *McpNetworkError) Error() string {
	return fmt.Sprintf("mcp network error: %v", e.Cause)
}

func (e *McpNetworkError) Unwrap() error { return e.Cause }
