// Package pipeline is the scan orchestrator: it enumerates each target's
// files (or projects an MCP target into virtual files), fans file
// scanning out across bounded workers, enforces the per-file and global
// finding budgets, and runs a fixed post-pass order: meta-dedup,
// confidence scoring, confidence filtering, fix.
package pipeline

import (
	"context"

	"scanguard/internal/cache"
	"scanguard/internal/config"
	"scanguard/internal/model"
	"scanguard/internal/progress"
	"scanguard/internal/rules"
	"scanguard/internal/targets"
)

// MCPCollector projects a remote MCP target into the virtual files the
// engine scans like any other file; wired by cmd to internal/mcp.Collect.
// A nil collector turns a TargetMCP entry into a per-target error rather
// than failing the whole run.
type MCPCollector func(ctx context.Context, target model.Target) ([]model.VirtualFile, []string, error)

// Options configures a single Scan call.
type Options struct {
	Settings config.Settings
	Catalog  *rules.Catalog
	// Cache may be nil; a nil cache makes every file a miss.
	Cache       *cache.Cache
	Sink        progress.Sink
	IgnoreRules *targets.IgnoreRules

	Behavioral    bool
	IncludeBinary bool

	// EnableMeta turns on the cross-target duplicate-finding collapse.
	EnableMeta bool
	// ComputeConfidence attaches a confidence score/reason to every
	// surviving finding; MinConfidence additionally filters by it when
	// ComputeConfidence is also set (a zero MinConfidence never filters).
	ComputeConfidence bool
	MinConfidence     float64
	// Fix applies the comment-out pass after dedup/confidence/filter.
	Fix bool

	MCPCollector MCPCollector
	RunID        string
}
