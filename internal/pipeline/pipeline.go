package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"scanguard/internal/config"
	"scanguard/internal/engine"
	"scanguard/internal/fixer"
	"scanguard/internal/model"
	"scanguard/internal/pathsafe"
	"scanguard/internal/progress"
	"scanguard/internal/targets"
)

// Scan runs every target to completion and returns the aggregated
// result. A target-level failure (unsafe root, unreachable MCP server)
// is recorded on that Target's Error field rather than aborting the run;
// ctx cancellation stops further file scanning and returns whatever was
// collected so far rather than an error (spec §8: partial results on
// cancellation, never a hard failure).
func Scan(ctx context.Context, tgts []model.Target, opts Options) model.ScanResult {
	start := time.Now()
	sink := opts.Sink
	if sink == nil {
		sink = progress.NoopSink{}
	}
	sink.Emit(progress.Event{Type: progress.EventRunStarted, RunID: opts.RunID})

	st := newState(opts.Settings.MaxTotalFindings)
	outTargets := make([]model.Target, 0, len(tgts))

	for _, t := range tgts {
		outTargets = append(outTargets, runTarget(ctx, t, opts, st, sink))
		if ctx.Err() != nil {
			break
		}
	}

	findings := st.findingsSnapshot()
	if opts.EnableMeta {
		findings = Dedup(findings)
	}

	var dropped int
	if opts.ComputeConfidence {
		for i := range findings {
			findings[i] = engine.ScoreConfidence(findings[i])
		}
		findings, dropped = filterConfidence(findings, opts.MinConfidence)
	}

	if opts.Fix {
		res := fixer.Apply(findings, readFileForFix)
		st.addWarnings(res.Warnings)
	}

	result := model.ScanResult{
		Targets:              outTargets,
		Findings:             findings,
		ScannedFiles:         st.scannedCount(),
		ElapsedMS:            time.Since(start).Milliseconds(),
		Warnings:             st.warningsSnapshot(),
		DroppedLowConfidence: dropped,
	}

	status := "ok"
	if ctx.Err() != nil {
		status = "cancelled"
	}
	sink.Emit(progress.Event{
		Type:         progress.EventRunFinished,
		RunID:        opts.RunID,
		Status:       status,
		FindingCount: len(result.Findings),
		DurationMS:   result.ElapsedMS,
	})
	return result
}

// runTarget enumerates and scans a single target's files, returning the
// Target annotated with an Error if enumeration/collection failed.
func runTarget(ctx context.Context, t model.Target, opts Options, st *state, sink progress.Sink) model.Target {
	targetStart := time.Now()
	sink.Emit(progress.Event{Type: progress.EventTargetStarted, Target: t.Name})

	items, warnings, err := itemsFor(ctx, t, opts)
	st.addWarnings(warnings)
	if err != nil {
		emitTargetFinished(sink, t.Name, targetStart, 0)
		return targets.WithError(t, err)
	}
	if t.Kind == model.TargetMCP {
		t = withMCPObjectCounts(t, items)
	}

	workers := computeWorkers(opts.Settings, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var targetFindings int64
	var targetScanned int64
	for _, item := range items {
		item := item
		g.Go(func() error {
			if gctx.Err() != nil || st.budgetExceeded() {
				return nil
			}
			content, warn, err := item.read()
			if err != nil {
				st.addWarning(err.Error())
				return nil
			}
			st.addWarning(warn)

			eopts := engine.Options{
				RegexTimeout:              opts.Settings.RegexTimeout,
				MaxFindingsPerRulePerFile: engine.DefaultOptions().MaxFindingsPerRulePerFile,
				Behavioral:                opts.Behavioral,
			}
			result := scanOneFile(item.path, content, opts.Catalog, opts.Cache, eopts)
			result.Findings = filterSuppressed(result.Findings, opts.IgnoreRules, t.Path, item.path)
			capped, capWarn := capPerFile(result.Findings, opts.Settings.MaxFindingsPerFile)
			st.addWarning(capWarn)
			st.addFindings(capped)
			st.addWarnings(result.Warnings)
			st.incScanned()
			atomic.AddInt64(&targetFindings, int64(len(capped)))
			sink.Emit(progress.Event{
				Type:         progress.EventTargetFileScanned,
				Target:       t.Name,
				Message:      item.path,
				FindingCount: len(capped),
			})
			if scanned := atomic.AddInt64(&targetScanned, 1); scanned%targetProgressInterval == 0 {
				sink.Emit(progress.Event{
					Type:       progress.EventTargetProgress,
					Target:     t.Name,
					DurationMS: time.Since(targetStart).Milliseconds(),
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	emitTargetFinished(sink, t.Name, targetStart, int(atomic.LoadInt64(&targetFindings)))
	return t
}

// filterSuppressed drops findings silenced by a rule-scoped
// .scanguardignore exception (see internal/targets.IgnoreRules). relPath
// is computed against root; a target whose path can't be relativized
// (an MCP virtual target, say) falls back to matching the raw item path.
func filterSuppressed(findings []model.Finding, rules *targets.IgnoreRules, root, path string) []model.Finding {
	if rules == nil {
		return findings
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	out := findings[:0]
	for _, f := range findings {
		if rules.ShouldSuppressFinding(f.RuleID, rel) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// targetProgressInterval is how many files a target scans between
// EventTargetProgress heartbeats; fine enough to keep a TUI watching a
// large target from looking stalled, coarse enough not to flood the sink.
const targetProgressInterval = 25

func emitTargetFinished(sink progress.Sink, target string, start time.Time, findingCount int) {
	sink.Emit(progress.Event{
		Type:         progress.EventTargetFinished,
		Target:       target,
		Status:       "ok",
		FindingCount: findingCount,
		DurationMS:   time.Since(start).Milliseconds(),
	})
}

// itemsFor resolves a target into scannable work items: a recursive disk
// walk for filesystem kinds, or the MCPCollector's virtual files for
// TargetMCP.
func itemsFor(ctx context.Context, t model.Target, opts Options) ([]workItem, []string, error) {
	if t.Kind == model.TargetMCP {
		if opts.MCPCollector == nil {
			return nil, nil, errors.New("no mcp collector configured")
		}
		vfiles, warnings, err := opts.MCPCollector(ctx, t)
		if err != nil {
			return nil, warnings, err
		}
		items := make([]workItem, 0, len(vfiles))
		for _, vf := range vfiles {
			vf := vf
			items = append(items, workItem{path: vf.Path, read: func() ([]byte, string, error) {
				return vf.Content, "", nil
			}})
		}
		return items, warnings, nil
	}

	walkOpts := targets.WalkOptions{IncludeBinary: opts.IncludeBinary, IgnoreRules: opts.IgnoreRules}
	paths, warnings, err := targets.Walk(t.Path, walkOpts, pathsafe.NewVisitedSet())
	if err != nil {
		return nil, warnings, err
	}
	policy := pathsafe.SizePolicy{
		MaxScanBytes:       opts.Settings.MaxFileSize,
		StreamingThreshold: opts.Settings.StreamingThreshold,
	}
	return diskWorkItems(paths, policy), warnings, nil
}

// withMCPObjectCounts tallies the virtualized paths by object kind and
// records them on the target's Meta so the report envelope can populate
// detected.mcp.objects (spec §6) without re-walking the virtual tree.
func withMCPObjectCounts(t model.Target, items []workItem) model.Target {
	seen := map[string]map[string]bool{"tools": {}, "prompts": {}, "resources": {}}
	instructions := 0
	for _, item := range items {
		for _, kind := range []string{"tools", "prompts", "resources"} {
			marker := "/" + kind + "/"
			idx := strings.Index(item.path, marker)
			if idx < 0 {
				continue
			}
			rest := item.path[idx+len(marker):]
			if slash := strings.Index(rest, "/"); slash >= 0 {
				seen[kind][rest[:slash]] = true
			}
		}
		if strings.HasSuffix(item.path, "/instructions.md") {
			instructions++
		}
	}
	if t.Meta == nil {
		t.Meta = map[string]string{}
	}
	t.Meta["mcp_tools"] = strconv.Itoa(len(seen["tools"]))
	t.Meta["mcp_prompts"] = strconv.Itoa(len(seen["prompts"]))
	t.Meta["mcp_resources"] = strconv.Itoa(len(seen["resources"]))
	t.Meta["mcp_instructions"] = strconv.Itoa(instructions)
	return t
}

// computeWorkers derives the errgroup concurrency limit from spec §4.5's
// two execution modes: at or above the parallel threshold, partition
// into min(cpus, files, 8) chunks; below it, bounded concurrency of
// min(32, max(4, cpus/2)). Both modes fold onto a single errgroup limit
// here rather than a literal chunk-partition, since a worker-limited
// errgroup produces the same file-to-worker assignment without a
// separate chunking step (see DESIGN.md). Disabling parallelism forces
// strictly sequential execution (limit 1).
func computeWorkers(s config.Settings, fileCount int) int {
	if !s.ParallelEnabled {
		return 1
	}
	if s.ParallelWorkers > 0 {
		return s.ParallelWorkers
	}
	cpus := runtime.NumCPU()
	if fileCount >= s.ParallelThreshold {
		return clampInt(minInt(cpus, fileCount), 1, 8)
	}
	return clampInt(cpus/2, 4, 32)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func readFileForFix(path string) ([]byte, error) {
	return os.ReadFile(path)
}
