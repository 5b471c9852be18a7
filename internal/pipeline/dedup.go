package pipeline

import (
	"strconv"

	"scanguard/internal/model"
)

// Dedup collapses findings sharing the same DedupKey, keeping the first
// occurrence encountered. Order is otherwise preserved, so repeated runs
// over the same input produce the same output (spec §4.5 meta-dedup,
// §8 invariant: dedup never reorders survivors).
func Dedup(findings []model.Finding) []model.Finding {
	seen := make(map[string]bool, len(findings))
	out := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		key := f.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

// filterConfidence drops findings below min, returning the survivors and
// the count dropped (reported as ScanResult.DroppedLowConfidence).
func filterConfidence(findings []model.Finding, min float64) ([]model.Finding, int) {
	if min <= 0 {
		return findings, 0
	}
	out := make([]model.Finding, 0, len(findings))
	dropped := 0
	for _, f := range findings {
		if f.Confidence < min {
			dropped++
			continue
		}
		out = append(out, f)
	}
	return out, dropped
}

// capPerFile truncates fs to limit, warning once per file when truncated
// (spec §4.3 per-file finding cap, distinct from the per-rule cap the
// engine already enforces).
func capPerFile(fs []model.Finding, limit int) ([]model.Finding, string) {
	if limit <= 0 || len(fs) <= limit {
		return fs, ""
	}
	warn := fs[0].File + ": exceeded per-file finding cap, truncated to " + strconv.Itoa(limit)
	return fs[:limit], warn
}
