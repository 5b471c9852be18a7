package engine

import (
	"strings"

	"scanguard/internal/model"
	"scanguard/internal/rules"
)

// testPathMarkers are the path substrings that lower confidence for a
// finding in test fixtures (spec §4.3).
var testPathMarkers = []string{"/test/", "/tests/", "/__tests__/", ".test.", ".spec."}

// ScoreConfidence attaches a confidence score and human-readable reason
// band to f, applying every adjustment in spec §4.3 in order and
// clamping the result to [0,1]. It never runs during raw rule
// evaluation; pipeline's post-pass calls it once per surviving finding.
func ScoreConfidence(f model.Finding) model.Finding {
	score := 0.5

	switch f.Source {
	case model.SourceSignature:
		score += 0.3
	case model.SourceHeuristic:
		score += 0.1
	}

	switch f.Severity {
	case model.SeverityCritical:
		score += 0.1
	case model.SeverityHigh:
		score += 0.05
	}

	if f.InComment {
		score -= 0.3
	}
	if isTestPath(f.File) {
		score -= 0.2
	}

	if f.Category == "heuristic_secrets" {
		switch {
		case f.Entropy >= 4.5:
			score += 0.2
		case f.Entropy >= 4.2:
			score += 0.1
		default:
			score -= 0.1
		}
	}

	switch {
	case f.MatchLength > 50:
		score += 0.1
	case f.MatchLength > 0 && f.MatchLength < 10:
		score -= 0.1
	}

	fileType := rules.FileType(f.File)
	if f.Category == "supply_chain" && fileType == "json" {
		score += 0.1
	}
	if f.Category == "command_injection" && fileType == "bash" {
		score += 0.1
	}

	score = clamp(score, 0, 1)
	f.Confidence = score
	f.ConfidenceReason = reasonBand(score)
	return f
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func reasonBand(score float64) string {
	switch {
	case score >= 0.8:
		return "high"
	case score >= 0.6:
		return "medium"
	case score >= 0.4:
		return "low"
	default:
		return "very-low"
	}
}

func isTestPath(path string) bool {
	lower := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
	for _, marker := range testPathMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
