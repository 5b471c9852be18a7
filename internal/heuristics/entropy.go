// Package heuristics implements the behavioral detectors the scanning
// engine runs in addition to catalog rule matching: Shannon-entropy secret
// detection, package.json supply-chain script scanning, browser
// extension-manifest inspection, a JS/TS string-aware code analyzer, and
// Python/shell pattern heuristics.
package heuristics

import (
	"math"
	"unicode"

	"scanguard/internal/model"
)

const (
	entropyMinTokenLen          = 20
	entropyMaxCandidates        = 2000
	entropyThreshold            = 4.2
	maxHeuristicFindingsPerFile = 10
)

// entropyTokenRune reports whether r is part of an entropy candidate token:
// Unicode letters, numbers, or one of +/_=-.
func entropyTokenRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case '+', '/', '_', '=', '-':
		return true
	}
	return false
}

// EntropySecrets extracts candidate tokens of length >= 20 (capped at 2000
// candidates), computes Shannon entropy, and emits a HIGH heuristic finding
// for any candidate at or above 4.2 bits/char. Capped at
// maxHeuristicFindingsPerFile findings per file.
func EntropySecrets(path string, content []byte, lineOf func(offset int) int) []model.Finding {
	var findings []model.Finding
	runes := []rune(string(content))

	start := -1
	candidates := 0
	offset := 0
	flush := func(end int) {
		if start < 0 {
			return
		}
		tok := runes[start:end]
		if len(tok) >= entropyMinTokenLen && candidates < entropyMaxCandidates {
			candidates++
			ent := shannonEntropy(tok)
			if ent >= entropyThreshold && len(findings) < maxHeuristicFindingsPerFile {
				findings = append(findings, model.Finding{
					RuleID:      "HEURISTIC_ENTROPY_SECRET",
					Severity:    model.SeverityHigh,
					Message:     "high-entropy token resembling a secret or credential",
					File:        path,
					Line:        lineOf(offset),
					Category:    "heuristic_secrets",
					Source:      model.SourceHeuristic,
					MatchLength: len(string(tok)),
					Entropy:     ent,
				})
			}
		}
		start = -1
	}

	byteOffset := 0
	for i, r := range runes {
		if start < 0 && entropyTokenRune(r) {
			start = i
			offset = byteOffset
		} else if start >= 0 && !entropyTokenRune(r) {
			flush(i)
		}
		byteOffset += utf8RuneLen(r)
	}
	flush(len(runes))

	return findings
}

func utf8RuneLen(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}

// shannonEntropy computes the base-2 Shannon entropy of the given runes.
func shannonEntropy(tok []rune) float64 {
	if len(tok) == 0 {
		return 0
	}
	freq := make(map[rune]int, len(tok))
	for _, r := range tok {
		freq[r]++
	}
	length := float64(len(tok))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}
