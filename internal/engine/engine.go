// Package engine is the scanning engine (spec §4.3): it runs a compiled
// rule catalog and the behavioral heuristics against a single file's
// content and returns findings, bounding every regex match with a ReDoS
// timeout.
package engine

import (
	"fmt"
	"regexp"
	"time"

	"scanguard/internal/heuristics"
	"scanguard/internal/model"
	"scanguard/internal/rules"
)

// Options configures a single ScanContent call. Zero value is invalid;
// use DefaultOptions and override.
type Options struct {
	RegexTimeout              time.Duration
	MaxFindingsPerRulePerFile int
	Behavioral                bool
}

// DefaultOptions returns the engine's baseline timeout and cap settings.
func DefaultOptions() Options {
	return Options{
		RegexTimeout:              1000 * time.Millisecond,
		MaxFindingsPerRulePerFile: 20,
		Behavioral:                false,
	}
}

// cumulativeTimeoutMultiplier bounds the total time a single pattern may
// spend across all its iterations on one file, as a multiple of the
// per-iteration timeout (spec §4.3 step 2).
const cumulativeTimeoutMultiplier = 5

// Result is the outcome of scanning one file's content.
type Result struct {
	Findings []model.Finding
	Warnings []string
}

// ScanContent runs every catalog rule applicable to fileType against
// content, then (if Behavioral is set) the heuristics dispatcher. Line
// numbers are resolved once via a shared LineIndex.
func ScanContent(path, fileType string, content []byte, catalog *rules.Catalog, opts Options) Result {
	idx := NewLineIndex(content)
	var result Result

	for _, rule := range catalog.RulesFor(fileType) {
		findings, warning := runRule(path, rule, content, idx.LineAt, opts)
		result.Findings = append(result.Findings, findings...)
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}

	if opts.Behavioral {
		result.Findings = append(result.Findings, heuristics.Run(path, fileType, content, idx.LineAt)...)
	}

	return result
}

func runRule(path string, rule *rules.CompiledRule, content []byte, lineOf func(int) int, opts Options) ([]model.Finding, string) {
	maxFindings := opts.MaxFindingsPerRulePerFile
	if maxFindings <= 0 {
		maxFindings = DefaultOptions().MaxFindingsPerRulePerFile
	}
	message := ruleMessage(rule)

	var findings []model.Finding
	for _, pattern := range rule.Patterns {
		if len(findings) >= maxFindings {
			break
		}
		matches, timedOut := findAllWithTimeout(pattern, content, opts.RegexTimeout, maxFindings-len(findings))
		for _, m := range matches {
			matchText := content[m[0]:m[1]]
			if matchesAny(rule.ExcludePatterns, matchText) {
				continue
			}
			findings = append(findings, model.Finding{
				RuleID:      rule.ID,
				Severity:    rule.Severity,
				Message:     message,
				File:        path,
				Line:        lineOf(m[0]),
				Category:    rule.Category,
				Remediation: rule.Remediation,
				Source:      model.SourceSignature,
				MatchLength: m[1] - m[0],
			})
			if len(findings) >= maxFindings {
				break
			}
		}
		if timedOut {
			return findings, fmt.Sprintf("regex timeout: rule %s on %s", rule.ID, path)
		}
	}
	return findings, ""
}

func ruleMessage(rule *rules.CompiledRule) string {
	if rule.Description != "" {
		return rule.Description
	}
	return rule.ID + " matched"
}

func matchesAny(patterns []*regexp.Regexp, text []byte) bool {
	for _, p := range patterns {
		if p.Match(text) {
			return true
		}
	}
	return false
}

// findAllWithTimeout iterates non-overlapping matches of re over content
// starting at offset 0, each bounded by perIterTimeout, stopping once
// limit matches are collected or the cumulative elapsed time across all
// iterations for this pattern exceeds cumulativeTimeoutMultiplier times
// perIterTimeout. Zero-length matches advance the cursor by one byte.
func findAllWithTimeout(re *regexp.Regexp, content []byte, perIterTimeout time.Duration, limit int) ([][2]int, bool) {
	if limit <= 0 {
		return nil, false
	}
	cumulativeCap := perIterTimeout * cumulativeTimeoutMultiplier
	var results [][2]int
	var elapsed time.Duration
	start := 0

	for len(results) < limit && start <= len(content) {
		iterStart := time.Now()
		loc, ok := matchOneWithTimeout(re, content[start:], perIterTimeout)
		elapsed += time.Since(iterStart)
		if !ok {
			return results, true
		}
		if loc == nil {
			break
		}
		matchStart, matchEnd := start+loc[0], start+loc[1]
		results = append(results, [2]int{matchStart, matchEnd})
		if matchEnd == matchStart {
			start = matchEnd + 1
		} else {
			start = matchEnd
		}
		if elapsed > cumulativeCap {
			return results, true
		}
	}
	return results, false
}

// matchOneWithTimeout runs a single FindIndex call on a goroutine and
// races it against perIterTimeout, mirroring the ReDoS guard idiom: Go's
// regexp engine offers no mid-match cancellation, so a pathological
// pattern leaves its goroutine running until it eventually returns (or
// never does); the timeout just stops this rule from blocking the scan.
func matchOneWithTimeout(re *regexp.Regexp, window []byte, timeout time.Duration) ([]int, bool) {
	type outcome struct{ loc []int }
	ch := make(chan outcome, 1)
	go func() {
		defer func() { recover() }()
		ch <- outcome{re.FindIndex(window)}
	}()
	select {
	case o := <-ch:
		return o.loc, true
	case <-time.After(timeout):
		return nil, false
	}
}
