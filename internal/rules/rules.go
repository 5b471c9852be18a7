// Package rules loads the YAML rule catalog, compiles each pattern to a
// regexp, and indexes rules by file type for fast lookup during a scan.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"scanguard/internal/model"
	"scanguard/internal/scanerr"
)

// CompiledRule is a Rule with its patterns and exclude patterns compiled.
type CompiledRule struct {
	model.Rule
	Patterns        []*regexp.Regexp
	ExcludePatterns []*regexp.Regexp
}

// Catalog is the loaded, compiled, and indexed rule set.
type Catalog struct {
	Rules   []*CompiledRule
	byType  map[string][]*CompiledRule
	any     []*CompiledRule
	version string
}

// Load reads a YAML rule file, compiles every pattern, and builds the
// file-type index. Entries missing id/category/severity/patterns/file_types
// are skipped; patterns that fail to compile are dropped and the load
// continues (spec §4.2, §7 RuleCompileError).
func Load(path string) (*Catalog, []error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("read rule file %s: %w", path, err)}
	}
	return LoadBytes(raw)
}

// LoadBytes parses and compiles a YAML rule catalog already in memory.
func LoadBytes(raw []byte) (*Catalog, []error) {
	var entries []model.Rule
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, []error{fmt.Errorf("parse rule catalog: %w", err)}
	}

	var warnings []error
	cat := &Catalog{
		byType:  make(map[string][]*CompiledRule),
		version: hashVersion(raw),
	}

	for _, r := range entries {
		if r.ID == "" || r.Category == "" || r.Severity == "" || len(r.Patterns) == 0 || len(r.FileTypes) == 0 {
			warnings = append(warnings, fmt.Errorf("rule %q: missing required field, skipped", r.ID))
			continue
		}

		cr := &CompiledRule{Rule: r}
		for _, p := range r.Patterns {
			re, err := compilePattern(p)
			if err != nil {
				warnings = append(warnings, &scanerr.RuleCompileError{RuleID: r.ID, Pattern: p, Cause: err})
				continue
			}
			cr.Patterns = append(cr.Patterns, re)
		}
		for _, p := range r.ExcludePatterns {
			re, err := compilePattern(p)
			if err != nil {
				warnings = append(warnings, fmt.Errorf("rule %s: exclude pattern %q failed to compile: %w", r.ID, p, err))
				continue
			}
			cr.ExcludePatterns = append(cr.ExcludePatterns, re)
		}
		if len(cr.Patterns) == 0 {
			// A rule with zero compiled patterns is inert unless a
			// heuristic references its id directly; keep it out of the
			// index either way since rules_for() only returns compiled
			// patterns to match against.
			continue
		}

		cat.Rules = append(cat.Rules, cr)
		for _, ft := range r.FileTypes {
			if ft == model.FileTypeAny {
				cat.any = append(cat.any, cr)
				continue
			}
			cat.byType[ft] = append(cat.byType[ft], cr)
		}
	}

	return cat, warnings
}

// compilePattern translates a leading (?i) PCRE flag into Go's inline
// case-insensitive flag and compiles with global (FindAll) semantics,
// which regexp already provides natively.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + strings.TrimPrefix(pattern, "(?i)")
	}
	return regexp.Compile(pattern)
}

// RulesFor returns the rules applicable to a file type: the universal
// ("any") rules plus the type-specific ones. Duplicates are retained only
// if a rule declares both "any" and the concrete type.
func (c *Catalog) RulesFor(fileType string) []*CompiledRule {
	specific := c.byType[fileType]
	out := make([]*CompiledRule, 0, len(c.any)+len(specific))
	out = append(out, c.any...)
	out = append(out, specific...)
	return out
}

// Version returns the rule catalog's version tag, attached to every cache
// entry; any catalog change invalidates all cached entries.
func (c *Catalog) Version() string { return c.version }

func hashVersion(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}
