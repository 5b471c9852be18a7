package targets

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreRules holds a .scanguardignore file's compiled path patterns plus
// any rule-scoped suppressions. Path patterns exclude a file or directory
// from the walk entirely, the same as a .gitignore entry would; a
// rule-scoped line instead lets a target keep scanning a path while
// silencing one specific finding there (a test fixture that intentionally
// contains a fake credential, say), which a pure path-ignore can't express.
type IgnoreRules struct {
	patterns   []ignorePattern
	exceptions []ruleException
}

type ignorePattern struct {
	negated  bool
	dirOnly  bool
	regex    *regexp.Regexp
	original string
}

// ruleException silences findings from one rule ID for paths matching glob.
type ruleException struct {
	ruleID string
	regex  *regexp.Regexp
}

// LoadIgnoreFile reads and parses a .scanguardignore file. Returns nil rules
// (not an error) if the file does not exist.
func LoadIgnoreFile(path string) (*IgnoreRules, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ParseIgnorePatterns(lines), nil
}

// ParseIgnorePatterns parses a .scanguardignore file's lines. Most lines are
// gitignore-style path globs; a line of the form "rule:<rule-id> <glob>"
// is a rule-scoped exception instead of a path exclusion.
func ParseIgnorePatterns(lines []string) *IgnoreRules {
	rules := &IgnoreRules{}
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if ruleID, glob, ok := splitRuleException(line); ok {
			re, err := regexp.Compile(ignoreGlobToRegex(glob))
			if err != nil {
				continue
			}
			rules.exceptions = append(rules.exceptions, ruleException{ruleID: ruleID, regex: re})
			continue
		}

		p := ignorePattern{original: line}

		if strings.HasPrefix(line, "!") {
			p.negated = true
			line = line[1:]
		}

		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}

		re, err := regexp.Compile(ignoreGlobToRegex(line))
		if err != nil {
			continue
		}
		p.regex = re
		rules.patterns = append(rules.patterns, p)
	}
	return rules
}

// splitRuleException recognizes a "rule:<rule-id> <glob>" line and returns
// its rule ID and glob. A rule ID may not contain whitespace; everything
// after the first run of spaces is the glob, trimmed.
func splitRuleException(line string) (ruleID, glob string, ok bool) {
	rest := strings.TrimPrefix(line, "rule:")
	if rest == line {
		return "", "", false
	}
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], strings.Join(fields[1:], " "), true
}

// ShouldIgnore returns true if the given path should be excluded.
// isDir should be true when the path is a directory.
// nil receiver is safe and always returns false.
func (r *IgnoreRules) ShouldIgnore(relPath string, isDir bool) bool {
	if r == nil || len(r.patterns) == 0 {
		return false
	}
	relPath = filepath.ToSlash(strings.TrimSpace(relPath))
	if relPath == "" {
		return false
	}

	// Last matching pattern wins (standard gitignore semantics).
	ignored := false
	for _, p := range r.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if p.regex.MatchString(relPath) {
			ignored = !p.negated
		}
	}
	return ignored
}

// ShouldSuppressFinding reports whether a rule-scoped exception silences
// ruleID's findings at relPath. nil receiver is safe and always returns
// false.
func (r *IgnoreRules) ShouldSuppressFinding(ruleID, relPath string) bool {
	if r == nil || len(r.exceptions) == 0 {
		return false
	}
	relPath = filepath.ToSlash(strings.TrimSpace(relPath))
	if relPath == "" {
		return false
	}
	for _, e := range r.exceptions {
		if e.ruleID == ruleID && e.regex.MatchString(relPath) {
			return true
		}
	}
	return false
}

// ignoreGlobToRegex converts a gitignore-style glob to a regex.
func ignoreGlobToRegex(glob string) string {
	var b strings.Builder
	b.WriteString("^")
	r := []rune(filepath.ToSlash(glob))

	// If the pattern has no slash, match against the basename anywhere.
	hasSlash := false
	for _, ch := range r {
		if ch == '/' {
			hasSlash = true
			break
		}
	}
	if !hasSlash {
		b.WriteString("(?:.*/)?")
	}

	for i := 0; i < len(r); i++ {
		switch r[i] {
		case '*':
			if i+1 < len(r) && r[i+1] == '*' {
				if i+2 < len(r) && r[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '.', '+', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			b.WriteString("\\")
			b.WriteRune(r[i])
		default:
			b.WriteRune(r[i])
		}
	}
	b.WriteString("$")
	return b.String()
}
