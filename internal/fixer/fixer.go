// Package fixer implements the "fix" pass (spec §4.7): it comments out
// the offending line of every signature finding that carries a line
// number, choosing a comment style by file extension, and writes each
// touched file back atomically. Heuristic findings and findings without
// a line number are left untouched; applying fixer.Apply twice to the
// same file produces no further change.
package fixer

import (
	"path/filepath"
	"sort"
	"strings"

	"scanguard/internal/model"
	"scanguard/internal/safefile"
)

// styleKind selects how a line is neutralized.
type styleKind int

const (
	styleNone styleKind = iota
	stylePrefix
	styleWrap
)

type commentStyle struct {
	kind   styleKind
	prefix string // for stylePrefix
	open   string // for styleWrap
	close  string // for styleWrap
}

var hashExtensions = map[string]bool{
	".py": true, ".sh": true, ".bash": true, ".zsh": true,
	".yml": true, ".yaml": true, ".rb": true,
}

var slashExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true, ".cjs": true,
	".java": true, ".c": true, ".h": true, ".cc": true, ".cpp": true, ".hpp": true, ".rs": true,
}

var wrapExtensions = map[string]bool{
	".md": true, ".mdx": true,
}

// styleFor chooses the comment style for path's extension. JSON and any
// unrecognized extension get styleNone: no safe single-line comment
// syntax exists, so the finding is reported but never auto-commented.
func styleFor(path string) commentStyle {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case hashExtensions[ext]:
		return commentStyle{kind: stylePrefix, prefix: "#"}
	case slashExtensions[ext]:
		return commentStyle{kind: stylePrefix, prefix: "//"}
	case wrapExtensions[ext]:
		return commentStyle{kind: styleWrap, open: "<!--", close: "-->"}
	default:
		return commentStyle{kind: styleNone}
	}
}

// Result reports what Apply did.
type Result struct {
	ModifiedFiles []string
	Warnings      []string
}

// Apply groups fixable findings by file and rewrites each file in place.
// readFile abstracts the source of file content so callers that already
// hold the scanned bytes (the pipeline) don't force a second disk read.
func Apply(findings []model.Finding, readFile func(path string) ([]byte, error)) Result {
	var result Result
	byFile := make(map[string][]int) // file -> sorted distinct 1-based lines
	order := []string{}

	for _, f := range findings {
		if f.Source != model.SourceSignature || f.Line <= 0 {
			continue
		}
		if _, seen := byFile[f.File]; !seen {
			order = append(order, f.File)
		}
		byFile[f.File] = append(byFile[f.File], f.Line)
	}

	for _, path := range order {
		style := styleFor(path)
		if style.kind == styleNone {
			continue
		}
		lines := dedupSorted(byFile[path])

		content, err := readFile(path)
		if err != nil {
			result.Warnings = append(result.Warnings, "fixer: read "+path+": "+err.Error())
			continue
		}

		rewritten, changed := applyToContent(content, lines, style)
		if !changed {
			continue
		}
		if err := safefile.WriteFileAtomic(path, rewritten, 0o644); err != nil {
			result.Warnings = append(result.Warnings, "fixer: write "+path+": "+err.Error())
			continue
		}
		result.ModifiedFiles = append(result.ModifiedFiles, path)
	}

	return result
}

func dedupSorted(lines []int) []int {
	seen := make(map[int]bool, len(lines))
	out := make([]int, 0, len(lines))
	for _, l := range lines {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// applyToContent comments out the given 1-based lines in content,
// preserving the file's detected line ending and each line's leading
// indentation, and skipping any line already commented in that style.
func applyToContent(content []byte, targetLines []int, style commentStyle) ([]byte, bool) {
	ending := "\n"
	if strings.Contains(string(content), "\r\n") {
		ending = "\r\n"
	}

	raw := strings.ReplaceAll(string(content), "\r\n", "\n")
	lines := strings.Split(raw, "\n")

	want := make(map[int]bool, len(targetLines))
	for _, l := range targetLines {
		want[l] = true
	}

	changed := false
	for i := range lines {
		lineNo := i + 1
		if !want[lineNo] {
			continue
		}
		commented, ok := commentLine(lines[i], style)
		if !ok {
			continue
		}
		lines[i] = commented
		changed = true
	}
	if !changed {
		return content, false
	}
	return []byte(strings.Join(lines, ending)), true
}

// commentLine returns line with style applied, or ok=false if line is
// already commented in that style (idempotence).
func commentLine(line string, style commentStyle) (string, bool) {
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	rest := line[len(indent):]
	if rest == "" {
		return line, false
	}

	switch style.kind {
	case stylePrefix:
		if strings.HasPrefix(rest, style.prefix) {
			return line, false
		}
		return indent + style.prefix + " " + rest, true
	case styleWrap:
		if strings.HasPrefix(rest, style.open) && strings.HasSuffix(rest, style.close) {
			return line, false
		}
		return indent + style.open + " " + rest + " " + style.close, true
	default:
		return line, false
	}
}
