package rules

import (
	"path/filepath"
	"strings"
)

// basenameTypes overrides detection for well-known filenames regardless of
// extension.
var basenameTypes = map[string]string{
	"skill.md":      "markdown",
	"manifest.json": "manifest",
	"package.json":  "json",
}

// extTypes maps extensions to file-type tags. Several languages the
// catalog has no dedicated rules for are folded onto the closest
// regex-compatible bucket; see DESIGN.md for why this mapping must not
// change silently (spec §9 open question).
var extTypes = map[string]string{
	".md":   "markdown",
	".mdx":  "markdown",
	".json": "json",
	".py":   "python",
	".rs":   "python",
	".rb":   "python",
	".java": "python",
	".c":    "python",
	".h":    "python",
	".cc":   "python",
	".cpp":  "python",
	".hpp":  "python",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".sh":   "bash",
	".bash": "bash",
	".zsh":  "bash",
	".yml":  "text",
	".yaml": "text",
	".txt":  "text",
}

// FileType classifies a path into a catalog file-type tag: basename
// override first, then extension, defaulting to "text".
func FileType(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if t, ok := basenameTypes[base]; ok {
		return t
	}
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extTypes[ext]; ok {
		return t
	}
	return "text"
}
