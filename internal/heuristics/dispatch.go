package heuristics

import (
	"path/filepath"
	"strings"

	"scanguard/internal/model"
)

// Run dispatches the behavioral heuristics applicable to a file's type and
// basename. It is only invoked by the engine when behavioral mode is
// enabled (spec §4.3). lineOf translates a byte offset into a 1-based
// line number.
func Run(path, fileType string, content []byte, lineOf func(offset int) int) []model.Finding {
	var findings []model.Finding

	findings = append(findings, EntropySecrets(path, content, lineOf)...)

	base := strings.ToLower(filepath.Base(path))
	switch {
	case base == "package.json":
		findings = append(findings, PackageJSONScripts(path, content)...)
	case base == "manifest.json":
		findings = append(findings, ExtensionManifest(path, content)...)
	}

	switch fileType {
	case "javascript", "typescript":
		findings = append(findings, JSCodeAnalyzer(path, content, lineOf)...)
	case "python":
		findings = append(findings, PythonHeuristics(path, content, lineOf)...)
	case "bash":
		findings = append(findings, ShellHeuristics(path, content, lineOf)...)
	}

	return findings
}
