package targets

import (
	"os"
	"path/filepath"
	"strings"

	"scanguard/internal/pathsafe"
)

// defaultSkipDirs is the directory blacklist checked at every path
// segment during enumeration (spec §4.5 Plan).
var defaultSkipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

// archiveExtensions are never walked into the scanning path regardless of
// options; archive unpacking is out of scope (spec §1 Non-goals).
var archiveExtensions = map[string]bool{
	".crx": true,
	".xpi": true,
	".zip": true,
}

// textExtensions is the default file-type allowlist: the extensions and
// special basenames the rule catalog and heuristics know how to classify
// (scanguard/internal/rules.FileType's domain), plus a few bare text
// extensions with no dedicated file type.
var textExtensions = map[string]bool{
	".md": true, ".mdx": true, ".json": true,
	".py": true, ".rs": true, ".rb": true, ".java": true,
	".c": true, ".h": true, ".cc": true, ".cpp": true, ".hpp": true,
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".sh": true, ".bash": true, ".zsh": true,
	".yml": true, ".yaml": true, ".txt": true,
}

// binaryExtensions is the additional allowlist enabled by
// WalkOptions.IncludeBinary (--full-depth and scan-all). The walk does not
// look at the rule catalog, so a catalog with binary-typed rules does not
// enable it on its own.
var binaryExtensions = map[string]bool{
	".so": true, ".dll": true, ".dylib": true, ".bin": true, ".exe": true,
}

var specialBasenames = map[string]bool{
	"skill.md":      true,
	"manifest.json": true,
	"package.json":  true,
}

// WalkOptions governs enumeration of a target root.
type WalkOptions struct {
	// IncludeBinary admits binaryExtensions into the allowlist (only
	// meaningful if the active rule catalog has binary-typed rules).
	IncludeBinary bool
	// IgnoreRules is an optional .scanguardignore matcher layered on top
	// of the skip-dir blacklist and extension allowlist.
	IgnoreRules *IgnoreRules
}

// Walk recursively enumerates root, returning the files that pass the
// skip-dir blacklist, the extension/basename allowlist, and any ignore
// rules, plus a list of human-readable warnings for paths skipped as
// unsafe (symlink cycles, special files, permission errors) rather than
// failing the whole walk (spec §8: per-file failures stay scoped).
func Walk(root string, opts WalkOptions, visited *pathsafe.VisitedSet) ([]string, []string, error) {
	root = pathsafe.Sanitize(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		if admit(root, opts) {
			return []string{root}, nil, nil
		}
		return nil, nil, nil
	}

	var files []string
	var warnings []string
	walkDir(root, root, opts, visited, &files, &warnings)
	return files, warnings, nil
}

func walkDir(root, dir string, opts WalkOptions, visited *pathsafe.VisitedSet, files *[]string, warnings *[]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		*warnings = append(*warnings, "read dir "+dir+": "+err.Error())
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)

		if ok, unsafe := pathsafe.IsSafe(full, root, visited); !ok {
			*warnings = append(*warnings, full+": "+unsafe.Error())
			continue
		}

		if entry.IsDir() {
			if defaultSkipDirs[name] {
				continue
			}
			rel, _ := filepath.Rel(root, full)
			if opts.IgnoreRules != nil && opts.IgnoreRules.ShouldIgnore(rel, true) {
				continue
			}
			walkDir(root, full, opts, visited, files, warnings)
			continue
		}

		if !admit(full, opts) {
			continue
		}
		rel, _ := filepath.Rel(root, full)
		if opts.IgnoreRules != nil && opts.IgnoreRules.ShouldIgnore(rel, false) {
			continue
		}
		*files = append(*files, full)
	}
}

// admit reports whether a single file path passes the extension/basename
// allowlist, after the always-excluded archive extensions.
func admit(path string, opts WalkOptions) bool {
	base := strings.ToLower(filepath.Base(path))
	ext := strings.ToLower(filepath.Ext(path))

	if archiveExtensions[ext] {
		return false
	}
	if specialBasenames[base] {
		return true
	}
	if textExtensions[ext] {
		return true
	}
	if opts.IncludeBinary && binaryExtensions[ext] {
		return true
	}
	return false
}
