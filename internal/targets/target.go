// Package targets defines the logical scan unit (model.Target) and the
// recursive file enumeration that turns a target's root into the file
// list the pipeline fans workers out over. Platform-specific discovery of
// browser/IDE extension roots is an external collaborator; this package
// only constructs the Target value once a caller has a root path in hand.
package targets

import (
	"scanguard/internal/model"
	"scanguard/internal/pathsafe"
)

// NewSkillTarget builds a Target for a directory containing a SKILL.md.
func NewSkillTarget(name, path string) model.Target {
	return model.Target{Kind: model.TargetSkill, Name: name, Path: pathsafe.Sanitize(path)}
}

// NewExtensionTarget builds a Target for an unpacked browser extension
// directory. meta may carry the browser name ("chrome", "firefox").
func NewExtensionTarget(name, path string, meta map[string]string) model.Target {
	return model.Target{Kind: model.TargetExtension, Name: name, Path: pathsafe.Sanitize(path), Meta: meta}
}

// NewIDEExtensionTarget builds a Target for an installed IDE extension
// directory (VS Code family, JetBrains, Zed). meta may carry "ide".
func NewIDEExtensionTarget(name, path string, meta map[string]string) model.Target {
	return model.Target{Kind: model.TargetIDEExtension, Name: name, Path: pathsafe.Sanitize(path), Meta: meta}
}

// NewPathTarget builds a Target for an arbitrary user-specified directory,
// the --path CLI form.
func NewPathTarget(name, path string) model.Target {
	return model.Target{Kind: model.TargetPath, Name: name, Path: pathsafe.Sanitize(path)}
}

// NewMCPTarget builds a Target whose Path is an MCP server URL rather than
// a filesystem directory; the pipeline recognizes Kind to route it to the
// virtualizer instead of Walk.
func NewMCPTarget(name, url string, meta map[string]string) model.Target {
	return model.Target{Kind: model.TargetMCP, Name: name, Path: url, Meta: meta}
}

// WithError returns a copy of t carrying a per-target failure, so a
// single unreachable MCP server or unreadable directory doesn't abort the
// whole run (spec §8 invariant: partial failures stay scoped to a target).
func WithError(t model.Target, err error) model.Target {
	t.Error = err.Error()
	return t
}
