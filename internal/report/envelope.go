// Package report assembles the JSON/SARIF envelopes and the terminal
// table summary the CLI collaborator renders (spec §6: HTML/CSV file
// writers and the interactive TUI stay external; this package only
// produces what the core itself is specified to emit).
package report

import (
	"encoding/json"
	"fmt"
	"sort"

	"scanguard/internal/model"
	"scanguard/internal/safefile"
)

// Summary mirrors the envelope's top-level run statistics.
type Summary struct {
	ScannedFiles int                    `json:"scannedFiles"`
	ElapsedMS    int64                  `json:"elapsedMs"`
	FindingCount int                    `json:"findingCount"`
	Severities   map[model.Severity]int `json:"severities"`
}

// MCPDetected summarizes what the run virtualized from MCP servers.
type MCPDetected struct {
	Servers int            `json:"servers"`
	Objects map[string]int `json:"objects"`
}

// Detected mirrors the envelope's "what kinds of things did this run see".
type Detected struct {
	TargetKinds []model.TargetKind    `json:"targetKinds"`
	Sources     []model.FindingSource `json:"sources"`
	Rules       []string              `json:"rules"`
	Categories  []string              `json:"categories"`
	MCP         *MCPDetected          `json:"mcp,omitempty"`
}

// Envelope is the JSON report shape (spec §6).
type Envelope struct {
	Summary  Summary         `json:"summary"`
	Detected Detected        `json:"detected"`
	Targets  []model.Target  `json:"targets"`
	Findings []model.Finding `json:"findings"`
}

// Build assembles the envelope from a completed scan.
func Build(result model.ScanResult) Envelope {
	return Envelope{
		Summary: Summary{
			ScannedFiles: result.ScannedFiles,
			ElapsedMS:    result.ElapsedMS,
			FindingCount: len(result.Findings),
			Severities:   model.SeveritySummary(result.Findings),
		},
		Detected: buildDetected(result),
		Targets:  result.Targets,
		Findings: result.Findings,
	}
}

func buildDetected(result model.ScanResult) Detected {
	kindSet := map[model.TargetKind]bool{}
	sourceSet := map[model.FindingSource]bool{}
	ruleSet := map[string]bool{}
	categorySet := map[string]bool{}

	for _, t := range result.Targets {
		kindSet[t.Kind] = true
	}
	for _, f := range result.Findings {
		sourceSet[f.Source] = true
		ruleSet[f.RuleID] = true
		if f.Category != "" {
			categorySet[f.Category] = true
		}
	}

	d := Detected{
		TargetKinds: sortedTargetKinds(kindSet),
		Sources:     sortedSources(sourceSet),
		Rules:       sortedStrings(ruleSet),
		Categories:  sortedStrings(categorySet),
	}
	if mcp := buildMCPDetected(result.Targets); mcp != nil {
		d.MCP = mcp
	}
	return d
}

func buildMCPDetected(tgts []model.Target) *MCPDetected {
	servers := 0
	objects := map[string]int{"tools": 0, "prompts": 0, "resources": 0, "instructions": 0}
	saw := false
	for _, t := range tgts {
		if t.Kind != model.TargetMCP {
			continue
		}
		saw = true
		if t.Error != "" {
			continue
		}
		servers++
		for _, key := range []string{"tools", "prompts", "resources", "instructions"} {
			objects[key] += metaInt(t.Meta, "mcp_"+key)
		}
	}
	if !saw {
		return nil
	}
	return &MCPDetected{Servers: servers, Objects: objects}
}

func metaInt(meta map[string]string, key string) int {
	if meta == nil {
		return 0
	}
	var n int
	_, _ = fmt.Sscanf(meta[key], "%d", &n)
	return n
}

func sortedStrings(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedTargetKinds(set map[model.TargetKind]bool) []model.TargetKind {
	out := make([]model.TargetKind, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedSources(set map[model.FindingSource]bool) []model.FindingSource {
	out := make([]model.FindingSource, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON renders the envelope the way it is emitted on stdout or to
// an --output file: indented, stable key order.
func MarshalJSON(env Envelope) ([]byte, error) {
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report envelope: %w", err)
	}
	return b, nil
}

// WriteJSON marshals the envelope to path using an atomic write.
func WriteJSON(path string, env Envelope) error {
	b, err := MarshalJSON(env)
	if err != nil {
		return err
	}
	return safefile.WriteFileAtomic(path, b, 0o600)
}
