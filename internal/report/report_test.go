package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scanguard/internal/model"
)

func sampleResult() model.ScanResult {
	return model.ScanResult{
		ScannedFiles: 3,
		ElapsedMS:    42,
		Targets: []model.Target{
			{Kind: model.TargetSkill, Name: "s1", Path: "/tmp/s1"},
			{Kind: model.TargetMCP, Name: "m1", Path: "http://example.com", Meta: map[string]string{
				"mcp_tools": "2", "mcp_prompts": "1", "mcp_resources": "0", "mcp_instructions": "1",
			}},
			{Kind: model.TargetMCP, Name: "m2", Path: "http://broken.example.com", Error: "connection refused"},
		},
		Findings: []model.Finding{
			{RuleID: "PROMPT_INJECTION_IGNORE", Severity: model.SeverityHigh, Message: "found it", File: "a.md", Line: 3, Category: "prompt_injection", Source: model.SourceSignature, Confidence: 0.9},
			{RuleID: "CODE_EXECUTION_GENERIC", Severity: model.SeverityCritical, Message: "eval", File: "b.py", Line: 1, Category: "code_execution", Source: model.SourceSignature, Confidence: 0.8},
		},
	}
}

func TestBuildEnvelopeSummaryAndDetected(t *testing.T) {
	env := Build(sampleResult())

	if env.Summary.ScannedFiles != 3 || env.Summary.FindingCount != 2 {
		t.Fatalf("unexpected summary: %+v", env.Summary)
	}
	if env.Summary.Severities[model.SeverityCritical] != 1 || env.Summary.Severities[model.SeverityHigh] != 1 {
		t.Fatalf("unexpected severities: %+v", env.Summary.Severities)
	}
	if len(env.Detected.Rules) != 2 || len(env.Detected.Categories) != 2 {
		t.Fatalf("unexpected detected rules/categories: %+v", env.Detected)
	}
	if env.Detected.MCP == nil {
		t.Fatal("expected mcp detected block")
	}
	if env.Detected.MCP.Servers != 1 {
		t.Fatalf("expected 1 successful mcp server, got %d", env.Detected.MCP.Servers)
	}
	if env.Detected.MCP.Objects["tools"] != 2 || env.Detected.MCP.Objects["prompts"] != 1 {
		t.Fatalf("unexpected mcp objects: %+v", env.Detected.MCP.Objects)
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	env := Build(sampleResult())
	if err := WriteJSON(path, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Envelope
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Summary.FindingCount != 2 {
		t.Fatalf("unexpected round-tripped summary: %+v", decoded.Summary)
	}
}

func TestBuildSARIFMapsLevelsAndDedupsRules(t *testing.T) {
	result := sampleResult()
	result.Findings = append(result.Findings, model.Finding{
		RuleID: "PROMPT_INJECTION_IGNORE", Severity: model.SeverityHigh, Message: "found it again", File: "c.md", Line: 9, Source: model.SourceSignature,
	})
	log := buildSARIF(result)

	if len(log.Runs) != 1 {
		t.Fatalf("expected exactly one run, got %d", len(log.Runs))
	}
	if log.Runs[0].Tool.Driver.Name != "Security Scanner" {
		t.Fatalf("unexpected tool name: %q", log.Runs[0].Tool.Driver.Name)
	}
	if len(log.Runs[0].Tool.Driver.Rules) != 2 {
		t.Fatalf("expected 2 unique rules, got %d", len(log.Runs[0].Tool.Driver.Rules))
	}
	if len(log.Runs[0].Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(log.Runs[0].Results))
	}
	for _, r := range log.Runs[0].Results {
		if r.RuleID == "CODE_EXECUTION_GENERIC" && r.Level != "error" {
			t.Fatalf("expected CRITICAL to map to error, got %q", r.Level)
		}
	}
}

func TestRenderSummaryLineFormat(t *testing.T) {
	line := RenderSummaryLine(sampleResult())
	if !strings.HasPrefix(line, "Scanned 3 files in 42ms | Findings 2 | CRITICAL:1 | HIGH:1 | MEDIUM:0 | LOW:0") {
		t.Fatalf("unexpected summary line: %q", line)
	}
}

func TestRenderTableIncludesConfidenceColumnWhenRequested(t *testing.T) {
	out := RenderTable(sampleResult(), true)
	if !strings.Contains(out, "CONFIDENCE") {
		t.Fatalf("expected a confidence column, got:\n%s", out)
	}
	if !strings.Contains(out, "0.90") {
		t.Fatalf("expected confidence values rendered, got:\n%s", out)
	}
}

func TestDecideExitCode(t *testing.T) {
	result := sampleResult()
	if code := DecideExitCode(result, ""); code != ExitOK {
		t.Fatalf("expected ExitOK with no threshold, got %d", code)
	}
	if code := DecideExitCode(result, model.SeverityCritical); code != ExitFindingsMetFailThreshold {
		t.Fatalf("expected threshold trip at CRITICAL, got %d", code)
	}
	if code := DecideExitCode(result, model.SeverityHigh); code != ExitFindingsMetFailThreshold {
		t.Fatalf("expected threshold trip at HIGH since a CRITICAL finding also qualifies, got %d", code)
	}
}
