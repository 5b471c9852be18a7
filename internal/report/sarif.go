package report

import (
	"encoding/json"
	"fmt"

	"scanguard/internal/model"
	"scanguard/internal/safefile"
)

// SARIF v2.1.0 types — minimal subset for GitHub Code Scanning / Azure DevOps.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	ShortDescription sarifMessage        `json:"shortDescription,omitempty"`
	DefaultConfig    *sarifDefaultConfig `json:"defaultConfiguration,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string           `json:"ruleId"`
	Level      string           `json:"level"`
	Message    sarifMessage     `json:"message"`
	Locations  []sarifLocation  `json:"locations,omitempty"`
	Properties *sarifProperties `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifProperties struct {
	Severity   model.Severity `json:"severity,omitempty"`
	Category   string         `json:"category,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
}

// MarshalSARIF renders result as a SARIF 2.1.0 log, the way it is emitted
// on stdout or to an --output file.
func MarshalSARIF(result model.ScanResult) ([]byte, error) {
	log := buildSARIF(result)
	b, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sarif report: %w", err)
	}
	return b, nil
}

// WriteSARIF marshals result as a SARIF 2.1.0 log to path.
func WriteSARIF(path string, result model.ScanResult) error {
	b, err := MarshalSARIF(result)
	if err != nil {
		return err
	}
	return safefile.WriteFileAtomic(path, b, 0o600)
}

func buildSARIF(result model.ScanResult) sarifLog {
	ruleIndex := map[string]bool{}
	var rules []sarifRule
	var results []sarifResult

	for _, f := range result.Findings {
		if !ruleIndex[f.RuleID] {
			ruleIndex[f.RuleID] = true
			rules = append(rules, sarifRule{
				ID:               f.RuleID,
				ShortDescription: sarifMessage{Text: f.Message},
				DefaultConfig:    &sarifDefaultConfig{Level: mapSeverityToSARIF(f.Severity)},
			})
		}

		loc := sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: f.File}}
		if f.Line > 0 {
			loc.Region = &sarifRegion{StartLine: f.Line}
		}

		results = append(results, sarifResult{
			RuleID:  f.RuleID,
			Level:   mapSeverityToSARIF(f.Severity),
			Message: sarifMessage{Text: f.Message},
			Locations: []sarifLocation{
				{PhysicalLocation: loc},
			},
			Properties: &sarifProperties{
				Severity:   f.Severity,
				Category:   f.Category,
				Confidence: f.Confidence,
			},
		})
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:  "Security Scanner",
					Rules: rules,
				},
			},
			Results: results,
		}},
	}
}

// mapSeverityToSARIF implements spec §6's level mapping: CRIT/HIGH->error,
// MEDIUM->warning, LOW->note.
func mapSeverityToSARIF(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical, model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
