package heuristics

import (
	"encoding/json"
	"regexp"
	"strings"

	"scanguard/internal/model"
)

var installScriptNames = map[string]bool{
	"preinstall": true, "install": true, "postinstall": true,
	"prepare": true, "prepublish": true, "prepack": true, "postpack": true,
}

var downloaderPattern = regexp.MustCompile(`(?i)\b(curl|wget|Invoke-WebRequest|iwr)\b`)
var pipeToShellPattern = regexp.MustCompile(`\|\s*(sh|bash|zsh|sudo\s+sh|sudo\s+bash)\b`)
var chmodChownPattern = regexp.MustCompile(`(?i)\b(chmod|chown)\b`)

// PackageJSONScripts inspects a package.json's scripts for supply-chain
// install-script abuse patterns (spec §4.3).
func PackageJSONScripts(path string, content []byte) []model.Finding {
	var doc struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil
	}

	var findings []model.Finding
	for name, command := range doc.Scripts {
		lower := strings.ToLower(name)
		if installScriptNames[lower] {
			findings = append(findings, model.Finding{
				RuleID:   "SUPPLY_CHAIN_INSTALL_SCRIPT",
				Severity: model.SeverityMedium,
				Message:  "package.json defines an install-lifecycle script: " + name,
				File:     path,
				Category: "supply_chain",
				Source:   model.SourceHeuristic,
			})
		}

		hasDownloader := downloaderPattern.MatchString(command)
		hasPipe := pipeToShellPattern.MatchString(command)
		switch {
		case hasDownloader && hasPipe:
			findings = append(findings, model.Finding{
				RuleID:   "SUPPLY_CHAIN_REMOTE_EXEC",
				Severity: model.SeverityCritical,
				Message:  "script " + name + " pipes a remote download into a shell",
				File:     path,
				Category: "supply_chain",
				Source:   model.SourceHeuristic,
			})
		case hasDownloader:
			findings = append(findings, model.Finding{
				RuleID:   "SUPPLY_CHAIN_REMOTE_FETCH",
				Severity: model.SeverityHigh,
				Message:  "script " + name + " fetches a remote resource",
				File:     path,
				Category: "supply_chain",
				Source:   model.SourceHeuristic,
			})
		}

		if chmodChownPattern.MatchString(command) {
			findings = append(findings, model.Finding{
				RuleID:   "SUPPLY_CHAIN_PERMISSION_CHANGE",
				Severity: model.SeverityHigh,
				Message:  "script " + name + " changes file permissions or ownership",
				File:     path,
				Category: "supply_chain",
				Source:   model.SourceHeuristic,
			})
		}
	}
	return findings
}
