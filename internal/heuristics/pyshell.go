package heuristics

import (
	"regexp"

	"scanguard/internal/model"
)

var (
	subprocessShellTruePattern = regexp.MustCompile(`subprocess\.(run|call|Popen|check_output)\([^)]*shell\s*=\s*True`)
	pickleLoadPattern          = regexp.MustCompile(`pickle\.loads?\(`)
	curlWgetPipeShellPattern   = regexp.MustCompile(`(curl|wget)[^|\n]*\|\s*(sudo\s+)?(sh|bash)\b`)
)

// PythonHeuristics flags shell=True subprocess invocations (command
// injection) and unsafe pickle deserialization.
func PythonHeuristics(path string, content []byte, lineOf func(offset int) int) []model.Finding {
	var findings []model.Finding
	if loc := subprocessShellTruePattern.FindIndex(content); loc != nil {
		findings = append(findings, model.Finding{
			RuleID:      "CODE_PY_SUBPROCESS_SHELL_TRUE",
			Severity:    model.SeverityHigh,
			Message:     "subprocess call with shell=True risks command injection",
			File:        path,
			Line:        lineOf(loc[0]),
			Category:    "command_injection",
			Source:      model.SourceHeuristic,
			MatchLength: loc[1] - loc[0],
		})
	}
	if loc := pickleLoadPattern.FindIndex(content); loc != nil {
		findings = append(findings, model.Finding{
			RuleID:      "CODE_PY_UNSAFE_PICKLE",
			Severity:    model.SeverityHigh,
			Message:     "pickle.load(s) can execute arbitrary code on untrusted input",
			File:        path,
			Line:        lineOf(loc[0]),
			Category:    "unsafe_deserialize",
			Source:      model.SourceHeuristic,
			MatchLength: loc[1] - loc[0],
		})
	}
	return findings
}

// ShellHeuristics flags a remote download piped directly into a shell.
func ShellHeuristics(path string, content []byte, lineOf func(offset int) int) []model.Finding {
	loc := curlWgetPipeShellPattern.FindIndex(content)
	if loc == nil {
		return nil
	}
	return []model.Finding{{
		RuleID:      "CODE_SH_REMOTE_PIPE",
		Severity:    model.SeverityCritical,
		Message:     "downloads a remote script and pipes it directly into a shell",
		File:        path,
		Line:        lineOf(loc[0]),
		Category:    "supply_chain",
		Source:      model.SourceHeuristic,
		MatchLength: loc[1] - loc[0],
	}}
}
