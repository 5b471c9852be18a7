package report

import "scanguard/internal/model"

// Exit codes per spec §6.
const (
	ExitOK                       = 0
	ExitUsageError               = 1
	ExitFindingsMetFailThreshold = 2
)

// DecideExitCode implements spec §6's exit-code rule: 2 when any finding's
// severity meets or exceeds threshold, 0 otherwise. threshold == "" means
// --fail-on was not requested, so findings never affect the exit code.
func DecideExitCode(result model.ScanResult, threshold model.Severity) int {
	if threshold == "" {
		return ExitOK
	}
	for _, f := range result.Findings {
		if f.Severity.AtLeast(threshold) {
			return ExitFindingsMetFailThreshold
		}
	}
	return ExitOK
}
