package cmd

import "scanguard/internal/report"

const (
	exitOK                       = report.ExitOK
	exitUsageError               = report.ExitUsageError
	exitFindingsMetFailThreshold = report.ExitFindingsMetFailThreshold
)
