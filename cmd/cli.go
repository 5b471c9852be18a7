// Package cmd is the CLI dispatcher: a thin flag-based wiring layer over
// internal/pipeline, internal/mcp, and internal/report (spec §6's external
// CLI surface, narrowed to the subset this core drives directly — see
// SPEC_FULL.md §C). Interactive input handling, HTML/CSV file writers, and
// history storage backends stay external collaborators.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"scanguard/internal/scanerr"
)

// Execute runs the CLI and returns the process exit code (spec §6: 0
// success, 1 usage/no-targets/mcp-connection-failure, 2 findings met or
// exceeded --fail-on).
func Execute(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error:", usageError("missing command"))
		return exitUsageError
	}

	code, err := dispatch(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, scanerr.ErrUsage) {
			return exitUsageError
		}
		if code == exitOK {
			return exitUsageError
		}
	}
	return code
}

func dispatch(args []string) (int, error) {
	switch args[0] {
	case "scan":
		return runScanLike(args[1:], "scan", false, false)
	case "scan-all":
		return runScanLike(args[1:], "scan-all", true, false)
	case "fix":
		return runScanLike(args[1:], "fix", false, true)
	case "mcp":
		return dispatchMCP(args[1:])
	case "history":
		return runHistory(args[1:])
	case "help", "--help", "-h":
		printUsage()
		return exitOK, nil
	default:
		return exitUsageError, usageError(fmt.Sprintf("unknown command %q", args[0]))
	}
}

func dispatchMCP(args []string) (int, error) {
	if len(args) == 0 {
		return exitUsageError, usageError("usage: scanguard mcp <remote|static> [flags]")
	}
	switch args[0] {
	case "remote":
		return runMCPRemote(args[1:])
	case "static":
		return runMCPStatic(args[1:])
	default:
		return exitUsageError, usageError(fmt.Sprintf("unknown mcp subcommand %q", args[0]))
	}
}

func runHistory(args []string) (int, error) {
	if len(args) == 0 || args[0] != "list" {
		return exitUsageError, usageError("usage: scanguard history list")
	}
	fmt.Println("history storage is an external collaborator in this build; no scans are recorded to list.")
	return exitOK, nil
}
