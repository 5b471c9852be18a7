package cmd

import (
	"errors"
	"fmt"
	"strings"

	"scanguard/internal/model"
	"scanguard/internal/scanerr"
)

// listFlag accumulates repeatable or comma-separated flag values, the
// teacher's idiom for --only-check/--skip-check-style options.
type listFlag struct {
	values []string
}

func (f *listFlag) String() string {
	if f == nil {
		return ""
	}
	return strings.Join(f.values, ",")
}

func (f *listFlag) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			f.values = append(f.values, part)
		}
	}
	return nil
}

func (f *listFlag) Values() []string {
	if f == nil || len(f.values) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.values))
	for _, v := range f.values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func usageError(msg string) error {
	printUsage()
	return fmt.Errorf("%w: %s", scanerr.ErrUsage, msg)
}

func printUsage() {
	fmt.Println("scanguard")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  scanguard scan <path> [flags]")
	fmt.Println("  scanguard scan-all <path> [flags]")
	fmt.Println("  scanguard fix <path> [flags]")
	fmt.Println("  scanguard mcp remote <url> [flags]")
	fmt.Println("  scanguard mcp static [flags]")
	fmt.Println("  scanguard history list")
	fmt.Println("")
	fmt.Println("Common scan flags:")
	fmt.Println("  --format {table|json|sarif}   Output format (default table)")
	fmt.Println("  --json                        Shorthand for --format json")
	fmt.Println("  --output <file>                Write the report here instead of stdout")
	fmt.Println("  --fail-on {LOW|MEDIUM|HIGH|CRITICAL}  Exit 2 if a finding meets this severity")
	fmt.Println("  --rules <file>                  Custom rule catalog (default: built-in)")
	fmt.Println("  --skills-dir/--extensions-dir/--ide-extensions-dir <dir>  Repeatable extra targets")
	fmt.Println("  --use-behavioral/--no-behavioral  Toggle heuristic detectors")
	fmt.Println("  --enable-meta                    Collapse duplicate findings across targets")
	fmt.Println("  --fix                            Comment out the offending lines")
	fmt.Println("  --show-confidence / --min-confidence <0.0-1.0>")
	fmt.Println("  --tui/--no-tui                   Force or suppress the interactive progress view")
}

func normalizeFormatFlag(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "table":
		return "table", nil
	case "json":
		return "json", nil
	case "sarif":
		return "sarif", nil
	default:
		return "", errors.New("--format must be table, json, or sarif")
	}
}

func normalizeSeverityFlag(raw string) (model.Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "LOW":
		return model.SeverityLow, nil
	case "MEDIUM":
		return model.SeverityMedium, nil
	case "HIGH":
		return model.SeverityHigh, nil
	case "CRITICAL":
		return model.SeverityCritical, nil
	default:
		return "", errors.New("--fail-on must be LOW, MEDIUM, HIGH, or CRITICAL")
	}
}
