package report

import (
	"fmt"
	"strings"

	"scanguard/internal/model"
)

// RenderSummaryLine formats spec §7's single-line table summary:
// "Scanned N files in Tms | Findings N | CRITICAL:x | HIGH:x | MEDIUM:x | LOW:x".
func RenderSummaryLine(result model.ScanResult) string {
	sev := model.SeveritySummary(result.Findings)
	return fmt.Sprintf(
		"Scanned %d files in %dms | Findings %d | CRITICAL:%d | HIGH:%d | MEDIUM:%d | LOW:%d",
		result.ScannedFiles, result.ElapsedMS, len(result.Findings),
		sev[model.SeverityCritical], sev[model.SeverityHigh], sev[model.SeverityMedium], sev[model.SeverityLow],
	)
}

// RenderTable formats the summary line followed by a findings table. When
// showConfidence is set, a confidence column is appended (spec §7).
func RenderTable(result model.ScanResult, showConfidence bool) string {
	var b strings.Builder
	b.WriteString(RenderSummaryLine(result))
	b.WriteString("\n\n")

	if len(result.Findings) == 0 {
		return b.String()
	}

	headers := []string{"SEVERITY", "RULE", "FILE", "LINE", "MESSAGE"}
	if showConfidence {
		headers = append(headers, "CONFIDENCE")
	}
	rows := make([][]string, 0, len(result.Findings))
	for _, f := range result.Findings {
		row := []string{
			string(f.Severity),
			f.RuleID,
			f.File,
			lineOrDash(f.Line),
			f.Message,
		}
		if showConfidence {
			row = append(row, fmt.Sprintf("%.2f", f.Confidence))
		}
		rows = append(rows, row)
	}

	writeTable(&b, headers, rows)
	return b.String()
}

func lineOrDash(line int) string {
	if line <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d", line)
}

func writeTable(b *strings.Builder, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow(b, headers, widths)
	for _, row := range rows {
		writeRow(b, row, widths)
	}
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(cell)
		if pad := widths[i] - len(cell); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	b.WriteString("\n")
}
