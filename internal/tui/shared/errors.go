package shared

import (
	"fmt"
	"strings"

	"github.com/joe/twinpane/internal/engine"
	"github.com/joe/twinpane/pkg/errors"
)

// Error display limits for different screen contexts
const (
	// ErrorLimitStatus is for the one-line status area
	ErrorLimitStatus = 3

	// ErrorLimitReport is for the report dialog
	ErrorLimitReport = 10
)

// RenderReportFailures renders the failed items of a report with their suggestions,
// up to limit items. Returns "" when nothing failed.
func RenderReportFailures(report engine.Report, limit int) string {
	var failed []string

	for _, result := range report.Result.Results {
		if result.Err != nil {
			failed = append(failed, result.ItemID)
		}
	}

	if len(failed) == 0 {
		return ""
	}

	failures := report.Failures()

	var builder strings.Builder

	for i, id := range failed {
		if limit > 0 && i >= limit {
			fmt.Fprintf(&builder, "%s\n", RenderDim(fmt.Sprintf("... and %d more", len(failed)-limit)))

			break
		}

		builder.WriteString(RenderError("✗ " + id))
		builder.WriteString("\n")
		builder.WriteString("  " + failures[id].Error())
		builder.WriteString("\n")

		if suggestions := errors.FormatSuggestions(failures[id]); suggestions != "" {
			builder.WriteString(RenderDim(suggestions))
			builder.WriteString("\n")
		}
	}

	return strings.TrimRight(builder.String(), "\n")
}

// RenderErrorLine renders err with its kind, or "" for nil.
func RenderErrorLine(err error) string {
	if err == nil {
		return ""
	}

	return RenderError(fmt.Sprintf("[%s] %v", errors.KindOf(err), err))
}
