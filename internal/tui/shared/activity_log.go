package shared

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joe/twinpane/internal/cmdlog"
)

// RenderCommandLog renders the command log, oldest entry first, with an optional title.
// If maxEntries > 0, only the most recent N entries are shown. Assistant entries and
// errors are colored.
func RenderCommandLog(title string, entries []cmdlog.Entry, maxEntries int) string {
	var builder strings.Builder

	if trimmed := strings.TrimSpace(title); trimmed != "" {
		builder.WriteString(RenderLabel(trimmed))

		if len(entries) > 0 {
			builder.WriteString("\n")
		}
	}

	if maxEntries > 0 && maxEntries < len(entries) {
		entries = entries[len(entries)-maxEntries:]
	}

	for i, entry := range entries {
		builder.WriteString("  ")
		builder.WriteString(styleEntry(entry).Render(entry.String()))

		if i < len(entries)-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String()
}

func styleEntry(entry cmdlog.Entry) lipgloss.Style {
	switch {
	case entry.Level == cmdlog.LevelError:
		return ErrorStyle()
	case entry.Source == cmdlog.SourceAgent:
		return AgentStyle()
	default:
		return DimStyle()
	}
}
