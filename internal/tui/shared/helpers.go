package shared

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/joe/twinpane/pkg/vfs"
)

// ============================================================================
// Formatting Functions
// ============================================================================

// FormatBytes formats bytes into human-readable format (e.g., "1.5 KB")
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration formats duration into human-readable format (e.g., "2m 30s")
func FormatDuration(duration time.Duration) string {
	if duration < time.Second {
		return fmt.Sprintf("%dms", duration.Milliseconds())
	}

	duration = duration.Round(time.Second)
	hours := duration / time.Hour
	duration %= time.Hour
	minutes := duration / time.Minute
	duration %= time.Minute
	seconds := duration / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

// FormatItemSize renders the size column: containers show their type, leaves their size.
func FormatItemSize(item vfs.Item) string {
	if item.IsParent() {
		return ""
	}

	if item.Type.IsContainer() {
		return "<" + item.Type.String() + ">"
	}

	return FormatBytes(item.Size)
}

// FormatModTime renders the date column. Zero times render empty.
func FormatModTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format("2006-01-02 15:04")
}

// TruncateText shortens text to width cells, ending with an ellipsis.
func TruncateText(text string, width int) string {
	if width <= 0 {
		return ""
	}

	if lipgloss.Width(text) <= width {
		return text
	}

	runes := []rune(text)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}

	return string(runes) + Ellipsis
}

// TruncatePath shortens a path from the left so its tail stays visible.
func TruncatePath(p string, width int) string {
	if width <= 0 {
		return ""
	}

	if lipgloss.Width(p) <= width {
		return p
	}

	runes := []rune(p)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[1:]
	}

	return Ellipsis + string(runes)
}
