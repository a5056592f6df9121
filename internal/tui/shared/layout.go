package shared

import "github.com/charmbracelet/lipgloss"

// RenderTwoPaneLayout renders two panes side by side, splitting the width evenly.
// Columns are joined horizontally using lipgloss.
func RenderTwoPaneLayout(leftContent, rightContent string, width int) string {
	leftWidth := width / 2 //nolint:mnd // even split
	rightWidth := width - leftWidth

	leftStyle := lipgloss.NewStyle().Width(leftWidth)
	rightStyle := lipgloss.NewStyle().Width(rightWidth)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftStyle.Render(leftContent),
		rightStyle.Render(rightContent),
	)
}

// RenderWidgetBox renders content in a titled box with borders.
// Width accounts for padding (width - 4 for borders and padding).
func RenderWidgetBox(title, content string, width int) string {
	const widthOverhead = 4 // Account for borders (2) and padding (2)

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor())
	boxStyle := BoxStyle().Width(max(width-widthOverhead, 1))

	return boxStyle.Render(titleStyle.Render(title) + "\n" + content)
}

// RenderKeyBar renders "key label" pairs separated by spaces.
func RenderKeyBar(pairs ...[2]string) string {
	parts := make([]string, len(pairs))
	for i, pair := range pairs {
		parts[i] = KeyStyle().Render(pair[0]) + " " + DimStyle().Render(pair[1])
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, joinWithSpaces(parts)...)
}

func joinWithSpaces(parts []string) []string {
	out := make([]string, 0, len(parts)*2) //nolint:mnd // part plus separator
	for i, part := range parts {
		if i > 0 {
			out = append(out, "  ")
		}

		out = append(out, part)
	}

	return out
}
