package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joe/twinpane/internal/panel"
	"github.com/joe/twinpane/internal/tui/shared"
	"github.com/joe/twinpane/pkg/vfs"
)

// unexported constants.
const (
	defaultWidth  = 80
	defaultHeight = 24
	paneChrome    = 4 // border (2) and padding (2)
	fixedRows     = 6 // pane border and title, log title, status line, key bar
	minRows       = 3
	sizeColumn    = 10
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width, height := m.width, m.height
	if width == 0 {
		width = defaultWidth
	}

	if height == 0 {
		height = defaultHeight
	}

	rows := max(height-fixedRows-shared.CommandLogLines, minRows)
	paneWidth := max(width/2, shared.MinPaneWidth) //nolint:mnd // even split

	panes := shared.RenderTwoPaneLayout(
		m.renderPane(panel.SideLeft, paneWidth, rows),
		m.renderPane(panel.SideRight, paneWidth, rows),
		paneWidth*2, //nolint:mnd // two panes
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		panes,
		shared.RenderCommandLog("Command log", m.app.Log.Entries(), shared.CommandLogLines),
		m.renderStatus(),
		m.renderKeyBar(),
	)
}

func (m Model) renderPane(side panel.Side, width, rows int) string {
	snap := m.pane(side).Snapshot()
	active := side == m.active
	inner := width - paneChrome

	title := snap.ProfileID + ":" + snap.Path
	if profile, ok := m.app.Profiles.Get(snap.ProfileID); ok {
		title = profile.Label() + " " + snap.Path
	}

	title = shared.RenderTitle(shared.TruncatePath(title, inner-2)) //nolint:mnd // spinner cell
	if m.loading[side] {
		title += " " + m.spinner.View()
	}

	lines := []string{title}

	if len(snap.Items) == 0 {
		lines = append(lines, shared.RenderDim("(empty)"))
	}

	start := max(0, snap.Focused-rows+1)
	end := min(len(snap.Items), start+rows)

	for i := start; i < end; i++ {
		lines = append(lines, renderRow(snap.Items[i], inner,
			snap.IsSelected(snap.Items[i].ID), active && i == snap.Focused))
	}

	if selected := len(snap.Selection); selected > 0 {
		lines = append(lines, shared.RenderDim(fmt.Sprintf("%d selected", selected)))
	}

	return shared.PaneStyle(active).Width(width - 2).Render(strings.Join(lines, "\n")) //nolint:mnd // border
}

func renderRow(item vfs.Item, width int, selected, focused bool) string {
	mark := "  "
	if selected {
		mark = shared.SelectedMark
	}

	nameWidth := max(width-len(mark)-sizeColumn-1, 1)
	name := shared.TruncateText(item.Name, nameWidth)
	size := shared.FormatItemSize(item)
	row := mark + name + strings.Repeat(" ", max(nameWidth-lipgloss.Width(name), 0)) + " " +
		fmt.Sprintf("%*s", sizeColumn, size)

	style := shared.ItemStyle()

	switch {
	case selected:
		style = shared.SelectedItemStyle()
	case item.Type.IsContainer():
		style = shared.ContainerItemStyle()
	}

	if focused {
		style = style.Inherit(shared.FocusedItemStyle()).Reverse(true)
	}

	return style.Render(row)
}

func (m Model) renderStatus() string {
	switch m.mode {
	case ModeConfirm:
		op, ok := m.app.Engine.Pending()
		if !ok {
			return ""
		}

		return shared.RenderWarning(op.Summary() + "?")

	case ModeTarget:
		return shared.RenderLabel("Target: ") + m.input.View()

	case ModeCommand:
		return shared.RenderLabel("Command: ") + m.input.View()

	case ModeSelect:
		return shared.RenderLabel("Select: ") + m.input.View()

	case ModeMkdir:
		return shared.RenderLabel("New folder: ") + m.input.View()

	case ModeExecuting:
		if m.total == 0 {
			return m.spinner.View() + " Working..."
		}

		percent := float64(m.done) / float64(m.total)

		return fmt.Sprintf("%s %s %d/%d", m.spinner.View(), m.progress.ViewAs(percent), m.done, m.total)

	case ModeBrowse:
	}

	if m.report != nil {
		if m.report.Outcome == vfs.OutcomeOK {
			return shared.RenderSuccess(m.report.String())
		}

		return shared.RenderError(m.report.String())
	}

	return ""
}

func (m Model) renderKeyBar() string {
	switch m.mode {
	case ModeConfirm:
		return shared.RenderKeyBar(
			[2]string{"enter", "confirm"}, [2]string{"e", "edit target"}, [2]string{"esc", "cancel"})
	case ModeTarget, ModeCommand, ModeSelect, ModeMkdir:
		return shared.RenderKeyBar([2]string{"enter", "apply"}, [2]string{"esc", "back"})
	case ModeExecuting:
		return shared.RenderKeyBar(
			[2]string{"tab", "switch"}, [2]string{"space", "select"}, [2]string{shared.KeyCtrlC, "quit"})
	case ModeBrowse:
	}

	return shared.RenderKeyBar(
		[2]string{"tab", "switch"},
		[2]string{"space", "select"},
		[2]string{"+", "glob"},
		[2]string{"F5", "copy"},
		[2]string{"F6", "move"},
		[2]string{"F7", "mkdir"},
		[2]string{"F8", "delete"},
		[2]string{":", "command"},
		[2]string{"q", "quit"},
	)
}
