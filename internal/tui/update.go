package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/twinpane/internal/agent"
	"github.com/joe/twinpane/internal/cmdlog"
	"github.com/joe/twinpane/internal/engine"
	"github.com/joe/twinpane/internal/panel"
	"github.com/joe/twinpane/internal/tui/shared"
	"github.com/joe/twinpane/pkg/vfs"
)

// unexported constants.
const (
	pageSize         = 10
	inputMargin      = 10
	minInputWidth    = 20
	progressMargin   = 20
	minProgressWidth = 10
	cdVerb           = "cd"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-inputMargin, minInputWidth)
		m.progress.Width = min(max(msg.Width-progressMargin, minProgressWidth), shared.ProgressBarWidth)

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case shared.ListingDoneMsg:
		// Only the latest navigation of a side stops its spinner.
		if msg.Seq == m.navSeq[msg.Side] {
			m.loading[msg.Side] = false
		}

		//nolint:errorlint // sentinel identity
		if msg.Err != nil && msg.Err != panel.ErrNotContainer {
			profileID, dir := m.pane(msg.Side).Location()
			m.app.Log.Errorf(cmdlog.SourceUser, "Cannot open %s:%s: %v", profileID, dir, msg.Err)
		}

		return m, nil

	case shared.OperationDoneMsg:
		m.mode = ModeBrowse
		if _, pending := m.app.Engine.Pending(); pending {
			m.mode = ModeConfirm
		}

		if msg.Err == nil {
			report := msg.Report
			m.report = &report
		}

		return m, nil

	case shared.CommandDoneMsg:
		m.mode = ModeBrowse

		if msg.Err != nil {
			m.app.Log.Errorf(cmdlog.SourceUser, "%v", msg.Err)
		}

		return m, nil

	case shared.EngineEventMsg:
		m.applyEvent(msg.Event)

		return m, m.bridge.ListenCmd()

	case shared.ErrorMsg:
		m.app.Log.Errorf(cmdlog.SourceSystem, "%v", msg.Err)

		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m *Model) applyEvent(event engine.Event) {
	switch event := event.(type) {
	case engine.OperationStarted:
		m.total = len(event.Operation.Items)
		m.done = 0
	case engine.ItemCompleted:
		m.done = min(m.done+1, max(m.total, 1))
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == shared.KeyCtrlC {
		m.quitting = true

		return m, tea.Quit
	}

	switch m.mode {
	case ModeBrowse:
		return m.handleBrowseKey(msg)
	case ModeConfirm:
		return m.handleConfirmKey(msg)
	case ModeTarget, ModeCommand, ModeSelect, ModeMkdir:
		return m.handleInputKey(msg)
	case ModeExecuting:
		if startsWork(msg.String()) {
			return m, nil
		}

		return m.handleBrowseKey(msg)
	}

	return m, nil
}

// startsWork reports whether key would leave the executing view. Such keys wait for the
// running batch; navigation and selection do not.
func startsWork(key string) bool {
	switch key {
	case "q", "+", ":", "f5", "c", "f6", "m", "f7", "f8", "d", "delete":
		return true
	}

	return false
}

//nolint:cyclop,funlen // one case per key binding
func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pane := m.activePane()

	switch msg.String() {
	case "q":
		m.quitting = true

		return m, tea.Quit

	case "tab":
		m.active = m.active.Other()

	case "up", "k":
		pane.MoveFocus(-1)

	case "down", "j":
		pane.MoveFocus(1)

	case "pgup":
		pane.MoveFocus(-pageSize)

	case "pgdown":
		pane.MoveFocus(pageSize)

	case "home", "g":
		pane.SetFocus(0)

	case "end", "G":
		pane.SetFocus(len(pane.Snapshot().Items) - 1)

	case "enter", "right":
		return m.navigate(m.active, pane.Enter)

	case "backspace", "left":
		return m.navigate(m.active, pane.Up)

	case "ctrl+r":
		return m.navigate(m.active, pane.Refresh)

	case " ", "insert":
		m.toggleFocused(pane)

	case "shift+up":
		m.extendSelection(pane, -1)

	case "shift+down":
		m.extendSelection(pane, 1)

	case "esc":
		pane.ClearSelection()

	case "+":
		return m.openInput(ModeSelect, "*", "pattern")

	case ":":
		return m.openInput(ModeCommand, "", "ls D /documents")

	case "f5", "c":
		return m.initiate(engine.KindCopy)

	case "f6", "m":
		return m.initiate(engine.KindMove)

	case "f7":
		return m.openInput(ModeMkdir, "", "folder name")

	case "f8", "d", "delete":
		return m.initiate(engine.KindDelete)
	}

	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	op, pending := m.app.Engine.Pending()
	if !pending {
		m.mode = ModeBrowse

		return m, nil
	}

	switch msg.String() {
	case "enter", "y":
		return m.confirm(len(op.Items))

	case "esc", "n":
		m.app.Engine.Cancel()
		m.mode = ModeBrowse

	case "e", "t":
		if op.Kind.NeedsTarget() {
			return m.openInput(ModeTarget, op.TargetPath, "/path")
		}
	}

	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeInput(), nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m = m.closeInput()

		return m.submit(mode, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m Model) submit(mode Mode, value string) (tea.Model, tea.Cmd) {
	switch mode {
	case ModeTarget:
		if err := m.app.Engine.SetTargetPath(value); err != nil {
			m.app.Log.Errorf(cmdlog.SourceUser, "%v", err)
		}

		return m, nil

	case ModeSelect:
		if value == "" {
			return m, nil
		}

		n, err := m.activePane().SelectMatching(value)
		if err != nil {
			m.app.Log.Errorf(cmdlog.SourceUser, "%v", err)

			return m, nil
		}

		m.app.Log.Infof(cmdlog.SourceUser, "Selected %d item(s) matching %s", n, value)

		return m, nil

	case ModeCommand:
		return m.runCommand(value)

	case ModeMkdir:
		return m.makeDir(value)

	case ModeBrowse, ModeConfirm, ModeExecuting:
	}

	return m, nil
}

func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	if line == "" {
		return m, nil
	}

	m.app.Log.Infof(cmdlog.SourceUser, "> %s", line)

	if fields := strings.Fields(line); fields[0] == cdVerb {
		return m.changeDir(fields[1:])
	}

	var (
		proposal agent.Proposal
		err      error
	)

	if strings.HasPrefix(line, "{") {
		proposal, err = agent.ParseProposal([]byte(line))
	} else {
		var call agent.ToolCall

		call, err = agent.ParseCommand(line)
		proposal = agent.Proposal{Calls: []agent.ToolCall{call}}
	}

	if err != nil {
		m.app.Log.Errorf(cmdlog.SourceUser, "%v", err)

		return m, nil
	}

	m.mode = ModeExecuting
	m.done, m.total = 0, 0
	dispatcher, ctx := m.app.Dispatcher, m.ctx

	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		results := dispatcher.Run(ctx, proposal)

		return shared.CommandDoneMsg{Results: results}
	})
}

// changeDir handles "cd [profile] path" on the active pane.
func (m Model) changeDir(args []string) (tea.Model, tea.Cmd) {
	var profileID, dir string

	switch len(args) {
	case 1:
		dir = args[0]
	case 2: //nolint:mnd // profile and path
		profileID, dir = args[0], args[1]
	default:
		m.app.Log.Errorf(cmdlog.SourceUser, "usage: cd [profile] path")

		return m, nil
	}

	pane := m.activePane()
	dir = vfs.CleanPath(dir)

	return m.navigate(m.active, func(ctx context.Context) (bool, error) {
		return pane.Navigate(ctx, dir, profileID)
	})
}

func (m Model) makeDir(name string) (tea.Model, tea.Cmd) {
	if name == "" {
		return m, nil
	}

	pane, log := m.activePane(), m.app.Log

	return m.navigate(m.active, func(ctx context.Context) (bool, error) {
		applied, err := pane.MakeDir(ctx, name)
		if err != nil {
			log.Errorf(cmdlog.SourceUser, "Cannot create %s: %v", name, err)

			return false, nil
		}

		profileID, dir := pane.Location()
		log.Infof(cmdlog.SourceUser, "Created %s:%s", profileID, vfs.Join(dir, name))

		return applied, nil
	})
}

func (m Model) navigate(side panel.Side, fn func(context.Context) (bool, error)) (tea.Model, tea.Cmd) {
	var tick tea.Cmd
	if !m.busy() {
		tick = m.spinner.Tick
	}

	m.loading[side] = true
	m.navSeq[side]++
	ctx, seq := m.ctx, m.navSeq[side]

	return m, tea.Batch(tick, func() tea.Msg {
		applied, err := fn(ctx)

		return shared.ListingDoneMsg{Side: side, Seq: seq, Applied: applied, Err: err}
	})
}

func (m Model) initiate(kind engine.Kind) (tea.Model, tea.Cmd) {
	op, err := m.app.Engine.Initiate(kind, m.activePane(), m.pane(m.active.Other()))
	if err != nil {
		m.app.Log.Errorf(cmdlog.SourceUser, "%v", err)

		return m, nil
	}

	if op == nil {
		return m, nil
	}

	m.mode = ModeConfirm

	return m, nil
}

func (m Model) confirm(items int) (tea.Model, tea.Cmd) {
	m.mode = ModeExecuting
	m.done, m.total = 0, items
	eng, ctx := m.app.Engine, m.ctx

	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		report, err := eng.Confirm(ctx)

		return shared.OperationDoneMsg{Report: report, Err: err}
	})
}

func (m Model) openInput(mode Mode, value, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()

	return m, tea.Batch(m.input.Focus(), textinput.Blink)
}

func (m Model) closeInput() Model {
	m.input.Blur()
	m.input.SetValue("")

	if m.mode == ModeTarget {
		m.mode = ModeConfirm
	} else {
		m.mode = ModeBrowse
	}

	return m
}

func (m *Model) toggleFocused(pane *panel.Panel) {
	snap := pane.Snapshot()
	if snap.Focused < 0 {
		return
	}

	if err := pane.ToggleSelection(snap.Focused, panel.Modifiers{Ctrl: true}); err != nil {
		m.app.Log.Errorf(cmdlog.SourceUser, "%v", err)

		return
	}

	pane.MoveFocus(1)
}

func (m *Model) extendSelection(pane *panel.Panel, delta int) {
	snap := pane.Snapshot()
	index := snap.Focused + delta

	if snap.Focused < 0 || index < 0 || index >= len(snap.Items) {
		return
	}

	if err := pane.ToggleSelection(index, panel.Modifiers{Shift: true}); err != nil {
		m.app.Log.Errorf(cmdlog.SourceUser, "%v", err)
	}
}
