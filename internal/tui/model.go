package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/twinpane/internal/app"
	"github.com/joe/twinpane/internal/engine"
	"github.com/joe/twinpane/internal/panel"
	"github.com/joe/twinpane/internal/tui/shared"
)

// Mode is what the keyboard currently drives.
type Mode int

// Modes.
const (
	ModeBrowse Mode = iota
	ModeConfirm
	ModeTarget
	ModeCommand
	ModeSelect
	ModeMkdir
	ModeExecuting
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBrowse:
		return "browse"
	case ModeConfirm:
		return "confirm"
	case ModeTarget:
		return "target"
	case ModeCommand:
		return "command"
	case ModeSelect:
		return "select"
	case ModeMkdir:
		return "mkdir"
	case ModeExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// Model is the dual-pane screen. All state beyond the keyboard mode lives in the
// panels, the engine and the command log; the model only renders and dispatches.
type Model struct {
	ctx    context.Context //nolint:containedctx // bubbletea commands outlive Update calls
	app    *app.App
	bridge *shared.EventBridge

	active panel.Side
	mode   Mode

	input    textinput.Model
	spinner  spinner.Model
	progress progress.Model

	loading  [2]bool
	navSeq   [2]uint64
	done     int
	total    int
	report   *engine.Report
	width    int
	height   int
	quitting bool
}

// NewModel creates the screen over a started application. bridge may be nil when
// engine events are not forwarded.
func NewModel(ctx context.Context, a *app.App, bridge *shared.EventBridge) Model {
	input := textinput.New()
	input.Prompt = shared.PromptArrow

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = shared.AgentStyle()

	return Model{
		ctx:      ctx,
		app:      a,
		bridge:   bridge,
		active:   panel.SideLeft,
		mode:     ModeBrowse,
		input:    input,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(shared.ProgressBarWidth)),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	if m.bridge == nil {
		return nil
	}

	return m.bridge.ListenCmd()
}

// Active returns the side that receives navigation keys.
func (m Model) Active() panel.Side {
	return m.active
}

// Mode returns the current keyboard mode.
func (m Model) Mode() Mode {
	return m.mode
}

// LastReport returns the report of the most recent confirmed operation.
func (m Model) LastReport() (engine.Report, bool) {
	if m.report == nil {
		return engine.Report{}, false
	}

	return *m.report, true
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

func (m Model) pane(side panel.Side) *panel.Panel {
	return m.app.Pane(side)
}

func (m Model) activePane() *panel.Panel {
	return m.pane(m.active)
}

func (m Model) busy() bool {
	return m.mode == ModeExecuting || m.loading[panel.SideLeft] || m.loading[panel.SideRight]
}
