package shared

import (
	"github.com/joe/twinpane/internal/agent"
	"github.com/joe/twinpane/internal/engine"
	"github.com/joe/twinpane/internal/panel"
)

// ============================================================================
// Result Messages
// These messages carry the results of commands run off the UI goroutine
// ============================================================================

// ListingDoneMsg is sent when a pane navigation finishes
type ListingDoneMsg struct {
	Side    panel.Side
	Seq     uint64
	Applied bool
	Err     error
}

// OperationDoneMsg is sent when a confirmed operation finishes
type OperationDoneMsg struct {
	Report engine.Report
	Err    error
}

// CommandDoneMsg is sent when a command line call finishes
type CommandDoneMsg struct {
	Results []agent.CallResult
	Err     error
}

// ErrorMsg is sent when an error occurs outside the flows above
type ErrorMsg struct {
	Err error
}
