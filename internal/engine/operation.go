package engine

import (
	"fmt"
	"time"

	"github.com/joe/twinpane/pkg/fileops"
	"github.com/joe/twinpane/pkg/vfs"
)

// Kind is the kind of a batch operation.
type Kind = fileops.Kind

// Operation kinds.
const (
	KindCopy   = fileops.KindCopy
	KindMove   = fileops.KindMove
	KindDelete = fileops.KindDelete
)

// State is the engine's workflow state.
type State int

// States.
const (
	StateNone State = iota
	StatePending
	StateExecuting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StatePending:
		return "pending_confirmation"
	case StateExecuting:
		return "executing"
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Operation is a batch awaiting confirmation or being executed.
// Target fields are ignored for deletes.
type Operation struct {
	ID              string
	Kind            Kind
	Items           []vfs.Item
	SourceProfileID string
	SourcePath      string
	TargetProfileID string
	TargetPath      string
	CreatedAt       time.Time
}

// ItemIDs returns the item ids in order.
func (o Operation) ItemIDs() []string {
	ids := make([]string, len(o.Items))
	for i, item := range o.Items {
		ids[i] = item.ID
	}

	return ids
}

// Target renders the destination as "profile:path".
func (o Operation) Target() string {
	return o.TargetProfileID + ":" + o.TargetPath
}

// Source renders the origin as "profile:path".
func (o Operation) Source() string {
	return o.SourceProfileID + ":" + o.SourcePath
}

// Summary describes the operation in one line.
func (o Operation) Summary() string {
	if o.Kind.NeedsTarget() {
		return fmt.Sprintf("%s %d item(s) from %s to %s", o.Kind, len(o.Items), o.Source(), o.Target())
	}

	return fmt.Sprintf("%s %d item(s) from %s", o.Kind, len(o.Items), o.Source())
}

func (o Operation) clone() Operation {
	o.Items = append([]vfs.Item(nil), o.Items...)

	return o
}

// Report is the result of an executed operation.
type Report struct {
	Operation Operation
	Result    vfs.BatchResult
	Outcome   vfs.Outcome
	Duration  time.Duration
}

// Failures returns the failed item ids mapped to their errors.
func (r Report) Failures() map[string]error {
	return r.Result.Failures()
}

// String renders a report for logs.
func (r Report) String() string {
	return fmt.Sprintf("%s: %s in %s", r.Operation.Summary(), r.Outcome, r.Duration.Round(time.Millisecond))
}
