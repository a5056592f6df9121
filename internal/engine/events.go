package engine

import "github.com/joe/twinpane/pkg/vfs"

// Event is the interface implemented by all engine events.
type Event interface {
	isEvent()
}

// EventEmitter is the interface for emitting events.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(Event)

// Emit calls f.
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

type nopEmitter struct{}

func (nopEmitter) Emit(Event) {}

// Confirmation phase events

// OperationInitiated is emitted when an operation starts waiting for confirmation.
type OperationInitiated struct {
	Operation Operation
}

func (OperationInitiated) isEvent() {}

// OperationCancelled is emitted when a pending operation is dropped.
type OperationCancelled struct {
	Operation Operation
}

func (OperationCancelled) isEvent() {}

// Execution phase events

// OperationStarted is emitted when a batch begins executing.
type OperationStarted struct {
	Operation Operation
}

func (OperationStarted) isEvent() {}

// ItemCompleted is emitted as each item of a batch finishes.
type ItemCompleted struct {
	OperationID string
	Result      vfs.ItemResult
}

func (ItemCompleted) isEvent() {}

// OperationFinished is emitted when a batch is done and both panes were refreshed.
type OperationFinished struct {
	Report Report
}

func (OperationFinished) isEvent() {}
