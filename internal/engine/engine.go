// Package engine implements the copy/move/delete workflow between the two panes.
//
// An operation is initiated from the active pane's item set and the passive pane's
// location, waits for confirmation, and is then executed as one batch. The engine moves
// through three states:
//
//	none --Initiate--> pending --Confirm--> executing --done--> none
//	                      |
//	                      +----Cancel----> none
//
// Only one batch executes at a time. Navigation and selection never touch engine state.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joe/twinpane/internal/cmdlog"
	"github.com/joe/twinpane/internal/metrics"
	"github.com/joe/twinpane/internal/panel"
	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/fileops"
	"github.com/joe/twinpane/pkg/vfs"
)

// Exported constants.
const (
	DefaultTimeout = 30 * time.Second
)

// Exported variables.
var (
	ErrBusy      = errors.Newf(errors.KindValidation, "operation", "", "another operation is executing")
	ErrNoPending = errors.Newf(errors.KindValidation, "confirm", "", "no operation is pending")
)

// Pane is the view of a panel the engine needs.
type Pane interface {
	Snapshot() panel.Snapshot
	ResolveOperationItemSet() []vfs.Item
	ClearSelection()
	Refresh(ctx context.Context) (bool, error)
}

// Engine runs the operation workflow. Safe for concurrent use.
type Engine struct {
	resolver    vfs.Resolver
	log         *cmdlog.Log
	logger      *zap.Logger
	recorder    metrics.Recorder
	emitter     EventEmitter
	timeout     time.Duration
	concurrency int
	now         func() time.Time

	mu        sync.Mutex
	pending   *Operation
	active    Pane
	passive   Pane
	executing bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLog sets the command log receiving workflow messages.
func WithLog(log *cmdlog.Log) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// WithEmitter sets the event sink.
func WithEmitter(emitter EventEmitter) Option {
	return func(e *Engine) {
		e.emitter = emitter
	}
}

// WithTimeout bounds each backend call made while executing.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithConcurrency bounds how many items execute at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = max(n, 1)
	}
}

// WithClock sets the clock used for operation timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine resolving profiles through resolver.
func New(resolver vfs.Resolver, opts ...Option) *Engine {
	e := &Engine{
		resolver:    resolver,
		log:         cmdlog.New(cmdlog.DefaultCapacity),
		logger:      zap.NewNop(),
		recorder:    metrics.Nop(),
		emitter:     nopEmitter{},
		timeout:     DefaultTimeout,
		concurrency: fileops.DefaultConcurrency,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// State returns the workflow state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.stateLocked()
}

// Pending returns the operation awaiting confirmation.
func (e *Engine) Pending() (Operation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil {
		return Operation{}, false
	}

	return e.pending.clone(), true
}

// Initiate builds an operation from the active pane's item set, targeting the passive
// pane's location, and holds it for confirmation. An empty item set is a no-op that
// returns (nil, nil). A pending operation is replaced.
func (e *Engine) Initiate(kind Kind, active, passive Pane) (*Operation, error) {
	items := active.ResolveOperationItemSet()
	if len(items) == 0 {
		return nil, nil //nolint:nilnil // nothing to operate on is not an error
	}

	source := active.Snapshot()
	target := passive.Snapshot()

	op := Operation{
		ID:              uuid.NewString(),
		Kind:            kind,
		Items:           items,
		SourceProfileID: source.ProfileID,
		SourcePath:      source.Path,
		CreatedAt:       e.now(),
	}

	if kind.NeedsTarget() {
		op.TargetProfileID = target.ProfileID
		op.TargetPath = target.Path
	}

	e.mu.Lock()

	if e.executing {
		e.mu.Unlock()

		return nil, ErrBusy
	}

	replaced := e.pending
	e.pending = &op
	e.active = active
	e.passive = passive
	e.mu.Unlock()

	if replaced != nil {
		e.logger.Debug("replacing pending operation", zap.String("id", replaced.ID))
	}

	e.log.Infof(cmdlog.SourceSystem, "Confirm %s?", op.Summary())
	e.logger.Info("operation initiated",
		zap.String("id", op.ID),
		zap.Stringer("kind", op.Kind),
		zap.Int("items", len(op.Items)))
	e.emitter.Emit(OperationInitiated{Operation: op.clone()})

	result := op.clone()

	return &result, nil
}

// SetTargetPath changes the destination of the pending copy or move. The panes are not
// touched.
func (e *Engine) SetTargetPath(target string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil {
		return ErrNoPending
	}

	if !e.pending.Kind.NeedsTarget() {
		return errors.Newf(errors.KindValidation, "target", target,
			"%s has no target path", e.pending.Kind)
	}

	if target == "" {
		e.pending.TargetPath = ""

		return nil
	}

	e.pending.TargetPath = vfs.CleanPath(target)

	return nil
}

// Cancel drops the pending operation without calling any backend. It cannot abort a
// batch that is already executing.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	op := e.pending
	e.pending = nil
	e.active, e.passive = nil, nil
	e.mu.Unlock()

	if op == nil {
		return false
	}

	e.log.Infof(cmdlog.SourceSystem, "Operation cancelled: %s.", op.Summary())
	e.logger.Info("operation cancelled", zap.String("id", op.ID))
	e.emitter.Emit(OperationCancelled{Operation: op.clone()})

	return true
}

// Confirm executes the pending operation. When the operation fails validation it stays
// pending. After execution the active pane's selection is cleared and both panes are
// refreshed; refresh failures go to the command log.
func (e *Engine) Confirm(ctx context.Context) (Report, error) {
	e.mu.Lock()

	if e.executing {
		e.mu.Unlock()

		return Report{}, ErrBusy
	}

	if e.pending == nil {
		e.mu.Unlock()

		return Report{}, ErrNoPending
	}

	op := e.pending.clone()
	if err := validate(op); err != nil {
		e.mu.Unlock()
		e.log.Errorf(cmdlog.SourceSystem, "%v", err)

		return Report{}, err
	}

	active, passive := e.active, e.passive
	e.pending = nil
	e.active, e.passive = nil, nil
	e.executing = true
	e.mu.Unlock()

	return e.run(ctx, op, active, []Pane{active, passive}), nil
}

// Execute runs op directly, without the confirmation step, then refreshes the given
// panes. It is rejected while another batch executes. A pending operation is kept.
func (e *Engine) Execute(ctx context.Context, op Operation, refresh ...Pane) (Report, error) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}

	if op.CreatedAt.IsZero() {
		op.CreatedAt = e.now()
	}

	op.SourcePath = vfs.CleanPath(op.SourcePath)
	if op.TargetPath != "" {
		op.TargetPath = vfs.CleanPath(op.TargetPath)
	}

	if err := validate(op); err != nil {
		return Report{}, err
	}

	e.mu.Lock()

	if e.executing {
		e.mu.Unlock()

		return Report{}, ErrBusy
	}

	e.executing = true
	e.mu.Unlock()

	return e.run(ctx, op.clone(), nil, refresh), nil
}

func (e *Engine) run(ctx context.Context, op Operation, active Pane, refresh []Pane) Report {
	defer func() {
		e.mu.Lock()
		e.executing = false
		e.mu.Unlock()
	}()

	e.emitter.Emit(OperationStarted{Operation: op.clone()})
	e.logger.Info("operation started", zap.String("id", op.ID), zap.String("summary", op.Summary()))

	start := e.now()
	result := e.execute(ctx, op)
	report := Report{
		Operation: op,
		Result:    result,
		Outcome:   result.Outcome(),
		Duration:  e.now().Sub(start),
	}

	if active != nil {
		active.ClearSelection()
	}

	for _, pane := range refresh {
		if pane == nil {
			continue
		}

		if _, err := pane.Refresh(ctx); err != nil {
			e.log.Errorf(cmdlog.SourceSystem, "Refresh failed: %v", err)
			e.logger.Warn("pane refresh failed", zap.Error(err))
		}
	}

	e.logReport(report)
	e.recorder.Operation(op.Kind.String(), report.Outcome.String(), report.Duration)
	e.emitter.Emit(OperationFinished{Report: report})

	return report
}

func (e *Engine) execute(ctx context.Context, op Operation) vfs.BatchResult {
	request := fileops.Request{
		Kind:       op.Kind,
		Items:      op.Items,
		TargetPath: op.TargetPath,
	}

	source, err := e.endpoint(op.SourceProfileID)
	if err != nil {
		return failAll(op.ItemIDs(), err)
	}

	request.Source = source
	request.Target = source

	if op.Kind.NeedsTarget() {
		target, err := e.endpoint(op.TargetProfileID)
		if err != nil {
			return failAll(op.ItemIDs(), err)
		}

		request.Target = target
	}

	executor := fileops.NewExecutor(
		fileops.WithConcurrency(e.concurrency),
		fileops.WithCallTimeout(e.timeout),
		fileops.WithLogger(e.logger),
		fileops.WithProgress(func(result vfs.ItemResult) {
			e.recorder.BackendCall(source.Profile.BackendID, op.Kind.String(), result.Err)
			e.emitter.Emit(ItemCompleted{OperationID: op.ID, Result: result})
		}),
	)

	e.logger.Debug("executing batch",
		zap.String("id", op.ID),
		zap.String("strategy", string(executor.Plan(request))))

	return executor.Run(ctx, request)
}

func (e *Engine) endpoint(profileID string) (fileops.Endpoint, error) {
	profile, backend, err := e.resolver.Resolve(profileID)
	if err != nil {
		return fileops.Endpoint{}, err
	}

	return fileops.Endpoint{Profile: profile, Backend: backend}, nil
}

func (e *Engine) logReport(report Report) {
	op := report.Operation
	total := len(op.Items)
	failures := report.Failures()

	switch report.Outcome {
	case vfs.OutcomeOK:
		e.log.Infof(cmdlog.SourceSystem, "Done: %s.", op.Summary())
	case vfs.OutcomePartial:
		e.log.Errorf(cmdlog.SourceSystem, "Partially done: %s (%d of %d failed).", op.Summary(), len(failures), total)
	case vfs.OutcomeFailed:
		e.log.Errorf(cmdlog.SourceSystem, "Failed: %s.", op.Summary())
	}

	for _, item := range report.Result.Results {
		if item.Err != nil {
			e.log.Errorf(cmdlog.SourceSystem, "%s %s: %v", op.Kind, item.ItemID, item.Err)
		}
	}

	e.logger.Info("operation finished",
		zap.String("id", op.ID),
		zap.Stringer("outcome", report.Outcome),
		zap.Int("failed", len(failures)),
		zap.Duration("duration", report.Duration))
}

func (e *Engine) stateLocked() State {
	switch {
	case e.executing:
		return StateExecuting
	case e.pending != nil:
		return StatePending
	default:
		return StateNone
	}
}

func validate(op Operation) error {
	if len(op.Items) == 0 {
		return errors.Newf(errors.KindValidation, op.Kind.String(), op.SourcePath, "no items to %s", op.Kind)
	}

	for _, item := range op.Items {
		if item.IsParent() {
			return errors.Newf(errors.KindValidation, op.Kind.String(), item.ID,
				"the parent entry cannot be operated on")
		}
	}

	if op.SourceProfileID == "" {
		return errors.Newf(errors.KindValidation, op.Kind.String(), "", "source profile is empty")
	}

	if op.Kind.NeedsTarget() {
		if op.TargetProfileID == "" {
			return errors.Newf(errors.KindValidation, op.Kind.String(), "", "target profile is empty")
		}

		if op.TargetPath == "" {
			return errors.Newf(errors.KindValidation, op.Kind.String(), "", "target path is empty")
		}
	}

	return nil
}

func failAll(ids []string, err error) vfs.BatchResult {
	result := vfs.NewBatchResult(ids)
	for i := range result.Results {
		result.Results[i].Err = err
	}

	return result
}
