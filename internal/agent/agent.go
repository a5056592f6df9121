// Package agent executes tool calls proposed by the assistant, or typed on the command
// line, through the same registries and operation engine the panes use.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/joe/twinpane/internal/cmdlog"
	"github.com/joe/twinpane/internal/engine"
	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// Exported constants.
const (
	DefaultTimeout = 30 * time.Second
)

// Catalog resolves profiles and lists their ids.
type Catalog interface {
	vfs.Resolver
	IDs() []string
}

// Executor runs operations. *engine.Engine implements it.
type Executor interface {
	Execute(ctx context.Context, op engine.Operation, refresh ...engine.Pane) (engine.Report, error)
}

// Pane is a pane that may need refreshing after a call changes its profile.
type Pane interface {
	engine.Pane
	Location() (profileID, dir string)
}

// CallResult is the outcome of one call.
type CallResult struct {
	Call   ToolCall
	Items  []vfs.Item
	Report *engine.Report
	Err    error
}

// Dispatcher executes proposals.
type Dispatcher struct {
	catalog  Catalog
	executor Executor
	log      *cmdlog.Log
	logger   *zap.Logger
	panes    []Pane
	timeout  time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLog sets the command log.
func WithLog(log *cmdlog.Log) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithPanes registers the panes refreshed after a call touches their profile.
func WithPanes(panes ...Pane) Option {
	return func(d *Dispatcher) {
		d.panes = append(d.panes, panes...)
	}
}

// WithTimeout bounds each listing.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(catalog Catalog, executor Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog:  catalog,
		executor: executor,
		log:      cmdlog.New(cmdlog.DefaultCapacity),
		logger:   zap.NewNop(),
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run logs the narration and executes every call in order. A failing call does not
// stop the ones after it.
func (d *Dispatcher) Run(ctx context.Context, proposal Proposal) []CallResult {
	if proposal.Narration != "" {
		d.log.Infof(cmdlog.SourceAgent, "%s", proposal.Narration)
	}

	results := make([]CallResult, 0, len(proposal.Calls))

	for _, call := range proposal.Calls {
		d.log.Infof(cmdlog.SourceAgent, "Executing: %s", call)

		result := d.Call(ctx, call)
		if result.Err != nil {
			d.log.Errorf(cmdlog.SourceAgent, "%s failed: %v", call.Name, result.Err)
			d.logger.Warn("tool call failed", zap.String("call", call.String()), zap.Error(result.Err))
		}

		results = append(results, result)
	}

	return results
}

// Call executes one call.
func (d *Dispatcher) Call(ctx context.Context, call ToolCall) CallResult {
	result := CallResult{Call: call}

	switch call.Name {
	case ToolListFiles:
		result.Items, result.Err = d.list(ctx, call)
		if result.Err == nil {
			d.log.Infof(cmdlog.SourceAgent, "Found %d item(s) in %s:%s",
				countItems(result.Items), call.Args[ArgProfileID], vfs.CleanPath(call.Args[ArgPath]))
		}
	case ToolCopyItem, ToolMoveItem, ToolDeleteItem:
		result.Report, result.Err = d.operate(ctx, call)
	default:
		result.Err = unknownTool(call.Name)
	}

	return result
}

func (d *Dispatcher) list(ctx context.Context, call ToolCall) ([]vfs.Item, error) {
	if err := call.required(ArgProfileID); err != nil {
		return nil, err
	}

	return d.listDir(ctx, call.Args[ArgProfileID], vfs.CleanPath(call.Args[ArgPath]))
}

func (d *Dispatcher) operate(ctx context.Context, call ToolCall) (*engine.Report, error) {
	op, err := d.operation(ctx, call)
	if err != nil {
		return nil, err
	}

	report, err := d.executor.Execute(ctx, op, d.affected(op)...)
	if err != nil {
		return nil, err
	}

	for _, item := range report.Result.Results {
		if item.Err != nil {
			return &report, item.Err
		}
	}

	return &report, nil
}

func (d *Dispatcher) operation(ctx context.Context, call ToolCall) (engine.Operation, error) {
	var (
		op         engine.Operation
		profileKey = ArgSourceProfileID
		itemKey    = ArgSourceID
	)

	switch call.Name {
	case ToolCopyItem:
		op.Kind = engine.KindCopy
	case ToolMoveItem:
		op.Kind = engine.KindMove
	default:
		op.Kind = engine.KindDelete
		profileKey, itemKey = ArgProfileID, ArgItemID
	}

	keys := []string{profileKey, itemKey}
	if op.Kind.NeedsTarget() {
		keys = append(keys, ArgTargetProfileID, ArgTargetPath)
	}

	if err := call.required(keys...); err != nil {
		return engine.Operation{}, err
	}

	op.SourceProfileID = call.Args[profileKey]

	item, err := d.findItem(ctx, op.SourceProfileID, call.Args[itemKey])
	if err != nil {
		return engine.Operation{}, err
	}

	op.Items = []vfs.Item{item}
	op.SourcePath = vfs.Parent(item.ID)

	if op.Kind.NeedsTarget() {
		op.TargetProfileID = call.Args[ArgTargetProfileID]
		op.TargetPath = vfs.CleanPath(call.Args[ArgTargetPath])

		if _, _, err := d.resolve(op.TargetProfileID); err != nil {
			return engine.Operation{}, err
		}
	}

	return op, nil
}

// findItem resolves an item id by listing its parent.
func (d *Dispatcher) findItem(ctx context.Context, profileID, itemID string) (vfs.Item, error) {
	itemID = vfs.CleanPath(itemID)
	if vfs.IsRoot(itemID) {
		return vfs.Item{}, errors.Newf(errors.KindValidation, "find", itemID, "the root cannot be operated on")
	}

	items, err := d.listDir(ctx, profileID, vfs.Parent(itemID))
	if err != nil {
		return vfs.Item{}, err
	}

	candidates := make([]string, 0, len(items))

	for _, item := range items {
		if item.IsParent() {
			continue
		}

		if item.ID == itemID {
			return item, nil
		}

		candidates = append(candidates, item.ID)
	}

	msg := fmt.Sprintf("no item %q in %s:%s", itemID, profileID, vfs.Parent(itemID))
	if hint := closest(itemID, candidates); hint != "" {
		msg += fmt.Sprintf("; did you mean %q?", hint)
	}

	return vfs.Item{}, errors.Newf(errors.KindNotFound, "find", itemID, "%s", msg)
}

func (d *Dispatcher) listDir(ctx context.Context, profileID, dir string) ([]vfs.Item, error) {
	profile, backend, err := d.resolve(profileID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	items, err := backend.List(ctx, profile, dir)
	if err != nil {
		return nil, errors.Classify(err, "list", dir)
	}

	return items, nil
}

func (d *Dispatcher) resolve(profileID string) (vfs.Profile, vfs.Backend, error) {
	profile, backend, err := d.catalog.Resolve(profileID)
	if err == nil {
		return profile, backend, nil
	}

	if hint := closest(profileID, d.catalog.IDs()); hint != "" && hint != profileID {
		return vfs.Profile{}, nil, errors.Newf(errors.KindValidation, "resolve", profileID,
			"unknown profile %q; did you mean %q?", profileID, hint)
	}

	return vfs.Profile{}, nil, err
}

// affected returns the panes showing the source or target profile.
func (d *Dispatcher) affected(op engine.Operation) []engine.Pane {
	var panes []engine.Pane

	for _, pane := range d.panes {
		profileID, _ := pane.Location()
		if profileID == op.SourceProfileID || (op.Kind.NeedsTarget() && profileID == op.TargetProfileID) {
			panes = append(panes, pane)
		}
	}

	return panes
}

// closest returns the candidate nearest to s by edit distance, or "" when none is close.
func closest(s string, candidates []string) string {
	best, bestDistance := "", -1

	for _, candidate := range candidates {
		distance := levenshtein.ComputeDistance(s, candidate)
		if bestDistance < 0 || distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}

	if bestDistance < 0 || bestDistance > max(len(s), len(best))/2 {
		return ""
	}

	return best
}

func countItems(items []vfs.Item) int {
	n := 0

	for _, item := range items {
		if !item.IsParent() {
			n++
		}
	}

	return n
}
