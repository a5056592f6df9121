// Package fileops executes copy, move and delete batches against storage backends.
//
// A batch runs through one of two strategies. Backends that implement the bulk
// capabilities (vfs.Copier, vfs.Mover, vfs.Deleter) receive the whole batch in one call
// when source and target are the same profile. Everything else runs item by item: a
// leaf is read from the source and written to the target, a container is recreated with
// vfs.DirMaker and its children copied recursively, and a move deletes the source only
// after its copy succeeded. Item-by-item work fans out with a bounded errgroup and every
// result lands in the slot of its item, so results keep request order.
package fileops

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// Exported constants.
const (
	DefaultConcurrency = 4
)

// Kind is the batch operation kind.
type Kind int

// Operation kinds.
const (
	KindCopy Kind = iota
	KindMove
	KindDelete
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindCopy:
		return "copy"
	case KindMove:
		return "move"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// NeedsTarget reports whether the kind writes to a target location.
func (k Kind) NeedsTarget() bool {
	return k == KindCopy || k == KindMove
}

// Strategy names how a batch is executed.
type Strategy string

// Strategies.
const (
	StrategyBulk    Strategy = "bulk"
	StrategyPerItem Strategy = "per-item"
)

// Endpoint is a profile together with the backend serving it.
type Endpoint struct {
	Profile vfs.Profile
	Backend vfs.Backend
}

// Request describes one batch. Target and TargetPath are ignored for deletes.
type Request struct {
	Kind       Kind
	Source     Endpoint
	Target     Endpoint
	Items      []vfs.Item
	TargetPath string
}

// IDs returns the item ids in request order.
func (r Request) IDs() []string {
	ids := make([]string, len(r.Items))
	for i, item := range r.Items {
		ids[i] = item.ID
	}

	return ids
}

func (r Request) sameProfile() bool {
	return r.Source.Profile.ID == r.Target.Profile.ID
}

// Executor runs batches.
type Executor struct {
	concurrency int
	callTimeout time.Duration
	progress    func(vfs.ItemResult)
	logger      *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithConcurrency bounds item-by-item fan-out. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		e.concurrency = max(n, 1)
	}
}

// WithCallTimeout bounds every backend call. Bulk calls get the timeout once per item.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.callTimeout = d
	}
}

// WithProgress registers a callback invoked once per finished top-level item.
// It may be called from several goroutines.
func WithProgress(fn func(vfs.ItemResult)) Option {
	return func(e *Executor) {
		e.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Plan returns the strategy Run will use for req.
func (e *Executor) Plan(req Request) Strategy {
	switch req.Kind {
	case KindDelete:
		if _, ok := req.Source.Backend.(vfs.Deleter); ok {
			return StrategyBulk
		}
	case KindCopy:
		if _, ok := req.Source.Backend.(vfs.Copier); ok && req.sameProfile() {
			return StrategyBulk
		}
	case KindMove:
		if _, ok := req.Source.Backend.(vfs.Mover); ok && req.sameProfile() {
			return StrategyBulk
		}
	}

	return StrategyPerItem
}

// Run executes req and returns one result per item in request order.
// Every item is attempted; failures never stop the batch.
func (e *Executor) Run(ctx context.Context, req Request) vfs.BatchResult {
	strategy := e.Plan(req)

	e.logger.Debug("running batch",
		zap.Stringer("kind", req.Kind),
		zap.String("strategy", string(strategy)),
		zap.String("source", req.Source.Profile.ID),
		zap.String("target", req.Target.Profile.ID),
		zap.Int("items", len(req.Items)))

	if strategy == StrategyBulk {
		return e.runBulk(ctx, req)
	}

	return e.runPerItem(ctx, req)
}

func (e *Executor) runBulk(ctx context.Context, req Request) vfs.BatchResult {
	ids := req.IDs()

	ctx, cancel := e.bound(ctx, len(ids))
	defer cancel()

	var result vfs.BatchResult

	switch req.Kind {
	case KindDelete:
		result = req.Source.Backend.(vfs.Deleter).DeleteItems(ctx, req.Source.Profile, ids) //nolint:forcetypeassert,lll // checked by Plan
	case KindCopy:
		result = req.Source.Backend.(vfs.Copier).CopyItems(ctx, req.Source.Profile, ids, req.TargetPath) //nolint:forcetypeassert,lll // checked by Plan
	case KindMove:
		result = req.Source.Backend.(vfs.Mover).MoveItems(ctx, req.Source.Profile, ids, req.TargetPath) //nolint:forcetypeassert,lll // checked by Plan
	}

	result = align(ids, result, req.Kind.String())

	for _, r := range result.Results {
		e.report(r)
	}

	return result
}

func (e *Executor) runPerItem(ctx context.Context, req Request) vfs.BatchResult {
	result := vfs.NewBatchResult(req.IDs())

	var group errgroup.Group

	group.SetLimit(e.concurrency)

	for i, item := range req.Items {
		group.Go(func() error {
			result.Results[i].Err = e.runItem(ctx, req, item)
			e.report(result.Results[i])

			return nil
		})
	}

	_ = group.Wait()

	return result
}

func (e *Executor) runItem(ctx context.Context, req Request, item vfs.Item) error {
	op := req.Kind.String()

	if item.IsParent() {
		return errors.Newf(errors.KindValidation, op, item.ID, "the parent entry cannot be operated on")
	}

	switch req.Kind {
	case KindDelete:
		return e.call(ctx, op, item.ID, func(ctx context.Context) error {
			return req.Source.Backend.Delete(ctx, req.Source.Profile, item.ID)
		})
	case KindCopy:
		return e.copyItem(ctx, req, item, req.TargetPath)
	case KindMove:
		if err := e.copyItem(ctx, req, item, req.TargetPath); err != nil {
			return err
		}

		err := e.call(ctx, op, item.ID, func(ctx context.Context) error {
			return req.Source.Backend.Delete(ctx, req.Source.Profile, item.ID)
		})
		if err != nil {
			// The copy stays in place; the item now exists on both sides.
			return errors.New(errors.KindOf(err), op, item.ID, fmt.Errorf("copied to %s:%s but source not deleted: %w",
				req.Target.Profile.ID, vfs.Join(req.TargetPath, item.Name), err))
		}

		return nil
	default:
		return errors.Newf(errors.KindValidation, op, item.ID, "unsupported operation")
	}
}

// copyItem copies item into targetDir on the target endpoint.
//
//nolint:cyclop // leaf and container branches share validation
func (e *Executor) copyItem(ctx context.Context, req Request, item vfs.Item, targetDir string) error {
	op := req.Kind.String()
	dest := vfs.Join(targetDir, item.Name)

	if req.sameProfile() {
		switch {
		case dest == vfs.CleanPath(item.ID):
			return errors.Newf(errors.KindConflict, op, item.ID, "source and destination are the same")
		case item.Type.IsContainer() && vfs.IsWithin(targetDir, item.ID):
			return errors.Newf(errors.KindValidation, op, item.ID, "cannot place a container inside itself")
		}
	}

	if !item.Type.IsContainer() {
		var data []byte

		err := e.call(ctx, op, item.ID, func(ctx context.Context) error {
			var err error

			data, err = req.Source.Backend.Read(ctx, req.Source.Profile, item.ID)

			return err
		})
		if err != nil {
			return err
		}

		return e.call(ctx, op, dest, func(ctx context.Context) error {
			return req.Target.Backend.Write(ctx, req.Target.Profile, dest, data)
		})
	}

	maker, ok := req.Target.Backend.(vfs.DirMaker)
	if !ok {
		return errors.Newf(errors.KindUnreadable, op, item.ID,
			"backend %s cannot create containers", req.Target.Backend.Metadata().ID)
	}

	if err := e.call(ctx, op, dest, func(ctx context.Context) error {
		return maker.MakeDir(ctx, req.Target.Profile, dest)
	}); err != nil {
		return err
	}

	var children []vfs.Item

	if err := e.call(ctx, op, item.ID, func(ctx context.Context) error {
		var err error

		children, err = req.Source.Backend.List(ctx, req.Source.Profile, item.ID)

		return err
	}); err != nil {
		return err
	}

	var firstErr error

	for _, child := range children {
		if child.IsParent() {
			continue
		}

		if err := e.copyItem(ctx, req, child, dest); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// call runs fn under the per-call timeout and makes sure the error is classified.
func (e *Executor) call(ctx context.Context, op, p string, fn func(context.Context) error) error {
	ctx, cancel := e.bound(ctx, 1)
	defer cancel()

	return errors.Classify(fn(ctx), op, p)
}

func (e *Executor) bound(ctx context.Context, calls int) (context.Context, context.CancelFunc) {
	if e.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, e.callTimeout*time.Duration(max(calls, 1)))
}

func (e *Executor) report(result vfs.ItemResult) {
	if e.progress != nil {
		e.progress(result)
	}
}

// align makes a bulk result report exactly ids, in order.
func align(ids []string, result vfs.BatchResult, op string) vfs.BatchResult {
	if len(result.Results) == len(ids) {
		aligned := true

		for i, r := range result.Results {
			if r.ItemID != ids[i] {
				aligned = false

				break
			}
		}

		if aligned {
			return result
		}
	}

	byID := make(map[string]error, len(result.Results))
	reported := make(map[string]bool, len(result.Results))

	for _, r := range result.Results {
		byID[r.ItemID] = r.Err
		reported[r.ItemID] = true
	}

	out := vfs.NewBatchResult(ids)

	for i, id := range ids {
		if !reported[id] {
			out.Results[i].Err = errors.Newf(errors.KindUnknown, op, id, "backend did not report this item")

			continue
		}

		out.Results[i].Err = byID[id]
	}

	return out
}
