// Package panel implements one directory view of the dual-pane browser.
//
// A Panel owns its location (profile and path), the current listing, the focused row
// and the selection. Navigation calls the backend without holding the panel lock; each
// call takes a generation number and only the latest navigation may replace the listing,
// so a slow listing that finishes after a newer one is discarded.
package panel

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/joe/twinpane/internal/metrics"
	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// Exported constants.
const (
	DefaultTimeout = 30 * time.Second
)

// Exported variables.
var (
	ErrNotContainer = errors.Newf(errors.KindValidation, "enter", "", "focused item is not a container")
)

// Side identifies a pane.
type Side int

// Sides.
const (
	SideLeft Side = iota
	SideRight
)

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideLeft {
		return SideRight
	}

	return SideLeft
}

// String returns the side name.
func (s Side) String() string {
	if s == SideRight {
		return "right"
	}

	return "left"
}

// State is the panel's refresh state.
type State int

// States.
const (
	StateIdle State = iota
	StateRefreshing
)

// String returns the state name.
func (s State) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}

	return "idle"
}

// Modifiers describes the keys held during a selection click.
type Modifiers struct {
	Ctrl  bool
	Shift bool
}

// Snapshot is a copy of the panel state.
type Snapshot struct {
	Side      Side
	ProfileID string
	Path      string
	Items     []vfs.Item
	Focused   int
	Selection []string
	State     State
}

// FocusedItem returns the focused item.
func (s Snapshot) FocusedItem() (vfs.Item, bool) {
	if s.Focused < 0 || s.Focused >= len(s.Items) {
		return vfs.Item{}, false
	}

	return s.Items[s.Focused], true
}

// IsSelected reports whether id is selected.
func (s Snapshot) IsSelected(id string) bool {
	for _, selected := range s.Selection {
		if selected == id {
			return true
		}
	}

	return false
}

// Panel is one pane. Safe for concurrent use.
type Panel struct {
	side     Side
	resolver vfs.Resolver
	timeout  time.Duration
	logger   *zap.Logger
	recorder metrics.Recorder

	mu         sync.Mutex
	profileID  string
	path       string
	items      []vfs.Item
	focused    int
	selection  map[string]bool
	state      State
	generation uint64
}

// Option configures a Panel.
type Option func(*Panel)

// WithTimeout bounds every backend call made by the panel.
func WithTimeout(d time.Duration) Option {
	return func(p *Panel) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Panel) {
		p.logger = logger
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(p *Panel) {
		p.recorder = recorder
	}
}

// WithLocation sets the initial profile and path without listing.
func WithLocation(profileID, dir string) Option {
	return func(p *Panel) {
		p.profileID = profileID
		p.path = vfs.CleanPath(dir)
	}
}

// New creates an empty panel.
func New(side Side, resolver vfs.Resolver, opts ...Option) *Panel {
	p := &Panel{
		side:      side,
		resolver:  resolver,
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
		recorder:  metrics.Nop(),
		path:      vfs.Root,
		focused:   -1,
		selection: map[string]bool{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Side returns which pane this is.
func (p *Panel) Side() Side {
	return p.side
}

// Navigate lists dir on profileID (empty means the current profile) and, when no newer
// navigation started meanwhile, replaces the listing: focus goes to the first row and the
// selection is cleared. A superseded navigation returns (false, nil). On failure the
// previous state is kept.
func (p *Panel) Navigate(ctx context.Context, dir, profileID string) (bool, error) {
	dir = vfs.CleanPath(dir)

	p.mu.Lock()
	if profileID == "" {
		profileID = p.profileID
	}

	p.generation++
	generation := p.generation
	p.state = StateRefreshing
	p.mu.Unlock()

	items, err := p.list(ctx, profileID, dir)

	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != p.generation {
		p.logger.Debug("discarding stale listing",
			zap.Stringer("side", p.side),
			zap.String("profile", profileID),
			zap.String("path", dir))

		return false, nil
	}

	p.state = StateIdle

	if err != nil {
		return false, err
	}

	p.profileID = profileID
	p.path = dir
	p.items = items
	p.selection = map[string]bool{}
	p.focused = clampFocus(0, len(items))

	return true, nil
}

// Refresh re-lists the current location.
func (p *Panel) Refresh(ctx context.Context) (bool, error) {
	p.mu.Lock()
	dir, profileID := p.path, p.profileID
	p.mu.Unlock()

	return p.Navigate(ctx, dir, profileID)
}

// MakeDir creates a container named name in the current directory, re-lists it and
// focuses the new entry. Backends that cannot create containers return a ReadOnly error.
func (p *Panel) MakeDir(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == vfs.ParentName || strings.Contains(name, "/") {
		return false, errors.Newf(errors.KindValidation, "mkdir", name, "invalid container name %q", name)
	}

	p.mu.Lock()
	profileID, dir := p.profileID, p.path
	p.mu.Unlock()

	profile, backend, err := p.resolver.Resolve(profileID)
	if err != nil {
		return false, err
	}

	maker, ok := backend.(vfs.DirMaker)
	if !ok {
		return false, errors.Newf(errors.KindReadOnly, "mkdir", dir,
			"backend %s cannot create containers", profile.BackendID)
	}

	target := vfs.Join(dir, name)

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err = errors.Classify(maker.MakeDir(callCtx, profile, target), "mkdir", target)
	cancel()

	p.recorder.BackendCall(profile.BackendID, "mkdir", err)

	if err != nil {
		return false, err
	}

	applied, err := p.Navigate(ctx, dir, profileID)
	if !applied || err != nil {
		return applied, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, item := range p.items {
		if item.ID == target {
			p.focused = i

			break
		}
	}

	return true, nil
}

// Enter descends into the focused container, or ascends on the parent entry.
// A focused leaf returns ErrNotContainer.
func (p *Panel) Enter(ctx context.Context) (bool, error) {
	p.mu.Lock()

	if p.focused < 0 {
		p.mu.Unlock()

		return false, ErrNotContainer
	}

	item := p.items[p.focused]
	p.mu.Unlock()

	if !item.Type.IsContainer() {
		return false, ErrNotContainer
	}

	return p.Navigate(ctx, item.ID, "")
}

// Up navigates to the parent of the current path. At the root it is a no-op.
func (p *Panel) Up(ctx context.Context) (bool, error) {
	p.mu.Lock()
	dir := p.path
	p.mu.Unlock()

	if vfs.IsRoot(dir) {
		return false, nil
	}

	return p.Navigate(ctx, vfs.Parent(dir), "")
}

// MoveFocus moves the focus by delta rows, clamped to the listing.
func (p *Panel) MoveFocus(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.focused = clampFocus(p.focused+delta, len(p.items))
}

// SetFocus focuses index, clamped to the listing.
func (p *Panel) SetFocus(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.focused = clampFocus(index, len(p.items))
}

// ToggleSelection applies a click on index. Without modifiers the selection is cleared;
// ctrl toggles the clicked item; shift adds the range between the focus and index.
// The parent entry is never selected. Focus moves to index.
func (p *Panel) ToggleSelection(index int, mods Modifiers) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.items) {
		return errors.Newf(errors.KindValidation, "select", p.path,
			"index %d out of range [0,%d)", index, len(p.items))
	}

	switch {
	case mods.Shift:
		anchor := max(p.focused, 0)
		for i := min(anchor, index); i <= max(anchor, index); i++ {
			if !p.items[i].IsParent() {
				p.selection[p.items[i].ID] = true
			}
		}
	case mods.Ctrl:
		item := p.items[index]
		if !item.IsParent() {
			if p.selection[item.ID] {
				delete(p.selection, item.ID)
			} else {
				p.selection[item.ID] = true
			}
		}
	default:
		p.selection = map[string]bool{}
	}

	p.focused = index

	return nil
}

// SelectMatching adds every item whose name matches the glob pattern, ignoring case,
// and returns how many items matched.
func (p *Panel) SelectMatching(pattern string) (int, error) {
	pattern = strings.ToLower(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return 0, errors.Newf(errors.KindValidation, "select", pattern, "invalid pattern %q", pattern)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	matched := 0

	for _, item := range p.items {
		if item.IsParent() {
			continue
		}

		ok, err := doublestar.Match(pattern, strings.ToLower(item.Name))
		if err != nil {
			return matched, errors.Classify(err, "select", pattern)
		}

		if ok {
			p.selection[item.ID] = true
			matched++
		}
	}

	return matched, nil
}

// ClearSelection empties the selection.
func (p *Panel) ClearSelection() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.selection = map[string]bool{}
}

// ResolveOperationItemSet returns the items an operation should act on: the selection in
// listing order, else the focused item unless it is the parent entry, else nothing.
func (p *Panel) ResolveOperationItemSet() []vfs.Item {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.selection) > 0 {
		items := make([]vfs.Item, 0, len(p.selection))

		for _, item := range p.items {
			if p.selection[item.ID] {
				items = append(items, item)
			}
		}

		return items
	}

	if p.focused >= 0 && !p.items[p.focused].IsParent() {
		return []vfs.Item{p.items[p.focused]}
	}

	return nil
}

// Snapshot returns a deep copy of the panel state.
func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := Snapshot{
		Side:      p.side,
		ProfileID: p.profileID,
		Path:      p.path,
		Items:     append([]vfs.Item(nil), p.items...),
		Focused:   p.focused,
		State:     p.state,
	}

	for _, item := range p.items {
		if p.selection[item.ID] {
			snapshot.Selection = append(snapshot.Selection, item.ID)
		}
	}

	return snapshot
}

// Location returns the current profile and path.
func (p *Panel) Location() (profileID, dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.profileID, p.path
}

func (p *Panel) list(ctx context.Context, profileID, dir string) ([]vfs.Item, error) {
	profile, backend, err := p.resolver.Resolve(profileID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	items, err := backend.List(ctx, profile, dir)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	err = errors.Classify(err, "list", dir)
	p.recorder.BackendCall(profile.BackendID, "list", err)

	if err != nil {
		return nil, err
	}

	return items, nil
}

func clampFocus(index, n int) int {
	if n == 0 {
		return -1
	}

	return min(max(index, 0), n-1)
}
