// Package memory provides an in-memory storage backend.
// Each profile gets its own tree keyed by normalized path. Entries carry permission
// bits so tests can inject PermissionDenied failures, and FailOn injects any kind.
package memory

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// Exported constants.
const (
	ID = "memory"

	// FixtureKey is the optional profile config key selecting seed content.
	FixtureKey = "fixture"
	// FixtureDemo seeds a small home directory.
	FixtureDemo = "demo"
	// FixtureBuckets seeds bucket containers at the root.
	FixtureBuckets = "buckets"
)

// Backend is the in-memory backend.
type Backend struct {
	mu       sync.RWMutex
	trees    map[string]map[string]*entry
	failures map[string]errors.Kind
	now      func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock sets the clock used for modification times.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// New creates an empty in-memory backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		trees:    make(map[string]map[string]*entry),
		failures: make(map[string]errors.Kind),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// entry is one node of a profile tree.
type entry struct {
	data     []byte
	modTime  time.Time
	itemType vfs.ItemType
	perm     os.FileMode
}

func (e *entry) clone() *entry {
	return &entry{
		data:     append([]byte(nil), e.data...),
		modTime:  e.modTime,
		itemType: e.itemType,
		perm:     e.perm,
	}
}

func (e *entry) readable() bool { return e.perm&0o400 != 0 }
func (e *entry) writable() bool { return e.perm&0o200 != 0 }

// Metadata implements vfs.Backend.
func (b *Backend) Metadata() vfs.Metadata {
	return vfs.Metadata{
		ID:          ID,
		DisplayName: "Memory",
		Description: "In-memory file tree",
	}
}

// List implements vfs.Backend. Containers sort before leaves, then by name.
func (b *Backend) List(ctx context.Context, profile vfs.Profile, dir string) ([]vfs.Item, error) {
	dir = vfs.CleanPath(dir)

	if err := b.check(ctx, profile, "list", dir); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	tree := b.trees[profile.ID]

	if !vfs.IsRoot(dir) {
		node, exists := tree[dir]
		if !exists {
			return nil, errors.New(errors.KindNotFound, "list", dir, nil)
		}

		if !node.itemType.IsContainer() {
			return nil, errors.Newf(errors.KindNotFound, "list", dir, "not a container")
		}

		if !node.readable() {
			return nil, errors.New(errors.KindPermissionDenied, "list", dir, nil)
		}
	}

	var items []vfs.Item

	for p, node := range tree {
		if p == dir || vfs.Parent(p) != dir {
			continue
		}

		items = append(items, vfs.NewItem(p, node.itemType, int64(len(node.data)), node.modTime))
	}

	vfs.SortItems(items)

	return vfs.WithParent(dir, items), nil
}

// Read implements vfs.Backend.
func (b *Backend) Read(ctx context.Context, profile vfs.Profile, itemID string) ([]byte, error) {
	itemID = vfs.CleanPath(itemID)

	if err := b.check(ctx, profile, "read", itemID); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	node, exists := b.trees[profile.ID][itemID]

	switch {
	case vfs.IsRoot(itemID):
		return nil, errors.New(errors.KindUnreadable, "read", itemID, nil)
	case !exists:
		return nil, errors.New(errors.KindNotFound, "read", itemID, nil)
	case node.itemType.IsContainer():
		return nil, errors.New(errors.KindUnreadable, "read", itemID, nil)
	case !node.readable():
		return nil, errors.New(errors.KindPermissionDenied, "read", itemID, nil)
	}

	return append([]byte(nil), node.data...), nil
}

// Write implements vfs.Backend. The parent container must exist.
func (b *Backend) Write(ctx context.Context, profile vfs.Profile, itemID string, content []byte) error {
	itemID = vfs.CleanPath(itemID)

	if err := b.check(ctx, profile, "write", itemID); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.writeLocked(b.tree(profile), itemID, content, vfs.TypeFile)
}

// Delete implements vfs.Backend. Containers are removed with their subtree.
func (b *Backend) Delete(ctx context.Context, profile vfs.Profile, itemID string) error {
	itemID = vfs.CleanPath(itemID)

	if err := b.check(ctx, profile, "delete", itemID); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.deleteLocked(b.tree(profile), "delete", itemID)
}

// MakeDir implements vfs.DirMaker. Existing directories are left alone.
func (b *Backend) MakeDir(ctx context.Context, profile vfs.Profile, dir string) error {
	dir = vfs.CleanPath(dir)

	if err := b.check(ctx, profile, "mkdir", dir); err != nil {
		return err
	}

	if vfs.IsRoot(dir) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tree := b.tree(profile)

	if node, exists := tree[dir]; exists {
		if node.itemType.IsContainer() {
			return nil
		}

		return errors.Newf(errors.KindConflict, "mkdir", dir, "a file with that name exists")
	}

	return b.writeLocked(tree, dir, nil, vfs.TypeDirectory)
}

// CopyItems implements vfs.Copier.
func (b *Backend) CopyItems(
	ctx context.Context, profile vfs.Profile, itemIDs []string, targetPath string,
) vfs.BatchResult {
	return b.transfer(ctx, profile, itemIDs, targetPath, false)
}

// MoveItems implements vfs.Mover.
func (b *Backend) MoveItems(
	ctx context.Context, profile vfs.Profile, itemIDs []string, targetPath string,
) vfs.BatchResult {
	return b.transfer(ctx, profile, itemIDs, targetPath, true)
}

// DeleteItems implements vfs.Deleter.
func (b *Backend) DeleteItems(ctx context.Context, profile vfs.Profile, itemIDs []string) vfs.BatchResult {
	result := vfs.NewBatchResult(itemIDs)

	for i, id := range itemIDs {
		result.Results[i].Err = b.Delete(ctx, profile, id)
	}

	return result
}

func (b *Backend) transfer(
	ctx context.Context, profile vfs.Profile, itemIDs []string, targetPath string, move bool,
) vfs.BatchResult {
	op := "copy"
	if move {
		op = "move"
	}

	result := vfs.NewBatchResult(itemIDs)
	targetPath = vfs.CleanPath(targetPath)

	for i, id := range itemIDs {
		id = vfs.CleanPath(id)

		if err := b.check(ctx, profile, op, id); err != nil {
			result.Results[i].Err = err

			continue
		}

		b.mu.Lock()
		result.Results[i].Err = b.transferLocked(b.tree(profile), op, id, targetPath, move)
		b.mu.Unlock()
	}

	return result
}

func (b *Backend) transferLocked(tree map[string]*entry, op, id, targetPath string, move bool) error {
	node, exists := tree[id]
	if !exists || vfs.IsRoot(id) {
		return errors.New(errors.KindNotFound, op, id, nil)
	}

	if !vfs.IsRoot(targetPath) {
		target, ok := tree[targetPath]
		if !ok || !target.itemType.IsContainer() {
			return errors.Newf(errors.KindNotFound, op, targetPath, "target container does not exist")
		}
	}

	dest := vfs.Join(targetPath, vfs.Base(id))

	if dest == id {
		return errors.Newf(errors.KindConflict, op, id, "source and destination are the same")
	}

	if vfs.IsWithin(targetPath, id) {
		return errors.Newf(errors.KindValidation, op, id, "cannot place a container inside itself")
	}

	if !node.readable() {
		return errors.New(errors.KindPermissionDenied, op, id, nil)
	}

	if move && !node.writable() {
		return errors.New(errors.KindPermissionDenied, op, id, nil)
	}

	if existing, ok := tree[dest]; ok {
		if existing.itemType.IsContainer() != node.itemType.IsContainer() {
			return errors.Newf(errors.KindConflict, op, dest, "destination exists with a different type")
		}

		if !existing.writable() {
			return errors.New(errors.KindPermissionDenied, op, dest, nil)
		}
	}

	for p, n := range subtree(tree, id) {
		moved := n.clone()
		moved.modTime = b.now()

		if move {
			moved.modTime = n.modTime
		}

		tree[dest+strings.TrimPrefix(p, id)] = moved
	}

	if move {
		for p := range subtree(tree, id) {
			delete(tree, p)
		}
	}

	return nil
}

func (b *Backend) writeLocked(tree map[string]*entry, itemID string, content []byte, itemType vfs.ItemType) error {
	op := "write"
	if itemType.IsContainer() {
		op = "mkdir"
	}

	if vfs.IsRoot(itemID) {
		return errors.Newf(errors.KindValidation, op, itemID, "cannot write the root")
	}

	parent := vfs.Parent(itemID)

	if !vfs.IsRoot(parent) {
		dir, exists := tree[parent]
		if !exists || !dir.itemType.IsContainer() {
			return errors.Newf(errors.KindNotFound, op, itemID, "parent %s does not exist", parent)
		}

		if !dir.writable() {
			return errors.New(errors.KindPermissionDenied, op, parent, nil)
		}
	}

	if existing, exists := tree[itemID]; exists {
		if existing.itemType.IsContainer() {
			return errors.Newf(errors.KindConflict, op, itemID, "a container with that name exists")
		}

		if !existing.writable() {
			return errors.New(errors.KindPermissionDenied, op, itemID, nil)
		}

		existing.data = append([]byte(nil), content...)
		existing.modTime = b.now()

		return nil
	}

	perm := os.FileMode(0o644)
	if itemType.IsContainer() {
		perm = 0o755
	}

	tree[itemID] = &entry{
		data:     append([]byte(nil), content...),
		modTime:  b.now(),
		itemType: itemType,
		perm:     perm,
	}

	return nil
}

func (b *Backend) deleteLocked(tree map[string]*entry, op, itemID string) error {
	if vfs.IsRoot(itemID) {
		return errors.Newf(errors.KindValidation, op, itemID, "cannot delete the root")
	}

	node, exists := tree[itemID]
	if !exists {
		return errors.New(errors.KindNotFound, op, itemID, nil)
	}

	if !node.writable() {
		return errors.New(errors.KindPermissionDenied, op, itemID, nil)
	}

	for p := range subtree(tree, itemID) {
		delete(tree, p)
	}

	return nil
}

// check fails fast on a cancelled context or an injected failure, and seeds the
// profile's tree on first use.
func (b *Backend) check(ctx context.Context, profile vfs.Profile, op, p string) error {
	if err := ctx.Err(); err != nil {
		return errors.Classify(err, op, p)
	}

	b.mu.Lock()
	b.tree(profile)
	kind, failing := b.failures[failureKey(profile.ID, p)]
	b.mu.Unlock()

	if failing {
		return errors.Newf(kind, op, p, "injected failure")
	}

	return nil
}

// tree returns the profile's tree, creating and seeding it on first use. Caller holds mu.
func (b *Backend) tree(profile vfs.Profile) map[string]*entry {
	tree, exists := b.trees[profile.ID]
	if !exists {
		tree = make(map[string]*entry)
		b.trees[profile.ID] = tree
		seed(tree, profile.Config[FixtureKey])
	}

	return tree
}

// subtree returns the entry at root and every entry below it.
func subtree(tree map[string]*entry, root string) map[string]*entry {
	nodes := make(map[string]*entry)

	for p, node := range tree {
		if vfs.IsWithin(p, root) {
			nodes[p] = node
		}
	}

	return nodes
}

func failureKey(profileID, p string) string {
	return profileID + "\x00" + vfs.CleanPath(p)
}
