package memory

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// Helper methods for seeding and inspecting trees.

// AddFile adds a file with the given content, creating parent directories.
func (b *Backend) AddFile(profileID, p string, content []byte, modTime time.Time) {
	b.add(profileID, p, content, modTime, vfs.TypeFile)
}

// AddDir adds a directory, creating parent directories.
func (b *Backend) AddDir(profileID, p string, modTime time.Time) {
	b.add(profileID, p, nil, modTime, vfs.TypeDirectory)
}

// AddContainer adds a container of the given type, creating parent directories.
func (b *Backend) AddContainer(profileID, p string, itemType vfs.ItemType, modTime time.Time) {
	b.add(profileID, p, nil, modTime, itemType)
}

// SetPerm changes the permission bits of an entry. Entries without owner-write reject
// write, delete and move; entries without owner-read reject read and list.
func (b *Backend) SetPerm(profileID, p string, perm os.FileMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p = vfs.CleanPath(p)

	node, exists := b.trees[profileID][p]
	if !exists {
		return errors.New(errors.KindNotFound, "chmod", p, nil)
	}

	node.perm = perm

	return nil
}

// FailOn makes every call touching p in the profile fail with kind.
func (b *Backend) FailOn(profileID, p string, kind errors.Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures[failureKey(profileID, p)] = kind
}

// ClearFailures removes every injected failure.
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = make(map[string]errors.Kind)
}

// GetFile returns a file's content and modification time.
func (b *Backend) GetFile(profileID, p string) ([]byte, time.Time, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p = vfs.CleanPath(p)

	node, exists := b.trees[profileID][p]
	if !exists {
		return nil, time.Time{}, errors.New(errors.KindNotFound, "get", p, nil)
	}

	if node.itemType.IsContainer() {
		return nil, time.Time{}, errors.New(errors.KindUnreadable, "get", p, nil)
	}

	return append([]byte(nil), node.data...), node.modTime, nil
}

// Exists reports whether p exists in the profile's tree.
func (b *Backend) Exists(profileID, p string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.trees[profileID][vfs.CleanPath(p)]

	return exists
}

// Paths returns every path in the profile's tree, sorted.
func (b *Backend) Paths(profileID string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	paths := make([]string, 0, len(b.trees[profileID]))
	for p := range b.trees[profileID] {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

func (b *Backend) add(profileID, p string, content []byte, modTime time.Time, itemType vfs.ItemType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree, exists := b.trees[profileID]
	if !exists {
		tree = make(map[string]*entry)
		b.trees[profileID] = tree
	}

	insert(tree, p, content, modTime, itemType)
}

// insert stores an entry and any missing parent directories.
func insert(tree map[string]*entry, p string, content []byte, modTime time.Time, itemType vfs.ItemType) {
	p = vfs.CleanPath(p)

	for dir := vfs.Parent(p); !vfs.IsRoot(dir); dir = vfs.Parent(dir) {
		if _, exists := tree[dir]; !exists {
			tree[dir] = &entry{modTime: modTime, itemType: vfs.TypeDirectory, perm: 0o755}
		}
	}

	perm := os.FileMode(0o644)
	if itemType.IsContainer() {
		perm = 0o755
	}

	tree[p] = &entry{
		data:     append([]byte(nil), content...),
		modTime:  modTime,
		itemType: itemType,
		perm:     perm,
	}
}

// seed fills a fresh tree with the named fixture. Unknown names seed nothing.
func seed(tree map[string]*entry, fixture string) {
	day := func(d int) time.Time { return time.Date(2023, time.October, d, 9, 0, 0, 0, time.UTC) }

	switch fixture {
	case FixtureDemo:
		insert(tree, "/documents", nil, day(2), vfs.TypeDirectory)
		insert(tree, "/documents/report.md", []byte("# Quarterly report\n"), day(3), vfs.TypeFile)
		insert(tree, "/notes.txt", []byte(strings.Repeat("n", 1024)), day(5), vfs.TypeFile)
		insert(tree, "/config.json", []byte(`{"theme":"dark","panes":2}`), day(7), vfs.TypeFile)
	case FixtureBuckets:
		insert(tree, "/prod-backups", nil, day(1), vfs.TypeBucket)
		insert(tree, "/prod-backups/db.dump", []byte("dump"), day(1), vfs.TypeFile)
		insert(tree, "/user-uploads", nil, day(10), vfs.TypeBucket)
		insert(tree, "/lambda-layers", nil, day(15), vfs.TypeBucket)
	}
}
