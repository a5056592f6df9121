// Package local provides a storage backend over the host filesystem.
// Profile paths are mapped below the profile's "root" directory.
package local

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/kr/fs"

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// Exported constants.
const (
	ID      = "local"
	RootKey = "root"
)

// Backend is the local filesystem backend. It is stateless.
type Backend struct{}

// New creates a local backend.
func New() *Backend {
	return &Backend{}
}

// Metadata implements vfs.Backend.
func (b *Backend) Metadata() vfs.Metadata {
	return vfs.Metadata{
		ID:           ID,
		DisplayName:  "Local FS",
		Description:  "Local file system",
		ConfigFields: []string{RootKey},
	}
}

// List implements vfs.Backend.
func (b *Backend) List(ctx context.Context, profile vfs.Profile, dir string) ([]vfs.Item, error) {
	dir = vfs.CleanPath(dir)

	abs, err := resolve(ctx, profile, "list", dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Classify(err, "list", dir)
	}

	if !info.IsDir() {
		return nil, errors.Newf(errors.KindNotFound, "list", dir, "not a container")
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errors.Classify(err, "list", dir)
	}

	items := make([]vfs.Item, 0, len(entries))

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}

		itemType := vfs.TypeFile
		size := info.Size()

		if info.IsDir() {
			itemType = vfs.TypeDirectory
			size = 0
		}

		items = append(items, vfs.NewItem(vfs.Join(dir, entry.Name()), itemType, size, info.ModTime()))
	}

	vfs.SortItems(items)

	return vfs.WithParent(dir, items), nil
}

// Read implements vfs.Backend.
func (b *Backend) Read(ctx context.Context, profile vfs.Profile, itemID string) ([]byte, error) {
	itemID = vfs.CleanPath(itemID)

	abs, err := resolve(ctx, profile, "read", itemID)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Classify(err, "read", itemID)
	}

	if info.IsDir() {
		return nil, errors.New(errors.KindUnreadable, "read", itemID, nil)
	}

	data, err := os.ReadFile(abs) //nolint:gosec // path is confined below the profile root
	if err != nil {
		return nil, errors.Classify(err, "read", itemID)
	}

	return data, nil
}

// Write implements vfs.Backend.
func (b *Backend) Write(ctx context.Context, profile vfs.Profile, itemID string, content []byte) error {
	itemID = vfs.CleanPath(itemID)

	abs, err := resolve(ctx, profile, "write", itemID)
	if err != nil {
		return err
	}

	if vfs.IsRoot(itemID) {
		return errors.Newf(errors.KindValidation, "write", itemID, "cannot write the root")
	}

	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return errors.Newf(errors.KindConflict, "write", itemID, "a directory with that name exists")
	}

	//nolint:gosec,mnd // regular file permissions
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return errors.Classify(err, "write", itemID)
	}

	return nil
}

// Delete implements vfs.Backend. Directories are removed recursively.
func (b *Backend) Delete(ctx context.Context, profile vfs.Profile, itemID string) error {
	itemID = vfs.CleanPath(itemID)

	abs, err := resolve(ctx, profile, "delete", itemID)
	if err != nil {
		return err
	}

	if vfs.IsRoot(itemID) {
		return errors.Newf(errors.KindValidation, "delete", itemID, "cannot delete the root")
	}

	if _, err := os.Lstat(abs); err != nil {
		return errors.Classify(err, "delete", itemID)
	}

	if err := os.RemoveAll(abs); err != nil {
		return errors.Classify(err, "delete", itemID)
	}

	return nil
}

// MakeDir implements vfs.DirMaker.
func (b *Backend) MakeDir(ctx context.Context, profile vfs.Profile, dir string) error {
	dir = vfs.CleanPath(dir)

	abs, err := resolve(ctx, profile, "mkdir", dir)
	if err != nil {
		return err
	}

	//nolint:mnd // standard directory permissions
	err = os.Mkdir(abs, 0o755)
	if err == nil {
		return nil
	}

	if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
		return nil
	}

	return errors.Classify(err, "mkdir", dir)
}

// CopyItems implements vfs.Copier.
func (b *Backend) CopyItems(
	ctx context.Context, profile vfs.Profile, itemIDs []string, targetPath string,
) vfs.BatchResult {
	result := vfs.NewBatchResult(itemIDs)

	for i, id := range itemIDs {
		result.Results[i].Err = b.copyItem(ctx, profile, vfs.CleanPath(id), vfs.CleanPath(targetPath))
	}

	return result
}

// MoveItems implements vfs.Mover. Moves across devices fall back to copy and remove.
func (b *Backend) MoveItems(
	ctx context.Context, profile vfs.Profile, itemIDs []string, targetPath string,
) vfs.BatchResult {
	result := vfs.NewBatchResult(itemIDs)

	for i, id := range itemIDs {
		result.Results[i].Err = b.moveItem(ctx, profile, vfs.CleanPath(id), vfs.CleanPath(targetPath))
	}

	return result
}

func (b *Backend) copyItem(ctx context.Context, profile vfs.Profile, id, targetPath string) error {
	src, dst, err := transferPaths(ctx, profile, "copy", id, targetPath)
	if err != nil {
		return err
	}

	if err := copyTree(ctx, src, dst); err != nil {
		return errors.Classify(err, "copy", id)
	}

	return nil
}

func (b *Backend) moveItem(ctx context.Context, profile vfs.Profile, id, targetPath string) error {
	src, dst, err := transferPaths(ctx, profile, "move", id, targetPath)
	if err != nil {
		return err
	}

	err = os.Rename(src, dst)
	if err == nil {
		return nil
	}

	if !stderrors.Is(err, syscall.EXDEV) {
		return errors.Classify(err, "move", id)
	}

	if err := copyTree(ctx, src, dst); err != nil {
		return errors.Classify(err, "move", id)
	}

	if err := os.RemoveAll(src); err != nil {
		return errors.Classify(err, "move", id)
	}

	return nil
}

// transferPaths validates a copy or move of id into targetPath and returns the host paths.
func transferPaths(ctx context.Context, profile vfs.Profile, op, id, targetPath string) (string, string, error) {
	dest := vfs.Join(targetPath, vfs.Base(id))

	switch {
	case vfs.IsRoot(id):
		return "", "", errors.Newf(errors.KindValidation, op, id, "cannot transfer the root")
	case dest == id:
		return "", "", errors.Newf(errors.KindConflict, op, id, "source and destination are the same")
	case vfs.IsWithin(targetPath, id):
		return "", "", errors.Newf(errors.KindValidation, op, id, "cannot place a directory inside itself")
	}

	src, err := resolve(ctx, profile, op, id)
	if err != nil {
		return "", "", err
	}

	if _, err := os.Lstat(src); err != nil {
		return "", "", errors.Classify(err, op, id)
	}

	targetDir, err := resolve(ctx, profile, op, targetPath)
	if err != nil {
		return "", "", err
	}

	info, err := os.Stat(targetDir)
	if err != nil {
		return "", "", errors.Classify(err, op, targetPath)
	}

	if !info.IsDir() {
		return "", "", errors.Newf(errors.KindNotFound, op, targetPath, "target is not a directory")
	}

	return src, filepath.Join(targetDir, vfs.Base(id)), nil
}

// copyTree copies src to dst, walking directories with kr/fs.
func copyTree(ctx context.Context, src, dst string) error {
	walker := fs.Walk(src)

	for walker.Step() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := walker.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, walker.Path())
		if err != nil {
			return fmt.Errorf("failed to compute relative path: %w", err)
		}

		target := filepath.Join(dst, rel)
		info := walker.Stat()

		if info.IsDir() {
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}

			continue
		}

		if err := copyFile(walker.Path(), target, info.Mode().Perm()); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src) //nolint:gosec // path is confined below the profile root
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}

	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm) //nolint:gosec // see above
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()

		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	return nil
}

// resolve maps a profile path to a host path below the profile root.
func resolve(ctx context.Context, profile vfs.Profile, op, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Classify(err, op, p)
	}

	root := profile.Get(RootKey, "")
	if root == "" {
		return "", errors.Newf(errors.KindValidation, op, p, "profile %s has no root configured", profile.ID)
	}

	return filepath.Join(root, filepath.FromSlash(vfs.CleanPath(p))), nil
}
