// Package sftp provides a storage backend over SFTP.
// Profiles carry an sftp:// URL; one connection is opened per profile on first use and
// kept until Close.
package sftp

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/pkg/sftp"

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// Exported constants.
const (
	ID     = "sftp"
	URLKey = "url"
)

// DialFunc opens a connection to a location.
type DialFunc func(loc Location) (*Connection, error)

// Backend is the SFTP backend.
type Backend struct {
	mu    sync.Mutex
	conns map[string]*Connection
	dial  DialFunc
}

// Option configures a Backend.
type Option func(*Backend)

// WithDialer replaces the SSH dialer.
func WithDialer(dial DialFunc) Option {
	return func(b *Backend) {
		b.dial = dial
	}
}

// New creates an SFTP backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		conns: make(map[string]*Connection),
		dial:  Dial,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Metadata implements vfs.Backend.
func (b *Backend) Metadata() vfs.Metadata {
	return vfs.Metadata{
		ID:           ID,
		DisplayName:  "SFTP",
		Description:  "Remote file system over SSH",
		ConfigFields: []string{URLKey},
	}
}

// Close closes every cached connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error

	for id, conn := range b.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(b.conns, id)
	}

	return firstErr
}

// List implements vfs.Backend.
func (b *Backend) List(ctx context.Context, profile vfs.Profile, dir string) ([]vfs.Item, error) {
	dir = vfs.CleanPath(dir)

	client, remote, err := b.session(ctx, profile, "list", dir)
	if err != nil {
		return nil, err
	}

	infos, err := client.ReadDir(remote)
	if err != nil {
		return nil, classify(err, "list", dir)
	}

	items := make([]vfs.Item, 0, len(infos))

	for _, info := range infos {
		itemType := vfs.TypeFile
		size := info.Size()

		if info.IsDir() {
			itemType = vfs.TypeDirectory
			size = 0
		}

		items = append(items, vfs.NewItem(vfs.Join(dir, info.Name()), itemType, size, info.ModTime()))
	}

	vfs.SortItems(items)

	return vfs.WithParent(dir, items), nil
}

// Read implements vfs.Backend.
func (b *Backend) Read(ctx context.Context, profile vfs.Profile, itemID string) ([]byte, error) {
	itemID = vfs.CleanPath(itemID)

	client, remote, err := b.session(ctx, profile, "read", itemID)
	if err != nil {
		return nil, err
	}

	info, err := client.Stat(remote)
	if err != nil {
		return nil, classify(err, "read", itemID)
	}

	if info.IsDir() {
		return nil, errors.New(errors.KindUnreadable, "read", itemID, nil)
	}

	file, err := client.Open(remote)
	if err != nil {
		return nil, classify(err, "read", itemID)
	}

	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, classify(err, "read", itemID)
	}

	return data, nil
}

// Write implements vfs.Backend.
func (b *Backend) Write(ctx context.Context, profile vfs.Profile, itemID string, content []byte) error {
	itemID = vfs.CleanPath(itemID)

	if vfs.IsRoot(itemID) {
		return errors.Newf(errors.KindValidation, "write", itemID, "cannot write the root")
	}

	client, remote, err := b.session(ctx, profile, "write", itemID)
	if err != nil {
		return err
	}

	if info, err := client.Stat(remote); err == nil && info.IsDir() {
		return errors.Newf(errors.KindConflict, "write", itemID, "a directory with that name exists")
	}

	file, err := client.Create(remote)
	if err != nil {
		return classify(err, "write", itemID)
	}

	if _, err := file.Write(content); err != nil {
		_ = file.Close()

		return classify(err, "write", itemID)
	}

	if err := file.Close(); err != nil {
		return classify(err, "write", itemID)
	}

	return nil
}

// Delete implements vfs.Backend. Directories are removed depth-first.
func (b *Backend) Delete(ctx context.Context, profile vfs.Profile, itemID string) error {
	itemID = vfs.CleanPath(itemID)

	if vfs.IsRoot(itemID) {
		return errors.Newf(errors.KindValidation, "delete", itemID, "cannot delete the root")
	}

	client, remote, err := b.session(ctx, profile, "delete", itemID)
	if err != nil {
		return err
	}

	if err := removeAll(ctx, client, remote); err != nil {
		return classify(err, "delete", itemID)
	}

	return nil
}

// MakeDir implements vfs.DirMaker.
func (b *Backend) MakeDir(ctx context.Context, profile vfs.Profile, dir string) error {
	dir = vfs.CleanPath(dir)

	client, remote, err := b.session(ctx, profile, "mkdir", dir)
	if err != nil {
		return err
	}

	err = client.Mkdir(remote)
	if err == nil {
		return nil
	}

	if info, statErr := client.Stat(remote); statErr == nil && info.IsDir() {
		return nil
	}

	return classify(err, "mkdir", dir)
}

// MoveItems implements vfs.Mover with server-side renames.
func (b *Backend) MoveItems(
	ctx context.Context, profile vfs.Profile, itemIDs []string, targetPath string,
) vfs.BatchResult {
	result := vfs.NewBatchResult(itemIDs)
	targetPath = vfs.CleanPath(targetPath)

	for i, id := range itemIDs {
		result.Results[i].Err = b.move(ctx, profile, vfs.CleanPath(id), targetPath)
	}

	return result
}

func (b *Backend) move(ctx context.Context, profile vfs.Profile, id, targetPath string) error {
	dest := vfs.Join(targetPath, vfs.Base(id))

	switch {
	case vfs.IsRoot(id):
		return errors.Newf(errors.KindValidation, "move", id, "cannot move the root")
	case dest == id:
		return errors.Newf(errors.KindConflict, "move", id, "source and destination are the same")
	case vfs.IsWithin(targetPath, id):
		return errors.Newf(errors.KindValidation, "move", id, "cannot place a directory inside itself")
	}

	client, remote, err := b.session(ctx, profile, "move", id)
	if err != nil {
		return err
	}

	location, _ := b.location(profile)

	if _, err := client.Stat(remote); err != nil {
		return classify(err, "move", id)
	}

	if _, err := client.Stat(remotePath(location, dest)); err == nil {
		return errors.Newf(errors.KindConflict, "move", dest, "destination already exists")
	}

	if err := client.Rename(remote, remotePath(location, dest)); err != nil {
		return classify(err, "move", id)
	}

	return nil
}

// session returns the profile's client and the remote path for p.
func (b *Backend) session(ctx context.Context, profile vfs.Profile, op, p string) (*sftp.Client, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", errors.Classify(err, op, p)
	}

	location, err := b.location(profile)
	if err != nil {
		return nil, "", errors.New(errors.KindValidation, op, p, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	conn, ok := b.conns[profile.ID]
	if !ok {
		conn, err = b.dial(location)
		if err != nil {
			return nil, "", errors.New(errors.KindUnavailable, "connect", location.String(), err)
		}

		b.conns[profile.ID] = conn
	}

	return conn.Client(), remotePath(location, p), nil
}

func (b *Backend) location(profile vfs.Profile) (Location, error) {
	return ParseURL(profile.Get(URLKey, ""))
}

// remotePath maps a profile path below the location's base directory.
func remotePath(loc Location, p string) string {
	rel := strings.TrimPrefix(vfs.CleanPath(p), "/")

	return path.Join(loc.Path, rel)
}

func removeAll(ctx context.Context, client *sftp.Client, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := client.Lstat(remote)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return client.Remove(remote)
	}

	children, err := client.ReadDir(remote)
	if err != nil {
		return err
	}

	for _, child := range children {
		if err := removeAll(ctx, client, path.Join(remote, child.Name())); err != nil {
			return err
		}
	}

	return client.RemoveDirectory(remote)
}

// classify maps SFTP status codes before falling back to the generic classifier.
func classify(err error, op, p string) error {
	var status *sftp.StatusError
	if stderrors.As(err, &status) {
		switch status.FxCode() {
		case sftp.ErrSSHFxNoSuchFile:
			return errors.New(errors.KindNotFound, op, p, err)
		case sftp.ErrSSHFxPermissionDenied:
			return errors.New(errors.KindPermissionDenied, op, p, err)
		case sftp.ErrSSHFxConnectionLost, sftp.ErrSSHFxNoConnection:
			return errors.New(errors.KindUnavailable, op, p, err)
		case sftp.ErrSSHFxOpUnsupported:
			return errors.New(errors.KindReadOnly, op, p, err)
		}
	}

	if stderrors.Is(err, os.ErrClosed) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.New(errors.KindUnavailable, op, p, err)
	}

	return errors.Classify(err, op, p)
}
