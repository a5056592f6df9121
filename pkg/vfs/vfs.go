// Package vfs defines the storage plugin contract shared by every backend: the item
// model, path helpers, the optional bulk capabilities and the registries that bind
// source profiles to backends.
//
// The core never depends on a concrete backend. Backends live in sub-packages
// (memory, local, sftp, objectstore, warehouse) and are registered into a Registry
// once at startup.
package vfs

import (
	"context"
)

// Backend is the contract every storage backend implements.
// All methods receive the Source Profile they act on, so one backend instance can serve
// many profiles.
type Backend interface {
	// Metadata describes the backend and the profile config keys it expects.
	Metadata() Metadata

	// List returns the immediate children at path, never recursing.
	// Non-root listings start with the ".." parent item.
	List(ctx context.Context, profile Profile, path string) ([]Item, error)

	// Read returns an item's content. Containers fail with errors.KindUnreadable.
	Read(ctx context.Context, profile Profile, itemID string) ([]byte, error)

	// Write overwrites an item's content, creating it when missing.
	Write(ctx context.Context, profile Profile, itemID string, content []byte) error

	// Delete removes an item. Containers are removed with their contents.
	Delete(ctx context.Context, profile Profile, itemID string) error
}

// Copier is implemented by backends that copy items natively within one profile.
type Copier interface {
	CopyItems(ctx context.Context, profile Profile, itemIDs []string, targetPath string) BatchResult
}

// Mover is implemented by backends that move items natively within one profile.
type Mover interface {
	MoveItems(ctx context.Context, profile Profile, itemIDs []string, targetPath string) BatchResult
}

// Deleter is implemented by backends that delete several items in one call.
type Deleter interface {
	DeleteItems(ctx context.Context, profile Profile, itemIDs []string) BatchResult
}

// DirMaker is implemented by backends that can create container items.
type DirMaker interface {
	MakeDir(ctx context.Context, profile Profile, path string) error
}

// Metadata describes a backend.
type Metadata struct {
	ID           string
	DisplayName  string
	Description  string
	ConfigFields []string
}

// Profile is a named, backend-typed connection configuration.
type Profile struct {
	ID          string            `yaml:"id"`
	DisplayName string            `yaml:"name"`
	BackendID   string            `yaml:"backend"`
	Config      map[string]string `yaml:"config"`
}

// Get returns a config value, or def when the key is absent or empty.
func (p Profile) Get(key, def string) string {
	if value, ok := p.Config[key]; ok && value != "" {
		return value
	}

	return def
}

// Label returns the display name, falling back to the id.
func (p Profile) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}

	return p.ID
}
