package vfs

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Exported constants.
const (
	// ParentName is the name of the synthetic parent-navigation item.
	ParentName = ".."
)

// ItemType is the closed set of item variants.
type ItemType int

// Item types. Directory, Bucket and Dataset are containers; File and Table are leaves.
const (
	TypeFile ItemType = iota
	TypeDirectory
	TypeBucket
	TypeTable
	TypeDataset
)

// ParseItemType parses the lower-case name of an item type.
func ParseItemType(s string) (ItemType, error) {
	switch strings.ToLower(s) {
	case "file":
		return TypeFile, nil
	case "directory", "dir":
		return TypeDirectory, nil
	case "bucket":
		return TypeBucket, nil
	case "table":
		return TypeTable, nil
	case "dataset":
		return TypeDataset, nil
	default:
		return TypeFile, fmt.Errorf("invalid item type: %s (valid: file, directory, bucket, table, dataset)", s) //nolint:err113,lll // parse error with input
	}
}

// IsContainer reports whether a pane can descend into items of this type.
func (t ItemType) IsContainer() bool {
	switch t {
	case TypeDirectory, TypeBucket, TypeDataset:
		return true
	case TypeFile, TypeTable:
		return false
	default:
		return false
	}
}

// String returns the lower-case type name.
func (t ItemType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	case TypeBucket:
		return "bucket"
	case TypeTable:
		return "table"
	case TypeDataset:
		return "dataset"
	default:
		return "unknown"
	}
}

// Item is one entry in a listing.
type Item struct {
	ID         string
	Name       string
	Type       ItemType
	Size       int64
	ModifiedAt time.Time
	Extension  string
}

// NewItem builds an item addressed by its absolute path, deriving name and extension.
func NewItem(itemPath string, itemType ItemType, size int64, modifiedAt time.Time) Item {
	itemPath = CleanPath(itemPath)
	item := Item{
		ID:         itemPath,
		Name:       Base(itemPath),
		Type:       itemType,
		Size:       size,
		ModifiedAt: modifiedAt,
	}

	if !itemType.IsContainer() {
		item.Extension = Ext(itemPath)
	}

	return item
}

// ParentItem returns the ".." entry for a listing of dir.
func ParentItem(dir string) Item {
	return Item{
		ID:   Parent(dir),
		Name: ParentName,
		Type: TypeDirectory,
	}
}

// WithParent prepends the ".." entry when dir is not the root.
func WithParent(dir string, items []Item) []Item {
	if IsRoot(dir) {
		return items
	}

	return append([]Item{ParentItem(dir)}, items...)
}

// IsParent reports whether the item is the synthetic ".." entry.
func (i Item) IsParent() bool {
	return i.Name == ParentName
}

// SortItems orders a listing with containers first, then by case-insensitive name.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := items[i].Type.IsContainer(), items[j].Type.IsContainer()
		if ci != cj {
			return ci
		}

		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
}
