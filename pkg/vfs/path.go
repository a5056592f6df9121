package vfs

import (
	"path"
	"strings"
)

// Root is the root path of every profile.
const Root = "/"

// CleanPath normalizes p to an absolute, slash-separated path without trailing slash.
// Backslashes are treated as separators.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	return path.Clean(p)
}

// Join joins dir and name and normalizes the result.
func Join(dir string, elem ...string) string {
	return CleanPath(path.Join(append([]string{CleanPath(dir)}, elem...)...))
}

// Parent returns the parent of p. The parent of the root is the root.
func Parent(p string) string {
	return path.Dir(CleanPath(p))
}

// Base returns the last element of p, or "/" for the root.
func Base(p string) string {
	return path.Base(CleanPath(p))
}

// Ext returns the extension of p without the leading dot.
func Ext(p string) string {
	return strings.TrimPrefix(path.Ext(Base(p)), ".")
}

// IsRoot reports whether p normalizes to the root.
func IsRoot(p string) bool {
	return CleanPath(p) == Root
}

// Segments splits a normalized path into its elements. The root has none.
func Segments(p string) []string {
	p = CleanPath(p)
	if p == Root {
		return nil
	}

	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// IsWithin reports whether p equals dir or lies below it.
func IsWithin(p, dir string) bool {
	p, dir = CleanPath(p), CleanPath(dir)
	if dir == Root || p == dir {
		return true
	}

	return strings.HasPrefix(p, dir+"/")
}
