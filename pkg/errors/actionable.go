// Package errors provides the storage error taxonomy with context-aware suggestions.
//
// Every backend failure that crosses the core boundary is an *Error carrying a Kind.
// Kinds map one-to-one onto the failure classes the panel and operation engine react to
// (not found, permission denied, transient unavailability, unsupported operation,
// concurrent modification, invalid request).
//
// Basic Usage:
//
//	items, err := backend.List(ctx, profile, "/reports")
//	if err != nil {
//	    classified := errors.Classify(err, "list", "/reports")
//	    if errors.KindOf(classified).Retryable() {
//	        // safe to try again later
//	    }
//	    fmt.Println(errors.FormatSuggestions(classified))
//	}
//
// Kinds also participate in errors.Is through sentinel values:
//
//	if stderrors.Is(err, errors.ErrNotFound) { ... }
package errors

import (
	"fmt"
	"strings"
)

// Exported constants.
const (
	KindConflict         Kind = "conflict"
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindReadOnly         Kind = "read_only"
	KindUnavailable      Kind = "backend_unavailable"
	KindUnknown          Kind = "unknown"
	KindUnreadable       Kind = "unreadable"
	KindValidation       Kind = "validation"
)

// Exported variables.
var (
	ErrConflict         = &Error{kind: KindConflict}
	ErrNotFound         = &Error{kind: KindNotFound}
	ErrPermissionDenied = &Error{kind: KindPermissionDenied}
	ErrReadOnly         = &Error{kind: KindReadOnly}
	ErrUnavailable      = &Error{kind: KindUnavailable}
	ErrUnreadable       = &Error{kind: KindUnreadable}
	ErrValidation       = &Error{kind: KindValidation}
)

// ActionableError represents an error with actionable suggestions for the user.
type ActionableError interface {
	error
	OriginalError() string
	Category() Kind
	Suggestions() []string
	AffectedPath() string
}

// Error is a classified storage error.
type Error struct {
	kind        Kind
	op          string
	path        string
	err         error
	suggestions []string
}

// Kind represents the class of failure that occurred.
type Kind string

// Retryable reports whether an operation failing with this kind may succeed when retried.
func (k Kind) Retryable() bool {
	return k == KindUnavailable
}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// New creates a classified error. err may be nil, in which case msg-less errors render
// as "<op> <path>: <kind>".
func New(kind Kind, op, path string, err error) *Error {
	return &Error{
		kind:        kind,
		op:          op,
		path:        path,
		err:         err,
		suggestions: NewSuggestionGenerator().Generate(kind, path),
	}
}

// Newf creates a classified error with a formatted message as its cause.
func Newf(kind Kind, op, path, format string, args ...any) *Error {
	return New(kind, op, path, fmt.Errorf(format, args...)) //nolint:err113 // dynamic cause text
}

// KindOf returns the kind of err, or KindUnknown when err carries none. nil maps to "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var classified *Error
	if As(err, &classified) {
		return classified.kind
	}

	return KindUnknown
}

// FormatSuggestions formats the suggestions from an ActionableError as a bulleted list
// for display in the TUI. Returns empty string if the error is nil or has no suggestions.
func FormatSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var actionable ActionableError
	if !As(err, &actionable) {
		return ""
	}

	suggestions := actionable.Suggestions()
	if len(suggestions) == 0 {
		return ""
	}

	var builder strings.Builder

	for i, suggestion := range suggestions {
		if i > 0 {
			builder.WriteString("\n")
		}

		builder.WriteString("  • ")
		builder.WriteString(suggestion)
	}

	return builder.String()
}

// AffectedPath returns the path or item id affected by this error.
func (e *Error) AffectedPath() string {
	return e.path
}

// Category returns the error kind.
func (e *Error) Category() Kind {
	return e.kind
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.op != "" {
		builder.WriteString(e.op)
	}

	if e.path != "" {
		if builder.Len() > 0 {
			builder.WriteString(" ")
		}

		builder.WriteString(e.path)
	}

	if builder.Len() > 0 {
		builder.WriteString(": ")
	}

	if e.err != nil {
		builder.WriteString(e.err.Error())
	} else {
		builder.WriteString(strings.ReplaceAll(string(e.kind), "_", " "))
	}

	return builder.String()
}

// Is matches any *Error of the same kind, which makes the Err* sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}

	return other.kind == e.kind
}

// Kind returns the error kind.
func (e *Error) Kind() Kind {
	return e.kind
}

// Op returns the operation that failed.
func (e *Error) Op() string {
	return e.op
}

// OriginalError returns the underlying error message.
func (e *Error) OriginalError() string {
	if e.err == nil {
		return ""
	}

	return e.err.Error()
}

// Suggestions returns the list of actionable suggestions.
func (e *Error) Suggestions() []string {
	return e.suggestions
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.err
}
