package errors

import (
	"context"
	stderrors "errors"
	"io/fs"
	"net"
)

// Enricher classifies raw errors into *Error values.
type Enricher interface {
	Enrich(err error, op, affectedPath string) *Error
}

// NewEnricher creates a new Enricher with the default pattern matcher.
func NewEnricher() Enricher {
	return &enricher{
		matcher:   NewPatternMatcher(),
		generator: NewSuggestionGenerator(),
	}
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Shared default enricher, stateless
	defaultEnricher = NewEnricher()
)

// enricher is the concrete implementation of Enricher.
type enricher struct {
	matcher   PatternMatcher
	generator SuggestionGenerator
}

// Enrich takes a raw error and classifies it.
// If the error already carries a kind, it is returned unchanged.
// Typed causes are checked before message patterns: deadlines and network errors are
// transient, fs.ErrNotExist and fs.ErrPermission map directly.
func (e *enricher) Enrich(err error, op, affectedPath string) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if stderrors.As(err, &classified) {
		return classified
	}

	kind := e.kindOf(err)

	return &Error{
		kind:        kind,
		op:          op,
		path:        affectedPath,
		err:         err,
		suggestions: e.generator.Generate(kind, affectedPath),
	}
}

func (e *enricher) kindOf(err error) Kind {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return KindUnavailable
	case stderrors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case stderrors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	case stderrors.Is(err, fs.ErrExist):
		return KindConflict
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return KindUnavailable
	}

	return e.matcher.Match(err.Error())
}

// Classify classifies err with the default enricher. nil stays nil.
func Classify(err error, op, affectedPath string) error {
	if err == nil {
		return nil
	}

	return defaultEnricher.Enrich(err, op, affectedPath)
}

// As is errors.As, re-exported so callers importing this package need only one errors import.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
