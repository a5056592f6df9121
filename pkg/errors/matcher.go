package errors

import "strings"

// PatternMatcher matches error messages to kinds using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) Kind
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
// Patterns are checked in order, so more specific kinds come first.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		patterns: []kindPatterns{
			{KindPermissionDenied, []string{
				"permission denied",
				"access denied",
				"accessdenied",
				"operation not permitted",
				"forbidden",
			}},
			{KindNotFound, []string{
				"no such file or directory",
				"file not found",
				"path does not exist",
				"nosuchkey",
				"nosuchbucket",
				"no such table",
				"does not exist",
				"not found",
			}},
			{KindReadOnly, []string{
				"read-only file system",
				"read only",
				"readonly",
			}},
			{KindUnreadable, []string{
				"is a directory",
				"not a regular file",
			}},
			{KindConflict, []string{
				"precondition failed",
				"file exists",
				"already exists",
				"directory not empty",
			}},
			{KindUnavailable, []string{
				"connection refused",
				"connection reset",
				"broken pipe",
				"i/o timeout",
				"deadline exceeded",
				"no route to host",
				"service unavailable",
				"slowdown",
				"input/output error",
			}},
		},
	}
}

type kindPatterns struct {
	kind     Kind
	patterns []string
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	patterns []kindPatterns
}

// Match returns the error kind based on pattern matching.
func (m *patternMatcher) Match(errorMsg string) Kind {
	lowerMsg := strings.ToLower(errorMsg)

	for _, entry := range m.patterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(lowerMsg, pattern) {
				return entry.kind
			}
		}
	}

	return KindUnknown
}
