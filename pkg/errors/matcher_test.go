package errors_test

import (
	"testing"

	"github.com/joe/twinpane/pkg/errors"
)

func TestPatternMatcher_CaseInsensitive(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		errorMsg string
		expected errors.Kind
	}{
		{"uppercase permission denied", "PERMISSION DENIED", errors.KindPermissionDenied},
		{"mixed case read-only", "Read-Only File System", errors.KindReadOnly},
		{"s3 code", "api error AccessDenied: Access Denied", errors.KindPermissionDenied},
	}

	matcher := errors.NewPatternMatcher()

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			if kind := matcher.Match(testCase.errorMsg); kind != testCase.expected {
				t.Errorf("expected kind %q, got %q for error: %q",
					testCase.expected, kind, testCase.errorMsg)
			}
		})
	}
}

func TestPatternMatcher_MatchKinds(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		errorMsg string
		expected errors.Kind
	}{
		{"no such file", "open /a: no such file or directory", errors.KindNotFound},
		{"no such bucket", "NoSuchBucket", errors.KindNotFound},
		{"is a directory", "read /a: is a directory", errors.KindUnreadable},
		{"already exists", "table already exists", errors.KindConflict},
		{"connection refused", "dial tcp: connection refused", errors.KindUnavailable},
		{"timeout", "read tcp: i/o timeout", errors.KindUnavailable},
		{"unmatched", "the frobnicator jammed", errors.KindUnknown},
	}

	matcher := errors.NewPatternMatcher()

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			if kind := matcher.Match(testCase.errorMsg); kind != testCase.expected {
				t.Errorf("expected kind %q, got %q for error: %q",
					testCase.expected, kind, testCase.errorMsg)
			}
		})
	}
}
