package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"testing"
	"time"

	"github.com/joe/twinpane/pkg/errors"
)

func TestClassify_NilStaysNil(t *testing.T) {
	t.Parallel()

	if err := errors.Classify(nil, "list", "/"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestClassify_AlreadyClassifiedIsUnchanged(t *testing.T) {
	t.Parallel()

	original := errors.New(errors.KindReadOnly, "write", "/t", nil)
	wrapped := fmt.Errorf("copy: %w", original)

	got := errors.Classify(wrapped, "copy", "/other")

	if got != original {
		t.Errorf("expected the original classified error, got %v", got)
	}
}

func TestClassify_TypedCauses(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	testCases := []struct {
		name     string
		err      error
		expected errors.Kind
	}{
		{"deadline", ctx.Err(), errors.KindUnavailable},
		{"not exist", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, errors.KindNotFound},
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, errors.KindPermissionDenied},
		{"exists", fs.ErrExist, errors.KindConflict},
		{"net", &net.OpError{Op: "dial", Net: "tcp", Err: stderrors.New("refused")}, errors.KindUnavailable},
		{"message pattern", stderrors.New("NoSuchKey: The specified key does not exist"), errors.KindNotFound},
		{"unknown", stderrors.New("something odd"), errors.KindUnknown},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := errors.KindOf(errors.Classify(testCase.err, "op", "/x"))
			if got != testCase.expected {
				t.Errorf("expected %q, got %q for %v", testCase.expected, got, testCase.err)
			}
		})
	}
}

func TestEnricher_KeepsOpAndPath(t *testing.T) {
	t.Parallel()

	enriched := errors.NewEnricher().Enrich(fs.ErrPermission, "delete", "/locked")

	if enriched.Op() != "delete" {
		t.Errorf("expected op delete, got %q", enriched.Op())
	}

	if enriched.AffectedPath() != "/locked" {
		t.Errorf("expected path /locked, got %q", enriched.AffectedPath())
	}

	if !stderrors.Is(enriched, fs.ErrPermission) {
		t.Error("expected the raw cause to stay reachable")
	}
}
