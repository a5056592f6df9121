//nolint:varnamelen // Test files use idiomatic short variable names (g, etc.)
package vfs_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

func TestBatchResult_Outcome(t *testing.T) {
	t.Parallel()

	denied := errors.New(errors.KindPermissionDenied, "delete", "/b", nil)

	tests := []struct {
		name    string
		errs    []error
		outcome vfs.Outcome
	}{
		{"empty", nil, vfs.OutcomeOK},
		{"all ok", []error{nil, nil}, vfs.OutcomeOK},
		{"some failed", []error{nil, denied, nil}, vfs.OutcomePartial},
		{"all failed", []error{denied, denied}, vfs.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			ids := make([]string, len(tt.errs))
			for i := range tt.errs {
				ids[i] = string(rune('a' + i))
			}

			result := vfs.NewBatchResult(ids)
			for i, err := range tt.errs {
				result.Results[i].Err = err
			}

			g.Expect(result.Outcome()).Should(Equal(tt.outcome))
			g.Expect(result.Outcome().String()).ShouldNot(Equal("unknown"))
		})
	}
}

func TestBatchResult_FailuresAndSucceeded(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	denied := errors.New(errors.KindPermissionDenied, "move", "/2", nil)

	result := vfs.NewBatchResult([]string{"/1", "/2", "/3"})
	result.Results[1].Err = denied

	g.Expect(result.Failures()).Should(Equal(map[string]error{"/2": denied}))
	g.Expect(result.Succeeded()).Should(Equal([]string{"/1", "/3"}))
}
