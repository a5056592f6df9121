//nolint:varnamelen // Test files use idiomatic short variable names (g, etc.)
package shared_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/twinpane/internal/cmdlog"
	"github.com/joe/twinpane/internal/tui/shared"
)

func TestRenderCommandLog(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

	entries := make([]cmdlog.Entry, 0, 5)
	for i := range 5 {
		entries = append(entries, cmdlog.Entry{
			Time:    at,
			Source:  cmdlog.SourceUser,
			Level:   cmdlog.LevelInfo,
			Message: fmt.Sprintf("line %d", i),
		})
	}

	entries = append(entries, cmdlog.Entry{
		Time: at, Source: cmdlog.SourceAgent, Level: cmdlog.LevelError, Message: "boom",
	})

	t.Run("shows the most recent entries under the title", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		out := shared.RenderCommandLog("Log", entries, 3)
		lines := strings.Split(out, "\n")

		g.Expect(lines).Should(HaveLen(4))
		g.Expect(lines[0]).Should(ContainSubstring("Log"))
		g.Expect(lines[1]).Should(ContainSubstring("line 3"))
		g.Expect(lines[3]).Should(ContainSubstring("09:30:00 [agent] error: boom"))
	})

	t.Run("shows every entry without a limit", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		out := shared.RenderCommandLog("", entries, 0)

		g.Expect(strings.Split(out, "\n")).Should(HaveLen(6))
		g.Expect(out).Should(HavePrefix("  09:30:00 [user] line 0"))
	})

	t.Run("renders only the title when empty", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		g.Expect(shared.RenderCommandLog("Log", nil, 3)).Should(Equal("Log"))
	})
}
