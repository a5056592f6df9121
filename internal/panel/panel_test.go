//nolint:varnamelen // Test files use idiomatic short variable names (g, etc.)
package panel_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/twinpane/internal/panel"
	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
	"github.com/joe/twinpane/pkg/vfs/memory"
)

//nolint:gochecknoglobals // Fixed timestamp for deterministic listings
var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// gated blocks List on one path until released.
type gated struct {
	*memory.Backend

	path    string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *gated) List(ctx context.Context, profile vfs.Profile, dir string) ([]vfs.Item, error) {
	if dir == b.path {
		b.once.Do(func() { close(b.started) })

		select {
		case <-b.release:
		case <-ctx.Done():
			return nil, errors.Classify(ctx.Err(), "list", dir)
		}
	}

	return b.Backend.List(ctx, profile, dir)
}

type calls struct {
	mu   sync.Mutex
	seen []string
}

func (c *calls) BackendCall(backend, op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen = append(c.seen, backend+"/"+op+"/"+errors.KindOf(err).String())
}

func (c *calls) Operation(string, string, time.Duration) {}

func (c *calls) CommandLogSize(int) {}

func fixture() *memory.Backend {
	b := memory.New()
	b.AddDir("P1", "/w/sub", epoch)
	b.AddFile("P1", "/w/sub/inner.txt", []byte("i"), epoch)

	for _, name := range []string{"f1.txt", "f2.txt", "f3.txt", "f4.md"} {
		b.AddFile("P1", "/w/"+name, []byte(name), epoch)
	}

	b.AddFile("P1", "/x/only-x.txt", nil, epoch)
	b.AddFile("P1", "/y/only-y.txt", nil, epoch)
	b.AddFile("P2", "/other.txt", nil, epoch)

	return b
}

func resolver(g Gomega, backend vfs.Backend) vfs.Resolver {
	reg := vfs.NewRegistry()
	g.Expect(reg.Register(backend)).Should(Succeed())
	reg.Freeze()

	profiles, err := vfs.NewProfiles(reg,
		vfs.Profile{ID: "P1", BackendID: memory.ID},
		vfs.Profile{ID: "P2", BackendID: memory.ID},
	)
	g.Expect(err).ShouldNot(HaveOccurred())

	return profiles
}

func opened(g Gomega, opts ...panel.Option) *panel.Panel {
	p := panel.New(panel.SideLeft, resolver(g, fixture()), opts...)

	applied, err := p.Navigate(context.Background(), "/w", "P1")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(applied).Should(BeTrue())

	return p
}

func names(items []vfs.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}

	return out
}

func TestNavigate_ReplacesListingAndResetsFocus(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := opened(g)
	p.SetFocus(3)
	g.Expect(p.ToggleSelection(3, panel.Modifiers{Ctrl: true})).Should(Succeed())

	applied, err := p.Navigate(context.Background(), "/", "P2")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(applied).Should(BeTrue())

	snap := p.Snapshot()
	g.Expect(snap.ProfileID).Should(Equal("P2"))
	g.Expect(snap.Path).Should(Equal("/"))
	g.Expect(names(snap.Items)).Should(Equal([]string{"other.txt"}))
	g.Expect(snap.Focused).Should(Equal(0))
	g.Expect(snap.Selection).Should(BeEmpty())
	g.Expect(snap.State).Should(Equal(panel.StateIdle))
}

func TestNavigate_FailureKeepsPriorState(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := opened(g)
	p.SetFocus(2)
	before := p.Snapshot()

	applied, err := p.Navigate(context.Background(), "/missing", "")
	g.Expect(err).Should(MatchError(errors.ErrNotFound))
	g.Expect(applied).Should(BeFalse())
	g.Expect(p.Snapshot()).Should(Equal(before))

	_, err = p.Navigate(context.Background(), "/", "nope")
	g.Expect(err).Should(MatchError(errors.ErrValidation))
	g.Expect(p.Snapshot()).Should(Equal(before))
}

func TestNavigate_WithoutProfileIsValidationError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := panel.New(panel.SideRight, resolver(g, fixture()))

	_, err := p.Navigate(context.Background(), "/", "")
	g.Expect(err).Should(MatchError(errors.ErrValidation))

	snap := p.Snapshot()
	g.Expect(snap.Focused).Should(Equal(-1))
	g.Expect(snap.Side).Should(Equal(panel.SideRight))
}

func TestNavigate_LatestRequestWins(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	backend := &gated{
		Backend: fixture(),
		path:    "/x",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := panel.New(panel.SideLeft, resolver(g, backend), panel.WithLocation("P1", "/"))

	type outcome struct {
		applied bool
		err     error
	}

	slow := make(chan outcome, 1)

	go func() {
		applied, err := p.Navigate(context.Background(), "/x", "")
		slow <- outcome{applied, err}
	}()

	<-backend.started
	g.Expect(p.Snapshot().State).Should(Equal(panel.StateRefreshing))

	applied, err := p.Navigate(context.Background(), "/y", "")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(applied).Should(BeTrue())

	close(backend.release)

	late := <-slow
	g.Expect(late.err).ShouldNot(HaveOccurred())
	g.Expect(late.applied).Should(BeFalse())

	snap := p.Snapshot()
	g.Expect(snap.Path).Should(Equal("/y"))
	g.Expect(names(snap.Items)).Should(Equal([]string{"..", "only-y.txt"}))
	g.Expect(snap.State).Should(Equal(panel.StateIdle))
}

func TestNavigate_TimeoutIsUnavailable(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	backend := &gated{
		Backend: fixture(),
		path:    "/x",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	rec := &calls{}
	p := panel.New(panel.SideLeft, resolver(g, backend),
		panel.WithTimeout(20*time.Millisecond), panel.WithRecorder(rec))

	_, err := p.Navigate(context.Background(), "/x", "P1")
	g.Expect(err).Should(MatchError(errors.ErrUnavailable))
	g.Expect(rec.seen).Should(Equal([]string{"memory/list/backend_unavailable"}))
	g.Expect(p.Snapshot().State).Should(Equal(panel.StateIdle))
}

func TestEnterAndUp(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	p := opened(g)
	g.Expect(names(p.Snapshot().Items)).Should(Equal([]string{"..", "sub", "f1.txt", "f2.txt", "f3.txt", "f4.md"}))

	p.SetFocus(1)
	_, err := p.Enter(ctx)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(p.Snapshot().Path).Should(Equal("/w/sub"))

	p.SetFocus(1)
	_, err = p.Enter(ctx)
	g.Expect(err).Should(MatchError(panel.ErrNotContainer))

	p.SetFocus(0)
	_, err = p.Enter(ctx)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(p.Snapshot().Path).Should(Equal("/w"))

	_, err = p.Up(ctx)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(p.Snapshot().Path).Should(Equal("/"))

	applied, err := p.Up(ctx)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(applied).Should(BeFalse())
}

func TestMoveFocus_Clamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start int
		delta int
		want  int
	}{
		{name: "down", start: 0, delta: 2, want: 2},
		{name: "past end", start: 4, delta: 10, want: 5},
		{name: "past start", start: 1, delta: -5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			p := opened(g)
			p.SetFocus(tt.start)
			p.MoveFocus(tt.delta)
			g.Expect(p.Snapshot().Focused).Should(Equal(tt.want))
		})
	}
}

func TestToggleSelection(t *testing.T) {
	t.Parallel()

	ctrl := panel.Modifiers{Ctrl: true}
	shift := panel.Modifiers{Shift: true}

	tests := []struct {
		name   string
		focus  int
		clicks []int
		mods   []panel.Modifiers
		want   []string
	}{
		{
			name:   "ctrl toggles on",
			clicks: []int{2, 4},
			mods:   []panel.Modifiers{ctrl, ctrl},
			want:   []string{"/w/f1.txt", "/w/f3.txt"},
		},
		{
			name:   "ctrl toggles off",
			clicks: []int{2, 2},
			mods:   []panel.Modifiers{ctrl, ctrl},
			want:   nil,
		},
		{
			name:   "ctrl on parent is ignored",
			clicks: []int{0},
			mods:   []panel.Modifiers{ctrl},
			want:   nil,
		},
		{
			name:   "shift range excludes parent",
			focus:  0,
			clicks: []int{3},
			mods:   []panel.Modifiers{shift},
			want:   []string{"/w/sub", "/w/f1.txt", "/w/f2.txt"},
		},
		{
			name:   "shift range backwards",
			focus:  5,
			clicks: []int{3},
			mods:   []panel.Modifiers{shift},
			want:   []string{"/w/f2.txt", "/w/f3.txt", "/w/f4.md"},
		},
		{
			name:   "shift repeated is idempotent",
			focus:  1,
			clicks: []int{3, 3},
			mods:   []panel.Modifiers{shift, shift},
			want:   []string{"/w/sub", "/w/f1.txt", "/w/f2.txt"},
		},
		{
			name:   "shift unions with ctrl selection",
			focus:  0,
			clicks: []int{5, 2, 3},
			mods:   []panel.Modifiers{ctrl, ctrl, shift},
			want:   []string{"/w/f1.txt", "/w/f2.txt", "/w/f4.md"},
		},
		{
			name:   "plain click clears",
			clicks: []int{2, 3, 4},
			mods:   []panel.Modifiers{ctrl, ctrl, {}},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			p := opened(g)
			p.SetFocus(tt.focus)

			for i, index := range tt.clicks {
				g.Expect(p.ToggleSelection(index, tt.mods[i])).Should(Succeed())
				g.Expect(p.Snapshot().IsSelected("/")).Should(BeFalse())
			}

			snap := p.Snapshot()
			g.Expect(snap.Selection).Should(Equal(tt.want))
			g.Expect(snap.Focused).Should(Equal(tt.clicks[len(tt.clicks)-1]))
		})
	}
}

func TestToggleSelection_OutOfRange(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := opened(g)
	g.Expect(p.ToggleSelection(6, panel.Modifiers{})).Should(MatchError(errors.ErrValidation))
	g.Expect(p.ToggleSelection(-1, panel.Modifiers{Ctrl: true})).Should(MatchError(errors.ErrValidation))
}

func TestSelectMatching(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := opened(g)

	n, err := p.SelectMatching("*.TXT")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(n).Should(Equal(3))
	g.Expect(p.Snapshot().Selection).Should(Equal([]string{"/w/f1.txt", "/w/f2.txt", "/w/f3.txt"}))

	n, err = p.SelectMatching("s*")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(n).Should(Equal(1))
	g.Expect(p.Snapshot().Selection).Should(HaveLen(4))

	_, err = p.SelectMatching("[")
	g.Expect(err).Should(MatchError(errors.ErrValidation))

	p.ClearSelection()
	g.Expect(p.Snapshot().Selection).Should(BeEmpty())
}

func TestResolveOperationItemSet(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := opened(g)

	p.SetFocus(0)
	g.Expect(p.ResolveOperationItemSet()).Should(BeEmpty())

	p.SetFocus(3)
	g.Expect(names(p.ResolveOperationItemSet())).Should(Equal([]string{"f2.txt"}))

	g.Expect(p.ToggleSelection(4, panel.Modifiers{Ctrl: true})).Should(Succeed())
	g.Expect(p.ToggleSelection(2, panel.Modifiers{Ctrl: true})).Should(Succeed())
	g.Expect(names(p.ResolveOperationItemSet())).Should(Equal([]string{"f1.txt", "f3.txt"}))

	empty := panel.New(panel.SideLeft, resolver(g, fixture()))
	g.Expect(empty.ResolveOperationItemSet()).Should(BeEmpty())
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := opened(g)
	g.Expect(p.ToggleSelection(2, panel.Modifiers{Ctrl: true})).Should(Succeed())

	snap := p.Snapshot()
	snap.Items[1].Name = "changed"
	snap.Selection[0] = "changed"

	again := p.Snapshot()
	g.Expect(again.Items[1].Name).Should(Equal("sub"))
	g.Expect(again.Selection).Should(Equal([]string{"/w/f1.txt"}))

	item, ok := again.FocusedItem()
	g.Expect(ok).Should(BeTrue())
	g.Expect(item.Name).Should(Equal("f1.txt"))
}

func TestSide(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(panel.SideLeft.Other()).Should(Equal(panel.SideRight))
	g.Expect(panel.SideRight.Other()).Should(Equal(panel.SideLeft))
	g.Expect(panel.SideRight.String()).Should(Equal("right"))
	g.Expect(panel.StateRefreshing.String()).Should(Equal("refreshing"))
}

// plain hides the optional capabilities of the wrapped backend.
type plain struct {
	vfs.Backend
}

func TestMakeDir(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates and focuses the container", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		p := opened(g)

		applied, err := p.MakeDir(ctx, " reports ")
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(applied).Should(BeTrue())

		snap := p.Snapshot()
		g.Expect(names(snap.Items)).Should(ContainElement("reports"))

		focused, ok := snap.FocusedItem()
		g.Expect(ok).Should(BeTrue())
		g.Expect(focused.ID).Should(Equal("/w/reports"))
		g.Expect(focused.Type).Should(Equal(vfs.TypeDirectory))
	})

	t.Run("rejects invalid names", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{"", "  ", ".", "..", "a/b"} {
			g := NewWithT(t)
			p := opened(g)

			_, err := p.MakeDir(ctx, name)
			g.Expect(err).Should(MatchError(errors.ErrValidation), name)
		}
	})

	t.Run("backends without containers are read-only", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		p := panel.New(panel.SideLeft, resolver(g, plain{Backend: fixture()}))
		_, err := p.Navigate(ctx, "/w", "P1")
		g.Expect(err).ShouldNot(HaveOccurred())

		_, err = p.MakeDir(ctx, "reports")
		g.Expect(err).Should(MatchError(errors.ErrReadOnly))
	})
}
