//nolint:varnamelen // Test files use idiomatic short variable names (g, etc.)
package vfs_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// stubBackend satisfies vfs.Backend with fixed metadata.
type stubBackend struct {
	meta vfs.Metadata
}

func (s stubBackend) Metadata() vfs.Metadata { return s.meta }

func (s stubBackend) List(context.Context, vfs.Profile, string) ([]vfs.Item, error) {
	return nil, nil
}

func (s stubBackend) Read(context.Context, vfs.Profile, string) ([]byte, error) { return nil, nil }

func (s stubBackend) Write(context.Context, vfs.Profile, string, []byte) error { return nil }

func (s stubBackend) Delete(context.Context, vfs.Profile, string) error { return nil }

func newStub(id string, fields ...string) stubBackend {
	return stubBackend{meta: vfs.Metadata{ID: id, DisplayName: id, ConfigFields: fields}}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	reg := vfs.NewRegistry()
	g.Expect(reg.Register(newStub("s3", "bucket"))).Should(Succeed())
	g.Expect(reg.Register(newStub("local", "root"))).Should(Succeed())

	backend, ok := reg.Get("s3")
	g.Expect(ok).Should(BeTrue())
	g.Expect(backend.Metadata().ID).Should(Equal("s3"))

	_, ok = reg.Get("ftp")
	g.Expect(ok).Should(BeFalse())

	ids := []string{}
	for _, meta := range reg.All() {
		ids = append(ids, meta.ID)
	}

	g.Expect(ids).Should(Equal([]string{"local", "s3"}))
}

func TestRegistry_RejectsDuplicatesAndLateRegistration(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	reg := vfs.NewRegistry()
	g.Expect(reg.Register(newStub("local"))).Should(Succeed())

	err := reg.Register(newStub("local"))
	g.Expect(err).Should(MatchError(errors.ErrConflict))

	reg.Freeze()

	err = reg.Register(newStub("s3"))
	g.Expect(err).Should(MatchError(errors.ErrValidation))

	_, ok := reg.Get("s3")
	g.Expect(ok).Should(BeFalse())
}

func TestNewProfiles_Validation(t *testing.T) {
	t.Parallel()

	reg := vfs.NewRegistry()
	reg.MustRegister(newStub("s3", "bucket"), newStub("local", "root"))
	reg.Freeze()

	tests := []struct {
		name     string
		profiles []vfs.Profile
		want     error
	}{
		{
			name:     "unknown backend",
			profiles: []vfs.Profile{{ID: "F", BackendID: "ftp"}},
			want:     errors.ErrValidation,
		},
		{
			name:     "missing config field",
			profiles: []vfs.Profile{{ID: "S", BackendID: "s3", Config: map[string]string{}}},
			want:     errors.ErrValidation,
		},
		{
			name: "duplicate id",
			profiles: []vfs.Profile{
				{ID: "L", BackendID: "local", Config: map[string]string{"root": "/"}},
				{ID: "L", BackendID: "local", Config: map[string]string{"root": "/tmp"}},
			},
			want: errors.ErrConflict,
		},
		{
			name:     "empty id",
			profiles: []vfs.Profile{{BackendID: "local", Config: map[string]string{"root": "/"}}},
			want:     errors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			_, err := vfs.NewProfiles(reg, tt.profiles...)
			g.Expect(err).Should(MatchError(tt.want))
		})
	}
}

func TestProfiles_ResolveAndOrder(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	reg := vfs.NewRegistry()
	reg.MustRegister(newStub("s3", "bucket"), newStub("local", "root"))

	config := map[string]string{"bucket": ""}
	profiles, err := vfs.NewProfiles(reg,
		vfs.Profile{ID: "S", DisplayName: "S: (Buckets)", BackendID: "s3", Config: config},
		vfs.Profile{ID: "L", BackendID: "local", Config: map[string]string{"root": "/home"}},
	)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(profiles.IDs()).Should(Equal([]string{"S", "L"}))

	config["bucket"] = "mutated"

	profile, backend, err := profiles.Resolve("S")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(profile.Get("bucket", "all")).Should(Equal("all"))
	g.Expect(profile.Label()).Should(Equal("S: (Buckets)"))
	g.Expect(backend.Metadata().ID).Should(Equal("s3"))

	got, ok := profiles.Get("L")
	g.Expect(ok).Should(BeTrue())
	g.Expect(got.Label()).Should(Equal("L"))

	_, _, err = profiles.Resolve("Z")
	g.Expect(err).Should(MatchError(errors.ErrValidation))
}

func TestProfiles_ReturnedConfigIsACopy(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	reg := vfs.NewRegistry()
	reg.MustRegister(newStub("local", "root"))

	profiles, err := vfs.NewProfiles(reg,
		vfs.Profile{ID: "L", BackendID: "local", Config: map[string]string{"root": "/home"}},
	)
	g.Expect(err).ShouldNot(HaveOccurred())

	resolved, _, err := profiles.Resolve("L")
	g.Expect(err).ShouldNot(HaveOccurred())
	resolved.Config["root"] = "/etc"

	got, ok := profiles.Get("L")
	g.Expect(ok).Should(BeTrue())
	got.Config["root"] = "/tmp"

	profiles.All()[0].Config["root"] = "/var"

	again, _, err := profiles.Resolve("L")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(again.Config).Should(Equal(map[string]string{"root": "/home"}))
}
