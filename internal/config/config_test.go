//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/twinpane/internal/config"
	"github.com/joe/twinpane/pkg/vfs/local"
	"github.com/joe/twinpane/pkg/vfs/memory"
)

func TestLogFormatString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		f        config.LogFormat
		expected string
	}{
		{config.LogFormatJSON, "json"},
		{config.LogFormatConsole, "console"},
		{config.LogFormat(999), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.f.String(); got != tt.expected {
			t.Errorf("LogFormat(%d).String() = %q, want %q", tt.f, got, tt.expected)
		}
	}
}

func TestLogFormatUnmarshalText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected config.LogFormat
		wantErr  bool
	}{
		{"json", config.LogFormatJSON, false},
		{"CONSOLE", config.LogFormatConsole, false},
		{"text", config.LogFormatConsole, false},
		{"xml", config.LogFormatJSON, true},
	}

	for _, tt := range tests {
		var f config.LogFormat

		err := f.UnmarshalText([]byte(tt.input))
		if (err != nil) != tt.wantErr {
			t.Errorf("UnmarshalText(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)

			continue
		}

		if !tt.wantErr && f != tt.expected {
			t.Errorf("UnmarshalText(%q) = %v, want %v", tt.input, f, tt.expected)
		}
	}
}

func TestParseArgs_Defaults(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg, err := config.ParseArgs(nil)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(cfg.Workers).Should(Equal(config.DefaultWorkers))
	g.Expect(cfg.Timeout).Should(Equal(config.DefaultTimeout))
	g.Expect(cfg.LogSize).Should(Equal(config.DefaultLogSize))
	g.Expect(cfg.LogLevel).Should(Equal("info"))
	g.Expect(cfg.LogFormat).Should(Equal(config.LogFormatJSON))
	g.Expect(cfg.Profiles).Should(HaveLen(3))
	g.Expect(cfg.Left).Should(Equal("L"))
	g.Expect(cfg.Right).Should(Equal("D"))
}

func TestParseArgs_Flags(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg, err := config.ParseArgs([]string{
		"--workers", "8", "--timeout", "5s", "--log-format", "console",
		"--log-size", "20", "--left", "B", "--right", "L", "--metrics-addr", ":9090",
	})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(cfg.Workers).Should(Equal(8))
	g.Expect(cfg.Timeout).Should(Equal(5 * time.Second))
	g.Expect(cfg.LogFormat).Should(Equal(config.LogFormatConsole))
	g.Expect(cfg.LogSize).Should(Equal(20))
	g.Expect(cfg.Left).Should(Equal("B"))
	g.Expect(cfg.Right).Should(Equal("L"))
	g.Expect(cfg.MetricsAddr).Should(Equal(":9090"))
}

func TestParseArgs_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "zero workers", args: []string{"--workers", "0"}},
		{name: "negative timeout", args: []string{"--timeout", "-1s"}},
		{name: "zero log size", args: []string{"--log-size", "0"}},
		{name: "unknown pane profile", args: []string{"--left", "Z"}},
		{name: "bad format", args: []string{"--log-format", "xml"}},
		{name: "missing profiles file", args: []string{"--profiles", "/does/not/exist.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			_, err := config.ParseArgs(tt.args)
			g.Expect(err).Should(HaveOccurred())
		})
	}
}

func TestLoadProfiles(t *testing.T) {
	t.Setenv("TWINPANE_TEST_ROOT", "/srv/data")

	g := NewWithT(t)

	path := filepath.Join(t.TempDir(), "profiles.yaml")
	g.Expect(os.WriteFile(path, []byte(`
profiles:
  - id: L
    name: "L: (Local)"
    backend: local
    config:
      root: $TWINPANE_TEST_ROOT/home
  - id: S3
    backend: s3
    config: {bucket: "", region: eu-west-1}
  - id: DB
    backend: warehouse
    config:
      driver: sqlite
      dsn: /tmp/app.db
      row_limit: 500
`), 0o600)).Should(Succeed())

	cfg, err := config.ParseArgs([]string{"--profiles", path})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(cfg.Profiles).Should(HaveLen(3))

	g.Expect(cfg.Profiles[0].DisplayName).Should(Equal("L: (Local)"))
	g.Expect(cfg.Profiles[0].Config).Should(HaveKeyWithValue("root", "/srv/data/home"))
	g.Expect(cfg.Profiles[1].DisplayName).Should(Equal("S3"))
	g.Expect(cfg.Profiles[1].Config).Should(HaveKeyWithValue("bucket", ""))
	g.Expect(cfg.Profiles[2].Config).Should(HaveKeyWithValue("row_limit", "500"))
	g.Expect(cfg.Left).Should(Equal("L"))
	g.Expect(cfg.Right).Should(Equal("S3"))
}

func TestParseProfiles_Invalid(t *testing.T) {
	t.Parallel()

	for name, data := range map[string]string{
		"empty":         "profiles: []",
		"unknown field": "profiles:\n  - id: L\n    colour: red\n",
		"not yaml":      "profiles: [",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			_, err := config.ParseProfiles([]byte(data))
			g.Expect(err).Should(HaveOccurred())
		})
	}
}

func TestDefaultProfiles(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	profiles := config.DefaultProfiles("/work")
	g.Expect(profiles[0].BackendID).Should(Equal(local.ID))
	g.Expect(profiles[0].Config).Should(HaveKeyWithValue(local.RootKey, "/work"))
	g.Expect(profiles[1].Config).Should(HaveKeyWithValue(memory.FixtureKey, memory.FixtureDemo))
	g.Expect(profiles[2].Config).Should(HaveKeyWithValue(memory.FixtureKey, memory.FixtureBuckets))
}

func TestSingleProfileFillsBothPanes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg := &config.Config{
		Timeout: time.Second,
		Workers: 1,
		LogSize: 1,
	}
	cfg.Profiles = config.DefaultProfiles("/work")[:1]

	cfg, err := config.PostProcessConfig(cfg)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(cfg.Left).Should(Equal("L"))
	g.Expect(cfg.Right).Should(Equal("L"))
}
