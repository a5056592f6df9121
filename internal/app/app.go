// Package app wires the registries, backends, panes, engine and dispatcher together.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/joe/twinpane/internal/agent"
	"github.com/joe/twinpane/internal/cmdlog"
	"github.com/joe/twinpane/internal/config"
	"github.com/joe/twinpane/internal/engine"
	"github.com/joe/twinpane/internal/metrics"
	"github.com/joe/twinpane/internal/panel"
	"github.com/joe/twinpane/pkg/vfs"
	"github.com/joe/twinpane/pkg/vfs/local"
	"github.com/joe/twinpane/pkg/vfs/memory"
	"github.com/joe/twinpane/pkg/vfs/objectstore"
	"github.com/joe/twinpane/pkg/vfs/sftp"
	"github.com/joe/twinpane/pkg/vfs/warehouse"
)

// unexported constants.
const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// App holds the running components.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Log        *cmdlog.Log
	Registry   *vfs.Registry
	Profiles   *vfs.Profiles
	Left       *panel.Panel
	Right      *panel.Panel
	Engine     *engine.Engine
	Dispatcher *agent.Dispatcher
	Metrics    *prometheus.Registry

	backends []vfs.Backend
	emitter  engine.EventEmitter
	server   *http.Server
}

// Option configures an App.
type Option func(*App)

// WithBackends replaces the default backend set.
func WithBackends(backends ...vfs.Backend) Option {
	return func(a *App) {
		a.backends = backends
	}
}

// WithEmitter forwards engine events to emitter.
func WithEmitter(emitter engine.EventEmitter) Option {
	return func(a *App) {
		a.emitter = emitter
	}
}

// DefaultBackends returns one instance of every built-in backend.
func DefaultBackends() []vfs.Backend {
	return []vfs.Backend{
		memory.New(),
		local.New(),
		sftp.New(),
		objectstore.New(),
		warehouse.New(),
	}
}

// New builds the application from cfg. Nothing is listed until Start.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.backends == nil {
		a.backends = DefaultBackends()
	}

	a.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(a.Metrics)

	a.Log = cmdlog.New(cfg.LogSize,
		cmdlog.WithLogger(logger.Named("cmdlog")),
		cmdlog.WithObserver(recorder.CommandLogSize))

	a.Registry = vfs.NewRegistry()
	for _, backend := range a.backends {
		if err := a.Registry.Register(backend); err != nil {
			return nil, fmt.Errorf("failed to register backend: %w", err)
		}
	}

	a.Registry.Freeze()

	profiles, err := vfs.NewProfiles(a.Registry, cfg.Profiles...)
	if err != nil {
		return nil, fmt.Errorf("invalid profiles: %w", err)
	}

	a.Profiles = profiles

	panelOpts := []panel.Option{
		panel.WithTimeout(cfg.Timeout),
		panel.WithLogger(logger.Named("panel")),
		panel.WithRecorder(recorder),
	}
	a.Left = panel.New(panel.SideLeft, profiles, append(panelOpts, panel.WithLocation(cfg.Left, vfs.Root))...)
	a.Right = panel.New(panel.SideRight, profiles, append(panelOpts, panel.WithLocation(cfg.Right, vfs.Root))...)

	engineOpts := []engine.Option{
		engine.WithLog(a.Log),
		engine.WithLogger(logger.Named("engine")),
		engine.WithRecorder(recorder),
		engine.WithTimeout(cfg.Timeout),
		engine.WithConcurrency(cfg.Workers),
	}
	if a.emitter != nil {
		engineOpts = append(engineOpts, engine.WithEmitter(a.emitter))
	}

	a.Engine = engine.New(profiles, engineOpts...)
	a.Dispatcher = agent.NewDispatcher(profiles, a.Engine,
		agent.WithLog(a.Log),
		agent.WithLogger(logger.Named("agent")),
		agent.WithPanes(a.Left, a.Right),
		agent.WithTimeout(cfg.Timeout))

	return a, nil
}

// Start lists both panes and, when configured, serves metrics. Listing failures are
// written to the command log.
func (a *App) Start(ctx context.Context) {
	a.Log.Infof(cmdlog.SourceSystem, "System initialized.")
	a.Log.Infof(cmdlog.SourceSystem, "Plugins loaded: %s.", a.pluginNames())

	for _, pane := range []*panel.Panel{a.Left, a.Right} {
		if _, err := pane.Refresh(ctx); err != nil {
			profileID, _ := pane.Location()
			a.Log.Errorf(cmdlog.SourceSystem, "Cannot open %s: %v", profileID, err)
		}
	}

	if a.Config.MetricsAddr != "" {
		a.serveMetrics()
	}
}

// Pane returns the panel on side.
func (a *App) Pane(side panel.Side) *panel.Panel {
	if side == panel.SideRight {
		return a.Right
	}

	return a.Left
}

// Close stops the metrics server and releases backend connections.
func (a *App) Close() error {
	var errs []error

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop metrics server: %w", err))
		}
	}

	for _, backend := range a.backends {
		if closer, ok := backend.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close %s backend: %w", backend.Metadata().ID, err))
			}
		}
	}

	return stderrors.Join(errs...)
}

func (a *App) serveMetrics() {
	a.server = &http.Server{
		Addr:              a.Config.MetricsAddr,
		Handler:           metrics.Handler(a.Metrics),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		a.Logger.Info("serving metrics", zap.String("addr", a.server.Addr))

		if err := a.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("metrics server failed", zap.Error(err))
			a.Log.Errorf(cmdlog.SourceSystem, "Metrics server failed: %v", err)
		}
	}()
}

func (a *App) pluginNames() string {
	all := a.Registry.All()

	names := make([]string, len(all))
	for i, meta := range all {
		names[i] = meta.DisplayName
	}

	return strings.Join(names, ", ")
}
