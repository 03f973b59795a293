package app

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/distmake/internal/build"
	"github.com/vk/distmake/internal/clock"
	"github.com/vk/distmake/internal/command"
	"github.com/vk/distmake/internal/fetch"
	"github.com/vk/distmake/internal/hcl_adapter"
	"github.com/vk/distmake/internal/infofile"
	"github.com/vk/distmake/internal/manifest"
	"github.com/vk/distmake/internal/patch"
	"github.com/vk/distmake/internal/yaml_adapter"
)

// ToolName is written into info file stamps and PATCHES.txt.
const ToolName = "distmake"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	parser  *manifest.Parser
	builder *build.Builder
}

// Option customises the dependencies NewApp wires.
type Option func(*deps)

type deps struct {
	runner command.Runner
	clock  clock.Clock
}

// WithRunner replaces the runner used for git, svn, bzr and patch.
func WithRunner(r command.Runner) Option {
	return func(d *deps) { d.runner = r }
}

// WithClock replaces the clock used for info file stamps.
func WithClock(c clock.Clock) Option {
	return func(d *deps) { d.clock = c }
}

// NewApp creates an App. The build report is written to outW, log lines to
// logW.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	d := &deps{runner: &command.Exec{}, clock: clock.Real()}
	for _, opt := range opts {
		opt(d)
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	fetchOpts := []fetch.Option{fetch.WithHTTPClient(client)}
	if !cfg.NoCache {
		fetchOpts = append(fetchOpts, fetch.WithRefCache(fetch.NewRefCache(cfg.CacheDir, d.runner)))
		logger.Debug("Git reference cache enabled.", "dir", cfg.CacheDir)
	}
	dispatcher := fetch.NewDispatcher(d.runner, fetchOpts...)
	parser := manifest.NewParser(client, hcl_adapter.NewDecoder(), yaml_adapter.NewDecoder())
	builder := build.NewBuilder(dispatcher, patch.NewCommandApplier(d.runner), infofile.NewStamper(ToolName, d.clock),
		build.WithManifestLoader(parser))

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		parser:  parser,
		builder: builder,
	}
}
