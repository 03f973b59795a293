package app

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/vk/distmake/internal/build"
	"github.com/vk/distmake/internal/ctxlog"
)

// Run parses the manifest, builds it and reports the outcome. A build in
// which any project did not complete is an error.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	m, err := a.parser.Parse(ctx, a.config.ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}
	a.logger.Info("Manifest loaded.", "source", m.Source, "projects", len(m.Projects))

	res, err := a.builder.Build(ctx, m, a.config.BuildOptions())
	if err != nil {
		return fmt.Errorf("failed to start build: %w", err)
	}
	a.report(res)

	if !res.Success {
		if err := res.Err(); err != nil {
			return fmt.Errorf("build failed: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("build interrupted: %w", err)
		}
		return errors.New("build failed")
	}

	if a.config.LockPath != "" {
		if err := WriteLock(a.config.LockPath, m, res); err != nil {
			return fmt.Errorf("failed to write lock file: %w", err)
		}
		a.logger.Info("Lock file written.", "path", a.config.LockPath)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// report prints one line per project and, on success, the fingerprint.
func (a *App) report(res *build.Result) {
	a.reportProjects(res.Projects, "")
	if res.Success {
		fmt.Fprintf(a.outW, "Build fingerprint: %s\n", res.Fingerprint)
	}
}

// reportProjects prints projects and, below each, the projects of its
// nested manifest with destinations joined to the parent's.
func (a *App) reportProjects(projects []build.ProjectResult, parent string) {
	for _, p := range projects {
		version := p.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(a.outW, "%-8s %-24s %-16s %s\n", p.Status, p.Name, version, path.Join(parent, p.Destination))
		for _, w := range p.Warnings {
			fmt.Fprintf(a.outW, "         warning: %s\n", w)
		}
		if p.Status == build.StatusFailed && p.Err != nil {
			fmt.Fprintf(a.outW, "         error: %v\n", p.Err)
		}
		a.reportProjects(p.Nested, path.Join(parent, p.Destination))
	}
}
