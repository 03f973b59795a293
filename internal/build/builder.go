package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/distmake/internal/ctxlog"
	"github.com/vk/distmake/internal/dag"
	"github.com/vk/distmake/internal/fetch"
	"github.com/vk/distmake/internal/fingerprint"
	"github.com/vk/distmake/internal/infofile"
	"github.com/vk/distmake/internal/manifest"
	"github.com/vk/distmake/internal/patch"
)

// Fetcher retrieves project sources, patches and translations.
type Fetcher interface {
	Fetch(ctx context.Context, name string, spec manifest.DownloadSpec, destDir string) (*fetch.Result, error)
}

// Builder assembles builds. It is safe for sequential reuse.
type Builder struct {
	fetcher Fetcher
	patches *patch.Engine
	stamper *infofile.Stamper
	loader  ManifestLoader
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithManifestLoader enables nested manifests: a project shipping
// <name>.make (or .make.hcl, .make.yml, .make.yaml, .make.json) at its top
// is built into its own tree.
func WithManifestLoader(l ManifestLoader) BuilderOption {
	return func(b *Builder) { b.loader = l }
}

// NewBuilder creates a builder.
func NewBuilder(fetcher Fetcher, applier patch.Applier, stamper *infofile.Stamper, opts ...BuilderOption) *Builder {
	b := &Builder{
		fetcher: fetcher,
		patches: patch.NewEngine(fetcher, applier),
		stamper: stamper,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build plans and executes the manifest. The error return covers problems
// that stop the build before any project runs; project failures are
// reported in the Result.
func (b *Builder) Build(ctx context.Context, m *manifest.Manifest, opts Options) (*Result, error) {
	return b.build(ctx, m, opts, 0)
}

// build runs one manifest; depth counts the enclosing nested manifests.
func (b *Builder) build(ctx context.Context, m *manifest.Manifest, opts Options, depth int) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	opts.Root = root

	plan, err := NewPlan(m, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	work, err := os.MkdirTemp(filepath.Dir(root), ".distmake-*")
	if err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(work)

	results := make(map[string]*ProjectResult, len(plan.Order))
	byName := make(map[string]*manifest.Project, len(plan.Order))
	for _, p := range plan.Order {
		results[p.Name] = &ProjectResult{Name: p.Name, Type: p.Type, Destination: plan.Destinations[p.Name], Status: StatusSkipped}
		byName[p.Name] = p
	}

	logger.Info("Starting build.", "root", root, "projects", len(plan.Order), "concurrency", opts.Concurrency)
	var execOpts []dag.ExecutorOption
	if opts.BestEffort {
		execOpts = append(execOpts, dag.ContinueOnError())
	}
	outcomes, err := dag.NewExecutor(plan.Graph, opts.Concurrency, execOpts...).Run(ctx, func(ctx context.Context, name string) error {
		p := &pipeline{
			builder: b,
			project: byName[name],
			result:  results[name],
			opts:    opts,
			core:    m.Core,
			server:  m.TranslationServer,
			langs:   m.Translations,
			work:    filepath.Join(work, name),
			depth:   depth,
		}
		return p.run(ctxlog.With(ctx, "project", name))
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Root: root, Success: true}
	for _, p := range plan.Order {
		pr := results[p.Name]
		o := outcomes[p.Name]
		pr.Err = o.Err
		switch {
		case o.State == dag.Done:
			pr.Status = StatusDone
		case o.State == dag.Failed && !errors.Is(o.Err, context.Canceled):
			pr.Status = StatusFailed
		default:
			pr.Status = StatusSkipped
		}
		if pr.Status != StatusDone {
			res.Success = false
		}
		res.Projects = append(res.Projects, *pr)
	}

	if !res.Success {
		logger.Error("Build failed.", "error", res.Err())
		return res, nil
	}
	res.Fingerprint, err = fingerprint.Tree(root, fingerprint.Options{Algorithm: opts.FingerprintAlgorithm})
	if err != nil {
		return nil, fmt.Errorf("computing fingerprint: %w", err)
	}
	logger.Info("Build complete.", "root", root, "fingerprint", res.Fingerprint)
	return res, nil
}
