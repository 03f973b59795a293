package build

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/vk/distmake/internal/archive"
	"github.com/vk/distmake/internal/checksum"
	"github.com/vk/distmake/internal/ctxlog"
	"github.com/vk/distmake/internal/fetch"
	"github.com/vk/distmake/internal/fsutil"
	"github.com/vk/distmake/internal/manifest"
	"github.com/vk/distmake/internal/patch"
)

// pipeline carries one project through every stage. Each pipeline owns its
// result and work directory, so no locking is needed.
type pipeline struct {
	builder *Builder
	project *manifest.Project
	result  *ProjectResult
	opts    Options

	core   string
	server string
	langs  []string
	work   string
	depth  int
}

func (p *pipeline) run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Building project.", "destination", p.result.Destination)

	fetched, err := p.fetch(ctx)
	if err != nil {
		return p.fail(StageFetch, err)
	}
	p.result.Revision = fetched.Revision
	p.result.Version = p.project.Version
	if p.result.Version == "" {
		p.result.Version = fetched.Revision
	}

	steps := []struct {
		stage Stage
		fn    func(context.Context, *fetch.Result) error
	}{
		{StageChecksum, p.checksum},
		{StageExtract, p.extract},
		{StagePatch, p.patch},
		{StageTranslations, p.translations},
		{StageStamp, p.stamp},
		{StageRecursion, p.recurse},
		{StagePlace, p.place},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return p.fail(step.stage, err)
		}
		logger.Debug("Running stage.", "stage", step.stage)
		if err := step.fn(ctx, fetched); err != nil {
			return p.fail(step.stage, err)
		}
	}
	logger.Info("Project built.", "version", p.result.Version)
	return nil
}

func (p *pipeline) fail(stage Stage, err error) error {
	return &ProjectError{Project: p.project.Name, Stage: stage, Err: err}
}

func (p *pipeline) tree() string { return filepath.Join(p.work, "tree") }

func (p *pipeline) fetch(ctx context.Context) (*fetch.Result, error) {
	spec := p.project.Download
	if git, ok := spec.(manifest.GitSpec); ok {
		git.ReferenceCache = git.ReferenceCache && p.opts.UseReferenceCache
		git.WorkingCopy = git.WorkingCopy || p.opts.WorkingCopy
		spec = git
	}
	return p.builder.fetcher.Fetch(ctx, p.project.Name, spec, filepath.Join(p.work, "download"))
}

func (p *pipeline) checksum(ctx context.Context, fetched *fetch.Result) error {
	if len(p.project.Checksums) == 0 {
		return nil
	}
	if fetched.Artifact == "" {
		return ErrChecksumOnDirectory
	}
	err := checksum.Validate(fetched.Artifact, p.project.Checksums)
	var mismatch *checksum.MismatchError
	if err != nil && p.opts.IgnoreChecksums && errors.As(err, &mismatch) {
		ctxlog.FromContext(ctx).Warn("Ignoring checksum mismatch.", "error", err)
		p.result.Warnings = append(p.result.Warnings, err.Error())
		return nil
	}
	return err
}

// extract turns the fetched artifact or tree into the staging tree.
func (p *pipeline) extract(ctx context.Context, fetched *fetch.Result) error {
	if fetched.Artifact == "" {
		return fsutil.Move(fetched.Path, p.tree())
	}

	subtree, extract := "", true
	switch s := p.project.Download.(type) {
	case manifest.GetSpec:
		subtree, extract = s.Subtree, s.Extract
	case manifest.FileSpec:
		subtree, extract = s.Subtree, s.Extract
	}
	format, err := archive.Detect(fetched.Artifact)
	if err != nil {
		return err
	}
	if !extract || format == archive.FormatNone {
		ctxlog.FromContext(ctx).Debug("Keeping download as a single file.", "file", filepath.Base(fetched.Artifact))
		return fsutil.Move(fetched.Artifact, filepath.Join(p.tree(), filepath.Base(fetched.Artifact)))
	}
	files, err := archive.Extract(fetched.Artifact, archive.Options{Member: subtree, StripSingleRoot: subtree == ""}, p.tree())
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Archive extracted.", "format", format, "files", len(files))
	return nil
}

func (p *pipeline) patch(ctx context.Context, _ *fetch.Result) error {
	applied, err := p.builder.patches.Apply(ctx, p.tree(), p.project.Patches, patch.Options{
		WorkDir:         filepath.Join(p.work, "patches"),
		IgnoreChecksums: p.opts.IgnoreChecksums,
		WriteManifest:   p.opts.WritePatchManifest,
		Project:         p.project.Name,
	})
	p.result.Patches = applied
	return err
}

func (p *pipeline) stamp(ctx context.Context, _ *fetch.Result) error {
	if !p.opts.WriteInfoFiles || p.project.SkipInfoStamp || p.result.Version == "" {
		return nil
	}
	if _, git := p.project.Download.(manifest.GitSpec); git && p.opts.NoGitInfoFiles {
		return nil
	}
	files, err := p.builder.stamper.StampTree(ctx, p.tree(), p.project.Name, p.result.Version)
	if err != nil {
		return err
	}
	for _, f := range files {
		rel, err := filepath.Rel(p.tree(), f)
		if err != nil {
			return err
		}
		p.result.InfoFiles = append(p.result.InfoFiles, filepath.ToSlash(filepath.Join(p.result.Destination, rel)))
	}
	return nil
}

// place moves the finished staging tree into the build root.
func (p *pipeline) place(ctx context.Context, _ *fetch.Result) error {
	dest := filepath.Join(p.opts.Root, filepath.FromSlash(p.result.Destination))
	var err error
	if p.project.Type == manifest.TypeCore {
		err = fsutil.MoveContents(p.tree(), dest)
	} else {
		err = fsutil.Move(p.tree(), dest)
	}
	if err != nil {
		return &PlacementError{Project: p.project.Name, Destination: p.result.Destination, Err: err}
	}
	ctxlog.FromContext(ctx).Debug("Project placed.", "path", dest)
	return nil
}
