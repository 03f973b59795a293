// Package patch fetches and applies a project's patches in manifest order.
package patch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio"
	"github.com/vk/distmake/internal/checksum"
	"github.com/vk/distmake/internal/ctxlog"
	"github.com/vk/distmake/internal/fetch"
	"github.com/vk/distmake/internal/manifest"
	"golang.org/x/sync/errgroup"
)

// ManifestFile is written at the project root to list applied patches.
const ManifestFile = "PATCHES.txt"

// Error reports a patch that could not be fetched, validated or applied.
type Error struct {
	Patch string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("patch %s: %v", e.Patch, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Fetcher retrieves a patch file.
type Fetcher interface {
	Fetch(ctx context.Context, name string, spec manifest.DownloadSpec, destDir string) (*fetch.Result, error)
}

// Applier applies one patch file to the tree at dir.
type Applier interface {
	Apply(ctx context.Context, dir, patchFile string) error
}

// Options controls a run of the engine.
type Options struct {
	// WorkDir receives the downloaded patch files.
	WorkDir         string
	IgnoreChecksums bool
	// WriteManifest writes PATCHES.txt after a successful run.
	WriteManifest bool
	// Project names the owner of the patches in logs and downloads.
	Project string
}

// Engine fetches patches concurrently and applies them sequentially.
type Engine struct {
	fetcher Fetcher
	applier Applier
}

// NewEngine creates an engine.
func NewEngine(fetcher Fetcher, applier Applier) *Engine {
	return &Engine{fetcher: fetcher, applier: applier}
}

// Apply patches the tree and returns the declared names of the applied
// patches in application order. The first failing patch stops the run.
func (e *Engine) Apply(ctx context.Context, tree string, patches []manifest.Patch, opts Options) ([]string, error) {
	if len(patches) == 0 {
		return nil, nil
	}
	logger := ctxlog.FromContext(ctx)

	files := make([]string, len(patches))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range patches {
		g.Go(func() error {
			path, err := e.download(gctx, p, filepath.Join(opts.WorkDir, strconv.Itoa(i)), opts)
			if err != nil {
				return &Error{Patch: p.Name, Err: err}
			}
			files[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(patches))
	for i, p := range patches {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := e.applier.Apply(ctx, tree, files[i]); err != nil {
			return applied, &Error{Patch: p.Name, Err: err}
		}
		logger.Info("Patch applied.", "patch", p.Name)
		applied = append(applied, p.Name)
	}

	if opts.WriteManifest {
		if err := WriteManifest(tree, applied); err != nil {
			return applied, err
		}
	}
	return applied, nil
}

func (e *Engine) download(ctx context.Context, p manifest.Patch, dir string, opts Options) (string, error) {
	var spec manifest.DownloadSpec = manifest.FileSpec{Path: p.Source}
	if strings.HasPrefix(p.Source, "http://") || strings.HasPrefix(p.Source, "https://") {
		spec = manifest.GetSpec{URL: p.Source}
	}
	res, err := e.fetcher.Fetch(ctx, opts.Project, spec, dir)
	if err != nil {
		return "", err
	}
	if res.Artifact == "" {
		return "", errors.New("patch source is a directory")
	}

	if err := checksum.Validate(res.Artifact, p.Checksums); err != nil {
		var mismatch *checksum.MismatchError
		if !opts.IgnoreChecksums || !errors.As(err, &mismatch) {
			return "", err
		}
		ctxlog.FromContext(ctx).Warn("Ignoring patch checksum mismatch.", "patch", p.Name, "error", err)
	}
	return res.Artifact, nil
}

// WriteManifest writes PATCHES.txt into dir listing names in order.
func WriteManifest(dir string, names []string) error {
	var b strings.Builder
	b.WriteString("The following patches have been applied to this project:\n")
	for _, n := range names {
		b.WriteString("- " + n + "\n")
	}
	b.WriteString("\nThis file was automatically generated by distmake.\n")
	return renameio.WriteFile(filepath.Join(dir, ManifestFile), []byte(b.String()), 0o644)
}
