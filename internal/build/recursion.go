package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/distmake/internal/ctxlog"
	"github.com/vk/distmake/internal/fetch"
	"github.com/vk/distmake/internal/manifest"
)

// maxRecursionDepth bounds how deep nested manifests may go.
const maxRecursionDepth = 8

// nestedManifestExts are tried in order after the project name.
var nestedManifestExts = []string{".make", ".make.hcl", ".make.yml", ".make.yaml", ".make.json"}

// ErrRecursionTooDeep is returned when nested manifests exceed
// maxRecursionDepth levels.
var ErrRecursionTooDeep = errors.New("nested manifests are too deep")

// ManifestLoader parses a manifest file. *manifest.Parser satisfies it.
type ManifestLoader interface {
	Parse(ctx context.Context, location string) (*manifest.Manifest, error)
}

// nestedManifest returns the manifest shipped at the top of the project
// tree, or "" when there is none.
func (p *pipeline) nestedManifest() (string, error) {
	for _, ext := range nestedManifestExts {
		candidate := filepath.Join(p.tree(), p.project.Name+ext)
		info, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", nil
}

// recurse builds a manifest shipped inside the project into the project's
// own tree. Nested projects never include core and are placed relative to
// the project directory.
func (p *pipeline) recurse(ctx context.Context, _ *fetch.Result) error {
	if p.opts.NoRecursion || p.builder.loader == nil {
		return nil
	}
	location, err := p.nestedManifest()
	if err != nil || location == "" {
		return err
	}
	if p.depth >= maxRecursionDepth {
		return fmt.Errorf("%w: %s", ErrRecursionTooDeep, filepath.Base(location))
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("Building nested manifest.", "manifest", filepath.Base(location))
	sub, err := p.builder.loader.Parse(ctx, location)
	if err != nil {
		return fmt.Errorf("nested manifest %s: %w", filepath.Base(location), err)
	}

	opts := p.opts
	opts.Root = p.tree()
	opts.NoCore = true
	opts.ContribDestination = "."
	res, err := p.builder.build(ctx, sub, opts, p.depth+1)
	if err != nil {
		return fmt.Errorf("nested manifest %s: %w", filepath.Base(location), err)
	}
	p.result.Nested = res.Projects
	if !res.Success {
		if err := res.Err(); err != nil {
			return fmt.Errorf("nested manifest %s: %w", filepath.Base(location), err)
		}
		return fmt.Errorf("nested manifest %s did not complete", filepath.Base(location))
	}
	return nil
}
