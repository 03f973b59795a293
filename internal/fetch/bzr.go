package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/distmake/internal/manifest"
)

func (d *Dispatcher) bzr(ctx context.Context, spec manifest.BzrSpec, destDir string) (*Result, error) {
	args := []string{"revno"}
	if spec.Ref != "" {
		args = append(args, "-r", spec.Ref)
	}
	args = append(args, spec.URL)
	out, err := d.runner.Run(ctx, "", "bzr", args...)
	if err != nil {
		return nil, err
	}
	revno := strings.TrimSpace(out)
	if revno == "" {
		return nil, fmt.Errorf("bzr reported no revno for %s", spec.URL)
	}

	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return nil, err
	}
	if _, err := d.runner.Run(ctx, "", "bzr", "export", "-r", "revno:"+revno, destDir, spec.URL); err != nil {
		return nil, err
	}
	return &Result{Path: destDir, Revision: revno}, nil
}
