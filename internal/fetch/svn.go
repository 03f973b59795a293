package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/distmake/internal/manifest"
)

func (d *Dispatcher) svn(ctx context.Context, spec manifest.SvnSpec, destDir string) (*Result, error) {
	args := []string{"info", "--non-interactive", "--show-item", "revision"}
	if spec.Ref != "" {
		args = append(args, "-r", spec.Ref)
	}
	args = append(args, spec.URL)
	out, err := d.runner.Run(ctx, "", "svn", args...)
	if err != nil {
		return nil, err
	}
	rev := strings.TrimSpace(out)
	if rev == "" {
		return nil, fmt.Errorf("svn reported no revision for %s", spec.URL)
	}

	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return nil, err
	}
	if _, err := d.runner.Run(ctx, "", "svn", "export", "--non-interactive", "--force", "-r", rev, spec.URL, destDir); err != nil {
		return nil, err
	}
	return &Result{Path: destDir, Revision: "r" + rev}, nil
}
