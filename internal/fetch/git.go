package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/distmake/internal/ctxlog"
	"github.com/vk/distmake/internal/manifest"
)

// shortHashLen is the length of the revision label of a git checkout.
const shortHashLen = 7

func (d *Dispatcher) git(ctx context.Context, name string, spec manifest.GitSpec, destDir string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return nil, err
	}
	args := []string{"clone", "--quiet"}
	if spec.ReferenceCache && d.cache != nil {
		ref, err := d.cache.Ensure(ctx, name, spec.URL)
		if err != nil {
			logger.Warn("Git reference cache unavailable, cloning without it.", "error", err)
		} else {
			args = append(args, "--reference-if-able", ref, "--dissociate")
		}
	}
	args = append(args, spec.URL, destDir)
	if _, err := d.runner.Run(ctx, filepath.Dir(destDir), "git", args...); err != nil {
		return nil, err
	}

	if spec.Ref != "" {
		commit, err := d.resolveGitRef(ctx, destDir, spec.Ref)
		if err != nil {
			return nil, err
		}
		if _, err := d.runner.Run(ctx, destDir, "git", "checkout", "--quiet", "--detach", commit); err != nil {
			return nil, err
		}
	}

	out, err := d.runner.Run(ctx, destDir, "git", "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	head := strings.TrimSpace(out)
	if len(head) < shortHashLen {
		return nil, fmt.Errorf("unexpected rev-parse output %q", head)
	}

	if !spec.WorkingCopy {
		if err := os.RemoveAll(filepath.Join(destDir, ".git")); err != nil {
			return nil, err
		}
	}
	return &Result{Path: destDir, Revision: head[:shortHashLen]}, nil
}

// resolveGitRef turns a branch, tag or commit into a commit hash. Branches
// other than the default only exist as remote-tracking refs after a clone.
func (d *Dispatcher) resolveGitRef(ctx context.Context, repo, ref string) (string, error) {
	var lastErr error
	for _, candidate := range []string{ref, "origin/" + ref} {
		out, err := d.runner.Run(ctx, repo, "git", "rev-parse", "--verify", "--quiet", candidate+"^{commit}")
		if err == nil {
			return strings.TrimSpace(out), nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("unknown git ref %q: %w", ref, lastErr)
}
