package patch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/vk/distmake/internal/command"
	"github.com/vk/distmake/internal/ctxlog"
)

// stripLevels are the -p values tried, most common first.
var stripLevels = []int{1, 0, 2}

// CommandApplier applies patches with git apply, falling back to patch(1).
type CommandApplier struct {
	Runner command.Runner
}

// NewCommandApplier creates an applier running tools through r.
func NewCommandApplier(r command.Runner) *CommandApplier {
	return &CommandApplier{Runner: r}
}

// Apply implements Applier.
func (a *CommandApplier) Apply(ctx context.Context, dir, patchFile string) error {
	logger := ctxlog.FromContext(ctx)
	abs, err := filepath.Abs(patchFile)
	if err != nil {
		return err
	}

	var errs []error
	// --git-dir=. lets git apply work on a tree that is not a repository.
	for _, level := range stripLevels {
		p := "-p" + strconv.Itoa(level)
		_, err := a.Runner.Run(ctx, dir, "git", "--git-dir=.", "apply", p, abs)
		if err == nil {
			logger.Debug("Patch applied with git.", "patch", abs, "level", level)
			return nil
		}
		errs = append(errs, err)
	}
	for _, level := range stripLevels {
		p := "-p" + strconv.Itoa(level)
		if _, err := a.Runner.Run(ctx, dir, "patch", p, "--forward", "--batch", "--dry-run", "-i", abs); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := a.Runner.Run(ctx, dir, "patch", p, "--forward", "--batch", "--no-backup-if-mismatch", "-i", abs); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug("Patch applied with patch.", "patch", abs, "level", level)
		return nil
	}
	return fmt.Errorf("no strip level applies cleanly: %w", errors.Join(errs...))
}
