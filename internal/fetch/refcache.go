package fetch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vk/distmake/internal/command"
	"github.com/vk/distmake/internal/ctxlog"
)

// RefCache keeps bare mirrors of git repositories that later clones borrow
// objects from. Entries live at <dir>/git/<project>-<md5(url)> and are never
// invalidated. Concurrent use of one entry is serialised; distinct entries
// are independent.
type RefCache struct {
	dir    string
	runner command.Runner

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRefCache creates a cache rooted at dir.
func NewRefCache(dir string, runner command.Runner) *RefCache {
	return &RefCache{dir: dir, runner: runner, locks: make(map[string]*sync.Mutex)}
}

// Path returns the mirror location for a project's repository.
func (c *RefCache) Path(project, url string) string {
	sum := md5.Sum([]byte(url))
	return filepath.Join(c.dir, "git", project+"-"+hex.EncodeToString(sum[:]))
}

func (c *RefCache) lock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

// Ensure creates or refreshes the mirror and returns its path.
func (c *RefCache) Ensure(ctx context.Context, project, url string) (string, error) {
	p := c.Path(project, url)
	l := c.lock(p)
	l.Lock()
	defer l.Unlock()

	logger := ctxlog.FromContext(ctx)
	_, err := os.Stat(p)
	switch {
	case err == nil:
		logger.Debug("Refreshing git reference cache.", "path", p)
		if _, err := c.runner.Run(ctx, p, "git", "remote", "update", "--prune"); err != nil {
			return "", err
		}
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("Creating git reference cache.", "path", p)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", err
		}
		if _, err := c.runner.Run(ctx, filepath.Dir(p), "git", "clone", "--quiet", "--mirror", url, p); err != nil {
			os.RemoveAll(p)
			return "", err
		}
	default:
		return "", err
	}
	return p, nil
}
