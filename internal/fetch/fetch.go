// Package fetch retrieves project sources. Each download kind of the
// manifest model has one backend; the Dispatcher selects it by type.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/distmake/internal/command"
	"github.com/vk/distmake/internal/ctxlog"
	"github.com/vk/distmake/internal/manifest"
)

// DefaultTimeout bounds a single HTTP download when no client is supplied.
const DefaultTimeout = 5 * time.Minute

// Error reports a failed retrieval.
type Error struct {
	Backend manifest.DownloadKind
	Source  string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s download of %s failed: %v", e.Backend, e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result describes what a backend produced.
type Result struct {
	// Path is the retrieved tree, for VCS checkouts and copied directories.
	Path string
	// Artifact is the retrieved single file, for HTTP and local file downloads.
	Artifact string
	// Revision labels the retrieved state: a short commit hash, "r<N>" for
	// Subversion, the revno for Bazaar. Empty for plain downloads.
	Revision string
}

// Dispatcher routes a download to its backend.
type Dispatcher struct {
	client *http.Client
	runner command.Runner
	cache  *RefCache
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient sets the client used by the get backend.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithRefCache enables the git reference cache.
func WithRefCache(c *RefCache) Option {
	return func(d *Dispatcher) { d.cache = c }
}

// NewDispatcher creates a dispatcher running external tools through runner.
func NewDispatcher(runner command.Runner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: &http.Client{Timeout: DefaultTimeout},
		runner: runner,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch retrieves spec for the named project into destDir, which must not
// exist yet. Every failure is returned as an *Error.
func (d *Dispatcher) Fetch(ctx context.Context, name string, spec manifest.DownloadSpec, destDir string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Fetching.", "backend", spec.Kind(), "source", spec.Location())

	var (
		res *Result
		err error
	)
	switch s := spec.(type) {
	case manifest.GetSpec:
		res, err = d.get(ctx, s, destDir)
	case manifest.FileSpec:
		res, err = d.file(s, destDir)
	case manifest.GitSpec:
		res, err = d.git(ctx, name, s, destDir)
	case manifest.SvnSpec:
		res, err = d.svn(ctx, s, destDir)
	case manifest.BzrSpec:
		res, err = d.bzr(ctx, s, destDir)
	default:
		err = fmt.Errorf("no backend for %T", spec)
	}
	if err != nil {
		return nil, &Error{Backend: spec.Kind(), Source: spec.Location(), Err: err}
	}
	logger.Debug("Fetched.", "backend", spec.Kind(), "revision", res.Revision)
	return res, nil
}
