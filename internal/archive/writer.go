package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// writer creates archive entries below one directory. Regular files and
// directories go through an os.Root, so symlinks written by earlier entries
// can never carry a write outside it.
type writer struct {
	root *os.Root
	// real is the directory with every symlink resolved.
	real string
}

func newWriter(dir string) (*writer, error) {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(real)
	if err != nil {
		return nil, err
	}
	return &writer{root: root, real: real}, nil
}

func (w *writer) close() error { return w.root.Close() }

// mkdirAll creates the slash path name and its parents.
func (w *writer) mkdirAll(name string) error {
	if name == "." || name == "" {
		return nil
	}
	if err := w.mkdirAll(path.Dir(name)); err != nil {
		return err
	}
	err := w.root.Mkdir(filepath.FromSlash(name), 0o755)
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return w.unsafe(name, err)
	}
	return nil
}

func (w *writer) file(name string, r io.Reader, mode os.FileMode) error {
	if err := w.mkdirAll(path.Dir(name)); err != nil {
		return err
	}
	perm := os.FileMode(0o644)
	if mode&0o111 != 0 {
		perm = 0o755
	}
	out, err := w.root.OpenFile(filepath.FromSlash(name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return w.unsafe(name, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// symlink creates name -> linkname. The link is made in the real parent
// directory and its target, taken from there, must stay inside the root.
func (w *writer) symlink(name, linkname string) error {
	if err := w.mkdirAll(path.Dir(name)); err != nil {
		return err
	}
	parent, err := filepath.EvalSymlinks(filepath.Join(w.real, filepath.FromSlash(path.Dir(name))))
	if err != nil {
		return err
	}
	if !w.inside(parent) {
		return fmt.Errorf("%w: %s is reached through a symlink leaving the archive", ErrUnsafePath, name)
	}
	if climbsAfterDescending(linkname) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrUnsafePath, name, linkname)
	}
	resolved := linkname
	if !filepath.IsAbs(linkname) {
		resolved = filepath.Join(parent, linkname)
	}
	if !w.inside(resolved) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrUnsafePath, name, linkname)
	}
	return os.Symlink(linkname, filepath.Join(parent, path.Base(name)))
}

// climbsAfterDescending reports a link target such as "d/.." whose ".."
// would be taken relative to wherever the symlink d points, not lexically.
func climbsAfterDescending(linkname string) bool {
	descended := false
	for _, part := range strings.Split(filepath.ToSlash(linkname), "/") {
		switch part {
		case "", ".":
		case "..":
			if descended {
				return true
			}
		default:
			descended = true
		}
	}
	return false
}

func (w *writer) inside(p string) bool {
	rel, err := filepath.Rel(w.real, p)
	return err == nil && rel != ".." && !strings.HasPrefix(filepath.ToSlash(rel), "../")
}

// unsafe maps the escape errors of os.Root to ErrUnsafePath.
func (w *writer) unsafe(name string, err error) error {
	if strings.Contains(err.Error(), "escapes") {
		return fmt.Errorf("%w: %s: %v", ErrUnsafePath, name, err)
	}
	return err
}
