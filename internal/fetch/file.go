package fetch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/distmake/internal/fsutil"
	"github.com/vk/distmake/internal/manifest"
)

func (d *Dispatcher) file(spec manifest.FileSpec, destDir string) (*Result, error) {
	src := strings.TrimPrefix(spec.Path, "file://")
	info, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		if err := fsutil.CopyTree(src, destDir); err != nil {
			return nil, err
		}
		return &Result{Path: destDir}, nil
	}
	target := filepath.Join(destDir, filepath.Base(src))
	if err := fsutil.CopyFile(src, target); err != nil {
		return nil, err
	}
	return &Result{Artifact: target}, nil
}
