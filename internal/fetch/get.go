package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/vk/distmake/internal/manifest"
)

func (d *Dispatcher) get(ctx context.Context, spec manifest.GetSpec, destDir string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	name := safeBase(spec.Filename)
	if name == "" {
		name = responseFilename(resp)
	}
	if name == "" {
		name = urlFilename(spec.URL)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	target := filepath.Join(destDir, name)

	t, err := renameio.TempFile(destDir, target)
	if err != nil {
		return nil, err
	}
	defer t.Cleanup()
	if _, err := io.Copy(t, resp.Body); err != nil {
		return nil, err
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return nil, err
	}
	return &Result{Artifact: target}, nil
}

// responseFilename honours a Content-Disposition filename.
func responseFilename(resp *http.Response) string {
	cd := resp.Header.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	return safeBase(params["filename"])
}

func urlFilename(raw string) string {
	u, err := url.Parse(raw)
	if err == nil {
		if name := safeBase(u.Path); name != "" {
			return name
		}
	}
	return "download"
}

func safeBase(p string) string {
	name := path.Base(filepath.ToSlash(p))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
