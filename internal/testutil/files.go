package testutil

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// WriteFiles creates every file of the map below dir, creating parents.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// ReadFile returns the content of a file, failing the test if it is missing.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// Compression selects the wrapper Tarball puts around the tar stream.
type Compression string

const (
	NoCompression Compression = ""
	Gzip          Compression = "gz"
	Xz            Compression = "xz"
	Zstd          Compression = "zst"
	Lz4           Compression = "lz4"
)

// Entry is one archive member. A non-empty Link makes it a symlink.
type Entry struct {
	Name string
	Body string
	Link string
}

// Tarball writes a tar archive holding files (slash paths to content),
// wrapped in the requested compression, and returns its bytes.
func Tarball(t *testing.T, c Compression, files map[string]string) []byte {
	t.Helper()
	return TarEntries(t, c, sortedEntries(files))
}

// TarEntries writes a tar archive holding entries in the given order.
func TarEntries(t *testing.T, c Compression, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	var w io.Writer = &buf
	var closer io.Closer
	switch c {
	case Gzip:
		zw := gzip.NewWriter(&buf)
		w, closer = zw, zw
	case Xz:
		xw, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		w, closer = xw, xw
	case Zstd:
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		w, closer = zw, zw
	case Lz4:
		lw := lz4.NewWriter(&buf)
		w, closer = lw, lw
	}

	tw := tar.NewWriter(w)
	for _, e := range entries {
		if e.Link != "" {
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     e.Name,
				Linkname: e.Link,
				Mode:     0o777,
				Typeflag: tar.TypeSymlink,
			}))
			continue
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.Name,
			Mode:     0o644,
			Size:     int64(len(e.Body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(e.Body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	if closer != nil {
		require.NoError(t, closer.Close())
	}
	return buf.Bytes()
}

// ZipArchive returns the bytes of a zip archive holding files.
func ZipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	return ZipEntries(t, sortedEntries(files))
}

// ZipEntries returns the bytes of a zip archive holding entries in the
// given order.
func ZipEntries(t *testing.T, entries []Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		body := e.Body
		if e.Link != "" {
			hdr.SetMode(os.ModeSymlink | 0o777)
			body = e.Link
		} else {
			hdr.SetMode(0o644)
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sortedEntries(files map[string]string) []Entry {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Name: k, Body: files[k]})
	}
	return entries
}
