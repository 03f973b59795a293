// Package archive unpacks downloaded artifacts. Zip and tar archives are
// supported, the latter optionally wrapped in gzip, bzip2, xz, zstd or lz4.
package archive

import (
	"archive/tar"
	"bufio"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/vk/distmake/internal/fsutil"
)

var (
	// ErrUnsupported is returned for data that is not a recognised archive.
	ErrUnsupported = errors.New("unsupported archive format")
	// ErrUnsafePath is returned for an entry that would land outside the
	// destination directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")
	// ErrMemberNotFound is returned when the requested member is absent.
	ErrMemberNotFound = errors.New("archive member not found")
)

// Error reports a failure to unpack an archive.
type Error struct {
	Archive string
	Err     error
}

func (e *Error) Error() string { return fmt.Sprintf("extracting %s: %v", e.Archive, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Options controls what part of an archive ends up in the destination.
type Options struct {
	// Member selects a single file or directory inside the archive. A file
	// is written to dest under its base name; a directory has its contents
	// written directly into dest.
	Member string
	// StripSingleRoot unwraps an archive whose entries all live below one
	// top-level directory, as release tarballs usually do.
	StripSingleRoot bool
}

// Extract unpacks archivePath into destDir, which is created if needed, and
// returns the sorted slash-separated paths of the files written.
func Extract(archivePath string, opts Options, destDir string) ([]string, error) {
	files, err := extract(archivePath, opts, destDir)
	if err != nil {
		return nil, &Error{Archive: archivePath, Err: err}
	}
	return files, nil
}

func extract(archivePath string, opts Options, destDir string) ([]string, error) {
	format, err := Detect(archivePath)
	if err != nil {
		return nil, err
	}
	if format == FormatNone {
		return nil, ErrUnsupported
	}

	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return nil, err
	}
	scratch, err := os.MkdirTemp(filepath.Dir(destDir), ".extract-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	w, err := newWriter(scratch)
	if err != nil {
		return nil, err
	}
	defer w.close()
	if format == FormatZip {
		err = extractZip(archivePath, w)
	} else {
		err = extractStream(archivePath, format, w)
	}
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	if err := place(scratch, opts, destDir); err != nil {
		return nil, err
	}
	return fsutil.ListFiles(destDir)
}

func place(scratch string, opts Options, destDir string) error {
	if opts.Member != "" {
		member := path.Clean(strings.Trim(filepath.ToSlash(opts.Member), "/"))
		if member == "." || member == ".." || strings.HasPrefix(member, "../") {
			return fmt.Errorf("%w: %s", ErrUnsafePath, opts.Member)
		}
		src := filepath.Join(scratch, filepath.FromSlash(member))
		if err := memberInside(scratch, src); err != nil {
			return err
		}
		info, err := os.Lstat(src)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMemberNotFound, opts.Member)
		}
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fsutil.MoveContents(src, destDir)
		}
		return fsutil.Move(src, filepath.Join(destDir, path.Base(member)))
	}

	if opts.StripSingleRoot {
		entries, err := os.ReadDir(scratch)
		if err != nil {
			return err
		}
		if len(entries) == 1 && entries[0].IsDir() {
			return fsutil.MoveContents(filepath.Join(scratch, entries[0].Name()), destDir)
		}
	}
	return fsutil.MoveContents(scratch, destDir)
}

// memberInside rejects a member reached through a symlink pointing out of
// the scratch directory.
func memberInside(scratch, src string) error {
	root, err := filepath.EvalSymlinks(scratch)
	if err != nil {
		return err
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(src))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(root, parent)
	if err != nil || rel == ".." || strings.HasPrefix(filepath.ToSlash(rel), "../") {
		return fmt.Errorf("%w: member %s", ErrUnsafePath, src)
	}
	return nil
}

// entryName cleans an entry name to a slash path relative to the archive
// root, rejecting absolute names and names that climb out of it. The root
// entry itself yields "".
func entryName(name string) (string, error) {
	slashed := filepath.ToSlash(name)
	clean := path.Clean(slashed)
	if path.IsAbs(slashed) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

func decompressor(format Format, r io.Reader) (io.Reader, func(), error) {
	noop := func() {}
	switch format {
	case FormatTar:
		return r, noop, nil
	case FormatGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	case FormatBzip2:
		return bzip2.NewReader(r), noop, nil
	case FormatXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, noop, nil
	case FormatZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case FormatLz4:
		return lz4.NewReader(r), noop, nil
	default:
		return nil, nil, ErrUnsupported
	}
}

// extractStream handles tar, compressed tar, and single compressed files.
func extractStream(archivePath string, format Format, w *writer) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	r, closeFn, err := decompressor(format, f)
	if err != nil {
		return err
	}
	defer closeFn()

	br := bufio.NewReaderSize(r, sniffLen)
	head, _ := br.Peek(sniffLen)
	if format == FormatTar || isTar(head) {
		return extractTar(br, w)
	}
	// A lone compressed file, e.g. module.info.gz.
	return w.file(strippedName(archivePath), br, 0o644)
}

func strippedName(archivePath string) string {
	base := filepath.Base(archivePath)
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case ".gz", ".bz2", ".xz", ".zst", ".lz4":
		return strings.TrimSuffix(base, ext)
	}
	return base + ".out"
}

func extractTar(r io.Reader, w *writer) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		name, err := entryName(hdr.Name)
		if err != nil {
			return err
		}
		if name == "" {
			continue
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			err = w.mkdirAll(name)
		case tar.TypeReg:
			err = w.file(name, tr, hdr.FileInfo().Mode())
		case tar.TypeSymlink:
			err = w.symlink(name, hdr.Linkname)
		default:
			// Hard links, devices and pax metadata carry nothing a build needs.
		}
		if err != nil {
			return err
		}
	}
}

func extractZip(archivePath string, w *writer) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, zf := range zr.File {
		name, err := entryName(zf.Name)
		if err != nil {
			return err
		}
		if name == "" {
			continue
		}
		if zf.FileInfo().IsDir() {
			if err := w.mkdirAll(name); err != nil {
				return err
			}
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return err
		}
		if zf.Mode()&os.ModeSymlink != 0 {
			link, readErr := io.ReadAll(rc)
			rc.Close()
			if readErr != nil {
				return readErr
			}
			if err := w.symlink(name, string(link)); err != nil {
				return err
			}
			continue
		}
		err = w.file(name, rc, zf.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
