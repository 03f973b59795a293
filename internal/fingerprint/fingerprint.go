// Package fingerprint computes a content digest of a built tree that is
// stable across runs, machines and scheduling orders.
package fingerprint

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/distmake/internal/checksum"
	"github.com/vk/distmake/internal/infofile"
)

// DefaultAlgorithm is used when Options.Algorithm is empty.
const DefaultAlgorithm = "md5"

// Options tunes the fingerprint.
type Options struct {
	// Algorithm is any checksum algorithm name; md5 and blake3 are the
	// ones offered on the command line.
	Algorithm string
}

type entry struct {
	rel  string
	path string
	mode fs.FileMode
}

// Tree digests every file and symlink below root. Entries are visited in
// sorted slash-path order; each contributes a kind tag, its length-prefixed
// path and its length-prefixed content (symlinks: their target). Line
// endings are normalised to LF and info file stamp dates are blanked.
// VCS metadata directories are skipped.
func Tree(root string, opts Options) (string, error) {
	alg := opts.Algorithm
	if alg == "" {
		alg = DefaultAlgorithm
	}
	h, err := checksum.New(alg)
	if err != nil {
		return "", err
	}

	var entries []entry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && isVCSDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, entry{rel: filepath.ToSlash(rel), path: path, mode: info.Mode()})
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	for _, e := range entries {
		if err := writeEntry(h, e); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeEntry(h hash.Hash, e entry) error {
	switch {
	case e.mode&fs.ModeSymlink != 0:
		target, err := os.Readlink(e.path)
		if err != nil {
			return err
		}
		writeField(h, []byte("l"))
		writeField(h, []byte(e.rel))
		writeField(h, []byte(filepath.ToSlash(target)))
	case e.mode.IsRegular():
		data, err := os.ReadFile(e.path)
		if err != nil {
			return err
		}
		data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
		if strings.HasSuffix(e.rel, infofile.Extension) {
			data = infofile.Canonical(data)
		}
		kind := "f"
		if e.mode&0o111 != 0 {
			kind = "x"
		}
		writeField(h, []byte(kind))
		writeField(h, []byte(e.rel))
		writeField(h, data)
	}
	return nil
}

func writeField(h hash.Hash, data []byte) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(data)))
	h.Write(size[:])
	h.Write(data)
}

func isVCSDir(name string) bool {
	switch name {
	case ".git", ".svn", ".bzr":
		return true
	}
	return false
}
