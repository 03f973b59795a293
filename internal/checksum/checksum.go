// Package checksum validates downloaded artifacts against declared digests.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/vk/distmake/internal/manifest"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// ErrUnsupported is returned for an algorithm name this package does not know.
var ErrUnsupported = errors.New("unsupported checksum algorithm")

// MismatchError reports an artifact whose digest matches none of the
// declared checksums.
type MismatchError struct {
	Path     string
	Expected []manifest.Checksum
	// Actual maps each checked algorithm to the digest that was computed.
	Actual map[string]string
}

func (e *MismatchError) Error() string {
	parts := make([]string, 0, len(e.Expected))
	for _, c := range e.Expected {
		parts = append(parts, fmt.Sprintf("%s expected %s got %s", c.Algorithm, c.Value, e.Actual[c.Algorithm]))
	}
	return fmt.Sprintf("checksum mismatch for %s: %s", e.Path, strings.Join(parts, "; "))
}

// New returns a fresh hash for a canonical algorithm name.
func New(algorithm string) (hash.Hash, error) {
	switch manifest.NormalizeAlgorithm(algorithm) {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	case "blake2b-256":
		return blake2b.New256(nil)
	case "blake3":
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, algorithm)
	}
}

// Sum computes the hex digest of the file at path.
func Sum(path, algorithm string) (string, error) {
	sums, err := File(path, algorithm)
	if err != nil {
		return "", err
	}
	return sums[manifest.NormalizeAlgorithm(algorithm)], nil
}

// File computes the hex digests of the file at path for every given
// algorithm, reading the file once.
func File(path string, algorithms ...string) (map[string]string, error) {
	hashes := make(map[string]hash.Hash, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms))
	for _, alg := range algorithms {
		alg = manifest.NormalizeAlgorithm(alg)
		if _, ok := hashes[alg]; ok {
			continue
		}
		h, err := New(alg)
		if err != nil {
			return nil, err
		}
		hashes[alg] = h
		writers = append(writers, h)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(io.MultiWriter(writers...), f); err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}

	sums := make(map[string]string, len(hashes))
	for alg, h := range hashes {
		sums[alg] = hex.EncodeToString(h.Sum(nil))
	}
	return sums, nil
}

// Validate checks the file at path against the declared checksums, trying
// them in the order given. The first match passes. An empty list passes
// without reading the file.
func Validate(path string, expected []manifest.Checksum) error {
	if len(expected) == 0 {
		return nil
	}
	algs := make([]string, 0, len(expected))
	for _, c := range expected {
		algs = append(algs, c.Algorithm)
	}
	actual, err := File(path, algs...)
	if err != nil {
		return err
	}
	for _, c := range expected {
		if strings.EqualFold(actual[manifest.NormalizeAlgorithm(c.Algorithm)], strings.TrimSpace(c.Value)) {
			return nil
		}
	}
	return &MismatchError{Path: path, Expected: expected, Actual: actual}
}
