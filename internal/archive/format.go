package archive

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// Format identifies an archive or compression container.
type Format string

const (
	FormatNone  Format = ""
	FormatZip   Format = "zip"
	FormatTar   Format = "tar"
	FormatGzip  Format = "gzip"
	FormatBzip2 Format = "bzip2"
	FormatXz    Format = "xz"
	FormatZstd  Format = "zstd"
	FormatLz4   Format = "lz4"
)

var magics = []struct {
	format Format
	magic  []byte
}{
	{FormatZip, []byte("PK\x03\x04")},
	{FormatZip, []byte("PK\x05\x06")},
	{FormatGzip, []byte{0x1f, 0x8b}},
	{FormatBzip2, []byte("BZh")},
	{FormatXz, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{FormatZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{FormatLz4, []byte{0x04, 0x22, 0x4d, 0x18}},
}

// tarMagicOffset is where the "ustar" marker sits in a tar header block.
const tarMagicOffset = 257

// sniffLen covers every magic number above plus the tar marker.
const sniffLen = tarMagicOffset + 8

// DetectBytes identifies the format of a stream from its leading bytes.
// FormatNone means the data is not a recognised archive.
func DetectBytes(head []byte) Format {
	for _, m := range magics {
		if bytes.HasPrefix(head, m.magic) {
			return m.format
		}
	}
	if isTar(head) {
		return FormatTar
	}
	return FormatNone
}

func isTar(head []byte) bool {
	return len(head) >= tarMagicOffset+5 && bytes.Equal(head[tarMagicOffset:tarMagicOffset+5], []byte("ustar"))
}

// Detect reads the head of the file at path and identifies its format.
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatNone, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatNone, err
	}
	return DetectBytes(head[:n]), nil
}
