package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/distmake/internal/manifest"
)

const (
	helloMD5    = "5d41402abc4b2a76b9719d911017c592"
	helloSHA1   = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
	helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
)

func writeHello(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o644))
	return p
}

func TestFile(t *testing.T) {
	p := writeHello(t)

	sums, err := File(p, "md5", "sha1", "SHA256", "blake3", "blake2b_256")
	require.NoError(t, err)
	assert.Equal(t, helloMD5, sums["md5"])
	assert.Equal(t, helloSHA1, sums["sha1"])
	assert.Equal(t, helloSHA256, sums["sha256"])
	assert.Len(t, sums["blake3"], 64)
	assert.Len(t, sums["blake2b-256"], 64)
}

func TestValidate(t *testing.T) {
	p := writeHello(t)

	testCases := []struct {
		name     string
		expected []manifest.Checksum
		wantErr  bool
	}{
		{name: "no checksums", expected: nil},
		{name: "single match", expected: []manifest.Checksum{{Algorithm: "md5", Value: helloMD5}}},
		{name: "upper case digest", expected: []manifest.Checksum{{Algorithm: "sha1", Value: "AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D"}}},
		{
			name: "first mismatch then match",
			expected: []manifest.Checksum{
				{Algorithm: "md5", Value: "00000000000000000000000000000000"},
				{Algorithm: "sha256", Value: helloSHA256},
			},
		},
		{name: "mismatch", expected: []manifest.Checksum{{Algorithm: "md5", Value: "ffff"}}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(p, tc.expected)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			var mismatch *MismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, helloMD5, mismatch.Actual["md5"])
			assert.Contains(t, err.Error(), "ffff")
		})
	}
}

func TestSum(t *testing.T) {
	sum, err := Sum(writeHello(t), "SHA1")
	require.NoError(t, err)
	assert.Equal(t, helloSHA1, sum)
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New("crc32")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestValidate_MissingFile(t *testing.T) {
	err := Validate(filepath.Join(t.TempDir(), "nope"), []manifest.Checksum{{Algorithm: "md5", Value: helloMD5}})
	assert.Error(t, err)
}
