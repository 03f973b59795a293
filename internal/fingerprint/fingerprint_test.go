package fingerprint

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/distmake/internal/testutil"
)

func tree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, files)
	return dir
}

func digest(t *testing.T, dir string, alg string) string {
	t.Helper()
	sum, err := Tree(dir, Options{Algorithm: alg})
	require.NoError(t, err)
	return sum
}

func TestTree_Deterministic(t *testing.T) {
	files := map[string]string{"a.txt": "a", "sub/b.txt": "b", "sub/deeper/c.txt": "c"}
	a := digest(t, tree(t, files), "")
	b := digest(t, tree(t, files), "")

	assert.Equal(t, a, b)
	assert.Len(t, a, 32, "md5 is the default")
	assert.Len(t, digest(t, tree(t, files), "blake3"), 64)
}

func TestTree_SensitiveToContentAndNames(t *testing.T) {
	base := digest(t, tree(t, map[string]string{"a.txt": "a"}), "")

	assert.NotEqual(t, base, digest(t, tree(t, map[string]string{"a.txt": "b"}), ""))
	assert.NotEqual(t, base, digest(t, tree(t, map[string]string{"b.txt": "a"}), ""))
	// Length prefixes keep path/content boundaries unambiguous.
	assert.NotEqual(t,
		digest(t, tree(t, map[string]string{"ab": "c"}), ""),
		digest(t, tree(t, map[string]string{"a": "bc"}), ""))
}

func TestTree_NormalisesLineEndingsAndStampDates(t *testing.T) {
	a := tree(t, map[string]string{
		"m/m.info": "name = M\r\n\n; Information added by distmake on 2026-10-15\nversion = \"1\"\n",
	})
	b := tree(t, map[string]string{
		"m/m.info": "name = M\n\n; Information added by distmake on 1999-01-01\nversion = \"1\"\n",
	})
	assert.Equal(t, digest(t, a, ""), digest(t, b, ""))
}

func TestTree_SkipsVCSMetadata(t *testing.T) {
	a := tree(t, map[string]string{"p/x": "1"})
	b := tree(t, map[string]string{"p/x": "1", "p/.git/HEAD": "ref: refs/heads/main"})
	assert.Equal(t, digest(t, a, ""), digest(t, b, ""))
}

func TestTree_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	a := tree(t, map[string]string{"x": "1"})
	b := tree(t, map[string]string{"x": "1"})
	require.NoError(t, os.Symlink("x", filepath.Join(a, "link")))
	require.NoError(t, os.Symlink("x", filepath.Join(b, "link")))
	assert.Equal(t, digest(t, a, ""), digest(t, b, ""))

	c := tree(t, map[string]string{"x": "1"})
	assert.NotEqual(t, digest(t, a, ""), digest(t, c, ""))
}

func TestTree_UnknownAlgorithm(t *testing.T) {
	_, err := Tree(t.TempDir(), Options{Algorithm: "crc32"})
	assert.Error(t, err)
}
