package manifest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/distmake/internal/hcl_adapter"
	"github.com/vk/distmake/internal/manifest"
	"github.com/vk/distmake/internal/yaml_adapter"
)

func newParser() *manifest.Parser {
	return manifest.NewParser(nil, hcl_adapter.NewDecoder(), yaml_adapter.NewDecoder())
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestParse_IncludeOverridesOnlyDeclaredFields(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"base.yml": `
core: 7.x
projects:
  views:
    version: "3.1"
    subdir: contrib
    download:
      url: https://example.com/views-7.x-3.1.tar.gz
    patches:
      - fix.patch
  ctools:
    version: "1.4"
`,
		"main.hcl": `
includes = ["base.yml"]

project "views" {
  version = "3.2"
}
`,
	})

	// --- Act ---
	m, err := newParser().Parse(context.Background(), filepath.Join(dir, "main.hcl"))

	// --- Assert ---
	require.Error(t, err, "ctools has no download")
	var perr *manifest.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "ctools", perr.Project)
	assert.Equal(t, "download", perr.Field)
	assert.Nil(t, m)

	writeFiles(t, dir, map[string]string{"base.yml": `
core: 7.x
projects:
  views:
    version: "3.1"
    subdir: contrib
    download:
      url: https://example.com/views-7.x-3.1.tar.gz
    patches:
      - fix.patch
`})
	m, err = newParser().Parse(context.Background(), filepath.Join(dir, "main.hcl"))
	require.NoError(t, err)

	views := m.Project("views")
	require.NotNil(t, views)
	assert.Equal(t, "7.x", m.Core)
	assert.Equal(t, "3.2", views.Version)
	assert.Equal(t, "contrib", views.Subdir, "fields the override does not name are kept")
	assert.Equal(t, manifest.GetSpec{URL: "https://example.com/views-7.x-3.1.tar.gz", Extract: true}, views.Download)
	require.Len(t, views.Patches, 1)
	assert.Equal(t, "fix.patch", views.Patches[0].Name)
	assert.Equal(t, filepath.Join(dir, "fix.patch"), views.Patches[0].Source)
	assert.Equal(t, filepath.Join(dir, "main.hcl"), views.Source)
}

func TestParse_LaterIncludeWins(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.yml": "projects:\n  p:\n    version: a\n    download: {url: https://example.com/p.tgz}\n",
		"b.yml": "projects:\n  p:\n    version: b\n",
		"main.yml": "includes: [a.yml, b.yml]\n",
	})

	m, err := newParser().Parse(context.Background(), filepath.Join(dir, "main.yml"))
	require.NoError(t, err)
	assert.Equal(t, "b", m.Project("p").Version)
}

func TestParse_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.yml": "includes: [sub/b.yml]\n",
		"sub/b.yml": "includes: [../a.yml]\n",
	})

	_, err := newParser().Parse(context.Background(), filepath.Join(dir, "a.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, manifest.ErrIncludeCycle))
	var perr *manifest.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParse_SelfInclude(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"self.hcl": `includes = ["self.hcl"]`})

	_, err := newParser().Parse(context.Background(), filepath.Join(dir, "self.hcl"))
	assert.ErrorIs(t, err, manifest.ErrIncludeCycle)
}

func TestParse_DiamondIncludeIsNotACycle(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"common.yml": "projects:\n  p:\n    download: {url: https://example.com/p.tgz}\n",
		"a.yml":      "includes: [common.yml]\n",
		"b.yml":      "includes: [common.yml]\n",
		"main.yml":   "includes: [a.yml, b.yml]\n",
	})

	m, err := newParser().Parse(context.Background(), filepath.Join(dir, "main.yml"))
	require.NoError(t, err)
	assert.Len(t, m.Projects, 1)
}

func TestParse_RemoteInclude(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/make/main.yml":
			_, _ = w.Write([]byte("includes: [extra.yml]\nprojects:\n  a:\n    download: {url: https://example.com/a.tgz}\n    patches: [a.patch]\n"))
		case "/make/extra.yml":
			_, _ = w.Write([]byte("projects:\n  b:\n    download: {url: https://example.com/b.tgz}\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	m, err := manifest.NewParser(srv.Client(), hcl_adapter.NewDecoder(), yaml_adapter.NewDecoder()).
		Parse(context.Background(), srv.URL+"/make/main.yml")
	require.NoError(t, err)

	names := []string{}
	for _, p := range m.Projects {
		names = append(names, p.Name)
	}
	assert.Empty(t, cmp.Diff([]string{"b", "a"}, names))
	assert.Equal(t, srv.URL+"/make/a.patch", m.Project("a").Patches[0].Source)
	assert.Equal(t, "a.patch", m.Project("a").Patches[0].Name)
}

func TestParse_RemoteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newParser().Parse(context.Background(), srv.URL+"/missing.yml")
	var perr *manifest.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "404")
}

func TestParse_Defaults(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"m.hcl": `
core = "7.x"

defaults {
  subdir = "contrib"
}

project "views" {
  version = "${core}-3.1"
  download "get" {
    url = "https://example.com/views.tgz"
  }
}

project "custom" {
  subdir = "custom"
  download "git" {
    url    = "https://example.com/custom.git"
    branch = "main"
  }
}
`})

	m, err := newParser().Parse(context.Background(), filepath.Join(dir, "m.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "contrib", m.Project("views").Subdir)
	assert.Equal(t, "7.x-3.1", m.Project("views").Version)
	assert.Equal(t, "custom", m.Project("custom").Subdir)
	assert.Equal(t, manifest.GitSpec{URL: "https://example.com/custom.git", Ref: "main", ReferenceCache: true}, m.Project("custom").Download)
	assert.Equal(t, manifest.TypeModule, m.Project("custom").Type)
	assert.Equal(t, manifest.DefaultTranslationServer, m.TranslationServer)
}

func TestParse_FileDownloadResolvedAgainstManifest(t *testing.T) {
	testCases := []struct {
		name     string
		download string
	}{
		{"path", "{type: file, path: ../src/local}"},
		{"url", "{type: file, url: ../src/local}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			dir := t.TempDir()
			writeFiles(t, dir, map[string]string{"nested/m.yml": "projects:\n  local:\n    download: " + tc.download + "\n"})

			// --- Act ---
			m, err := newParser().Parse(context.Background(), filepath.Join(dir, "nested", "m.yml"))

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, manifest.FileSpec{Path: filepath.Join(dir, "src", "local"), Extract: true}, m.Project("local").Download)
		})
	}
}

func TestParse_DuplicateProjectInOneDocument(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"m.hcl": `
project "a" {
  download "get" { url = "https://example.com/a.tgz" }
}
project "a" {
  download "get" { url = "https://example.com/a.tgz" }
}
`})

	_, err := newParser().Parse(context.Background(), filepath.Join(dir, "m.hcl"))
	assert.ErrorIs(t, err, manifest.ErrInvalidValue)
}
