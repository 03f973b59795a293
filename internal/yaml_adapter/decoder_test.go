package yaml_adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/distmake/internal/manifest"
)

func TestDecode_YAML(t *testing.T) {
	// --- Arrange ---
	src := `
core: 7.x
api: 2
projects:
  views:
    version: 3.10
    download:
      type: get
      url: https://example.com/views.tgz
      checksums:
        sha1: abc
    patches:
      - https://example.com/a.patch
      - url: b.patch
        checksums: {md5: def}
  ctools:
`

	// --- Act ---
	doc, err := NewDecoder().Decode(context.Background(), "m.yml", []byte(src))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "7.x", *doc.Core)
	require.Len(t, doc.Projects, 2)
	views := doc.Projects[0]
	assert.Equal(t, "views", views.Name)
	assert.Equal(t, "3.10", *views.Version, "scalars keep their literal text")
	assert.Equal(t, map[string]string{"sha1": "abc"}, views.Download.Checksums)
	assert.Equal(t, []manifest.PatchDecl{
		{Location: "https://example.com/a.patch"},
		{Location: "b.patch", Checksums: map[string]string{"md5": "def"}},
	}, *views.Patches)
	assert.Equal(t, "ctools", doc.Projects[1].Name)
	assert.Nil(t, doc.Projects[1].Download)
}

func TestDecode_JSONWithComments(t *testing.T) {
	src := `{
  // core version
  "core": "7.x",
  "projects": {
    "views": {"download": {"url": "https://example.com/v.tgz"},},
  },
}`
	doc, err := NewDecoder().Decode(context.Background(), "m.json", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "7.x", *doc.Core)
	assert.Equal(t, "https://example.com/v.tgz", doc.Projects[0].Download.URL)
}

func TestDecode_UnknownFields(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		project string
		field   string
	}{
		{name: "root", src: "colour: blue\n", field: "colour"},
		{name: "defaults", src: "defaults: {color: x}\n", field: "defaults.color"},
		{name: "project", src: "projects:\n  p:\n    flavour: x\n", project: "p", field: "flavour"},
		{name: "download", src: "projects:\n  p:\n    download: {mirror: x}\n", project: "p", field: "download.mirror"},
		{name: "patch", src: "projects:\n  p:\n    patches:\n      - {url: a, level: 1}\n", project: "p", field: "patches.level"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDecoder().Decode(context.Background(), "m.yml", []byte(tc.src))
			var perr *manifest.ParseError
			require.ErrorAs(t, err, &perr)
			assert.ErrorIs(t, err, manifest.ErrUnknownField)
			assert.Equal(t, tc.project, perr.Project)
			assert.Equal(t, tc.field, perr.Field)
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	doc, err := NewDecoder().Decode(context.Background(), "m.yml", nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Projects)
}
