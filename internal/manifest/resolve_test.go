package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestResolve_Checksums(t *testing.T) {
	doc := &Document{Projects: []*ProjectDecl{{
		Name: "p",
		Download: &DownloadDecl{
			URL:       "https://example.com/p.tgz",
			Checksums: map[string]string{"SHA256": "AB", "md5": "cd", "blake2b_256": "ef"},
		},
	}}}

	m, err := Resolve(doc)
	require.NoError(t, err)
	assert.Equal(t, []Checksum{
		{Algorithm: "md5", Value: "cd"},
		{Algorithm: "sha256", Value: "ab"},
		{Algorithm: "blake2b-256", Value: "ef"},
	}, m.Projects[0].Checksums)
}

func TestResolve_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		decl  *ProjectDecl
		field string
	}{
		{
			name:  "unknown checksum algorithm",
			decl:  &ProjectDecl{Name: "p", Download: &DownloadDecl{URL: "u", Checksums: map[string]string{"crc32": "x"}}},
			field: "download.crc32",
		},
		{
			name:  "checksum on vcs download",
			decl:  &ProjectDecl{Name: "p", Download: &DownloadDecl{Type: "git", URL: "u", Checksums: map[string]string{"md5": "x"}}},
			field: "download.md5",
		},
		{
			name:  "two refs",
			decl:  &ProjectDecl{Name: "p", Download: &DownloadDecl{Type: "git", URL: "u", Branch: "a", Tag: "b"}},
			field: "download.revision",
		},
		{
			name:  "unknown project type",
			decl:  &ProjectDecl{Name: "p", Type: ptr("plugin"), Download: &DownloadDecl{URL: "u"}},
			field: "type",
		},
		{
			name:  "unknown download type",
			decl:  &ProjectDecl{Name: "p", Download: &DownloadDecl{Type: "cvs", URL: "u"}},
			field: "download.type",
		},
		{
			name:  "escaping destination",
			decl:  &ProjectDecl{Name: "p", Destination: ptr("../outside"), Download: &DownloadDecl{URL: "u"}},
			field: "destination",
		},
		{
			name:  "missing url",
			decl:  &ProjectDecl{Name: "p", Download: &DownloadDecl{Type: "svn"}},
			field: "download.url",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(&Document{Source: "m.yml", Projects: []*ProjectDecl{tc.decl}})
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "p", perr.Project)
			assert.Equal(t, tc.field, perr.Field)
			assert.True(t, errors.Is(err, ErrInvalidValue))
		})
	}
}

func TestResolve_PatchKeepsDeclaredName(t *testing.T) {
	doc := &Document{Projects: []*ProjectDecl{{
		Name:     "p",
		Download: &DownloadDecl{URL: "u"},
		Patches:  &[]PatchDecl{{Location: "patches/fix.diff", Resolved: "/abs/patches/fix.diff"}},
	}}}

	m, err := Resolve(doc)
	require.NoError(t, err)
	assert.Equal(t, Patch{Name: "patches/fix.diff", Source: "/abs/patches/fix.diff"}, m.Projects[0].Patches[0])
}

func TestMerge_DoesNotMutateTree(t *testing.T) {
	base := &Document{Source: "base", Projects: []*ProjectDecl{{Name: "p", Source: "base", Version: ptr("1")}}}
	top := &Document{Source: "top", Projects: []*ProjectDecl{{Name: "p", Source: "top", Version: ptr("2")}}}

	merged := Merge(&IncludeTree{Document: top, Includes: []*IncludeTree{{Document: base}}})

	assert.Equal(t, "2", *merged.Projects[0].Version)
	assert.Equal(t, "1", *base.Projects[0].Version)
	assert.Equal(t, "top", merged.Projects[0].Source)
}
