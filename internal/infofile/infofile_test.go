package infofile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/distmake/internal/clock"
	"github.com/vk/distmake/internal/testutil"
)

func newStamper() *Stamper {
	return NewStamper("distmake", clock.Fixed(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)))
}

func TestApply(t *testing.T) {
	got := newStamper().Apply("name = Views\ncore = 7.x\n", "views", "7.x-3.8")

	want := "name = Views\ncore = 7.x\n\n" +
		"; Information added by distmake on 2026-10-15\n" +
		"version = \"7.x-3.8\"\n" +
		"project = \"views\"\n"
	assert.Equal(t, want, got)
}

func TestApply_Idempotent(t *testing.T) {
	s := newStamper()
	once := s.Apply("name = Views\n", "views", "1.0")
	twice := s.Apply(once, "views", "1.0")
	assert.Equal(t, once, twice)
	assert.Equal(t, 1, strings.Count(twice, "; Information added by"))
}

func TestApply_ReplacesOlderBlock(t *testing.T) {
	old := NewStamper("distmake", clock.Fixed(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))).Apply("name = X\n", "x", "1.0")
	got := newStamper().Apply(old, "x", "2.0")

	assert.NotContains(t, got, "2020-01-01")
	assert.NotContains(t, got, `version = "1.0"`)
	assert.Contains(t, got, `version = "2.0"`)
}

func TestApply_KeepsForeignBlocks(t *testing.T) {
	content := "name = X\n\n; Information added by drupal.org packaging script on 2012-01-01\nversion = \"7.x-1.0\"\n"
	got := newStamper().Apply(content, "x", "7.x-1.1")
	assert.Contains(t, got, "packaging script on 2012-01-01")
	assert.True(t, strings.HasSuffix(got, "project = \"x\"\n"))
}

func TestStampTree(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"views.info":                "name = Views\n",
		"modules/views_ui.info":     "name = Views UI\n",
		"views.module":              "<?php\n",
		"tests/views_test.info.bak": "x",
	})

	// --- Act ---
	files, err := newStamper().StampTree(context.Background(), dir, "views", "7.x-3.8")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "modules", "views_ui.info"), filepath.Join(dir, "views.info")}, files)
	assert.Contains(t, testutil.ReadFile(t, filepath.Join(dir, "modules", "views_ui.info")), `project = "views"`)
	assert.Equal(t, "<?php\n", testutil.ReadFile(t, filepath.Join(dir, "views.module")))
}

func TestStamp_MissingFile(t *testing.T) {
	err := newStamper().Stamp(filepath.Join(t.TempDir(), "nope.info"), "p", "1")
	var serr *StampError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCanonical(t *testing.T) {
	a := newStamper().Apply("name = X\n", "x", "1")
	b := NewStamper("distmake", clock.Fixed(time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC))).Apply("name = X\n", "x", "1")
	assert.NotEqual(t, a, b)
	assert.Equal(t, string(Canonical([]byte(a))), string(Canonical([]byte(b))))
}
