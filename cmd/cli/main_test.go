package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/distmake/internal/cli"
)

func TestRun_ManifestError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A project block that is never closed.
	invalidHCL := `
		project "views" {
			download "get" {
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "site.make")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0o600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{"--no-cache", filePath, filepath.Join(tempDir, "www")}
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.Error(t, runErr)
	var exitErr *cli.ExitError
	require.False(t, errors.As(runErr, &exitErr), "manifest errors are build failures, not usage errors")
	require.Contains(t, runErr.Error(), "failed to parse manifest")
	require.NoDirExists(t, filepath.Join(tempDir, "www"))
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, cli.ExitUsage, exitErr.Code)
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}
