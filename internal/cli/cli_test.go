package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, exit, err := Parse([]string{"site.make"}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, "site.make", cfg.ManifestPath)
	assert.Equal(t, ".", cfg.BuildPath)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "md5", cfg.Fingerprint)
	assert.Equal(t, 5*time.Minute, cfg.HTTPTimeout)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse_AllFlags(t *testing.T) {
	args := []string{
		"--concurrency=8", "--no-core", "--no-info-files", "--ignore-checksums",
		"--no-patch-txt", "--translations", "de,fr", "--contrib-destination", "sites/default",
		"--cache-dir", "/tmp/c", "--no-cache", "--best-effort", "--lock", "site.lock.yml",
		"--fingerprint", "BLAKE3", "--http-timeout", "30s", "--working-copy",
		"--no-gitinfofile", "--no-recursion",
		"--log-format", "json", "--log-level", "debug",
		"site.yml", "out",
	}

	cfg, exit, err := Parse(args, &bytes.Buffer{})

	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, "out", cfg.BuildPath)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.True(t, cfg.NoCore)
	assert.True(t, cfg.NoInfoFiles)
	assert.True(t, cfg.IgnoreChecksums)
	assert.True(t, cfg.NoPatchTxt)
	assert.Equal(t, []string{"de", "fr"}, cfg.Translations)
	assert.Equal(t, "sites/default", cfg.ContribDestination)
	assert.Equal(t, "/tmp/c", cfg.CacheDir)
	assert.True(t, cfg.NoCache)
	assert.True(t, cfg.BestEffort)
	assert.Equal(t, "site.lock.yml", cfg.LockPath)
	assert.Equal(t, "blake3", cfg.Fingerprint)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.WorkingCopy)
	assert.True(t, cfg.NoGitInfoFile)
	assert.True(t, cfg.NoRecursion)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_HelpAndNoArgs(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {}} {
		out := &bytes.Buffer{}
		cfg, exit, err := Parse(args, out)

		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_UsageErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus", "m.yml"}},
		{"too many args", []string{"m.yml", "out", "extra"}},
		{"bad log format", []string{"--log-format", "xml", "m.yml"}},
		{"bad log level", []string{"--log-level", "loud", "m.yml"}},
		{"bad concurrency", []string{"--concurrency", "0", "m.yml"}},
		{"bad fingerprint", []string{"--fingerprint", "sha1", "m.yml"}},
		{"bad duration", []string{"--http-timeout", "soon", "m.yml"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})

			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
			assert.Equal(t, ExitUsage, exitErr.Code)
		})
	}
}
