package testutil

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireGit skips the test when git is not installed.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// GitRepo initialises a repository on branch main holding files in one
// commit and returns its directory and the commit hash.
func GitRepo(t *testing.T, files map[string]string) (string, string) {
	t.Helper()
	RequireGit(t)
	dir := t.TempDir()
	git(t, dir, "init", "-q", "-b", "main")
	return dir, GitCommit(t, dir, "initial", files)
}

// GitCommit writes files into the repository at dir, commits them and
// returns the new commit hash.
func GitCommit(t *testing.T, dir, message string, files map[string]string) string {
	t.Helper()
	WriteFiles(t, dir, files)
	git(t, dir, "add", "-A")
	git(t, dir, "-c", "user.name=distmake", "-c", "user.email=distmake@example.com", "commit", "-q", "-m", message)
	return git(t, dir, "rev-parse", "HEAD")
}

// GitTag tags HEAD of the repository at dir.
func GitTag(t *testing.T, dir, tag string) {
	t.Helper()
	git(t, dir, "tag", tag)
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}
