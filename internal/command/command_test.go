package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExec_MissingExecutable(t *testing.T) {
	r := &Exec{}
	_, err := r.Run(context.Background(), t.TempDir(), "distmake-no-such-tool-xyz")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestExec_CapturesStdout(t *testing.T) {
	if !Available("sh") {
		t.Skip("sh not available")
	}
	r := &Exec{Env: []string{"DISTMAKE_TEST=hello"}}
	out, err := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo $DISTMAKE_TEST")
	require.NoError(t, err)
	require.Equal(t, "hello\n", out)
}

func TestExec_FailureIncludesStderr(t *testing.T) {
	if !Available("sh") {
		t.Skip("sh not available")
	}
	r := &Exec{}
	_, err := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}
