package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext_FallsBackToDefault(t *testing.T) {
	require.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWith_TagsLogLines(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := With(WithLogger(context.Background(), logger), "project", "views")
	FromContext(ctx).Info("fetching")

	require.Contains(t, buf.String(), "project=views")
	require.Contains(t, buf.String(), "msg=fetching")
}
