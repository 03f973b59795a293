package dag

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds core -> {a, b}, a -> c.
func chain(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for _, id := range []string{"core", "a", "b", "c"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("core", "a"))
	require.NoError(t, g.AddEdge("core", "b"))
	require.NoError(t, g.AddEdge("a", "c"))
	return g
}

func TestExecutor_RespectsDependencies(t *testing.T) {
	for _, workers := range []int{1, 2, 8} {
		// --- Arrange ---
		var mu sync.Mutex
		finished := map[string]bool{}
		var violations atomic.Int32
		g := chain(t)

		// --- Act ---
		outcomes, err := NewExecutor(g, workers).Run(context.Background(), func(ctx context.Context, id string) error {
			deps, _ := g.Dependencies(id)
			mu.Lock()
			for _, d := range deps {
				if !finished[d] {
					violations.Add(1)
				}
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			finished[id] = true
			mu.Unlock()
			return nil
		})

		// --- Assert ---
		require.NoError(t, err)
		assert.Zero(t, violations.Load())
		for id, o := range outcomes {
			assert.Equal(t, Done, o.State, id)
		}
		assert.Len(t, outcomes, 4)
	}
}

func TestExecutor_FailFastSkipsDependentsAndCancels(t *testing.T) {
	g := chain(t)
	boom := errors.New("boom")

	outcomes, err := NewExecutor(g, 1).Run(context.Background(), func(ctx context.Context, id string) error {
		if id == "a" {
			return boom
		}
		return ctx.Err()
	})

	require.NoError(t, err)
	assert.Equal(t, Done, outcomes["core"].State)
	assert.Equal(t, Failed, outcomes["a"].State)
	assert.ErrorIs(t, outcomes["a"].Err, boom)
	assert.Equal(t, Skipped, outcomes["c"].State)
	assert.ErrorIs(t, outcomes["c"].Err, ErrUpstreamFailed)
	// b was queued with a single worker; once a fails the run is cancelled.
	assert.NotEqual(t, Done, outcomes["b"].State)
}

func TestExecutor_ContinueOnError(t *testing.T) {
	g := chain(t)

	outcomes, err := NewExecutor(g, 1, ContinueOnError()).Run(context.Background(), func(ctx context.Context, id string) error {
		if id == "a" {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, Failed, outcomes["a"].State)
	assert.Equal(t, Done, outcomes["b"].State)
	assert.Equal(t, Skipped, outcomes["c"].State)
}

func TestExecutor_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := NewExecutor(chain(t), 2).Run(ctx, func(ctx context.Context, id string) error { return nil })

	require.NoError(t, err)
	for _, o := range outcomes {
		assert.Equal(t, Skipped, o.State)
	}
}

func TestExecutor_RejectsCycles(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("b")
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "a"))

	_, err := NewExecutor(g, 1).Run(context.Background(), func(context.Context, string) error { return nil })
	assert.ErrorContains(t, err, "cycle detected")
}
