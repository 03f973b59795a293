package dag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/distmake/internal/ctxlog"
)

// ErrUpstreamFailed marks a node skipped because a dependency did not finish.
var ErrUpstreamFailed = errors.New("skipped due to upstream failure")

// Task does the work of one node.
type Task func(ctx context.Context, id string) error

// Outcome is the final state of a node after Run.
type Outcome struct {
	State State
	Err   error
}

// Executor runs a task for every node of a graph on a pool of workers. A
// node is started only after all of its dependencies are Done.
type Executor struct {
	graph      *Graph
	numWorkers int
	// continueOnError keeps independent nodes running after a failure.
	continueOnError bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// ContinueOnError disables fail-fast cancellation. Dependents of a failed
// node are still skipped.
func ContinueOnError() ExecutorOption {
	return func(e *Executor) { e.continueOnError = true }
}

// NewExecutor creates an executor with numWorkers workers (at least one).
func NewExecutor(g *Graph, numWorkers int, opts ...ExecutorOption) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	e := &Executor{graph: g, numWorkers: numWorkers}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runNode is the per-run state of a graph node.
type runNode struct {
	id         string
	depCount   atomic.Int32
	dependents []*runNode
	state      atomic.Int32
	err        error
	skipOnce   sync.Once
}

type run struct {
	wg     sync.WaitGroup
	nodes  map[string]*runNode
	ready  chan *runNode
	task   Task
	cancel context.CancelFunc
	// failFast cancels the run on the first failure.
	failFast bool
}

// Run executes the graph and returns the outcome of every node. It returns
// an error only if the graph itself is unusable.
func (e *Executor) Run(ctx context.Context, task Task) (map[string]Outcome, error) {
	if err := e.graph.DetectCycles(); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		nodes:    make(map[string]*runNode),
		task:     task,
		cancel:   cancel,
		failFast: !e.continueOnError,
	}
	ids := e.graph.Nodes()
	for _, id := range ids {
		r.nodes[id] = &runNode{id: id}
	}
	for _, id := range ids {
		deps, _ := e.graph.Dependencies(id)
		n := r.nodes[id]
		n.depCount.Store(int32(len(deps)))
		for _, dep := range deps {
			r.nodes[dep].dependents = append(r.nodes[dep].dependents, n)
		}
	}

	// Every node enters the channel at most once, so it never blocks.
	r.ready = make(chan *runNode, len(ids))
	roots := 0
	for _, id := range ids {
		if r.nodes[id].depCount.Load() == 0 {
			r.ready <- r.nodes[id]
			roots++
		}
	}
	logger.Debug("Found all root nodes.", "count", roots)

	r.wg.Add(len(ids))
	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go r.worker(runCtx, i)
	}
	r.wg.Wait()
	close(r.ready)

	outcomes := make(map[string]Outcome, len(ids))
	for id, n := range r.nodes {
		outcomes[id] = Outcome{State: State(n.state.Load()), Err: n.err}
	}
	return outcomes, nil
}

func (r *run) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range r.ready {
		workerLogger := logger.With("workerID", workerID, "nodeID", n.id)

		if ctx.Err() != nil {
			n.skipOnce.Do(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				n.state.Store(int32(Skipped))
				n.err = ctx.Err()
				r.skipDependents(ctx, n)
				r.wg.Done()
			})
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		n.state.Store(int32(Running))
		err := r.task(ctx, n.id)

		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			n.err = err
			n.state.Store(int32(Failed))
			if r.failFast {
				r.cancel()
			}
			r.skipDependents(ctx, n)
			r.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.")
		n.state.Store(int32(Done))
		for _, dependent := range n.dependents {
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.id)
				r.ready <- dependent
			}
		}
		r.wg.Done()
	}
}

// skipDependents recursively marks all downstream nodes as skipped and
// releases them from the WaitGroup.
func (r *run) skipDependents(ctx context.Context, n *runNode) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", dependent.id, "dependency", n.id)
			dependent.state.Store(int32(Skipped))
			dependent.err = fmt.Errorf("%w of '%s'", ErrUpstreamFailed, n.id)
			r.wg.Done()
			r.skipDependents(ctx, dependent)
		})
	}
}
