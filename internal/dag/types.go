package dag

import "sync"

// Graph is a collection of nodes and their dependencies, representing a DAG.
// All operations on the graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

// node is a single vertex. It is un-exported so callers work with string IDs.
type node struct {
	id string
	// deps holds the nodes this node waits for.
	deps map[string]*node
	// dependents holds the nodes waiting for this one.
	dependents map[string]*node
}

// State is the lifecycle of a node during execution.
type State int32

const (
	Pending State = iota
	Running
	Done
	Failed
	// Skipped nodes never ran: an upstream node failed or the run was
	// cancelled first.
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}
