package types

import "context"

// ResultCallback receives each node's terminal record exactly once,
// in completion order (not graph order).
type ResultCallback func(result *NodeExecutionResult)

// ProgressCallback receives payloads an executor pushes through
// ExecutionContext.Emit while its node is still running.
type ProgressCallback func(nodeID string, data Data)

// RunRequest is one whole-graph execution order.
type RunRequest struct {
	// RunID identifies the run in callbacks and in the persisted
	// report. Generated when left empty.
	RunID string

	Nodes       []*Node
	Connections []*Connection

	// Credentials is forwarded unmodified to every executor.
	Credentials Credentials

	OnResult   ResultCallback
	OnProgress ProgressCallback
}

type Engine interface {
	/**
	 * Validate checks the graph structure without executing anything:
	 * dangling connection endpoints, duplicate node ids, duplicate
	 * input port bindings, cycles, and settings bags against any
	 * registered node type schemas. Side-effect free.
	 */
	Validate(nodes []*Node, connections []*Connection) error

	/**
	 * Execute runs the graph to completion. Structural errors are
	 * returned before any node is dispatched; node-level failures are
	 * recovered into the summary and never returned as an error.
	 * Canceling ctx stops new dispatches; nodes already terminal keep
	 * their results and the summary reports RunCanceled.
	 */
	Execute(ctx context.Context, req *RunRequest) (*RunSummary, error)

	/**
	 * RenderGraph returns a DOT rendering of the graph structure,
	 * with connections labeled by their port indexes.
	 */
	RenderGraph(nodes []*Node, connections []*Connection) (string, error)

	/**
	 * GetRunReport loads the persisted summary of a finished run.
	 */
	GetRunReport(ctx context.Context, runID string) (*RunSummary, error)

	/**
	 * RenderRun returns a DOT rendering of a finished run with nodes
	 * colored by terminal status.
	 */
	RenderRun(ctx context.Context, runID string) (string, error)

	ListRuns(ctx context.Context) ([]string, error)

	Close(ctx context.Context) error
}
