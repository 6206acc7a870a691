package runtime

import (
	"context"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/flowcanvas/engine/registry"
	"github.com/flowcanvas/engine/types"
)

var (
	_ types.Context = &runContext{}
)

// runContext is the types.Context handed to every executor of a run.
type runContext struct {
	context.Context

	runID string
}

func (c *runContext) GetRunID() string {
	return c.runID
}

/**
 * run drives one whole-graph execution. Eligible nodes go to the
 * worker pool and execute concurrently; their terminal results funnel
 * back through doneCh into a single collector loop that owns all
 * scheduling state (remaining upstream counts, terminal count,
 * cancellation flag). Two sibling branches may complete at the same
 * instant, but only the collector mutates bookkeeping, so no further
 * locking is needed beyond the results table.
 */
type run struct {
	id    string
	graph *graphModel
	reg   *registry.Registry
	wp    *workerpool.WorkerPool

	req      *types.RunRequest
	results  *resultTable
	reporter *reporter

	// collector-owned state below
	remaining map[string]int
	doneCh    chan *types.NodeExecutionResult
	inFlight  int
	terminal  int
	canceled  bool
}

func newRun(id string, graph *graphModel, reg *registry.Registry, wp *workerpool.WorkerPool, req *types.RunRequest) *run {
	return &run{
		id:        id,
		graph:     graph,
		reg:       reg,
		wp:        wp,
		req:       req,
		results:   newResultTable(graph.size()),
		reporter:  newReporter(id, req),
		remaining: make(map[string]int, graph.size()),
		// one send per node, so the channel can never block a worker
		doneCh: make(chan *types.NodeExecutionResult, graph.size()),
	}
}

/**
 * execute blocks until every reachable node is terminal or, after
 * cancellation, until the in-flight executors have drained. Nodes that
 * were never dispatched when the run is canceled stay Idle and simply
 * have no entry in the summary.
 */
func (r *run) execute(ctx context.Context) *types.RunSummary {
	total := r.graph.size()
	if total == 0 {
		return r.reporter.finalize(0, false, r.results)
	}

	rctx := &runContext{Context: ctx, runID: r.id}

	for _, id := range r.graph.order {
		r.remaining[id] = len(r.graph.upstream[id])
	}
	for _, id := range r.graph.roots() {
		r.dispatch(rctx, id)
	}

	for r.terminal < total {
		if r.canceled {
			if r.inFlight == 0 {
				break
			}
			r.collect(rctx, <-r.doneCh)
			continue
		}

		select {
		case result := <-r.doneCh:
			// observe cancellation before acting on the result, so a
			// node finishing right after cancel cannot trigger a new
			// dispatch
			if ctx.Err() != nil {
				r.canceled = true
			}
			r.collect(rctx, result)
		case <-ctx.Done():
			log.Debugf("%s canceled: %v", r.id, ctx.Err())
			r.canceled = true
		}
	}

	return r.reporter.finalize(total, r.canceled, r.results)
}

func (r *run) dispatch(rctx *runContext, nodeID string) {
	node := r.graph.node(nodeID)
	r.inFlight++

	log.Debugf("%s dispatching node %s (%s)", r.id, node.ID, node.TypeID)
	r.wp.Submit(func() {
		r.doneCh <- r.executeNode(rctx, node)
	})
}

// collect records one terminal result and re-evaluates dependents.
// Called only from the collector loop.
func (r *run) collect(rctx *runContext, result *types.NodeExecutionResult) {
	r.inFlight--
	r.complete(rctx, result)
}

func (r *run) complete(rctx *runContext, result *types.NodeExecutionResult) {
	if !r.results.put(result) {
		// single-writer per key; a duplicate is a scheduler fault
		log.Errorf("%s duplicate result for node %s", r.id, result.NodeID)
		return
	}
	r.terminal++
	r.reporter.report(result)

	for _, dep := range r.graph.dependents[result.NodeID] {
		if r.remaining[dep]--; r.remaining[dep] > 0 {
			continue
		}
		if r.canceled {
			continue
		}
		if ancestor := r.failedUpstream(dep); ancestor != "" {
			r.skip(rctx, dep, ancestor)
		} else {
			r.dispatch(rctx, dep)
		}
	}
}

// failedUpstream returns the id of a non-success upstream node, or ""
// when every upstream succeeded. Only meaningful once all upstream
// nodes are terminal.
func (r *run) failedUpstream(nodeID string) string {
	for _, up := range r.graph.upstream[nodeID] {
		res := r.results.get(up)
		if res == nil || res.Status != types.Success {
			return up
		}
	}
	return ""
}

// skip synthesizes the terminal record of a node that is never
// dispatched because an ancestor failed. Cascades through complete,
// so a whole failed subtree settles within one collector turn.
func (r *run) skip(rctx *runContext, nodeID, ancestorID string) {
	r.complete(rctx, &types.NodeExecutionResult{
		NodeID:    nodeID,
		Status:    types.Skipped,
		SkippedBy: ancestorID,
	})
}

func (r *run) executeNode(rctx *runContext, node *types.Node) *types.NodeExecutionResult {
	result := &types.NodeExecutionResult{
		NodeID:    node.ID,
		StartTime: time.Now(),
	}

	outputs, err := r.invoke(rctx, node)
	result.EndTime = time.Now()

	if err != nil {
		log.Debugf("%s node %s failed: %v", r.id, node.ID, err)
		result.Status = types.Error
		result.Error = err.Error()
		return result
	}
	result.Status = types.Success
	result.Outputs = outputs
	return result
}

func (r *run) invoke(rctx *runContext, node *types.Node) (outputs types.Outputs, retErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			retErr = errors.Errorf("panic on %s: %v", node.ID, rec)
		}
	}()

	exec, err := r.reg.Resolve(node.TypeID)
	if err != nil {
		return nil, err
	}

	inputs, err := resolveInputs(node.ID, r.graph, r.results)
	if err != nil {
		return nil, errors.Trace(err)
	}

	ec := &types.ExecutionContext{
		Node:        node,
		Inputs:      inputs,
		Credentials: r.req.Credentials,
		Emit: func(data types.Data) {
			r.reporter.progress(node.ID, data)
		},
	}
	return exec(rctx, ec)
}
