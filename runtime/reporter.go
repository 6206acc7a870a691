package runtime

import (
	"sync"
	"time"

	"github.com/flowcanvas/engine/types"
	"github.com/flowcanvas/engine/utils"
)

/**
 * resultTable is the per-run results store: written exactly once per
 * node by the collector goroutine, read by input resolution running on
 * worker goroutines. A recorded result is never overwritten.
 */
type resultTable struct {
	mu sync.RWMutex

	results map[string]*types.NodeExecutionResult
}

func newResultTable(capacity int) *resultTable {
	return &resultTable{results: make(map[string]*types.NodeExecutionResult, capacity)}
}

func (t *resultTable) get(nodeID string) *types.NodeExecutionResult {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.results[nodeID]
}

func (t *resultTable) put(result *types.NodeExecutionResult) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.results[result.NodeID]; exists {
		return false
	}
	t.results[result.NodeID] = result
	return true
}

func (t *resultTable) snapshot() map[string]*types.NodeExecutionResult {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return utils.CloneMap(t.results)
}

/**
 * reporter pushes each terminal result to the caller exactly once, in
 * completion order, and accumulates the final RunSummary. report is
 * only ever called from the run's collector goroutine, so the caller's
 * OnResult never runs concurrently with itself.
 */
type reporter struct {
	runID      string
	onResult   types.ResultCallback
	onProgress types.ProgressCallback

	startTime time.Time
	success   int
	errored   int
	skipped   int
}

func newReporter(runID string, req *types.RunRequest) *reporter {
	return &reporter{
		runID:      runID,
		onResult:   req.OnResult,
		onProgress: req.OnProgress,
		startTime:  time.Now(),
	}
}

func (r *reporter) report(result *types.NodeExecutionResult) {
	switch result.Status {
	case types.Success:
		r.success++
	case types.Error:
		r.errored++
	case types.Skipped:
		r.skipped++
	}

	if r.onResult != nil {
		r.onResult(result)
	}
}

// progress may be called concurrently from executor goroutines.
func (r *reporter) progress(nodeID string, data types.Data) {
	if r.onProgress != nil {
		r.onProgress(nodeID, data)
	}
}

func (r *reporter) finalize(total int, canceled bool, results *resultTable) *types.RunSummary {
	status := types.RunCompleted
	switch {
	case canceled:
		status = types.RunCanceled
	case r.errored > 0 || r.skipped > 0:
		status = types.RunFailed
	}

	return &types.RunSummary{
		RunID:     r.runID,
		Status:    status,
		Total:     total,
		Success:   r.success,
		Errors:    r.errored,
		Skipped:   r.skipped,
		Results:   results.snapshot(),
		StartTime: r.startTime,
		EndTime:   time.Now(),
	}
}
