package types

import "time"

// NodeExecutionResult is the terminal record of one node within one
// run. Produced by an executor invocation, or synthesized by the
// scheduler for skipped nodes.
type NodeExecutionResult struct {
	NodeID string     `json:"nodeId"`
	Status NodeStatus `json:"status"`

	Outputs Outputs `json:"outputs,omitempty"`

	// Error holds the failure message when Status is Error.
	Error string `json:"error,omitempty"`
	// SkippedBy names the failed ancestor when Status is Skipped.
	SkippedBy string `json:"skippedBy,omitempty"`

	StartTime time.Time `json:"startTime,omitempty"`
	EndTime   time.Time `json:"endTime,omitempty"`
}

// Duration is the wall time the node spent executing. Zero for
// skipped nodes.
func (r *NodeExecutionResult) Duration() time.Duration {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// RunSummary is the final aggregate report for one execution: every
// node's terminal result plus counts. Nodes left Idle by cancellation
// are counted in Total but have no entry in Results.
type RunSummary struct {
	RunID  string    `json:"runId"`
	Status RunStatus `json:"status"`

	Total   int `json:"total"`
	Success int `json:"success"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`

	Results map[string]*NodeExecutionResult `json:"results,omitempty"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// Result returns the terminal record for a node id, or nil when the
// node never reached a terminal state.
func (s *RunSummary) Result(nodeID string) *NodeExecutionResult {
	return s.Results[nodeID]
}
