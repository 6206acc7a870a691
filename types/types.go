package types

import (
	"context"
)

// NodeStatus is the per-node state within one run.
type NodeStatus int32

const (
	Idle    NodeStatus = 0
	Running NodeStatus = 1
	Success NodeStatus = 2
	Error   NodeStatus = 3
	// Skipped marks a node that was never dispatched because an
	// ancestor finished as Error or Skipped.
	Skipped NodeStatus = 4
)

func (s NodeStatus) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Success:
		return "success"
	case Error:
		return "error"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Terminal reports whether the status is final for the run.
func (s NodeStatus) Terminal() bool {
	return s == Success || s == Error || s == Skipped
}

// RunStatus is the aggregate state of one whole-graph execution.
type RunStatus int32

const (
	RunRunning   RunStatus = 1
	RunCompleted RunStatus = 2
	RunFailed    RunStatus = 3
	RunCanceled  RunStatus = 4
)

func (s RunStatus) String() string {
	switch s {
	case RunRunning:
		return "running"
	case RunCompleted:
		return "completed"
	case RunFailed:
		return "failed"
	case RunCanceled:
		return "canceled"
	}
	return "unknown"
}

type Context interface {
	context.Context

	GetRunID() string
}
