package types

import (
	"fmt"
	"strings"
)

var (
	_ error = &CycleError{}
	_ error = &DanglingReferenceError{}
	_ error = &DuplicateInputError{}
)

// CycleError reports a connection path returning to its origin. Nodes
// lists the ids participating in the detected cycle, in walk order.
type CycleError struct {
	Nodes []string
}

func NewCycleError(nodes []string) error {
	return &CycleError{Nodes: nodes}
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("graph contains a cycle: %s", strings.Join(e.Nodes, " -> "))
}

// DanglingReferenceError reports a connection endpoint naming a node
// id that is not part of the graph.
type DanglingReferenceError struct {
	ConnectionID string
	NodeID       string
}

func NewDanglingReferenceError(connectionID, nodeID string) error {
	return &DanglingReferenceError{ConnectionID: connectionID, NodeID: nodeID}
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("connection %s references unknown node %s", e.ConnectionID, e.NodeID)
}

// DuplicateInputError reports two connections targeting the same input
// port of the same node. Fan-in to a single port is rejected at
// validation time rather than left to an undefined overwrite order.
type DuplicateInputError struct {
	NodeID string
	Input  int
}

func NewDuplicateInputError(nodeID string, input int) error {
	return &DuplicateInputError{NodeID: nodeID, Input: input}
}

func (e *DuplicateInputError) Error() string {
	return fmt.Sprintf("input port %d of node %s has multiple incoming connections", e.Input, e.NodeID)
}
