package types

// Node is one unit of work on the canvas: a type id selecting an
// executor plus an opaque settings bag.
type Node struct {
	ID       string `json:"id"`
	TypeID   string `json:"typeId"`
	Settings Data   `json:"settings,omitempty"`
}

// Connection is a directed, port-indexed edge: output port FromOutput
// of FromNodeID feeds input port ToInput of ToNodeID.
type Connection struct {
	ID         string `json:"id"`
	FromNodeID string `json:"fromNodeId"`
	FromOutput int    `json:"fromOutputIndex"`
	ToNodeID   string `json:"toNodeId"`
	ToInput    int    `json:"toInputIndex"`
}

// Outputs maps output port index to the value produced on that port.
type Outputs map[int]any

// Inputs maps input port index to the resolved upstream value. Ports
// with no incoming connection are absent; executors fall back to their
// settings defaults for absent ports.
type Inputs map[int]any

/**
 * ExecutionContext is built fresh for every node dispatch: the node
 * itself, its resolved inputs, the run-wide credential bag and the
 * Emit hook for streaming intermediate progress to the caller.
 */
type ExecutionContext struct {
	Node        *Node
	Inputs      Inputs
	Credentials Credentials

	// Emit forwards a progress payload to the caller's OnProgress
	// callback. Never nil; a no-op when the caller did not ask for
	// progress.
	Emit func(data Data)
}

// Input returns the resolved value on an input port.
func (ec *ExecutionContext) Input(port int) (any, bool) {
	v, exists := ec.Inputs[port]
	return v, exists
}

// Setting reads a node setting, falling back to the given default when
// the key is unset.
func (ec *ExecutionContext) Setting(key string, fallback string) string {
	if v, ok := ec.Node.Settings.GetString(key); ok {
		return v
	}
	return fallback
}

/**
 * Executor performs a node's actual work given resolved inputs,
 * returning a value per output port. Executors do their own I/O and
 * their own fallback behavior: they MAY substitute fallback output on
 * a transient upstream failure, but MUST surface real failures as an
 * error return, never silently swallow them. The engine only records
 * success or error; it never retries.
 *
 * A returned error (or a panic, which the engine recovers) marks the
 * node Error and skips all of its descendants.
 */
type Executor func(ctx Context, ec *ExecutionContext) (Outputs, error)
