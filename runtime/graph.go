package runtime

import (
	"github.com/juju/errors"

	"github.com/flowcanvas/engine/types"
	"github.com/flowcanvas/engine/utils"
)

/**
 * graphModel is the validated, immutable adjacency view of one run's
 * node/connection sets. Construction performs every structural check
 * synchronously and side-effect free; scheduling never starts on a
 * graph that failed to build.
 */
type graphModel struct {
	nodes map[string]*types.Node
	// node ids in caller declaration order, for deterministic walks
	order []string

	// incoming connections per target node id
	incoming map[string][]*types.Connection
	// distinct upstream node ids per node id
	upstream map[string][]string
	// distinct downstream node ids per node id
	dependents map[string][]string
}

func newGraphModel(nodes []*types.Node, connections []*types.Connection) (*graphModel, error) {
	g := &graphModel{
		nodes:      make(map[string]*types.Node, len(nodes)),
		order:      make([]string, 0, len(nodes)),
		incoming:   make(map[string][]*types.Connection),
		upstream:   make(map[string][]string),
		dependents: make(map[string][]string),
	}

	for _, node := range nodes {
		if node.ID == "" {
			return nil, errors.BadRequestf("node with empty id")
		}
		if _, exists := g.nodes[node.ID]; exists {
			return nil, errors.AlreadyExistsf("node id: %s", node.ID)
		}
		g.nodes[node.ID] = node
		g.order = append(g.order, node.ID)
	}

	boundInputs := make(map[string]map[int]bool)
	for _, conn := range connections {
		if conn.FromOutput < 0 || conn.ToInput < 0 {
			return nil, errors.BadRequestf("connection %s has a negative port index", conn.ID)
		}
		if _, exists := g.nodes[conn.FromNodeID]; !exists {
			return nil, types.NewDanglingReferenceError(conn.ID, conn.FromNodeID)
		}
		if _, exists := g.nodes[conn.ToNodeID]; !exists {
			return nil, types.NewDanglingReferenceError(conn.ID, conn.ToNodeID)
		}

		ports := boundInputs[conn.ToNodeID]
		if ports == nil {
			ports = make(map[int]bool)
			boundInputs[conn.ToNodeID] = ports
		}
		if ports[conn.ToInput] {
			return nil, types.NewDuplicateInputError(conn.ToNodeID, conn.ToInput)
		}
		ports[conn.ToInput] = true

		g.incoming[conn.ToNodeID] = append(g.incoming[conn.ToNodeID], conn)
		g.upstream[conn.ToNodeID] = append(g.upstream[conn.ToNodeID], conn.FromNodeID)
		g.dependents[conn.FromNodeID] = append(g.dependents[conn.FromNodeID], conn.ToNodeID)
	}

	// two connections between the same node pair count as one dependency
	for id := range g.upstream {
		g.upstream[id] = utils.UniqueSlice(g.upstream[id])
	}
	for id := range g.dependents {
		g.dependents[id] = utils.UniqueSlice(g.dependents[id])
	}

	// structural errors carry typed fields callers inspect; returned
	// as-is, like the dangling and duplicate-input errors above
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *graphModel) size() int {
	return len(g.order)
}

func (g *graphModel) node(id string) *types.Node {
	return g.nodes[id]
}

// roots returns the node ids with no upstream dependency, in
// declaration order.
func (g *graphModel) roots() []string {
	ids := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if len(g.upstream[id]) == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

type visitMark int

const (
	unvisited visitMark = 0
	visiting  visitMark = 1
	visited   visitMark = 2
)

/**
 * checkAcyclic runs a depth-first walk over the dependents adjacency.
 * A back-edge to a node still on the active recursion stack is a
 * cycle; the error names the participating node ids in walk order.
 */
func (g *graphModel) checkAcyclic() error {
	marks := make(map[string]visitMark, len(g.order))
	stack := make([]string, 0, len(g.order))

	var visit func(id string) error
	visit = func(id string) error {
		marks[id] = visiting
		stack = append(stack, id)

		for _, next := range g.dependents[id] {
			switch marks[next] {
			case visiting:
				return types.NewCycleError(cyclePath(stack, next))
			case unvisited:
				if err := visit(next); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		marks[id] = visited
		return nil
	}

	for _, id := range g.order {
		if marks[id] != unvisited {
			continue
		}
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// cyclePath cuts the recursion stack down to the nodes on the cycle,
// closing it with the re-entered node.
func cyclePath(stack []string, reentered string) []string {
	for i, id := range stack {
		if id == reentered {
			path := make([]string, 0, len(stack)-i+1)
			path = append(path, stack[i:]...)
			return append(path, reentered)
		}
	}
	return append([]string{}, reentered)
}
