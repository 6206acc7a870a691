package runtime

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"pgregory.net/rapid"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"github.com/flowcanvas/engine/registry"
	"github.com/flowcanvas/engine/store/mem"
	"github.com/flowcanvas/engine/types"
)

// randomDAG draws an acyclic graph: edges only point from a lower
// index to a higher one, so no cycle can be generated.
func randomDAG(t *rapid.T) ([]*types.Node, []*types.Connection) {
	n := rapid.IntRange(1, 12).Draw(t, "nodes")

	nodes := make([]*types.Node, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, &types.Node{ID: fmt.Sprintf("n%d", i), TypeID: "probe"})
	}

	connections := make([]*types.Connection, 0)
	nextInput := make([]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !rapid.Bool().Draw(t, fmt.Sprintf("edge_%d_%d", i, j)) {
				continue
			}
			connections = append(connections, &types.Connection{
				ID:         fmt.Sprintf("c%d_%d", i, j),
				FromNodeID: nodes[i].ID,
				FromOutput: 0,
				ToNodeID:   nodes[j].ID,
				ToInput:    nextInput[j],
			})
			nextInput[j]++
		}
	}
	return nodes, connections
}

// seqClock hands out monotonically increasing ticks so executor start
// and finish instants can be compared without wall-clock flakiness.
type seqClock struct {
	mu   sync.Mutex
	tick int

	startSeq  map[string]int
	finishSeq map[string]int
}

func newSeqClock() *seqClock {
	return &seqClock{
		startSeq:  make(map[string]int),
		finishSeq: make(map[string]int),
	}
}

func (c *seqClock) markStart(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	c.startSeq[nodeID] = c.tick
}

func (c *seqClock) markFinish(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	c.finishSeq[nodeID] = c.tick
}

func TestTopologicalRespectProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nodes, connections := randomDAG(t)

		clock := newSeqClock()
		reg := registry.New()
		reg.MustRegister("probe", func(ctx types.Context, ec *types.ExecutionContext) (types.Outputs, error) {
			clock.markStart(ec.Node.ID)
			defer clock.markFinish(ec.Node.ID)
			return types.Outputs{0: ec.Node.ID}, nil
		})

		eng := NewEngine(mem.NewMemStore(), reg, types.NewEngineOptions())
		defer eng.Close(context.Background())

		summary, err := eng.Execute(context.Background(), &types.RunRequest{
			Nodes:       nodes,
			Connections: connections,
		})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}

		if summary.Status != types.RunCompleted {
			t.Fatalf("run status = %v, want completed", summary.Status)
		}
		if summary.Success != len(nodes) {
			t.Fatalf("success = %d, want %d", summary.Success, len(nodes))
		}

		// for every connection X->Y, Y started only after X finished
		for _, conn := range connections {
			from := clock.finishSeq[conn.FromNodeID]
			to := clock.startSeq[conn.ToNodeID]
			if to <= from {
				t.Fatalf("node %s started at tick %d before upstream %s finished at tick %d",
					conn.ToNodeID, to, conn.FromNodeID, from)
			}
		}
	})
}

func TestFailurePropagationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nodes, connections := randomDAG(t)

		failing := make(map[string]bool)
		for _, node := range nodes {
			if rapid.Bool().Draw(t, "fail_"+node.ID) {
				failing[node.ID] = true
			}
		}

		reg := registry.New()
		reg.MustRegister("probe", func(ctx types.Context, ec *types.ExecutionContext) (types.Outputs, error) {
			if failing[ec.Node.ID] {
				return nil, errors.Errorf("%s failed", ec.Node.ID)
			}
			return types.Outputs{0: ec.Node.ID}, nil
		})

		eng := NewEngine(mem.NewMemStore(), reg, types.NewEngineOptions())
		defer eng.Close(context.Background())

		summary, err := eng.Execute(context.Background(), &types.RunRequest{
			Nodes:       nodes,
			Connections: connections,
		})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}

		// nodes are declared in topological order (edges point from
		// lower to higher index), so one forward pass derives the
		// expected status of every node
		expected := make(map[string]types.NodeStatus, len(nodes))
		for _, node := range nodes {
			blocked := false
			for _, conn := range connections {
				if conn.ToNodeID == node.ID && expected[conn.FromNodeID] != types.Success {
					blocked = true
					break
				}
			}
			switch {
			case blocked:
				expected[node.ID] = types.Skipped
			case failing[node.ID]:
				expected[node.ID] = types.Error
			default:
				expected[node.ID] = types.Success
			}
		}

		anyFailure := false
		for _, node := range nodes {
			result := summary.Result(node.ID)
			if result == nil {
				t.Fatalf("node %s has no terminal result", node.ID)
			}
			if result.Status != expected[node.ID] {
				t.Fatalf("node %s status = %v, want %v", node.ID, result.Status, expected[node.ID])
			}
			if result.Status != types.Success {
				anyFailure = true
			}
			if result.Status == types.Skipped {
				if expected[result.SkippedBy] == types.Success || result.SkippedBy == "" {
					t.Fatalf("node %s skipped by %q, which did not fail", node.ID, result.SkippedBy)
				}
			}
		}

		wantStatus := types.RunCompleted
		if anyFailure {
			wantStatus = types.RunFailed
		}
		if summary.Status != wantStatus {
			t.Fatalf("run status = %v, want %v", summary.Status, wantStatus)
		}
	})
}

// sanity check outside rapid: a straight A->B->C chain where SkippedBy
// must name the direct ancestor, not the root cause
func TestSkipReferencesNearestAncestor(t *testing.T) {
	reg := registry.New()
	reg.MustRegister("probe", func(ctx types.Context, ec *types.ExecutionContext) (types.Outputs, error) {
		return nil, errors.New("root failure")
	})

	eng := NewEngine(mem.NewMemStore(), reg, types.NewEngineOptions())
	defer eng.Close(context.Background())

	summary, err := eng.Execute(context.Background(), &types.RunRequest{
		Nodes: nodeListOfType("probe", "a", "b", "c"),
		Connections: []*types.Connection{
			conn("c1", "a", 0, "b", 0),
			conn("c2", "b", 0, "c", 0),
		},
	})
	assert.Nil(t, err)
	assert.Equal(t, "a", summary.Result("b").SkippedBy)
	assert.Equal(t, "b", summary.Result("c").SkippedBy)
}
