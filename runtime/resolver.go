package runtime

import (
	"github.com/juju/errors"

	"github.com/flowcanvas/engine/types"
)

/**
 * resolveInputs collects the target node's inputs from the outputs of
 * its upstream nodes, keyed by input port index. Ports with no
 * incoming connection stay absent from the map; executors treat
 * absent ports as "use settings default". An upstream output port the
 * producer never filled is treated the same way.
 *
 * An upstream node without a successful result means the node is
 * blocked, which the scheduler rules out before dispatch; hitting it
 * here indicates a scheduling fault, not a user error.
 */
func resolveInputs(nodeID string, graph *graphModel, results *resultTable) (types.Inputs, error) {
	inputs := types.Inputs{}
	for _, conn := range graph.incoming[nodeID] {
		upstream := results.get(conn.FromNodeID)
		if upstream == nil || upstream.Status != types.Success {
			return nil, errors.NotProvisionedf("upstream %s of node %s has no successful result", conn.FromNodeID, nodeID)
		}
		if value, exists := upstream.Outputs[conn.FromOutput]; exists {
			inputs[conn.ToInput] = value
		}
	}
	return inputs, nil
}
