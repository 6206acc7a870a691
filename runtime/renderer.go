package runtime

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowcanvas/engine/types"
)

/**
 * graphRenderer produces DOT for the canvas layer: the plain graph
 * shape before a run, or a status-colored view of a finished run.
 */
type graphRenderer struct {
	sb *strings.Builder
}

func newGraphRenderer() *graphRenderer {
	return &graphRenderer{sb: &strings.Builder{}}
}

func (d *graphRenderer) generateDOT(nodes []*types.Node, connections []*types.Connection,
	results map[string]*types.NodeExecutionResult) string {
	d.write("digraph G {")
	for _, node := range nodes {
		d.drawNode(node.ID, node.TypeID, results[node.ID])
	}
	for _, conn := range connections {
		d.write("%s -> %s [label=%s]", idString(conn.FromNodeID), idString(conn.ToNodeID),
			quoteString(fmt.Sprintf("out%d:in%d", conn.FromOutput, conn.ToInput)))
	}
	d.write("}")
	return d.sb.String()
}

/**
 * generateRunDOT renders a persisted run report. The report records
 * node outcomes, not the connection set, so edges appear only where
 * the outcome implies one: a skipped node points back at the ancestor
 * that caused the skip.
 */
func (d *graphRenderer) generateRunDOT(summary *types.RunSummary) string {
	nodeIDs := make([]string, 0, len(summary.Results))
	for id := range summary.Results {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	d.write("digraph G {")
	d.write("label=%s", quoteString(fmt.Sprintf("%s (%s)", summary.RunID, summary.Status)))
	for _, id := range nodeIDs {
		result := summary.Results[id]
		d.drawNode(id, result.Status.String(), result)
		if result.Status == types.Skipped && result.SkippedBy != "" {
			d.write("%s -> %s [label=\"skipped by\" style=\"dashed\"]", idString(id), idString(result.SkippedBy))
		}
	}
	d.write("}")
	return d.sb.String()
}

func (d *graphRenderer) drawNode(id, caption string, result *types.NodeExecutionResult) {
	label := quoteString(id + "\\n" + caption)
	d.write("%s [label=%s shape=\"record\"%s]", idString(id), label, calcAttr(result))
}

func calcAttr(result *types.NodeExecutionResult) string {
	if result == nil {
		return ""
	}

	color := ""
	switch result.Status {
	case types.Running:
		color = "yellow"
	case types.Success:
		color = "green"
	case types.Error:
		color = "red"
	case types.Skipped:
		color = "grey"
	default:
		color = "white"
	}
	return fmt.Sprintf(" style=\"filled\" color=\"%s\"", color)
}

func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

var idleChars = []string{" ", "'", "\"", "(", ")", "*", "&", "^", "%", "$", "#", "@", "!", "?", "<", ">", "[", "]", "{", "}", ".", "-"}

func idString(s string) string {
	for _, ch := range idleChars {
		s = strings.ReplaceAll(s, ch, "_")
	}
	return s
}

func (d *graphRenderer) write(format string, s ...any) {
	d.sb.WriteString(fmt.Sprintf(format+"\n", s...))
}
