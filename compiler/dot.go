package compiler

import (
	"fmt"
	"strings"

	"github.com/warriorguo/wfcompiler/marker"
	"github.com/warriorguo/wfcompiler/types"
	"github.com/warriorguo/wfcompiler/utils"
)

// RenderDOT draws plan as a graphviz digraph. Nodes of summary are colored by
// their last recorded status, branches and loop bodies become clusters.
func RenderDOT(name string, plan Plan, summary *marker.RunSummary) string {
	d := newDOTRenderer(summary)
	d.write("digraph D {")
	d.drawPlan(plan)
	d.write("label=%s", quoteString(name))
	d.write("}")
	return d.sb.String()
}

type dotRenderer struct {
	runs    map[string]marker.NodeRun
	sb      *strings.Builder
	prev    []string
	pending string
}

func newDOTRenderer(summary *marker.RunSummary) *dotRenderer {
	d := &dotRenderer{runs: map[string]marker.NodeRun{}, sb: &strings.Builder{}}
	if summary != nil {
		for _, run := range summary.Nodes {
			d.runs[run.NodeID] = run
		}
	}
	return d
}

func (d *dotRenderer) write(format string, s ...any) {
	d.sb.WriteString(fmt.Sprintf(format+"\n", s...))
}

func (d *dotRenderer) calcAttr(nodeID string) string {
	run, exists := d.runs[nodeID]
	if !exists {
		return ""
	}
	color := ""
	switch run.Status {
	case marker.NodeRunning:
		color = "yellow"
	case marker.NodeFailed:
		color = "red"
	default:
		color = "green"
	}
	comment, _ := utils.Literal(run)
	return fmt.Sprintf(" style=\"filled\" color=\"%s\" comment=%s", color, quoteString(comment))
}

func (d *dotRenderer) drawNode(n types.NodeInstance, shape string) {
	d.write("%s [label=%s shape=\"%s\"%s]", idString(n.ID), quoteString(n.DisplayLabel()), shape, d.calcAttr(n.ID))
}

// link connects the tails of the plan drawn so far to id. Without an explicit
// label the pending cluster label is used once.
func (d *dotRenderer) link(id string, label string) {
	if label == "" {
		label, d.pending = d.pending, ""
	}
	for _, from := range d.prev {
		if label == "" {
			d.write("%s -> %s", idString(from), idString(id))
			continue
		}
		d.write("%s -> %s [label=%s]", idString(from), idString(id), quoteString(label))
	}
}

func (d *dotRenderer) drawPlan(plan Plan) {
	for _, entry := range plan {
		d.drawNode(entry.Node, shapeOf(entry.Kind))
		d.link(entry.Node.ID, "")
		d.prev = []string{entry.Node.ID}

		switch entry.Kind {
		case EntryBranch:
			tails := make([]string, 0)
			for _, b := range entry.Branches {
				d.prev = []string{entry.Node.ID}
				d.drawCluster(entry.Node.ID+"_"+b.EdgeLabel, b.EdgeLabel, b.Plan)
				tails = append(tails, d.prev...)
			}
			d.prev = utils.UniqueSlice(tails)

		case EntryLoop:
			d.drawCluster(entry.Node.ID+"_body", loopBodyLabel, entry.Body)
			if len(entry.Body) > 0 {
				d.link(entry.Node.ID, "next")
			}
			d.prev = []string{entry.Node.ID}
		}
	}
}

// drawCluster draws a nested plan, the edge into it carries label.
func (d *dotRenderer) drawCluster(id, label string, plan Plan) {
	if len(plan) == 0 {
		return
	}
	d.write("subgraph cluster_%s {", idString(id))
	d.write("style=filled")
	d.write("color=lightgrey")
	d.write("label=%s", quoteString(label))
	d.pending = label
	d.drawPlan(plan)
	d.write("}")
}

func shapeOf(kind EntryKind) string {
	switch kind {
	case EntryBranch:
		return "diamond"
	case EntryLoop:
		return "hexagon"
	}
	return "record"
}

func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(strings.ReplaceAll(s, "\\", "\\\\"), "\"", "\\\"") + "\""
}

var idleChars = []string{" ", "'", "\"", "(", ")", "*", "&", "^", "%", "$", "#", "@", "!", "?", "<", ">", "[", "]", "{", "}", ".", "-", "/", ":"}

func idString(s string) string {
	for _, ch := range idleChars {
		s = strings.ReplaceAll(s, ch, "_")
	}
	return s
}
