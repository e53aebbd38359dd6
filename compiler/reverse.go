package compiler

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/warriorguo/wfcompiler/marker"
	"github.com/warriorguo/wfcompiler/types"
)

// Build turns parsed spans into a linear graph skeleton: one node per distinct
// node id in start line order, each linked to the next. Configs stay empty.
func Build(spans []types.ParsedNodeSpan) (*types.WorkflowGraph, error) {
	if len(spans) == 0 {
		return nil, errors.Trace(types.ErrEmptyProgram)
	}

	ordered := make([]types.ParsedNodeSpan, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartLine < ordered[j].StartLine
	})

	graph := &types.WorkflowGraph{
		Nodes: make([]types.NodeInstance, 0, len(ordered)),
		Edges: make([]types.EdgeInstance, 0, len(ordered)),
	}
	seen := map[string]bool{}
	for _, span := range ordered {
		if seen[span.NodeID] {
			continue
		}
		seen[span.NodeID] = true
		graph.Nodes = append(graph.Nodes, types.NodeInstance{
			ID:     span.NodeID,
			Type:   span.NodeType,
			Label:  span.NodeLabel,
			Config: types.Data{},
		})
	}
	for i := 1; i < len(graph.Nodes); i++ {
		source, target := graph.Nodes[i-1].ID, graph.Nodes[i].ID
		graph.Edges = append(graph.Edges, types.EdgeInstance{
			ID:     fmt.Sprintf("e_%s_%s", source, target),
			Source: source,
			Target: target,
		})
	}
	return graph, nil
}

// ReverseCompile recovers the graph skeleton of program text, named after the
// workflow header when the text carries one.
func ReverseCompile(text string) (*types.WorkflowGraph, error) {
	graph, err := Build(marker.Parse(text))
	if err != nil {
		return nil, errors.Trace(err)
	}
	graph.Name = workflowName(text)
	return graph, nil
}

func workflowName(text string) string {
	for _, line := range marker.Lines(text) {
		if !strings.HasPrefix(line, workflowHeader) {
			continue
		}
		var name string
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, workflowHeader)), &name); err != nil {
			return ""
		}
		return name
	}
	return ""
}
