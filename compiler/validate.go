package compiler

import (
	"strings"

	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/types"
)

// Validate collects every structural problem of graph in one pass.
// Node problems come first, then edges, then entry and terminal, then unconnected nodes.
func Validate(graph *types.WorkflowGraph, reg *registry.Registry) types.ValidationErrors {
	errs := types.ValidationErrors{}

	known := make(map[string]bool, len(graph.Nodes))
	unique := make([]types.NodeInstance, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		if known[n.ID] {
			errs = append(errs, types.NewValidationError(types.DuplicateNodeId,
				"node id %q is used more than once", n.ID).WithNode(n.ID))
			continue
		}
		known[n.ID] = true
		unique = append(unique, n)
	}

	incoming := map[string]int{}
	connected := map[string]bool{}
	for _, e := range graph.Edges {
		if !known[e.Source] {
			errs = append(errs, types.NewValidationError(types.DanglingEdge,
				"edge %s starts at unknown node %q", e.ID, e.Source).WithEdge(e.ID).WithField("source"))
		}
		if !known[e.Target] {
			errs = append(errs, types.NewValidationError(types.DanglingEdge,
				"edge %s ends at unknown node %q", e.ID, e.Target).WithEdge(e.ID).WithField("target"))
		}
		incoming[e.Target]++
		connected[e.Source] = true
		connected[e.Target] = true
	}

	entries := make([]string, 0)
	terminals := make([]string, 0)
	for _, n := range unique {
		switch reg.Role(n.Type) {
		case registry.RoleEntry:
			if incoming[n.ID] == 0 {
				entries = append(entries, n.ID)
			}
		case registry.RoleTerminal:
			terminals = append(terminals, n.ID)
		}
	}

	switch {
	case len(entries) == 0:
		errs = append(errs, types.NewValidationError(types.MissingEntry,
			"graph has no entry node without incoming edges"))
	case len(entries) > 1:
		errs = append(errs, types.NewValidationError(types.MultipleEntry,
			"graph has %d entry nodes: %s", len(entries), strings.Join(entries, ", ")).WithNode(entries[1]))
	}
	switch {
	case len(terminals) == 0:
		errs = append(errs, types.NewValidationError(types.MissingTerminal,
			"graph has no terminal node"))
	case len(terminals) > 1:
		errs = append(errs, types.NewValidationError(types.MultipleTerminal,
			"graph has %d terminal nodes: %s", len(terminals), strings.Join(terminals, ", ")).WithNode(terminals[1]))
	}

	for _, n := range unique {
		if reg.Role(n.Type) != registry.RoleNone || connected[n.ID] {
			continue
		}
		errs = append(errs, types.NewValidationError(types.UnconnectedNode,
			"node %s has no edges", n.ID).WithNode(n.ID))
	}
	return errs
}
