package compiler

import (
	"github.com/warriorguo/wfcompiler/types"
)

type EntryKind int

const (
	EntryNode   EntryKind = 1
	EntryBranch EntryKind = 2
	EntryLoop   EntryKind = 3
)

func (k EntryKind) String() string {
	switch k {
	case EntryNode:
		return "node"
	case EntryBranch:
		return "branch"
	case EntryLoop:
		return "loop"
	}
	return "unknown"
}

/**
 * PlanEntry is one step of an execution plan.
 * For EntryBranch and EntryLoop the Node is the controller,
 * which runs before its branches or its body.
 */
type PlanEntry struct {
	Kind EntryKind          `json:"kind"`
	Node types.NodeInstance `json:"node"`

	Branches []Branch `json:"branches,omitempty"`
	Body     Plan     `json:"body,omitempty"`
}

type Branch struct {
	EdgeLabel string `json:"edgeLabel"`
	Plan      Plan   `json:"plan"`
}

// Plan is the ordered, nested execution plan the emitter walks.
type Plan []PlanEntry

// NodeIDs lists the planned node ids depth first, controllers before their children.
func (p Plan) NodeIDs() []string {
	ids := make([]string, 0, len(p))
	var visit func(plan Plan)
	visit = func(plan Plan) {
		for _, entry := range plan {
			ids = append(ids, entry.Node.ID)
			for _, b := range entry.Branches {
				visit(b.Plan)
			}
			visit(entry.Body)
		}
	}
	visit(p)
	return ids
}

// Find returns the entry of nodeID, searching nested plans as well.
func (p Plan) Find(nodeID string) (*PlanEntry, bool) {
	for i := range p {
		entry := &p[i]
		if entry.Node.ID == nodeID {
			return entry, true
		}
		for _, b := range entry.Branches {
			if found, ok := b.Plan.Find(nodeID); ok {
				return found, true
			}
		}
		if found, ok := entry.Body.Find(nodeID); ok {
			return found, true
		}
	}
	return nil, false
}
