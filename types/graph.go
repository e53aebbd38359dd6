package types

// WorkflowGraph is the editor document handed to every compiler operation.
// It is passed by value and never mutated by the compiler.
type WorkflowGraph struct {
	Name  string         `json:"name"`
	Nodes []NodeInstance `json:"nodes"`
	Edges []EdgeInstance `json:"edges"`
}

type NodeInstance struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Label  string `json:"label,omitempty"`
	Config Data   `json:"config,omitempty"`
}

// EdgeInstance links two nodes. The order of WorkflowGraph.Edges is significant,
// traversal follows it.
type EdgeInstance struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	// SourceHandle labels the outgoing port of a branch or loop node,
	// empty on plain edges.
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// DisplayLabel falls back to the node id when no label was set in the editor.
func (n *NodeInstance) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Node returns the first node carrying id.
func (g *WorkflowGraph) Node(id string) (*NodeInstance, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

func (g *WorkflowGraph) HasNode(id string) bool {
	_, exists := g.Node(id)
	return exists
}

// OutEdges returns the edges leaving id in edge-array order.
func (g *WorkflowGraph) OutEdges(id string) []EdgeInstance {
	out := make([]EdgeInstance, 0)
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// InEdges returns the edges entering id in edge-array order.
func (g *WorkflowGraph) InEdges(id string) []EdgeInstance {
	in := make([]EdgeInstance, 0)
	for _, e := range g.Edges {
		if e.Target == id {
			in = append(in, e)
		}
	}
	return in
}

// NodeState is what the emitted program records per node: NodeStateRecord[nodeId].
// Captured samples used for template previews have the same shape.
type NodeState struct {
	Input  any `json:"input"`
	Output any `json:"output"`
}

type NodeStateRecord map[string]NodeState

// ParsedNodeSpan is the line range attributed to one node by the structural parser.
// Lines are 1-based and inclusive.
type ParsedNodeSpan struct {
	NodeID    string `json:"nodeId"`
	NodeLabel string `json:"nodeLabel"`
	NodeType  string `json:"nodeType"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}
