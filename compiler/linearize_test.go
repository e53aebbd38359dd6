package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/types"
)

func TestLinearizeChain(t *testing.T) {
	plan, unreachable, err := Linearize(agifyGraph(), registry.Builtin())
	require.NoError(t, err)
	assert.Empty(t, unreachable)
	assert.Equal(t, []string{"n1", "n2", "n3", "n4"}, plan.NodeIDs())
	for _, entry := range plan {
		assert.Equal(t, EntryNode, entry.Kind)
	}
}

func TestLinearizeChainIgnoresNodeOrder(t *testing.T) {
	graph := agifyGraph()
	graph.Nodes[1], graph.Nodes[3] = graph.Nodes[3], graph.Nodes[1]

	plan, _, err := Linearize(graph, registry.Builtin())
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3", "n4"}, plan.NodeIDs())
}

func TestLinearizeFanOutWaitsForPredecessors(t *testing.T) {
	graph := &types.WorkflowGraph{
		Nodes: []types.NodeInstance{
			newNode("a", "entry", "", nil),
			newNode("b", "log", "", nil),
			newNode("c", "log", "", nil),
			newNode("c2", "log", "", nil),
			newNode("d", "transform", "", nil),
			newNode("r", "return", "", nil),
		},
		Edges: []types.EdgeInstance{
			newEdge("a", "b"),
			newEdge("a", "c"),
			newEdge("b", "d"),
			newEdge("c", "c2"),
			newEdge("c2", "d"),
			newEdge("d", "r"),
		},
	}
	plan, _, err := Linearize(graph, registry.Builtin())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "c2", "d", "r"}, plan.NodeIDs())
}

func TestLinearizeBranch(t *testing.T) {
	plan, unreachable, err := Linearize(branchGraph(), registry.Builtin())
	require.NoError(t, err)
	assert.Empty(t, unreachable)
	require.Len(t, plan, 4)

	assert.Equal(t, "start", plan[0].Node.ID)

	branch := plan[1]
	assert.Equal(t, EntryBranch, branch.Kind)
	assert.Equal(t, "check", branch.Node.ID)
	require.Len(t, branch.Branches, 2)
	assert.Equal(t, "true", branch.Branches[0].EdgeLabel)
	assert.Equal(t, []string{"adult"}, branch.Branches[0].Plan.NodeIDs())
	assert.Equal(t, "false", branch.Branches[1].EdgeLabel)
	assert.Equal(t, []string{"minor"}, branch.Branches[1].Plan.NodeIDs())

	assert.Equal(t, "join", plan[2].Node.ID)
	assert.Equal(t, "done", plan[3].Node.ID)
}

func TestLinearizeBranchLabelsFromPorts(t *testing.T) {
	graph := branchGraph()
	for i := range graph.Edges {
		graph.Edges[i].SourceHandle = ""
	}
	plan, _, err := Linearize(graph, registry.Builtin())
	require.NoError(t, err)

	entry, found := plan.Find("check")
	require.True(t, found)
	assert.Equal(t, "true", entry.Branches[0].EdgeLabel)
	assert.Equal(t, "false", entry.Branches[1].EdgeLabel)
}

func TestLinearizeBranchWithoutRejoin(t *testing.T) {
	graph := &types.WorkflowGraph{
		Nodes: []types.NodeInstance{
			newNode("start", "entry", "", nil),
			newNode("check", "condition", "", nil),
			newNode("yes", "return", "", nil),
			newNode("no", "log", "", nil),
		},
		Edges: []types.EdgeInstance{
			newEdge("start", "check"),
			newHandleEdge("check", "yes", "true"),
			newHandleEdge("check", "no", "false"),
		},
	}
	plan, _, err := Linearize(graph, registry.Builtin())
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, []string{"yes"}, plan[1].Branches[0].Plan.NodeIDs())
	assert.Equal(t, []string{"no"}, plan[1].Branches[1].Plan.NodeIDs())
}

func TestLinearizeLoop(t *testing.T) {
	plan, unreachable, err := Linearize(loopGraph(), registry.Builtin())
	require.NoError(t, err)
	assert.Empty(t, unreachable)
	require.Len(t, plan, 3)

	loop := plan[1]
	assert.Equal(t, EntryLoop, loop.Kind)
	assert.Equal(t, "each", loop.Node.ID)
	assert.Equal(t, []string{"say"}, loop.Body.NodeIDs())
	assert.Equal(t, "done", plan[2].Node.ID)
	assert.Equal(t, []string{"start", "each", "say", "done"}, plan.NodeIDs())
}

func TestLinearizeUnreachable(t *testing.T) {
	graph := agifyGraph()
	graph.Nodes = append(graph.Nodes,
		newNode("o1", "log", "", nil),
		newNode("o2", "log", "", nil),
	)
	graph.Edges = append(graph.Edges, newEdge("o1", "o2"))

	plan, unreachable, err := Linearize(graph, registry.Builtin())
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3", "n4"}, plan.NodeIDs())
	assert.Equal(t, []string{"o1", "o2"}, unreachable)
}

func TestLinearizeWithoutEntry(t *testing.T) {
	_, _, err := Linearize(&types.WorkflowGraph{}, registry.Builtin())
	assert.True(t, types.IsValidation(err))
}
