package compiler

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/wfcompiler/types"
)

func TestBuild(t *testing.T) {
	spans := []types.ParsedNodeSpan{
		{NodeID: "b", NodeType: "log", NodeLabel: "B", StartLine: 10, EndLine: 14},
		{NodeID: "a", NodeType: "entry", NodeLabel: "A", StartLine: 3, EndLine: 8},
		{NodeID: "b", NodeType: "log", NodeLabel: "B again", StartLine: 20, EndLine: 24},
		{NodeID: "c", NodeType: "return", StartLine: 16, EndLine: 19},
	}
	graph, err := Build(spans)
	require.NoError(t, err)

	require.Len(t, graph.Nodes, 3)
	assert.Equal(t, types.NodeInstance{ID: "a", Type: "entry", Label: "A", Config: types.Data{}}, graph.Nodes[0])
	assert.Equal(t, "b", graph.Nodes[1].ID)
	assert.Equal(t, "B", graph.Nodes[1].Label)
	assert.Equal(t, "c", graph.Nodes[2].ID)

	assert.Equal(t, []types.EdgeInstance{
		{ID: "e_a_b", Source: "a", Target: "b"},
		{ID: "e_b_c", Source: "b", Target: "c"},
	}, graph.Edges)

	// the input is left untouched
	assert.Equal(t, "b", spans[0].NodeID)
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil)
	assert.True(t, errors.Is(err, types.ErrEmptyProgram))

	_, err = ReverseCompile("const x = 1;\n")
	assert.True(t, errors.Is(err, types.ErrEmptyProgram))
}

func TestReverseCompileRoundTrip(t *testing.T) {
	original := agifyGraph()
	graph, err := ReverseCompile(emit(t, original))
	require.NoError(t, err)

	assert.Equal(t, "agify", graph.Name)
	require.Len(t, graph.Nodes, len(original.Nodes))
	for i, n := range graph.Nodes {
		assert.Equal(t, original.Nodes[i].ID, n.ID)
		assert.Equal(t, original.Nodes[i].Type, n.Type)
		assert.Equal(t, original.Nodes[i].Label, n.Label)
		assert.Empty(t, n.Config)
	}
	require.Len(t, graph.Edges, len(original.Edges))
	for i, e := range graph.Edges {
		assert.Equal(t, original.Edges[i].Source, e.Source)
		assert.Equal(t, original.Edges[i].Target, e.Target)
	}
}

func TestReverseCompileNestedPlan(t *testing.T) {
	graph, err := ReverseCompile(emit(t, loopGraph()))
	require.NoError(t, err)

	ids := make([]string, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"start", "each", "say", "done"}, ids)
	assert.Len(t, graph.Edges, 3)
}
