package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/wfcompiler/marker"
	"github.com/warriorguo/wfcompiler/registry"
)

func TestRenderDOTChain(t *testing.T) {
	plan, _, err := Linearize(agifyGraph(), registry.Builtin())
	require.NoError(t, err)

	s := RenderDOT("agify", plan, nil)
	fmt.Println(s)
	assert.True(t, strings.HasPrefix(s, "digraph D {\n"))
	assert.Contains(t, s, `n2 [label="Fetch Age" shape="record"]`)
	assert.Contains(t, s, "n1 -> n2\n")
	assert.Contains(t, s, "n3 -> n4\n")
	assert.True(t, strings.HasSuffix(s, "label=\"agify\"\n}\n"))
}

func TestRenderDOTBranchWithTrace(t *testing.T) {
	plan, _, err := Linearize(branchGraph(), registry.Builtin())
	require.NoError(t, err)

	summary := &marker.RunSummary{Nodes: []marker.NodeRun{
		{NodeID: "start", Status: marker.NodeSucceeded},
		{NodeID: "check", Status: marker.NodeRunning},
		{NodeID: "adult", Status: marker.NodeFailed, Error: "boom"},
	}}
	s := RenderDOT("branching", plan, summary)
	fmt.Println(s)

	assert.Contains(t, s, "subgraph cluster_check_true {")
	assert.Contains(t, s, `check -> adult [label="true"]`)
	assert.Contains(t, s, `check -> minor [label="false"]`)
	assert.Contains(t, s, "adult -> join\n")
	assert.Contains(t, s, "minor -> join\n")
	assert.Contains(t, s, `check [label="Is Adult" shape="diamond" style="filled" color="yellow"`)
	assert.Contains(t, s, `color="red"`)
	assert.NotContains(t, s, `join [label="Join" shape="record" style`)
}

func TestRenderDOTLoop(t *testing.T) {
	plan, _, err := Linearize(loopGraph(), registry.Builtin())
	require.NoError(t, err)

	s := RenderDOT("looping", plan, nil)
	assert.Contains(t, s, `each [label="Each Item" shape="hexagon"]`)
	assert.Contains(t, s, `each -> say [label="body"]`)
	assert.Contains(t, s, `say -> each [label="next"]`)
	assert.Contains(t, s, "each -> done\n")
}
