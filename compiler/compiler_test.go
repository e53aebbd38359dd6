package compiler

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/types"
)

func TestCompileAgify(t *testing.T) {
	artifact, err := New(nil).Compile(agifyGraph())
	require.NoError(t, err)

	assert.Equal(t, []types.ResolvedBinding{{
		Name:       "MY_KV",
		Type:       registry.BindingKV,
		RequiredBy: []types.BindingUsage{{NodeID: "n3", NodeType: "kv-put", UsageDetail: "put key"}},
	}}, artifact.Bindings)
	assert.Equal(t, []string{"n1", "n2", "n3", "n4"}, artifact.Plan.NodeIDs())
	assert.Empty(t, artifact.Unreachable)
}

func TestCompileEmptyGraph(t *testing.T) {
	_, err := New(nil).Compile(&types.WorkflowGraph{})
	require.Error(t, err)

	var errs types.ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, []types.ValidationKind{types.MissingEntry, types.MissingTerminal}, errs.Kinds())
}

func TestCompileCollectsAllProblems(t *testing.T) {
	graph := agifyGraph()
	graph.Nodes[1].Config["url"] = "{{ghost.output.url}}"
	graph.Nodes[2].Config["value"] = "{{n2.output.}}"
	graph.Nodes = append(graph.Nodes,
		newNode("q", "d1-query", "", types.Data{"database": "MY_KV"}),
	)
	graph.Edges = append(graph.Edges, newEdge("n2", "q"))

	_, err := New(nil).Compile(graph)
	var errs types.ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, []types.ValidationKind{
		types.UnknownTemplateNode,
		types.MalformedTemplate,
		types.ConflictingBindingType,
	}, errs.Kinds())
	assert.Equal(t, "n2", errs[0].NodeID)
	assert.Equal(t, "url", errs[0].Field)
}

func TestCompileUnknownNodeType(t *testing.T) {
	graph := agifyGraph()
	graph.Nodes[2].Type = "mystery"

	_, err := New(nil).Compile(graph)
	require.Error(t, err)

	var ce *types.CodegenError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "n3", ce.NodeID)
	assert.Equal(t, "mystery", ce.NodeType)
	assert.True(t, errors.Is(err, errors.NotSupported))
}

func TestCompileCodegenFailure(t *testing.T) {
	graph := agifyGraph()
	// a templated namespace declares no binding, the strategy has nothing to address
	graph.Nodes[2].Config["namespace"] = "{{n1.output.ns}}"

	_, err := New(nil).Compile(graph)
	var ce *types.CodegenError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "n3", ce.NodeID)
}

func TestCompileNilGraph(t *testing.T) {
	artifact, err := New(nil).Compile(nil)
	assert.Nil(t, artifact)
	require.Error(t, err)
	assert.True(t, types.IsBadRequest(err))
	assert.False(t, types.IsInternal(err))
}

func TestCompileRejectsShadowingBody(t *testing.T) {
	for _, name := range []string{"state", "payload", "input", "__ref", "__text", "__fail"} {
		reg, err := registry.Builtin().With(&registry.NodeType{
			Name:    "shadow",
			Codegen: registry.Lines("const "+name+" = 1;", "const output = { shadowed: true };"),
		})
		require.NoError(t, err)

		graph := agifyGraph()
		graph.Nodes[2] = newNode("n3", "shadow", "Shadow", nil)

		_, err = New(reg).Compile(graph)
		var ce *types.CodegenError
		require.True(t, errors.As(err, &ce), name)
		assert.Equal(t, "n3", ce.NodeID)
		assert.Contains(t, err.Error(), name)
	}
}

func TestCompileRecoversPanics(t *testing.T) {
	reg, err := registry.Builtin().With(&registry.NodeType{
		Name: "explode",
		RequiredBindings: func(config types.Data) []types.BindingDecl {
			panic("boom")
		},
		Codegen: registry.Lines("const output = null;"),
	})
	require.NoError(t, err)

	graph := agifyGraph()
	graph.Nodes[2].Type = "explode"

	_, err = New(reg).Compile(graph)
	require.Error(t, err)
	assert.True(t, types.IsInternal(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestCompileCustomNodeType(t *testing.T) {
	reg, err := registry.Builtin().With(&registry.NodeType{
		Name: "queue-send",
		RequiredBindings: func(config types.Data) []types.BindingDecl {
			return []types.BindingDecl{{Name: config.GetStringDefault("queue", "JOBS"), Type: "queue"}}
		},
		Codegen: registry.CodegenFunc(func(gc *registry.GenContext) ([]string, error) {
			return []string{
				`await this.env["` + gc.Bindings[0].Name + `"].send(input);`,
				`const output = { sent: true };`,
			}, nil
		}),
	})
	require.NoError(t, err)

	graph := agifyGraph()
	graph.Nodes[2] = newNode("n3", "queue-send", "Enqueue", nil)

	artifact, err := New(reg).Compile(graph)
	require.NoError(t, err)
	assert.Contains(t, artifact.TsCode, "JOBS: unknown;")
	assert.Contains(t, artifact.TsCode, `await this.env["JOBS"].send(input);`)
}

func TestCompileDoesNotMutateInput(t *testing.T) {
	graph := agifyGraph()
	before := agifyGraph()
	_, err := New(nil).Compile(graph)
	require.NoError(t, err)
	assert.Equal(t, before, graph)
}

func TestCompilerPlan(t *testing.T) {
	plan, err := New(nil).Plan(branchGraph())
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "check", "adult", "minor", "join", "done"}, plan.NodeIDs())

	_, err = New(nil).Plan(&types.WorkflowGraph{})
	assert.True(t, types.IsValidation(err))
}
