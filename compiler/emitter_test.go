package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/wfcompiler/marker"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/types"
)

func emit(t *testing.T, graph *types.WorkflowGraph, opts ...types.CompileOption) string {
	artifact, err := New(registry.Builtin(), opts...).Compile(graph)
	require.NoError(t, err)
	return artifact.TsCode
}

func TestEmitAgify(t *testing.T) {
	code := emit(t, agifyGraph())

	assert.True(t, strings.HasPrefix(code, generatedHeader+"\n"+`// Workflow: "agify"`+"\n"))
	assert.Contains(t, code, `import { WorkflowEntrypoint, WorkflowEvent, WorkflowStep } from "cloudflare:workers";`)
	assert.Contains(t, code, "export interface Env {\n  MY_KV: KVNamespace;\n}")
	assert.Contains(t, code, "export class AgifyWorkflow extends WorkflowEntrypoint<Env, Record<string, any>> {")

	assert.Contains(t, code, `const input: Record<string, any> = { "method": "GET", "url": "https://api.agify.io?name=" + __text(__ref(state, payload, "n1", "output", ["name"])) };`)
	assert.Contains(t, code, `"value": __ref(state, payload, "n2", "output", ["body", "age"])`)
	assert.Contains(t, code, `await this.env["MY_KV"].put(String(input["key"]), value);`)
	assert.Contains(t, code, `state["n2"] = await step.do("fetch_age", async () => {`)
	assert.Contains(t, code, `__fail("n3", error);`)

	assert.Equal(t, 1, strings.Count(code, `{"type":"WF_START"`))
	assert.Equal(t, 4, strings.Count(code, `{"type":"WF_NODE_START"`))
	assert.Equal(t, 4, strings.Count(code, `{"type":"WF_NODE_END"`))
	assert.Equal(t, 1, strings.Count(code, `{"type":"WF_NODE_ERROR"`))
	assert.Equal(t, 1, strings.Count(code, `{"type":"WF_END"`))
	assert.True(t, strings.HasSuffix(code, "    return results;\n  }\n}\n"))
}

func TestEmitSpansAreSequential(t *testing.T) {
	spans := marker.Parse(emit(t, agifyGraph()))
	require.Len(t, spans, 4)

	ids := []string{"n1", "n2", "n3", "n4"}
	for i, span := range spans {
		assert.Equal(t, ids[i], span.NodeID)
		assert.Less(t, span.StartLine, span.EndLine)
		if i > 0 {
			assert.Greater(t, span.StartLine, spans[i-1].EndLine)
		}
	}
	assert.Equal(t, "Fetch Age", spans[1].NodeLabel)
	assert.Equal(t, "http-request", spans[1].NodeType)
}

func TestEmitDeterministic(t *testing.T) {
	for _, graph := range []*types.WorkflowGraph{agifyGraph(), branchGraph(), loopGraph()} {
		assert.Equal(t, emit(t, graph), emit(t, graph))
	}
}

func TestEmitBranch(t *testing.T) {
	code := emit(t, branchGraph())
	assert.Contains(t, code, `const branch = String(state["check"].output?.branch);`)
	assert.Contains(t, code, `if (branch === "true") {`)
	assert.Contains(t, code, `} else if (branch === "false") {`)

	spans := marker.Parse(code)
	require.Len(t, spans, 6)
	byID := map[string]types.ParsedNodeSpan{}
	for _, s := range spans {
		byID[s.NodeID] = s
	}
	check := byID["check"]
	for _, inner := range []string{"adult", "minor"} {
		assert.Greater(t, byID[inner].StartLine, check.StartLine)
		assert.Less(t, byID[inner].EndLine, check.EndLine)
	}
	assert.Greater(t, byID["join"].StartLine, check.EndLine)
}

func TestEmitLoop(t *testing.T) {
	code := emit(t, loopGraph())
	assert.Contains(t, code, `const items: any[] = Array.isArray(state["each"].output?.items) ? state["each"].output.items : [];`)
	assert.Contains(t, code, "for (let index = 0; index < items.length; index++) {")
	assert.Contains(t, code, `state["each"].output = { ...state["each"].output, item: item, index: index };`)
	assert.Contains(t, code, "state[\"say\"] = await step.do(`say#${index}`, async () => {")
	assert.Contains(t, code, `"message": "item " + __text(__ref(state, payload, "each", "output", ["item"]))`)

	spans := marker.Parse(code)
	require.Len(t, spans, 4)
	byID := map[string]types.ParsedNodeSpan{}
	for _, s := range spans {
		byID[s.NodeID] = s
	}
	assert.Greater(t, byID["say"].StartLine, byID["each"].StartLine)
	assert.Less(t, byID["say"].EndLine, byID["each"].EndLine)
}

func TestEmitLoopStepKeysStayDistinct(t *testing.T) {
	graph := &types.WorkflowGraph{
		Nodes: []types.NodeInstance{
			newNode("start", "entry", "Start", nil),
			newNode("each", "for-each", "Each", types.Data{"items": "{{start.output.items}}"}),
			newNode("say", "log", "Say", types.Data{"message": "in"}),
			newNode("after", "log", "Say", types.Data{"message": "out"}),
			newNode("done", "return", "Done", nil),
		},
		Edges: []types.EdgeInstance{
			newEdge("start", "each"),
			newHandleEdge("each", "say", "body"),
			newEdge("say", "each"),
			newHandleEdge("each", "after", "done"),
			newEdge("after", "done"),
		},
	}
	code := emit(t, graph)
	assert.Contains(t, code, "state[\"say\"] = await step.do(`say#${index}`, async () => {")
	assert.Contains(t, code, `state["after"] = await step.do("say_2", async () => {`)
	assert.NotContains(t, code, "`say_${index}`")
}

func TestEmitHTTPRequestAvoidsHelperNames(t *testing.T) {
	code := emit(t, agifyGraph())
	assert.Contains(t, code, "function __text(value: any): string {")
	assert.Contains(t, code, "const raw = await response.text();")
	assert.NotContains(t, code, "const text ")
	assert.NotContains(t, code, "function text(")
}

func TestEmitStepKeys(t *testing.T) {
	graph := &types.WorkflowGraph{
		Nodes: []types.NodeInstance{
			newNode("n1", "entry", "", nil),
			newNode("n2", "log", "Log", nil),
			newNode("n3", "log", "Log", nil),
			newNode("n4", "log", "!!!", nil),
			newNode("n_jp", "log", "日本", nil),
			newNode("日本", "log", "", nil),
			newNode("n5", "return", "", nil),
		},
		Edges: chain("n1", "n2", "n3", "n4", "n_jp", "日本", "n5"),
	}
	code := emit(t, graph)
	assert.Contains(t, code, `step.do("n1", `)
	assert.Contains(t, code, `step.do("log", `)
	assert.Contains(t, code, `step.do("log_2", `)
	// labels without a slug fall back to the node id, then to "step"
	assert.Contains(t, code, `step.do("n4", `)
	assert.Contains(t, code, `step.do("n_jp", `)
	assert.Contains(t, code, `step.do("step", `)
	assert.Contains(t, code, "export class GeneratedWorkflow extends")
	assert.Contains(t, code, "export interface Env {}")
}

func TestEmitOptions(t *testing.T) {
	code := emit(t, agifyGraph(),
		types.WithIndentWidth(4),
		types.WithClassName("AgeWorkflow"),
		types.WithRuntimeModule("workflows-runtime"),
	)
	assert.Contains(t, code, `from "workflows-runtime";`)
	assert.Contains(t, code, "export class AgeWorkflow extends")
	assert.Contains(t, code, "\n        const payload: any = event.payload ?? {};\n")
}

func TestEmitConfigLiteralNeverLooksLikeMarker(t *testing.T) {
	graph := agifyGraph()
	graph.Nodes[1].Config = types.Data{
		"url":   "https://example.com",
		"body":  map[string]any{"type": "WF_NODE_END"},
		"label": `{"type":"WF_NODE_END","nodeId":"n1"}`,
	}
	graph.Nodes[1].Label = `{"type":"WF_NODE_START"}`

	spans := marker.Parse(emit(t, graph))
	require.Len(t, spans, 4)
	assert.Equal(t, `{"type":"WF_NODE_START"}`, spans[1].NodeLabel)
}

func TestRenderValue(t *testing.T) {
	cases := []struct {
		value    any
		expected string
	}{
		{nil, "null"},
		{true, "true"},
		{42, "42"},
		{1.5, "1.5"},
		{"plain", `"plain"`},
		{"{{a.b}}", `__ref(state, payload, "a", "output", ["b"])`},
		{"{{a.input.x}}!", `__text(__ref(state, payload, "a", "input", ["x"])) + "!"`},
		{"{{ bad expr }}", `"{{ bad expr }}"`},
		{[]any{1, "x"}, `[1, "x"]`},
		{map[string]any{}, "{}"},
		{map[string]any{"b": 1, "a": []any{}}, `{ "a": [], "b": 1 }`},
	}
	for _, c := range cases {
		s, err := renderValue(c.value)
		require.NoError(t, err)
		assert.Equal(t, c.expected, s)
	}
}

func TestMemberName(t *testing.T) {
	assert.Equal(t, "MY_KV", memberName("MY_KV"))
	assert.Equal(t, `"my-kv"`, memberName("my-kv"))
	assert.Equal(t, `"1KV"`, memberName("1KV"))
}
