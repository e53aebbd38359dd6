package graphio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/wfcompiler/types"
)

const agifyJSON = `{
  "name": "agify",
  "nodes": [
    {"id": "n1", "type": "entry", "label": "Start"},
    {"id": "n2", "type": "http-request", "label": "Fetch Age", "config": {
      "url": "https://api.agify.io?name={{n1.output.name}}",
      "headers": {"Accept": "application/json"},
      "retries": 3
    }},
    {"id": "n3", "type": "condition", "config": {"left": "{{n2.output.status}}", "operator": "equals", "right": 200, "strict": true}},
    {"id": "n4", "type": "return", "config": {"value": ["{{n2.output.body}}", null]}}
  ],
  "edges": [
    {"id": "e1", "source": "n1", "target": "n2"},
    {"id": "e_n2_n3", "source": "n2", "target": "n3"},
    {"id": "e3", "source": "n3", "target": "n4", "sourceHandle": "true"}
  ]
}`

const agifyHCL = `
name = "agify"

node "entry" "n1" {
  label = "Start"
}

node "http-request" "n2" {
  label = "Fetch Age"
  config = {
    url     = "https://api.agify.io?name={{n1.output.name}}"
    headers = { Accept = "application/json" }
    retries = 3
  }
}

node "condition" "n3" {
  config = {
    left     = "{{n2.output.status}}"
    operator = "equals"
    right    = 200
    strict   = true
  }
}

node "return" "n4" {
  config = {
    value = ["{{n2.output.body}}", null]
  }
}

edge "n1" "n2" {
  id = "e1"
}

edge "n2" "n3" {}

edge "n3" "n4" {
  id     = "e3"
  handle = "true"
}
`

func TestDecodeJSON(t *testing.T) {
	graph, err := DecodeJSON([]byte(agifyJSON))
	require.NoError(t, err)

	assert.Equal(t, "agify", graph.Name)
	require.Len(t, graph.Nodes, 4)
	assert.Equal(t, types.Data{}, graph.Nodes[0].Config)
	assert.Equal(t, float64(3), graph.Nodes[1].Config["retries"])
	assert.Equal(t, "true", graph.Edges[2].SourceHandle)
}

func TestDecodeHCLMatchesJSON(t *testing.T) {
	fromJSON, err := DecodeJSON([]byte(agifyJSON))
	require.NoError(t, err)
	fromHCL, err := DecodeHCL([]byte(agifyHCL), "agify.hcl")
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromHCL)
}

func TestDecodeJSONRejectsBadShapes(t *testing.T) {
	cases := []string{
		`[]`,
		`{"edges": []}`,
		`{"nodes": []}`,
		`{"nodes": {}, "edges": []}`,
		`{"nodes": [], "edges": "n1->n2"}`,
		`{"nodes": [], "edges": null}`,
		`{"nodes": [{"id": 1}], "edges": []}`,
	}
	for _, c := range cases {
		_, err := DecodeJSON([]byte(c))
		assert.True(t, errors.Is(err, errors.BadRequest), c)
	}

	graph, err := DecodeJSON([]byte(`{"nodes": [], "edges": []}`))
	require.NoError(t, err)
	assert.Empty(t, graph.Nodes)
}

func TestDecodeHCLErrors(t *testing.T) {
	_, err := DecodeHCL([]byte(`node "entry" {`), "broken.hcl")
	assert.True(t, errors.Is(err, errors.BadRequest))

	_, err = DecodeHCL([]byte(`node "entry" "n1" { config = "text" }`), "scalar.hcl")
	assert.True(t, errors.Is(err, errors.BadRequest))

	_, err = DecodeHCL([]byte(`node "entry" "n1" { config = { a = var.x } }`), "vars.hcl")
	assert.True(t, errors.Is(err, errors.BadRequest))
}

func TestEncodeJSONRoundTrip(t *testing.T) {
	graph, err := DecodeJSON([]byte(agifyJSON))
	require.NoError(t, err)

	b, err := EncodeJSON(graph)
	require.NoError(t, err)
	again, err := DecodeJSON(b)
	require.NoError(t, err)
	assert.Equal(t, graph, again)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "agify.json")
	hclPath := filepath.Join(dir, "agify.hcl")
	require.NoError(t, os.WriteFile(jsonPath, []byte(agifyJSON), 0o644))
	require.NoError(t, os.WriteFile(hclPath, []byte(agifyHCL), 0o644))

	fromJSON, err := Load(jsonPath)
	require.NoError(t, err)
	fromHCL, err := Load(hclPath)
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromHCL)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestEncodeHCLRoundTrip(t *testing.T) {
	graph, err := DecodeJSON([]byte(agifyJSON))
	require.NoError(t, err)

	b, err := EncodeHCL(graph)
	require.NoError(t, err)
	assert.Contains(t, string(b), `node "http-request" "n2"`)
	assert.NotContains(t, string(b), `"e_n2_n3"`)

	again, err := DecodeHCL(b, "agify.hcl")
	require.NoError(t, err)
	assert.Equal(t, graph, again)
}
