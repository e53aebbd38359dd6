// Package graphio reads and writes workflow graph documents: the JSON shape the
// editor sends and an HCL file form for graphs kept in a repository.
package graphio

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/warriorguo/wfcompiler/types"
)

// DecodeJSON decodes an editor document. nodes and edges must be present and be arrays.
func DecodeJSON(data []byte) (*types.WorkflowGraph, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.BadRequestf("workflow document is not a JSON object: %v", err)
	}
	for _, name := range []string{"nodes", "edges"} {
		raw, exists := fields[name]
		if !exists {
			return nil, errors.BadRequestf("workflow document has no %s", name)
		}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, errors.BadRequestf("workflow %s must be an array", name)
		}
	}

	graph := &types.WorkflowGraph{}
	if err := json.Unmarshal(data, graph); err != nil {
		return nil, errors.BadRequestf("malformed workflow document: %v", err)
	}
	for i := range graph.Nodes {
		if graph.Nodes[i].Config == nil {
			graph.Nodes[i].Config = types.Data{}
		}
	}
	return graph, nil
}

// EncodeJSON renders graph the way DecodeJSON reads it, indented.
func EncodeJSON(graph *types.WorkflowGraph) ([]byte, error) {
	b, err := json.MarshalIndent(graph, "", "  ")
	return b, errors.Trace(err)
}

// Load reads a graph file, HCL for .hcl files and JSON otherwise.
func Load(path string) (*types.WorkflowGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "read %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		graph, err := DecodeHCL(data, path)
		return graph, errors.Annotatef(err, "decode %s", path)
	}
	graph, err := DecodeJSON(data)
	return graph, errors.Annotatef(err, "decode %s", path)
}
