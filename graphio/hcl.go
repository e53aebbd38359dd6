package graphio

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/juju/errors"
	"github.com/warriorguo/wfcompiler/types"
	"github.com/zclconf/go-cty/cty"
)

// hclGraphFile is the top level of a graph file:
//
//	name = "agify"
//
//	node "entry" "n1" {
//	  label = "Start"
//	}
//
//	node "http-request" "n2" {
//	  config = {
//	    url = "https://api.agify.io?name={{n1.output.name}}"
//	  }
//	}
//
//	edge "n1" "n2" {}
type hclGraphFile struct {
	Name  *string    `hcl:"name,optional"`
	Nodes []*hclNode `hcl:"node,block"`
	Edges []*hclEdge `hcl:"edge,block"`
}

type hclNode struct {
	Type   string         `hcl:"type,label"`
	ID     string         `hcl:"id,label"`
	Label  *string        `hcl:"label,optional"`
	Config hcl.Expression `hcl:"config,optional"`
}

type hclEdge struct {
	Source string  `hcl:"source,label"`
	Target string  `hcl:"target,label"`
	ID     *string `hcl:"id,optional"`
	Handle *string `hcl:"handle,optional"`
}

// DecodeHCL decodes a graph file. Blocks keep their file order, which is the
// node and edge order of the graph. Config values must be constants.
func DecodeHCL(src []byte, filename string) (*types.WorkflowGraph, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.BadRequestf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	var parsed hclGraphFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, errors.BadRequestf("failed to decode HCL file %s: %s", filename, diags.Error())
	}

	graph := &types.WorkflowGraph{
		Nodes: make([]types.NodeInstance, 0, len(parsed.Nodes)),
		Edges: make([]types.EdgeInstance, 0, len(parsed.Edges)),
	}
	if parsed.Name != nil {
		graph.Name = *parsed.Name
	}

	for _, n := range parsed.Nodes {
		node := types.NodeInstance{ID: n.ID, Type: n.Type, Config: types.Data{}}
		if n.Label != nil {
			node.Label = *n.Label
		}
		config, err := decodeConfig(n.Config)
		if err != nil {
			return nil, errors.Annotatef(err, "node %s", n.ID)
		}
		if config != nil {
			node.Config = config
		}
		graph.Nodes = append(graph.Nodes, node)
	}

	for _, e := range parsed.Edges {
		edge := types.EdgeInstance{
			ID:     fmt.Sprintf("e_%s_%s", e.Source, e.Target),
			Source: e.Source,
			Target: e.Target,
		}
		if e.ID != nil {
			edge.ID = *e.ID
		}
		if e.Handle != nil {
			edge.SourceHandle = *e.Handle
		}
		graph.Edges = append(graph.Edges, edge)
	}
	return graph, nil
}

func decodeConfig(expr hcl.Expression) (types.Data, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, errors.BadRequestf("config: %s", diags.Error())
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, errors.BadRequestf("config must be an object, got %s", val.Type().FriendlyName())
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return types.Data(native.(map[string]any)), nil
}

// ctyToNative converts a constant cty value into the shapes encoding/json
// produces: strings, float64 numbers, bools, maps and slices.
func ctyToNative(val cty.Value) (any, error) {
	if !val.IsKnown() {
		return nil, errors.BadRequestf("config value is not known")
	}
	if val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			native, err := ctyToNative(v)
			if err != nil {
				return nil, errors.Annotatef(err, "key %s", k.AsString())
			}
			out[k.AsString()] = native
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			native, err := ctyToNative(v)
			if err != nil {
				return nil, errors.Trace(err)
			}
			out = append(out, native)
		}
		return out, nil
	}
	return nil, errors.NotSupportedf("config value of type %s", ty.FriendlyName())
}
