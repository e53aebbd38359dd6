package graphio

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/juju/errors"
	"github.com/spf13/cast"
	"github.com/warriorguo/wfcompiler/types"
	"github.com/zclconf/go-cty/cty"
)

// EncodeHCL renders graph in the file form DecodeHCL reads. Edge ids derived
// from the endpoints are left out.
func EncodeHCL(graph *types.WorkflowGraph) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	root := f.Body()
	if graph.Name != "" {
		root.SetAttributeValue("name", cty.StringVal(graph.Name))
	}

	for _, n := range graph.Nodes {
		root.AppendNewline()
		body := root.AppendNewBlock("node", []string{n.Type, n.ID}).Body()
		if n.Label != "" {
			body.SetAttributeValue("label", cty.StringVal(n.Label))
		}
		if len(n.Config) == 0 {
			continue
		}
		val, err := nativeToCty(map[string]any(n.Config))
		if err != nil {
			return nil, errors.Annotatef(err, "node %s", n.ID)
		}
		body.SetAttributeValue("config", val)
	}

	for _, e := range graph.Edges {
		root.AppendNewline()
		body := root.AppendNewBlock("edge", []string{e.Source, e.Target}).Body()
		if e.ID != fmt.Sprintf("e_%s_%s", e.Source, e.Target) {
			body.SetAttributeValue("id", cty.StringVal(e.ID))
		}
		if e.SourceHandle != "" {
			body.SetAttributeValue("handle", cty.StringVal(e.SourceHandle))
		}
	}
	return f.Bytes(), nil
}

func nativeToCty(v any) (cty.Value, error) {
	switch tv := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(tv), nil
	case bool:
		return cty.BoolVal(tv), nil
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cty.NumberFloatVal(cast.ToFloat64(tv)), nil
	case types.Data:
		return nativeToCty(map[string]any(tv))
	case map[string]any:
		if len(tv) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(tv))
		for k, e := range tv {
			val, err := nativeToCty(e)
			if err != nil {
				return cty.NilVal, errors.Annotatef(err, "key %s", k)
			}
			attrs[k] = val
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		if len(tv) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(tv))
		for _, e := range tv {
			val, err := nativeToCty(e)
			if err != nil {
				return cty.NilVal, errors.Trace(err)
			}
			elems = append(elems, val)
		}
		return cty.TupleVal(elems), nil
	}
	return cty.NilVal, errors.NotSupportedf("config value of type %T", v)
}
