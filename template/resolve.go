package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cast"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/types"
	"github.com/warriorguo/wfcompiler/utils"
)

// Resolver resolves references against sample data: captured node states first,
// then the preset output the registry declares for the referenced node's type.
// The input of a node without a captured input is its own config.
type Resolver struct {
	registry *registry.Registry
	samples  types.NodeStateRecord
}

func NewResolver(reg *registry.Registry, samples types.NodeStateRecord) *Resolver {
	if samples == nil {
		samples = types.NodeStateRecord{}
	}
	return &Resolver{registry: reg, samples: samples}
}

func (r *Resolver) sample(ref *types.TemplateReference, graph *types.WorkflowGraph) (any, bool) {
	node, exists := graph.Node(ref.RefNodeID)
	if !exists {
		return nil, false
	}
	state, captured := r.samples[ref.RefNodeID]
	if ref.Accessor == types.AccessorInput {
		if captured && state.Input != nil {
			return state.Input, true
		}
		return map[string]any(node.Config), true
	}
	if captured {
		return state.Output, true
	}
	nt, exists := r.registry.Get(node.Type)
	if !exists || nt.PresetOutput == nil {
		return nil, false
	}
	return nt.PresetOutput, true
}

// ResolveReference returns the sample value ref points at.
func (r *Resolver) ResolveReference(ref *types.TemplateReference, graph *types.WorkflowGraph) (any, error) {
	value, exists := r.sample(ref, graph)
	if !exists {
		return nil, &types.ResolutionError{Kind: types.UnknownNode, Ref: *ref}
	}

	walked := utils.Path{}
	for path := utils.NewPath(ref.Path...); len(path) > 0; path = path.Next() {
		key, _ := path.First()
		walked = walked.AddString(key)
		next, ok := lookup(value, key)
		if !ok {
			return nil, &types.ResolutionError{Kind: types.UnknownPath, Ref: *ref, At: walked.String()}
		}
		value = next
	}
	return value, nil
}

func lookup(value any, key string) (any, bool) {
	switch v := value.(type) {
	case types.Data:
		inner, exists := v[key]
		return inner, exists
	case map[string]any:
		inner, exists := v[key]
		return inner, exists
	}
	return nil, false
}

type FieldError struct {
	Kind    types.ValidationKind `json:"kind"`
	NodeID  string               `json:"nodeId"`
	Field   string               `json:"field"`
	Message string               `json:"message"`
}

type FieldReference struct {
	NodeID string                  `json:"nodeId"`
	Field  string                  `json:"field"`
	Ref    types.TemplateReference `json:"ref"`
}

type ValidationResult struct {
	Valid      bool             `json:"valid"`
	Errors     []FieldError     `json:"errors"`
	References []FieldReference `json:"references"`
}

// ValidateWorkflowTemplates checks that every reference names a node of the graph.
// Ordering is deliberately not checked: the emitted program falls back to the
// trigger payload for references it cannot resolve at run time.
func ValidateWorkflowTemplates(graph *types.WorkflowGraph) *ValidationResult {
	result := &ValidationResult{Errors: []FieldError{}, References: []FieldReference{}}
	for _, node := range graph.Nodes {
		nodeID := node.ID
		Walk(node.Config, func(field string, value string) {
			for _, seg := range Split(value) {
				if seg.Kind != SegmentTemplate {
					continue
				}
				if seg.Err != nil {
					result.Errors = append(result.Errors, FieldError{
						Kind:    types.MalformedTemplate,
						NodeID:  nodeID,
						Field:   field,
						Message: fmt.Sprintf("malformed template %s", seg.Raw),
					})
					continue
				}
				if !graph.HasNode(seg.Ref.RefNodeID) {
					result.Errors = append(result.Errors, FieldError{
						Kind:    types.UnknownTemplateNode,
						NodeID:  nodeID,
						Field:   field,
						Message: fmt.Sprintf("template %s references unknown node %q", seg.Raw, seg.Ref.RefNodeID),
					})
					continue
				}
				result.References = append(result.References, FieldReference{NodeID: nodeID, Field: field, Ref: *seg.Ref})
			}
		})
	}
	result.Valid = len(result.Errors) == 0
	return result
}

// ResolvedField is the preview of one templated config value.
type ResolvedField struct {
	Field    string   `json:"field"`
	Raw      string   `json:"raw"`
	Value    any      `json:"value"`
	Resolved bool     `json:"resolved"`
	Errors   []string `json:"errors,omitempty"`
}

type ResolvedNode struct {
	NodeID string          `json:"nodeId"`
	Fields []ResolvedField `json:"fields"`
}

// ResolveWorkflow previews every templated field of every node, keyed by node id.
func (r *Resolver) ResolveWorkflow(graph *types.WorkflowGraph) map[string]*ResolvedNode {
	resolved := make(map[string]*ResolvedNode, len(graph.Nodes))
	for i := range graph.Nodes {
		node := &graph.Nodes[i]
		if _, exists := resolved[node.ID]; exists {
			continue
		}
		resolved[node.ID] = r.resolveNode(node, graph)
	}
	return resolved
}

func (r *Resolver) ResolveNode(nodeID string, graph *types.WorkflowGraph) (*ResolvedNode, error) {
	node, exists := graph.Node(nodeID)
	if !exists {
		return nil, errors.NotFoundf("node %s", nodeID)
	}
	return r.resolveNode(node, graph), nil
}

func (r *Resolver) resolveNode(node *types.NodeInstance, graph *types.WorkflowGraph) *ResolvedNode {
	rn := &ResolvedNode{NodeID: node.ID, Fields: []ResolvedField{}}
	Walk(node.Config, func(field string, value string) {
		if !HasTemplate(value) {
			return
		}
		rn.Fields = append(rn.Fields, r.resolveField(field, value, graph))
	})
	return rn
}

func (r *Resolver) resolveField(field, raw string, graph *types.WorkflowGraph) ResolvedField {
	rf := ResolvedField{Field: field, Raw: raw, Resolved: true}
	segments := Split(raw)

	resolveSegment := func(seg Segment) (any, bool) {
		if seg.Err != nil {
			rf.Errors = append(rf.Errors, seg.Err.Error())
			return nil, false
		}
		v, err := r.ResolveReference(seg.Ref, graph)
		if err != nil {
			rf.Errors = append(rf.Errors, err.Error())
			return nil, false
		}
		return v, true
	}

	// a lone template keeps the referenced value as is
	if len(segments) == 1 {
		v, ok := resolveSegment(segments[0])
		rf.Value, rf.Resolved = v, ok
		return rf
	}

	sb := &strings.Builder{}
	for _, seg := range segments {
		if seg.Kind == SegmentText {
			sb.WriteString(seg.Raw)
			continue
		}
		v, ok := resolveSegment(seg)
		if !ok {
			rf.Resolved = false
			sb.WriteString(seg.Raw)
			continue
		}
		sb.WriteString(Stringify(v))
	}
	rf.Value = sb.String()
	return rf
}

// Stringify renders a referenced value the way it is interpolated into text.
func Stringify(v any) string {
	switch v.(type) {
	case map[string]any, types.Data, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return cast.ToString(v)
		}
		return string(b)
	}
	return cast.ToString(v)
}
