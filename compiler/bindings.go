package compiler

import (
	"github.com/juju/errors"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/types"
)

// AggregateBindings merges the binding declarations of every node by name.
// The manifest keeps first appearance order; every node declaring a name under
// a different type than its first declarer yields one ConflictingBindingType.
func AggregateBindings(graph *types.WorkflowGraph, reg *registry.Registry) ([]types.ResolvedBinding, types.ValidationErrors) {
	manifest := make([]types.ResolvedBinding, 0)
	errs := types.ValidationErrors{}

	type declarer struct {
		index  int
		nodeID string
		typ    string
	}
	first := map[string]declarer{}

	for _, n := range graph.Nodes {
		nt, exists := reg.Get(n.Type)
		if !exists {
			continue
		}
		for _, decl := range nt.Bindings(n.Config) {
			usage := types.BindingUsage{NodeID: n.ID, NodeType: n.Type, UsageDetail: decl.UsageDetail}

			d, seen := first[decl.Name]
			if !seen {
				first[decl.Name] = declarer{len(manifest), n.ID, n.Type}
				manifest = append(manifest, types.ResolvedBinding{
					Name:       decl.Name,
					Type:       decl.Type,
					RequiredBy: []types.BindingUsage{usage},
				})
				continue
			}

			prev := &manifest[d.index]
			if prev.Type != decl.Type {
				errs = append(errs, types.NewValidationError(types.ConflictingBindingType,
					"binding %q is a %s for node %s (%s) but a %s for node %s (%s)",
					decl.Name, prev.Type, d.nodeID, d.typ, decl.Type, n.ID, n.Type).
					WithNode(n.ID).WithField(decl.Name))
				continue
			}
			prev.RequiredBy = append(prev.RequiredBy, usage)
		}
	}
	return manifest, errs
}

// ValidateBindings compares the bindings graph requires with the available
// ones, matching on name and type.
func ValidateBindings(graph *types.WorkflowGraph, reg *registry.Registry, available []types.BindingRef) (*types.BindingReport, error) {
	required, errs := AggregateBindings(graph, reg)
	if len(errs) > 0 {
		return nil, errors.Trace(errs)
	}
	if available == nil {
		available = []types.BindingRef{}
	}

	has := make(map[types.BindingRef]bool, len(available))
	for _, ref := range available {
		has[ref] = true
	}
	report := &types.BindingReport{
		Required:  required,
		Available: available,
		Missing:   make([]types.ResolvedBinding, 0),
	}
	for _, b := range required {
		if !has[b.Ref()] {
			report.Missing = append(report.Missing, b)
		}
	}
	return report, nil
}
