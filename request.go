package workflow

import (
	"strings"

	"github.com/juju/errors"
	"github.com/warriorguo/wfcompiler/types"
)

// CompileRequest is the editor document to compile. Both nodes and edges must
// be present, empty arrays are fine.
type CompileRequest struct {
	Name  string               `json:"name,omitempty"`
	Nodes []types.NodeInstance `json:"nodes"`
	Edges []types.EdgeInstance `json:"edges"`
}

func NewCompileRequest(graph *types.WorkflowGraph) *CompileRequest {
	if graph == nil {
		return nil
	}
	return &CompileRequest{Name: graph.Name, Nodes: graph.Nodes, Edges: graph.Edges}
}

func (r *CompileRequest) graph() (*types.WorkflowGraph, error) {
	if r == nil || r.Nodes == nil {
		return nil, errors.BadRequestf("nodes are required")
	}
	if r.Edges == nil {
		return nil, errors.BadRequestf("edges are required")
	}
	return &types.WorkflowGraph{Name: r.Name, Nodes: r.Nodes, Edges: r.Edges}, nil
}

type CompileResult struct {
	TsCode   string                  `json:"tsCode"`
	Bindings []types.ResolvedBinding `json:"bindings"`
}

// GraphRequest carries a graph for the template operations, edges are optional there.
type GraphRequest struct {
	Nodes []types.NodeInstance `json:"nodes"`
	Edges []types.EdgeInstance `json:"edges,omitempty"`
}

func (r *GraphRequest) graph() (*types.WorkflowGraph, error) {
	if r == nil || r.Nodes == nil {
		return nil, errors.BadRequestf("nodes are required")
	}
	return &types.WorkflowGraph{Nodes: r.Nodes, Edges: r.Edges}, nil
}

type WorkflowRequest struct {
	Workflow *types.WorkflowGraph `json:"workflow"`
}

func (r *WorkflowRequest) graph() (*types.WorkflowGraph, error) {
	if r == nil || r.Workflow == nil {
		return nil, errors.BadRequestf("workflow is required")
	}
	return r.Workflow, nil
}

type ValidateBindingsRequest struct {
	Workflow          *types.WorkflowGraph `json:"workflow"`
	AvailableBindings []types.BindingRef   `json:"availableBindings"`
}

type ReverseRequest struct {
	Code string `json:"code"`
}

func (r *ReverseRequest) code() (string, error) {
	if r == nil || strings.TrimSpace(r.Code) == "" {
		return "", errors.BadRequestf("code is required")
	}
	return r.Code, nil
}

type ReverseResult struct {
	Name  string               `json:"name,omitempty"`
	Nodes []types.NodeInstance `json:"nodes"`
	Edges []types.EdgeInstance `json:"edges"`
}

// BatchResult is the outcome of one graph of CompileBatch.
type BatchResult struct {
	Result *CompileResult `json:"result,omitempty"`
	Err    error          `json:"-"`
}
