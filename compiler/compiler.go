package compiler

import (
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/template"
	"github.com/warriorguo/wfcompiler/types"
)

// Artifact is the output of one forward compilation.
type Artifact struct {
	TsCode   string                  `json:"tsCode"`
	Bindings []types.ResolvedBinding `json:"bindings"`

	Plan        Plan     `json:"-"`
	Unreachable []string `json:"-"`
}

// Compiler runs the forward pipeline against one registry. It holds no
// per-call state and is safe for concurrent use.
type Compiler struct {
	registry *registry.Registry
	opts     *types.CompileOptions
}

func New(reg *registry.Registry, opts ...types.CompileOption) *Compiler {
	if reg == nil {
		reg = registry.Builtin()
	}
	options := types.NewCompileOptions()
	for _, o := range opts {
		o(options)
	}
	return &Compiler{registry: reg, opts: options}
}

func NewWithOptions(reg *registry.Registry, options *types.CompileOptions) *Compiler {
	if options == nil {
		options = types.NewCompileOptions()
	}
	c := New(reg)
	c.opts = options
	return c
}

func (c *Compiler) Registry() *registry.Registry {
	return c.registry
}

// Compile validates graph, plans it and emits the program. Independent input
// problems come back together as types.ValidationErrors, a codegen failure is
// fatal and a panic of a node type strategy is an InternalError.
func (c *Compiler) Compile(graph *types.WorkflowGraph) (artifact *Artifact, err error) {
	if graph == nil {
		return nil, errors.BadRequestf("workflow graph is required")
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("compile of workflow %q panicked: %v", graph.Name, r)
			artifact, err = nil, types.NewInternalErrorf("compile panicked: %v", r)
		}
	}()

	if errs := c.Check(graph); len(errs) > 0 {
		log.Debugf("workflow %q rejected with %d problem(s)", graph.Name, len(errs))
		return nil, errs
	}
	bindings, _ := AggregateBindings(graph, c.registry)

	for _, n := range graph.Nodes {
		if nt, exists := c.registry.Get(n.Type); !exists || nt.Codegen == nil {
			return nil, types.NewCodegenErrorf(n.ID, n.Type, "no codegen registered for node type %q", n.Type)
		}
	}

	plan, unreachable, err := Linearize(graph, c.registry)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Debugf("workflow %q planned %d node(s), %d unreachable", graph.Name, len(plan.NodeIDs()), len(unreachable))

	code, err := Emit(graph, plan, bindings, c.registry, c.opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Artifact{TsCode: code, Bindings: bindings, Plan: plan, Unreachable: unreachable}, nil
}

// Check collects structural, template and binding problems of graph in that order.
func (c *Compiler) Check(graph *types.WorkflowGraph) types.ValidationErrors {
	errs := Validate(graph, c.registry)

	for _, fe := range template.ValidateWorkflowTemplates(graph).Errors {
		errs = append(errs, types.NewValidationError(fe.Kind, "%s", fe.Message).WithNode(fe.NodeID).WithField(fe.Field))
	}

	_, bindingErrs := AggregateBindings(graph, c.registry)
	return append(errs, bindingErrs...)
}

func (c *Compiler) ValidateBindings(graph *types.WorkflowGraph, available []types.BindingRef) (*types.BindingReport, error) {
	return ValidateBindings(graph, c.registry, available)
}

func (c *Compiler) Plan(graph *types.WorkflowGraph) (Plan, error) {
	if errs := Validate(graph, c.registry); len(errs) > 0 {
		return nil, errs
	}
	plan, _, err := Linearize(graph, c.registry)
	return plan, errors.Trace(err)
}
