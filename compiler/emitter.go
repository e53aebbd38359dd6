package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/juju/errors"
	"github.com/warriorguo/wfcompiler/marker"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/types"
	"github.com/warriorguo/wfcompiler/utils"
)

const (
	generatedHeader  = "// Code generated by wfcompiler. DO NOT EDIT."
	workflowHeader   = "// Workflow: "
	defaultClassName = "GeneratedWorkflow"
)

var bindingTypes = map[string]string{
	registry.BindingKV:      "KVNamespace",
	registry.BindingD1:      "D1Database",
	registry.BindingR2:      "R2Bucket",
	registry.BindingAI:      "Ai",
	registry.BindingService: "Fetcher",
}

// runtimeHelpers precede the workflow class. __fail holds the only node error
// literal of the program so that every node start is closed by its own end.
var runtimeHelpers = []string{
	`type NodeState = Record<string, { input: any; output: any }>;`,
	``,
	`function __ref(state: NodeState, payload: any, nodeId: string, accessor: "input" | "output", path: string[]): any {`,
	`  const record = state[nodeId];`,
	`  if (record === undefined) {`,
	`    return payload;`,
	`  }`,
	`  let value: any = record[accessor];`,
	`  for (const key of path) {`,
	`    if (value === null || typeof value !== "object" || !(key in value)) {`,
	`      return payload;`,
	`    }`,
	`    value = value[key];`,
	`  }`,
	`  return value;`,
	`}`,
	``,
	`function __text(value: any): string {`,
	`  if (value === undefined || value === null) {`,
	`    return "";`,
	`  }`,
	`  return typeof value === "string" ? value : JSON.stringify(value);`,
	`}`,
	``,
	`function __fail(nodeId: string, error: unknown): never {`,
	`  ` + marker.NodeErrorStatement("nodeId", "error instanceof Error ? error.message : String(error)"),
	`  throw error;`,
	`}`,
}

// reservedDecl matches a node body declaring a name the surrounding program
// already binds. Shadowing one inside the step callback breaks the input
// literal or the helpers it calls.
var reservedDecl = regexp.MustCompile(`\b(?:const|let|var|function|class)\s+(__ref|__text|__fail|NodeState|event|step|payload|state|input|results)\b`)

type emitter struct {
	opts     *types.CompileOptions
	registry *registry.Registry
	graph    *types.WorkflowGraph
	bindings []types.ResolvedBinding

	sb     *strings.Builder
	indent string
	depth  int

	usedKeys map[string]bool
	loops    []string
}

// Emit renders plan as the TypeScript workflow program. Equal inputs give
// byte-identical output.
func Emit(graph *types.WorkflowGraph, plan Plan, bindings []types.ResolvedBinding, reg *registry.Registry, opts *types.CompileOptions) (string, error) {
	if opts == nil {
		opts = types.NewCompileOptions()
	}
	width := opts.IndentWidth
	if width <= 0 {
		width = 2
	}
	e := &emitter{
		opts:     opts,
		registry: reg,
		graph:    graph,
		bindings: bindings,
		sb:       &strings.Builder{},
		indent:   strings.Repeat(" ", width),
		usedKeys: map[string]bool{},
	}
	if err := e.program(plan); err != nil {
		return "", errors.Trace(err)
	}
	return e.sb.String(), nil
}

func (e *emitter) write(format string, s ...any) {
	e.line(fmt.Sprintf(format, s...))
}

func (e *emitter) line(s string) {
	if s == "" {
		e.sb.WriteString("\n")
		return
	}
	e.sb.WriteString(strings.Repeat(e.indent, e.depth))
	e.sb.WriteString(s)
	e.sb.WriteString("\n")
}

func (e *emitter) open(s string) {
	e.line(s)
	e.depth++
}

func (e *emitter) close(s string) {
	e.depth--
	e.line(s)
}

// reopen closes the current block and opens the next one on the same line.
func (e *emitter) reopen(s string) {
	e.depth--
	e.line(s)
	e.depth++
}

func (e *emitter) className() string {
	if e.opts.ClassName != "" {
		return e.opts.ClassName
	}
	name := utils.PascalCase(e.graph.Name)
	if name == "" {
		return defaultClassName
	}
	if !strings.HasSuffix(name, "Workflow") {
		name += "Workflow"
	}
	return name
}

func (e *emitter) program(plan Plan) error {
	e.line(generatedHeader)
	if e.graph.Name != "" {
		e.line(workflowHeader + utils.Quote(e.graph.Name))
	}
	e.write("import { WorkflowEntrypoint, WorkflowEvent, WorkflowStep } from %s;", utils.Quote(e.opts.RuntimeModule))
	e.line("")

	e.env()
	e.line("")
	for _, l := range runtimeHelpers {
		e.line(l)
	}
	e.line("")

	e.write("export class %s extends WorkflowEntrypoint<Env, Record<string, any>> {", e.className())
	e.depth++
	e.open("async run(event: WorkflowEvent<Record<string, any>>, step: WorkflowStep) {")
	e.line("const payload: any = event.payload ?? {};")
	e.line("const state: NodeState = {};")
	e.line(marker.StartStatement("event.instanceId", "payload"))

	if err := e.plan(plan); err != nil {
		return errors.Trace(err)
	}

	e.line("")
	e.line("const results: Record<string, any> = {};")
	e.open("for (const [id, record] of Object.entries(state)) {")
	e.line("results[id] = record.output;")
	e.close("}")
	e.line(marker.EndStatement("results"))
	e.line("return results;")
	e.close("}")
	e.close("}")
	return nil
}

func (e *emitter) env() {
	if len(e.bindings) == 0 {
		e.line("export interface Env {}")
		return
	}
	e.open("export interface Env {")
	for _, b := range e.bindings {
		tsType, exists := bindingTypes[b.Type]
		if !exists {
			tsType = "unknown"
		}
		e.write("%s: %s;", memberName(b.Name), tsType)
	}
	e.close("}")
}

func (e *emitter) plan(plan Plan) error {
	for _, entry := range plan {
		e.line("")
		var err error
		switch entry.Kind {
		case EntryBranch:
			err = e.branch(entry)
		case EntryLoop:
			err = e.loop(entry)
		default:
			err = e.node(entry.Node, true)
		}
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (e *emitter) node(n types.NodeInstance, closeMarker bool) error {
	nt, exists := e.registry.Get(n.Type)
	if !exists || nt.Codegen == nil {
		return types.NewCodegenErrorf(n.ID, n.Type, "no codegen registered for node type %q", n.Type)
	}
	body, err := nt.Codegen.Generate(&registry.GenContext{Node: n, Bindings: nt.Bindings(n.Config)})
	if err != nil {
		return types.NewCodegenError(n.ID, n.Type, err)
	}
	for _, l := range body {
		if m := reservedDecl.FindStringSubmatch(l); m != nil {
			return types.NewCodegenErrorf(n.ID, n.Type, "generated body redeclares reserved name %q", m[1])
		}
	}
	input, err := renderValue(n.Config)
	if err != nil {
		return types.NewCodegenError(n.ID, n.Type, err)
	}

	e.write("// %s (%s)", utils.Quote(n.DisplayLabel()), n.Type)
	e.line(marker.NodeStartStatement(n.ID, n.Label, n.Type))
	e.open("try {")
	e.write("state[%s] = await step.do(%s, async () => {", utils.Quote(n.ID), e.stepKey(n))
	e.depth++
	e.line("const input: Record<string, any> = " + input + ";")
	for _, l := range body {
		e.line(l)
	}
	e.line("return { input, output };")
	e.close("});")
	if closeMarker {
		e.line(marker.NodeEndStatement(n.ID))
	}
	e.reopen("} catch (error) {")
	e.write("__fail(%s, error);", utils.Quote(n.ID))
	e.close("}")
	return nil
}

func (e *emitter) branch(entry PlanEntry) error {
	id := utils.Quote(entry.Node.ID)
	if err := e.node(entry.Node, false); err != nil {
		return errors.Trace(err)
	}
	e.open("{")
	e.write("const branch = String(state[%s].output?.branch);", id)
	for i, b := range entry.Branches {
		cond := fmt.Sprintf("if (branch === %s) {", utils.Quote(b.EdgeLabel))
		if i == 0 {
			e.open(cond)
		} else {
			e.reopen("} else " + cond)
		}
		if err := e.plan(b.Plan); err != nil {
			return errors.Trace(err)
		}
	}
	if len(entry.Branches) > 0 {
		e.close("}")
	}
	e.close("}")
	e.line(marker.NodeEndStatement(entry.Node.ID))
	return nil
}

func (e *emitter) loop(entry PlanEntry) error {
	id := utils.Quote(entry.Node.ID)
	if err := e.node(entry.Node, false); err != nil {
		return errors.Trace(err)
	}

	suffix := ""
	if len(e.loops) > 0 {
		suffix = fmt.Sprint(len(e.loops))
	}
	items, item, index := "items"+suffix, "item"+suffix, "index"+suffix

	e.open("{")
	e.write("const %s: any[] = Array.isArray(state[%s].output?.items) ? state[%s].output.items : [];", items, id, id)
	e.open(fmt.Sprintf("for (let %s = 0; %s < %s.length; %s++) {", index, index, items, index))
	e.write("const %s = %s[%s];", item, items, index)
	e.write("state[%s].output = { ...state[%s].output, item: %s, index: %s };", id, id, item, index)

	e.loops = append(e.loops, index)
	err := e.plan(entry.Body)
	e.loops = e.loops[:len(e.loops)-1]
	if err != nil {
		return errors.Trace(err)
	}

	e.close("}")
	e.close("}")
	e.line(marker.NodeEndStatement(entry.Node.ID))
	return nil
}

// stepKey names the durable step of n: the slug of its label (or id), unique
// within the program. Inside loops each enclosing index is appended after a
// '#', which no slug contains, so iteration keys never meet dedupe suffixes.
func (e *emitter) stepKey(n types.NodeInstance) string {
	base := utils.Slug(n.DisplayLabel())
	if base == "" {
		base = utils.Slug(n.ID)
	}
	if base == "" {
		base = "step"
	}
	key := base
	for i := 2; e.usedKeys[key]; i++ {
		key = fmt.Sprintf("%s_%d", base, i)
	}
	e.usedKeys[key] = true

	if len(e.loops) == 0 {
		return utils.Quote(key)
	}
	sb := &strings.Builder{}
	sb.WriteString("`" + key)
	for _, index := range e.loops {
		sb.WriteString("#${" + index + "}")
	}
	sb.WriteString("`")
	return sb.String()
}

func memberName(name string) string {
	for i, r := range name {
		ident := r == '_' || r == '$' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (i > 0 && r >= '0' && r <= '9')
		if !ident {
			return utils.Quote(name)
		}
	}
	if name == "" {
		return `""`
	}
	return name
}
