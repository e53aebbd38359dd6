package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	workflow "github.com/warriorguo/wfcompiler"
	"github.com/warriorguo/wfcompiler/graphio"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/store"
	"github.com/warriorguo/wfcompiler/store/postgres"
	"github.com/warriorguo/wfcompiler/types"
)

type cmdEnv struct {
	out    io.Writer
	config *config
	name   string
	usage  string
}

// flags returns the flag set of the command, parse it with parse.
func (c *cmdEnv) flags() *flag.FlagSet {
	fs := flag.NewFlagSet("wfc "+c.name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func (c *cmdEnv) parse(fs *flag.FlagSet, args []string, nargs int) error {
	if err := fs.Parse(args); err != nil {
		return &ExitError{Code: exitUsage, Message: err.Error()}
	}
	if nargs >= 0 && fs.NArg() != nargs {
		return &ExitError{Code: exitUsage, Message: "usage: wfc " + c.usage}
	}
	return nil
}

func (c *cmdEnv) engine(ctx context.Context, opts ...types.EngineOption) (*workflow.Engine, store.Store, error) {
	return newEngine(ctx, c.config, opts...)
}

func (c *cmdEnv) writeJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Trace(err)
	}
	_, err = fmt.Fprintln(c.out, string(b))
	return errors.Trace(err)
}

func compileFlags(fs *flag.FlagSet) func() types.EngineOption {
	className := fs.String("class", "", "Class name of the emitted workflow, derived from the graph name when empty.")
	indent := fs.Int("indent", 2, "Spaces per indentation level.")
	runtimeModule := fs.String("runtime", "cloudflare:workers", "Module the workflow runtime is imported from.")
	return func() types.EngineOption {
		return types.WithCompileOptions(
			types.WithClassName(*className),
			types.WithIndentWidth(*indent),
			types.WithRuntimeModule(*runtimeModule),
		)
	}
}

func runCompile(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	output := fs.String("o", "", "Write the program to FILE instead of stdout.")
	manifest := fs.Bool("bindings", false, "Print the binding manifest as JSON after the program.")
	options := compileFlags(fs)
	if err := c.parse(fs, args, 1); err != nil {
		return err
	}

	graph, err := graphio.Load(fs.Arg(0))
	if err != nil {
		return errors.Trace(err)
	}
	e, _, err := c.engine(ctx, options())
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	result, err := e.Compile(ctx, workflow.NewCompileRequest(graph))
	if err != nil {
		return reportError(c.out, err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(result.TsCode), 0o644); err != nil {
			return errors.Annotatef(err, "write %s", *output)
		}
		log.Infof("wrote %s with %d binding(s)", *output, len(result.Bindings))
	} else {
		fmt.Fprint(c.out, result.TsCode)
	}
	if *manifest {
		return c.writeJSON(result.Bindings)
	}
	return nil
}

// runBatch compiles every graph into DIR/<base>.ts. All graphs are attempted,
// the command fails when any of them did.
func runBatch(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	dir := fs.String("out", ".", "Directory the programs are written to.")
	options := compileFlags(fs)
	if err := c.parse(fs, args, -1); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return &ExitError{Code: exitUsage, Message: "usage: wfc " + c.usage}
	}

	paths := fs.Args()
	reqs := make([]*workflow.CompileRequest, len(paths))
	failed := 0
	for i, path := range paths {
		graph, err := graphio.Load(path)
		if err != nil {
			log.Errorf("%s: %v", path, err)
			failed++
			continue
		}
		reqs[i] = workflow.NewCompileRequest(graph)
	}

	e, _, err := c.engine(ctx, options())
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	for i, r := range e.CompileBatch(ctx, reqs) {
		if reqs[i] == nil {
			continue
		}
		if r.Err != nil {
			log.Errorf("%s: %v", paths[i], r.Err)
			failed++
			continue
		}
		base := strings.TrimSuffix(filepath.Base(paths[i]), filepath.Ext(paths[i]))
		target := filepath.Join(*dir, base+".ts")
		if err := os.WriteFile(target, []byte(r.Result.TsCode), 0o644); err != nil {
			return errors.Annotatef(err, "write %s", target)
		}
		fmt.Fprintln(c.out, target)
	}
	if failed > 0 {
		return &ExitError{Code: exitFailure, Message: fmt.Sprintf("%d of %d graph(s) failed", failed, len(paths))}
	}
	return nil
}

// runCheck prints the problems of a graph one per line, without emitting.
func runCheck(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	if err := c.parse(fs, args, 1); err != nil {
		return err
	}
	graph, err := graphio.Load(fs.Arg(0))
	if err != nil {
		return errors.Trace(err)
	}
	e, _, err := c.engine(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	artifact, err := e.Preview(workflow.NewCompileRequest(graph))
	if err != nil {
		return reportError(c.out, err)
	}
	for _, id := range artifact.Unreachable {
		fmt.Fprintf(c.out, "warning: node %s is unreachable from the entry\n", id)
	}
	fmt.Fprintln(c.out, "ok")
	return nil
}

func runBindings(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	available := fs.String("available", "", "Comma separated NAME:TYPE bindings of the deployment.")
	if err := c.parse(fs, args, 1); err != nil {
		return err
	}
	refs, err := parseBindingRefs(*available)
	if err != nil {
		return err
	}
	graph, err := graphio.Load(fs.Arg(0))
	if err != nil {
		return errors.Trace(err)
	}
	e, _, err := c.engine(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	report, err := e.ValidateBindings(&workflow.ValidateBindingsRequest{Workflow: graph, AvailableBindings: refs})
	if err != nil {
		return reportError(c.out, err)
	}
	if err := c.writeJSON(report); err != nil {
		return err
	}
	if len(report.Missing) > 0 {
		return &ExitError{Code: exitFailure, Message: fmt.Sprintf("%d binding(s) missing", len(report.Missing))}
	}
	return nil
}

func parseBindingRefs(s string) ([]types.BindingRef, error) {
	refs := make([]types.BindingRef, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ, found := strings.Cut(part, ":")
		if !found || name == "" || typ == "" {
			return nil, &ExitError{Code: exitUsage, Message: fmt.Sprintf("binding %q is not NAME:TYPE", part)}
		}
		refs = append(refs, types.BindingRef{Name: name, Type: typ})
	}
	return refs, nil
}

func runTemplates(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	if err := c.parse(fs, args, 1); err != nil {
		return err
	}
	graph, err := graphio.Load(fs.Arg(0))
	if err != nil {
		return errors.Trace(err)
	}
	e, _, err := c.engine(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	result, err := e.ValidateTemplates(&workflow.GraphRequest{Nodes: graph.Nodes, Edges: graph.Edges})
	if err != nil {
		return errors.Trace(err)
	}
	if err := c.writeJSON(result); err != nil {
		return err
	}
	if !result.Valid {
		return &ExitError{Code: exitFailure, Message: fmt.Sprintf("%d template error(s)", len(result.Errors))}
	}
	return nil
}

func runResolve(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	nodeID := fs.String("node", "", "Resolve only this node.")
	samplesPath := fs.String("samples", "", "JSON file of captured node states {nodeId: {input, output}}.")
	if err := c.parse(fs, args, 1); err != nil {
		return err
	}

	opts := make([]types.EngineOption, 0)
	if *samplesPath != "" {
		data, err := os.ReadFile(*samplesPath)
		if err != nil {
			return errors.Annotatef(err, "read %s", *samplesPath)
		}
		samples := types.NodeStateRecord{}
		if err := json.Unmarshal(data, &samples); err != nil {
			return errors.BadRequestf("samples file %s: %v", *samplesPath, err)
		}
		opts = append(opts, types.WithSamples(samples))
	}

	graph, err := graphio.Load(fs.Arg(0))
	if err != nil {
		return errors.Trace(err)
	}
	e, _, err := c.engine(ctx, opts...)
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	req := &workflow.WorkflowRequest{Workflow: graph}
	if *nodeID != "" {
		node, err := e.ResolveNode(req, *nodeID)
		if err != nil {
			return errors.Trace(err)
		}
		return c.writeJSON(node)
	}
	resolved, err := e.ResolveWorkflow(req)
	if err != nil {
		return errors.Trace(err)
	}
	return c.writeJSON(resolved)
}

func runReverse(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	format := fs.String("format", "json", "Output format: json or hcl.")
	if err := c.parse(fs, args, 1); err != nil {
		return err
	}
	code, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return errors.Annotatef(err, "read %s", fs.Arg(0))
	}
	e, _, err := c.engine(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	result, err := e.ReverseCodegen(&workflow.ReverseRequest{Code: string(code)})
	if err != nil {
		return errors.Trace(err)
	}
	graph := &types.WorkflowGraph{Name: result.Name, Nodes: result.Nodes, Edges: result.Edges}

	var b []byte
	switch *format {
	case "json":
		b, err = graphio.EncodeJSON(graph)
	case "hcl":
		b, err = graphio.EncodeHCL(graph)
	default:
		return &ExitError{Code: exitUsage, Message: fmt.Sprintf("unknown format %q", *format)}
	}
	if err != nil {
		return errors.Trace(err)
	}
	_, err = fmt.Fprintln(c.out, strings.TrimRight(string(b), "\n"))
	return errors.Trace(err)
}

func runSpans(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	if err := c.parse(fs, args, 1); err != nil {
		return err
	}
	text, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return errors.Annotatef(err, "read %s", fs.Arg(0))
	}
	e, _, err := c.engine(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	spans, err := e.ParseStructure(&workflow.ReverseRequest{Code: string(text)})
	if err != nil {
		return errors.Trace(err)
	}
	return c.writeJSON(spans)
}

func runTrace(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	if err := c.parse(fs, args, 1); err != nil {
		return err
	}
	trace, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return errors.Annotatef(err, "read %s", fs.Arg(0))
	}
	e, _, err := c.engine(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	summary, err := e.Summarize(string(trace))
	if err != nil {
		return errors.Trace(err)
	}
	return c.writeJSON(summary)
}

func runDOT(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	tracePath := fs.String("trace", "", "Color the nodes by the run recorded in this trace file.")
	if err := c.parse(fs, args, 1); err != nil {
		return err
	}
	trace := ""
	if *tracePath != "" {
		b, err := os.ReadFile(*tracePath)
		if err != nil {
			return errors.Annotatef(err, "read %s", *tracePath)
		}
		trace = string(b)
	}
	graph, err := graphio.Load(fs.Arg(0))
	if err != nil {
		return errors.Trace(err)
	}
	e, _, err := c.engine(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	dot, err := e.RenderDOT(&workflow.WorkflowRequest{Workflow: graph}, trace)
	if err != nil {
		return reportError(c.out, err)
	}
	fmt.Fprint(c.out, dot)
	return nil
}

func runTypes(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	if err := c.parse(fs, args, 0); err != nil {
		return err
	}
	e, _, err := c.engine(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()

	for _, name := range e.Registry().Names() {
		nt, _ := e.Registry().Get(name)
		fmt.Fprintf(c.out, "%-16s %s\n", name, strings.Join(portNames(nt.OutputPorts), ","))
	}
	return nil
}

func runCache(ctx context.Context, c *cmdEnv, args []string) error {
	fs := c.flags()
	maxAge := fs.Duration("max-age", 30*24*time.Hour, "prune: drop artifacts not written within this duration.")
	if err := c.parse(fs, args, 1); err != nil {
		return err
	}
	e, s, err := c.engine(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer e.Close()
	if s == nil {
		return &ExitError{Code: exitUsage, Message: "no artifact cache configured, set WFC_POSTGRES_DSN"}
	}

	switch fs.Arg(0) {
	case "list":
		keys, err := e.CacheKeys(ctx)
		if err != nil {
			return errors.Trace(err)
		}
		for _, key := range keys {
			fmt.Fprintln(c.out, key)
		}
	case "purge":
		n, err := e.PurgeCache(ctx)
		if err != nil {
			return errors.Trace(err)
		}
		fmt.Fprintf(c.out, "purged %d artifact(s)\n", n)
	case "prune":
		n, err := postgres.Prune(ctx, s, store.ArtifactPrefix, *maxAge)
		if err != nil {
			return errors.Trace(err)
		}
		fmt.Fprintf(c.out, "pruned %d artifact(s)\n", n)
	default:
		return &ExitError{Code: exitUsage, Message: fmt.Sprintf("unknown cache action %q", fs.Arg(0))}
	}
	return nil
}

func portNames(ports []registry.Port) []string {
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.Name)
	}
	return names
}

// reportError prints every validation problem of err on its own line.
func reportError(out io.Writer, err error) error {
	var errs types.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	for _, e := range errs {
		fmt.Fprintln(out, e.Error())
	}
	return &ExitError{Code: exitFailure, Message: fmt.Sprintf("%d validation error(s)", len(errs))}
}
