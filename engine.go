package workflow

import (
	"context"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/wfcompiler/compiler"
	"github.com/warriorguo/wfcompiler/marker"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/store"
	"github.com/warriorguo/wfcompiler/template"
	"github.com/warriorguo/wfcompiler/types"
	"github.com/warriorguo/wfcompiler/utils"
)

// Engine is the operation surface of the compiler: forward and reverse
// compilation, template and binding checks and trace decoding. It is safe for
// concurrent use.
type Engine struct {
	registry *registry.Registry
	compiler *compiler.Compiler
	resolver *template.Resolver
	cache    *store.ArtifactCache
	opts     *types.EngineOptions
}

func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Compile compiles the document of req. With a cache configured, a document
// compiled before is served from it; cache failures only cost the lookup.
func (e *Engine) Compile(ctx context.Context, req *CompileRequest) (*CompileResult, error) {
	graph, err := req.graph()
	if err != nil {
		return nil, errors.Trace(err)
	}

	key := e.artifactKey(graph)
	if key != "" {
		result := &CompileResult{}
		hit, err := e.cache.Load(ctx, key, result)
		if err != nil {
			log.Errorf("artifact cache lookup of workflow %q failed: %v", graph.Name, err)
		}
		if hit {
			log.Debugf("workflow %q served from artifact %s", graph.Name, key)
			return result, nil
		}
	}

	artifact, err := e.compiler.Compile(graph)
	if err != nil {
		return nil, err
	}
	result := &CompileResult{TsCode: artifact.TsCode, Bindings: artifact.Bindings}

	if key != "" {
		if err := e.cache.Save(ctx, key, result); err != nil {
			log.Errorf("artifact cache save of workflow %q failed: %v", graph.Name, err)
		}
	}
	return result, nil
}

// Preview compiles req without touching the cache, for live editor previews.
func (e *Engine) Preview(req *CompileRequest) (*compiler.Artifact, error) {
	graph, err := req.graph()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return e.compiler.Compile(graph)
}

// CompileBatch compiles reqs on a worker pool of EngineOptions.Concurrency
// workers. Results keep the order of reqs, requests still queued when ctx is
// done fail with its error.
func (e *Engine) CompileBatch(ctx context.Context, reqs []*CompileRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))
	wp := workerpool.New(e.opts.Concurrency)

	for i, req := range reqs {
		i, req := i, req
		wp.Submit(func() {
			if err := ctx.Err(); err != nil {
				results[i].Err = errors.Trace(err)
				return
			}
			results[i].Result, results[i].Err = e.Compile(ctx, req)
		})
	}
	wp.StopWait()
	return results
}

func (e *Engine) ValidateBindings(req *ValidateBindingsRequest) (*types.BindingReport, error) {
	if req == nil || req.Workflow == nil {
		return nil, errors.BadRequestf("workflow is required")
	}
	return e.compiler.ValidateBindings(req.Workflow, req.AvailableBindings)
}

func (e *Engine) ValidateTemplates(req *GraphRequest) (*template.ValidationResult, error) {
	graph, err := req.graph()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return template.ValidateWorkflowTemplates(graph), nil
}

// ResolveWorkflow previews every templated field against the engine samples
// and the preset outputs of the registry.
func (e *Engine) ResolveWorkflow(req *WorkflowRequest) (map[string]*template.ResolvedNode, error) {
	graph, err := req.graph()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return e.resolver.ResolveWorkflow(graph), nil
}

func (e *Engine) ResolveNode(req *WorkflowRequest, nodeID string) (*template.ResolvedNode, error) {
	graph, err := req.graph()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return e.resolver.ResolveNode(nodeID, graph)
}

// ReverseCodegen rebuilds a linear graph skeleton from emitted program text.
func (e *Engine) ReverseCodegen(req *ReverseRequest) (*ReverseResult, error) {
	code, err := req.code()
	if err != nil {
		return nil, errors.Trace(err)
	}
	graph, err := compiler.ReverseCompile(code)
	if err != nil {
		return nil, err
	}
	return &ReverseResult{Name: graph.Name, Nodes: graph.Nodes, Edges: graph.Edges}, nil
}

// ParseStructure returns the node spans of program text or of a runtime trace.
func (e *Engine) ParseStructure(req *ReverseRequest) ([]types.ParsedNodeSpan, error) {
	code, err := req.code()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return marker.Parse(code), nil
}

// Summarize folds the marker lines of a runtime trace into one run.
func (e *Engine) Summarize(trace string) (*marker.RunSummary, error) {
	records, err := marker.DecodeAll(trace)
	if err != nil {
		return nil, errors.Annotatef(err, "decode trace")
	}
	return marker.Summarize(records), nil
}

// RenderDOT draws the execution plan of req, colored by the run of trace when
// one is given.
func (e *Engine) RenderDOT(req *WorkflowRequest, trace string) (string, error) {
	graph, err := req.graph()
	if err != nil {
		return "", errors.Trace(err)
	}
	plan, err := e.compiler.Plan(graph)
	if err != nil {
		return "", err
	}

	var summary *marker.RunSummary
	if trace != "" {
		if summary, err = e.Summarize(trace); err != nil {
			return "", errors.Trace(err)
		}
	}
	return compiler.RenderDOT(graph.Name, plan, summary), nil
}

func (e *Engine) CacheKeys(ctx context.Context) ([]string, error) {
	if e.cache == nil {
		return []string{}, nil
	}
	return e.cache.Keys(ctx)
}

func (e *Engine) PurgeCache(ctx context.Context) (int, error) {
	if e.cache == nil {
		return 0, nil
	}
	n, err := e.cache.Purge(ctx)
	log.Infof("purged %d cached artifact(s)", n)
	return n, errors.Trace(err)
}

func (e *Engine) Close() error {
	if e.cache == nil {
		return nil
	}
	return store.Close(e.cache.Store())
}

// artifactKey is empty when there is no cache or the input does not serialize.
func (e *Engine) artifactKey(graph *types.WorkflowGraph) string {
	if e.cache == nil {
		return ""
	}
	canonical, err := utils.Serialize(struct {
		Graph    *types.WorkflowGraph  `json:"graph"`
		Options  *types.CompileOptions `json:"options"`
		Registry string                `json:"registry"`
		Types    []string              `json:"types"`
	}{graph, e.opts.Compile, e.registry.Identity(), e.registry.Names()})
	if err != nil {
		log.Warnf("workflow %q is not cacheable: %v", graph.Name, err)
		return ""
	}
	return store.ArtifactKey(canonical)
}
