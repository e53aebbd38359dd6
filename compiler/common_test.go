package compiler

import (
	"github.com/warriorguo/wfcompiler/types"
)

func newNode(id, typ, label string, config types.Data) types.NodeInstance {
	if config == nil {
		config = types.Data{}
	}
	return types.NodeInstance{ID: id, Type: typ, Label: label, Config: config}
}

func newEdge(source, target string) types.EdgeInstance {
	return types.EdgeInstance{ID: "e_" + source + "_" + target, Source: source, Target: target}
}

func newHandleEdge(source, target, handle string) types.EdgeInstance {
	e := newEdge(source, target)
	e.SourceHandle = handle
	return e
}

func chain(ids ...string) []types.EdgeInstance {
	edges := make([]types.EdgeInstance, 0, len(ids))
	for i := 1; i < len(ids); i++ {
		edges = append(edges, newEdge(ids[i-1], ids[i]))
	}
	return edges
}

// agifyGraph fetches the age guess for the name of the payload and stores it.
func agifyGraph() *types.WorkflowGraph {
	return &types.WorkflowGraph{
		Name: "agify",
		Nodes: []types.NodeInstance{
			newNode("n1", "entry", "Start", nil),
			newNode("n2", "http-request", "Fetch Age", types.Data{
				"url":    "https://api.agify.io?name={{n1.output.name}}",
				"method": "GET",
			}),
			newNode("n3", "kv-put", "Store Age", types.Data{
				"namespace": "MY_KV",
				"key":       "age",
				"value":     "{{n2.output.body.age}}",
			}),
			newNode("n4", "return", "Done", types.Data{"value": "{{n3.output}}"}),
		},
		Edges: chain("n1", "n2", "n3", "n4"),
	}
}

// branchGraph checks a condition and rejoins both branches on n_join.
func branchGraph() *types.WorkflowGraph {
	return &types.WorkflowGraph{
		Name: "branching",
		Nodes: []types.NodeInstance{
			newNode("start", "entry", "Start", nil),
			newNode("check", "condition", "Is Adult", types.Data{
				"left": "{{start.output.age}}", "operator": "greaterThan", "right": 17,
			}),
			newNode("adult", "log", "Adult", types.Data{"message": "adult"}),
			newNode("minor", "log", "Minor", types.Data{"message": "minor"}),
			newNode("join", "transform", "Join", nil),
			newNode("done", "return", "Done", nil),
		},
		Edges: []types.EdgeInstance{
			newEdge("start", "check"),
			newHandleEdge("check", "adult", "true"),
			newHandleEdge("check", "minor", "false"),
			newEdge("adult", "join"),
			newEdge("minor", "join"),
			newEdge("join", "done"),
		},
	}
}

// loopGraph logs every item of the payload list.
func loopGraph() *types.WorkflowGraph {
	return &types.WorkflowGraph{
		Name: "looping",
		Nodes: []types.NodeInstance{
			newNode("start", "entry", "Start", nil),
			newNode("each", "for-each", "Each Item", types.Data{"items": "{{start.output.items}}"}),
			newNode("say", "log", "Say", types.Data{"message": "item {{each.output.item}}"}),
			newNode("done", "return", "Done", nil),
		},
		Edges: []types.EdgeInstance{
			newEdge("start", "each"),
			newHandleEdge("each", "say", "body"),
			newEdge("say", "each"),
			newHandleEdge("each", "done", "done"),
		},
	}
}
