package compiler

import (
	"fmt"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/types"
)

const loopBodyLabel = "body"

type linearizer struct {
	registry *registry.Registry

	nodes   map[string]*types.NodeInstance
	out     map[string][]types.EdgeInstance
	in      map[string][]types.EdgeInstance
	visited map[string]bool
}

func newLinearizer(graph *types.WorkflowGraph, reg *registry.Registry) *linearizer {
	l := &linearizer{
		registry: reg,
		nodes:    make(map[string]*types.NodeInstance, len(graph.Nodes)),
		out:      make(map[string][]types.EdgeInstance),
		in:       make(map[string][]types.EdgeInstance),
		visited:  make(map[string]bool),
	}
	for i := range graph.Nodes {
		if _, exists := l.nodes[graph.Nodes[i].ID]; !exists {
			l.nodes[graph.Nodes[i].ID] = &graph.Nodes[i]
		}
	}
	for _, e := range graph.Edges {
		if l.nodes[e.Source] == nil || l.nodes[e.Target] == nil || e.Source == e.Target {
			continue
		}
		l.out[e.Source] = append(l.out[e.Source], e)
		l.in[e.Target] = append(l.in[e.Target], e)
	}
	return l
}

// Linearize orders the graph into a nested plan starting at the entry node.
// It assumes a graph that passed Validate and returns the ids of the nodes
// the entry cannot reach, in node order.
func Linearize(graph *types.WorkflowGraph, reg *registry.Registry) (Plan, []string, error) {
	l := newLinearizer(graph, reg)

	entry := ""
	for _, n := range graph.Nodes {
		if reg.Role(n.Type) == registry.RoleEntry && len(l.in[n.ID]) == 0 {
			entry = n.ID
			break
		}
	}
	if entry == "" {
		return nil, nil, errors.NotValidf("graph without entry node")
	}

	plan := l.walk(entry, map[string]bool{})

	unreachable := make([]string, 0)
	for _, n := range graph.Nodes {
		if !l.visited[n.ID] {
			unreachable = append(unreachable, n.ID)
			l.visited[n.ID] = true
		}
	}
	for _, id := range unreachable {
		log.Warnf("node %s is not reachable from entry %s, skipped", id, entry)
	}
	return plan, unreachable, nil
}

// reach returns the unvisited nodes reachable from start without entering stops,
// in depth first order.
func (l *linearizer) reach(start string, stops map[string]bool) []string {
	seen := map[string]bool{}
	order := make([]string, 0)
	var visit func(id string)
	visit = func(id string) {
		if seen[id] || stops[id] || l.visited[id] {
			return
		}
		seen[id] = true
		order = append(order, id)
		for _, e := range l.out[id] {
			visit(e.Target)
		}
	}
	visit(start)
	return order
}

// reachable tells whether to can be reached from from over any edge.
func (l *linearizer) reachable(from, to string) bool {
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range l.out[id] {
			if e.Target == to {
				return true
			}
			if !seen[e.Target] {
				seen[e.Target] = true
				stack = append(stack, e.Target)
			}
		}
	}
	return false
}

// ready reports whether every predecessor of id inside region is placed.
// Predecessors reachable from id close a cycle and are ignored.
func (l *linearizer) ready(id string, region map[string]bool) bool {
	for _, e := range l.in[id] {
		if !region[e.Source] || l.visited[e.Source] {
			continue
		}
		if l.reachable(id, e.Source) {
			continue
		}
		return false
	}
	return true
}

func (l *linearizer) walk(start string, stops map[string]bool) Plan {
	plan := Plan{}

	region := map[string]bool{}
	for _, id := range l.reach(start, stops) {
		region[id] = true
	}

	queue := []string{start}
	deferred := make([]string, 0)
	for len(queue) > 0 || len(deferred) > 0 {
		var (
			current string
			forced  bool
		)
		if len(queue) > 0 {
			current, queue = queue[0], queue[1:]
		} else {
			current, deferred, forced = deferred[0], deferred[1:], true
		}

		if stops[current] || l.visited[current] {
			continue
		}
		if !forced && !l.ready(current, region) {
			if !contains(deferred, current) {
				deferred = append(deferred, current)
			}
			continue
		}

		l.visited[current] = true
		deferred = remove(deferred, current)

		node := l.nodes[current]
		switch l.registry.Control(node.Type) {
		case registry.ControlBranch:
			entry, rejoin := l.branch(node, stops)
			plan = append(plan, entry)
			if rejoin != "" {
				queue = append(queue, rejoin)
			}

		case registry.ControlLoop:
			entry, next := l.loop(node, stops)
			plan = append(plan, entry)
			queue = append(queue, next...)

		default:
			plan = append(plan, PlanEntry{Kind: EntryNode, Node: *node})
			for _, e := range l.out[current] {
				queue = append(queue, e.Target)
			}
		}
	}
	return plan
}

func (l *linearizer) branch(node *types.NodeInstance, stops map[string]bool) (PlanEntry, string) {
	edges := l.out[node.ID]
	inner := with(stops, node.ID)

	reaches := make([][]string, len(edges))
	for i, e := range edges {
		reaches[i] = l.reach(e.Target, inner)
	}

	rejoin := ""
scan:
	for i := range reaches {
		for _, id := range reaches[i] {
			for j := range reaches {
				if j != i && contains(reaches[j], id) {
					rejoin = id
					break scan
				}
			}
		}
	}

	branchStops := inner
	if rejoin != "" {
		branchStops = with(inner, rejoin)
	}

	labels := edgeLabels(l.registry, node, edges)
	entry := PlanEntry{Kind: EntryBranch, Node: *node, Branches: make([]Branch, 0, len(edges))}
	for i, e := range edges {
		entry.Branches = append(entry.Branches, Branch{
			EdgeLabel: labels[i],
			Plan:      l.walk(e.Target, branchStops),
		})
	}
	return entry, rejoin
}

func (l *linearizer) loop(node *types.NodeInstance, stops map[string]bool) (PlanEntry, []string) {
	edges := l.out[node.ID]
	labels := edgeLabels(l.registry, node, edges)

	bodyEdges := make([]types.EdgeInstance, 0)
	next := make([]string, 0)
	for i, e := range edges {
		if labels[i] == loopBodyLabel {
			bodyEdges = append(bodyEdges, e)
			continue
		}
		next = append(next, e.Target)
	}
	if len(bodyEdges) == 0 && len(edges) > 0 && !anyHandle(edges) {
		bodyEdges = append(bodyEdges, edges[0])
		next = next[1:]
	}

	bodyStops := with(stops, node.ID)
	for _, id := range next {
		bodyStops[id] = true
	}

	entry := PlanEntry{Kind: EntryLoop, Node: *node, Body: Plan{}}
	for _, e := range bodyEdges {
		entry.Body = append(entry.Body, l.walk(e.Target, bodyStops)...)
	}
	return entry, next
}

// edgeLabels names the out-edges of a controller: the edge handle, else the
// output port declared at the same position, else branch_<i>.
func edgeLabels(reg *registry.Registry, node *types.NodeInstance, edges []types.EdgeInstance) []string {
	nt, _ := reg.Get(node.Type)
	labels := make([]string, len(edges))
	for i, e := range edges {
		switch {
		case e.SourceHandle != "":
			labels[i] = e.SourceHandle
		case nt != nil && i < len(nt.OutputPorts) && !anyHandle(edges):
			labels[i] = nt.OutputPorts[i].Name
		default:
			labels[i] = fmt.Sprintf("branch_%d", i)
		}
	}
	return labels
}

func anyHandle(edges []types.EdgeInstance) bool {
	for _, e := range edges {
		if e.SourceHandle != "" {
			return true
		}
	}
	return false
}

func with(set map[string]bool, ids ...string) map[string]bool {
	out := make(map[string]bool, len(set)+len(ids))
	for k, v := range set {
		out[k] = v
	}
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
