package rules

import (
	"sort"
	"strings"
)

// depGraph is the module dependency graph: one node per module id, one edge
// per declared dependency. Built fresh per run, never mutated after
// construction.
type depGraph struct {
	nodes []string            // sorted
	edges map[string][]string // node -> its dependencies, sorted
}

func newDepGraph() *depGraph {
	return &depGraph{edges: make(map[string][]string)}
}

func (g *depGraph) addNode(id string) {
	if _, ok := g.edges[id]; !ok {
		g.edges[id] = nil
		g.nodes = append(g.nodes, id)
		sort.Strings(g.nodes)
	}
}

func (g *depGraph) addEdge(from, to string) {
	g.edges[from] = append(g.edges[from], to)
	sort.Strings(g.edges[from])
}

// dfs colors for cycle detection.
const (
	white = iota // unvisited
	gray         // on the current DFS stack
	black        // fully explored
)

// cycles returns every distinct dependency cycle as a node path, e.g.
// ["x", "y", "x"]. An edge into a gray node closes a cycle; the reported
// path is the stack segment from that node, so each cycle surfaces exactly
// once rather than once per edge. Paths are canonicalized (rotated to start
// at the smallest node) and de-duplicated so strongly connected cycles
// reachable from several roots are not double counted.
func (g *depGraph) cycles() [][]string {
	color := make(map[string]int, len(g.nodes))
	var stack []string
	seen := make(map[string]bool)
	var found [][]string

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		stack = append(stack, node)

		for _, dep := range g.edges[node] {
			if _, known := g.edges[dep]; !known {
				continue // missing dependency, reported separately
			}
			switch color[dep] {
			case white:
				visit(dep)
			case gray:
				start := len(stack) - 1
				for start >= 0 && stack[start] != dep {
					start--
				}
				cycle := canonicalCycle(stack[start:])
				key := strings.Join(cycle, "->")
				if !seen[key] {
					seen[key] = true
					found = append(found, cycle)
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for _, node := range g.nodes {
		if color[node] == white {
			visit(node)
		}
	}
	return found
}

// canonicalCycle rotates a cycle to begin at its smallest node and closes
// it by repeating that node at the end.
func canonicalCycle(path []string) []string {
	min := 0
	for i, node := range path {
		if node < path[min] {
			min = i
		}
	}
	out := make([]string, 0, len(path)+1)
	out = append(out, path[min:]...)
	out = append(out, path[:min]...)
	out = append(out, path[min])
	return out
}

// topoOrder returns a deterministic dependency-first load order via Kahn's
// algorithm, picking the smallest ready node at every step. ok is false when
// residual in-degree remains after the queue drains, which can only mean a
// cycle.
func (g *depGraph) topoOrder() (order []string, ok bool) {
	// in-degree counts incoming dependency->dependent edges, so a module
	// becomes ready once all of its dependencies are placed.
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for _, node := range g.nodes {
		indegree[node] = 0
	}
	for node, deps := range g.edges {
		for _, dep := range deps {
			if _, known := g.edges[dep]; !known {
				continue
			}
			indegree[node]++
			dependents[dep] = append(dependents[dep], node)
		}
	}

	var ready []string
	for _, node := range g.nodes {
		if indegree[node] == 0 {
			ready = append(ready, node)
		}
	}
	sort.Strings(ready)

	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		order = append(order, node)

		next := append([]string(nil), dependents[node]...)
		sort.Strings(next)
		for _, dep := range next {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = insertSorted(ready, dep)
			}
		}
	}
	return order, len(order) == len(g.nodes)
}

func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}
