// Package depgraph builds an in-memory dependency graph over a spec corpus
// for impact-radius queries, cycle detection, and topological ordering.
// Grounded on original_source's dependency_graph.rs (there implemented over
// petgraph::DiGraph); no graph library appears anywhere in the example
// pack's dependency surface, so this is a deliberate standard-library
// adjacency-list rendition rather than a petgraph-equivalent import.
package depgraph

import "sort"

// Node is the minimal view of a spec this package needs: its path and its
// declared direct dependencies (depends_on).
type Node struct {
	Path      string
	DependsOn []string
}

// CompleteGraph is the direct (non-transitive) dependency/dependent set for
// one spec.
type CompleteGraph struct {
	Current    string
	DependsOn  []string // outgoing: what Current depends on
	RequiredBy []string // incoming: what depends on Current
}

// ImpactRadius is the transitive dependency/dependent set for one spec, up
// to a caller-supplied depth.
type ImpactRadius struct {
	Current    string
	Upstream   []string // transitively what Current needs
	Downstream []string // transitively what needs Current
}

// Graph is an adjacency-list directed graph over spec paths.
type Graph struct {
	nodes    map[string]bool
	outgoing map[string][]string // path -> its depends_on targets
	incoming map[string][]string // path -> paths that depend on it
}

// New builds a Graph from the given nodes. Dependency edges that point at a
// path not present in nodes are silently dropped (dangling references are a
// validation concern, not a graph-construction one).
func New(nodes []Node) *Graph {
	g := &Graph{
		nodes:    make(map[string]bool, len(nodes)),
		outgoing: make(map[string][]string, len(nodes)),
		incoming: make(map[string][]string, len(nodes)),
	}
	for _, n := range nodes {
		g.nodes[n.Path] = true
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if !g.nodes[dep] {
				continue
			}
			g.outgoing[n.Path] = append(g.outgoing[n.Path], dep)
			g.incoming[dep] = append(g.incoming[dep], n.Path)
		}
	}
	return g
}

// CompleteGraphFor returns the direct dependency/dependent edges of path, or
// false if path isn't in the graph.
func (g *Graph) CompleteGraphFor(path string) (CompleteGraph, bool) {
	if !g.nodes[path] {
		return CompleteGraph{}, false
	}
	return CompleteGraph{
		Current:    path,
		DependsOn:  append([]string(nil), g.outgoing[path]...),
		RequiredBy: append([]string(nil), g.incoming[path]...),
	}, true
}

// Upstream returns every spec path reachable by following depends_on edges
// from path, up to maxDepth hops.
func (g *Graph) Upstream(path string, maxDepth int) []string {
	if !g.nodes[path] {
		return nil
	}
	var result []string
	visited := map[string]bool{path: true}
	g.traverse(path, 0, maxDepth, visited, g.outgoing, &result)
	return result
}

// Downstream returns every spec path reachable by following required_by
// edges from path, up to maxDepth hops.
func (g *Graph) Downstream(path string, maxDepth int) []string {
	if !g.nodes[path] {
		return nil
	}
	var result []string
	visited := map[string]bool{path: true}
	g.traverse(path, 0, maxDepth, visited, g.incoming, &result)
	return result
}

func (g *Graph) traverse(path string, depth, maxDepth int, visited map[string]bool, edges map[string][]string, result *[]string) {
	// Breadth-first, so every node is reached at its shortest hop count and
	// nothing within maxDepth is skipped because a longer path saw it first.
	frontier := []string{path}
	for ; depth < maxDepth && len(frontier) > 0; depth++ {
		var nextFrontier []string
		for _, p := range frontier {
			for _, next := range edges[p] {
				if visited[next] {
					continue
				}
				visited[next] = true
				*result = append(*result, next)
				nextFrontier = append(nextFrontier, next)
			}
		}
		frontier = nextFrontier
	}
}

// ImpactRadiusFor returns path's transitive upstream and downstream sets, or
// false if path isn't in the graph.
func (g *Graph) ImpactRadiusFor(path string, maxDepth int) (ImpactRadius, bool) {
	if !g.nodes[path] {
		return ImpactRadius{}, false
	}
	return ImpactRadius{
		Current:    path,
		Upstream:   g.Upstream(path, maxDepth),
		Downstream: g.Downstream(path, maxDepth),
	}, true
}

// HasCircularDependency reports whether a cycle is reachable from path via
// its outgoing (depends_on) edges; path itself need not lie on that cycle.
func (g *Graph) HasCircularDependency(path string) bool {
	if !g.nodes[path] {
		return false
	}
	visited := map[string]bool{}
	stack := map[string]bool{}
	return g.detectCycle(path, visited, stack)
}

func (g *Graph) detectCycle(path string, visited, stack map[string]bool) bool {
	if stack[path] {
		return true
	}
	if visited[path] {
		return false
	}
	visited[path] = true
	stack[path] = true

	for _, next := range g.outgoing[path] {
		if g.detectCycle(next, visited, stack) {
			return true
		}
	}

	delete(stack, path)
	return false
}

// FindAllCycles returns every distinct cycle in the graph, each as a path
// slice starting and reachable back to its first element.
func (g *Graph) FindAllCycles() [][]string {
	var cycles [][]string
	visited := map[string]bool{}

	// Deterministic order keeps output stable across calls.
	paths := g.sortedPaths()
	for _, path := range paths {
		if !visited[path] {
			stack := map[string]bool{}
			var pathStack []string
			g.findCyclesDFS(path, visited, stack, &pathStack, &cycles)
		}
	}
	return cycles
}

func (g *Graph) findCyclesDFS(path string, visited, stack map[string]bool, pathStack *[]string, cycles *[][]string) {
	visited[path] = true
	stack[path] = true
	*pathStack = append(*pathStack, path)

	for _, next := range g.outgoing[path] {
		if !visited[next] {
			g.findCyclesDFS(next, visited, stack, pathStack, cycles)
		} else if stack[next] {
			for i, p := range *pathStack {
				if p == next {
					cycle := append([]string(nil), (*pathStack)[i:]...)
					if len(cycle) > 0 {
						*cycles = append(*cycles, cycle)
					}
					break
				}
			}
		}
	}

	*pathStack = (*pathStack)[:len(*pathStack)-1]
	delete(stack, path)
}

// TopologicalSort returns every spec path ordered so dependencies precede
// their dependents (Kahn's algorithm), or false if the graph has a cycle.
func (g *Graph) TopologicalSort() ([]string, bool) {
	// A node becomes "ready" once every spec it depends_on has already been
	// emitted, so unresolved[path] counts outgoing (depends_on) edges.
	unresolved := make(map[string]int, len(g.nodes))
	for path := range g.nodes {
		unresolved[path] = len(g.outgoing[path])
	}

	var ready []string
	for _, path := range g.sortedPaths() {
		if unresolved[path] == 0 {
			ready = append(ready, path)
		}
	}

	var order []string
	visited := map[string]bool{}
	for len(ready) > 0 {
		// pop in deterministic (sorted) order
		sort.Strings(ready)
		path := ready[0]
		ready = ready[1:]
		if visited[path] {
			continue
		}
		visited[path] = true
		order = append(order, path)

		for _, dependent := range g.incoming[path] {
			unresolved[dependent]--
			if unresolved[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, false
	}
	return order, true
}

func (g *Graph) sortedPaths() []string {
	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
