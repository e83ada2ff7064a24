package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/eigen/internal/ir"
)

// CycleError represents a loop in the declared hierarchy: a class that is
// its own ancestor, or modules that include each other.
//
// Unlike runtime Include, which refuses the edge that would close a loop,
// a bundle declares every edge up front, so loops are reported before
// anything is installed.
type CycleError struct {
	Path    []string `json:"path"` // ["A", "B", "A"]
	Message string   `json:"message"`
}

// AnalyzeCycles finds hierarchy cycles in a bundle.
//
// The algorithm:
//  1. Build a graph: declaration -> superclass, included and extended modules
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1, and each self-loop, as a cycle
//
// An acyclic hierarchy returns an empty list. Results are ordered by the
// first declaration involved so output is stable.
func AnalyzeCycles(b *ir.Bundle) []CycleError {
	graph, order := buildHierarchyGraph(b)
	if len(order) == 0 {
		return []CycleError{}
	}

	var cycles []CycleError
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || slices.Contains(graph[scc[0]], scc[0]) {
			cycles = append(cycles, sccToCycle(scc, graph, order))
		}
	}
	if cycles == nil {
		return []CycleError{}
	}
	slices.SortFunc(cycles, func(a, b CycleError) int {
		return slices.Index(order, a.Path[0]) - slices.Index(order, b.Path[0])
	})
	return cycles
}

// hierarchyGraph maps a declaration name to the names it depends on.
type hierarchyGraph map[string][]string

func buildHierarchyGraph(b *ir.Bundle) (hierarchyGraph, []string) {
	graph := make(hierarchyGraph)
	var order []string
	for _, m := range b.Modules {
		graph[m.Name] = append([]string{}, m.Include...)
		order = append(order, m.Name)
	}
	for _, c := range b.Classes {
		var deps []string
		if c.Superclass != "" {
			deps = append(deps, c.Superclass)
		}
		deps = append(deps, c.Include...)
		deps = append(deps, c.Extend...)
		graph[c.Name] = deps
		order = append(order, c.Name)
	}
	return graph, order
}

// tarjanSCC finds strongly connected components, visiting roots in order.
func tarjanSCC(graph hierarchyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, declared := graph[w]; !declared {
				continue // unknown names are validation errors, not cycles
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// sccToCycle starts the path at the earliest-declared member and follows
// edges inside the component back to it.
func sccToCycle(scc []string, graph hierarchyGraph, order []string) CycleError {
	members := make(map[string]bool, len(scc))
	start := scc[0]
	for _, n := range scc {
		members[n] = true
		if slices.Index(order, n) < slices.Index(order, start) {
			start = n
		}
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, w := range graph[current] {
			if members[w] && (w == start || !visited[w]) {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}

	return CycleError{
		Path:    path,
		Message: fmt.Sprintf("hierarchy cycle: %s", strings.Join(path, " -> ")),
	}
}
