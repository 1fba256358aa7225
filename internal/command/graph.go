// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import "strings"

// MaxExpansionDepth caps both the alias chain length estimated by the
// graph and the dispatcher's re-entry recursion counter.
const MaxExpansionDepth = 10

// Graph is the directed dependency graph over one player's alias bundle:
// a node per alias name, with an edge to the first token of every segment
// of its body. Edges to non-alias tokens are retained as terminal nodes.
// Bundles are small, so the graph is rebuilt from scratch after every
// mutation.
type Graph struct {
	edges   map[string][]string // lowercased alias name → out-edge targets
	aliases map[string]struct{}
}

// BuildGraph constructs the dependency graph for a bundle.
func BuildGraph(b Bundle) *Graph {
	g := &Graph{
		edges:   make(map[string][]string, len(b.Aliases)),
		aliases: make(map[string]struct{}, len(b.Aliases)),
	}
	for _, a := range b.Aliases {
		name := strings.ToLower(a.Name)
		g.aliases[name] = struct{}{}
		g.edges[name] = ChainHeads(a.Body)
	}
	return g
}

// DetectCycle runs DFS from name looking for a back-edge. It returns the
// cycle path (e.g. ["a", "b", "a"]) or nil if expansion terminates.
func (g *Graph) DetectCycle(name string) []string {
	name = strings.ToLower(name)
	if _, ok := g.aliases[name]; !ok {
		return nil
	}

	onStack := make(map[string]struct{})
	var stack []string

	var visit func(node string) []string
	visit = func(node string) []string {
		if _, ok := g.aliases[node]; !ok {
			return nil // terminal: not an alias
		}
		if _, ok := onStack[node]; ok {
			// Back-edge: slice the stack from the first occurrence.
			for i, n := range stack {
				if n == node {
					cycle := make([]string, 0, len(stack)-i+1)
					cycle = append(cycle, stack[i:]...)
					return append(cycle, node)
				}
			}
			return append([]string{node}, node)
		}
		onStack[node] = struct{}{}
		stack = append(stack, node)
		for _, target := range g.edges[node] {
			if cycle := visit(target); cycle != nil {
				return cycle
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, node)
		return nil
	}

	return visit(name)
}

// IsSafeToExpand reports whether expanding name terminates.
func (g *Graph) IsSafeToExpand(name string) bool {
	return g.DetectCycle(name) == nil
}

// ExpansionDepth returns the length of the longest simple path from name
// to any reachable terminal. A non-alias name has depth 0. Cyclic graphs
// report MaxExpansionDepth + 1 so callers reject them without recursing
// forever.
func (g *Graph) ExpansionDepth(name string) int {
	name = strings.ToLower(name)
	if !g.IsSafeToExpand(name) {
		return MaxExpansionDepth + 1
	}

	memo := make(map[string]int)
	var depth func(node string) int
	depth = func(node string) int {
		if _, ok := g.aliases[node]; !ok {
			return 0
		}
		if d, ok := memo[node]; ok {
			return d
		}
		longest := 0
		for _, target := range g.edges[node] {
			if d := depth(target); d > longest {
				longest = d
			}
		}
		memo[node] = longest + 1
		return longest + 1
	}
	return depth(name)
}
