// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graphutil adapts the engine's unit-dependency graph to two
// third-party graph libraries: gonum's graph.Directed, for diagnostics
// that want an off-the-shelf traversal, and yourbasic/graph's iterator
// interface, which FindAllElementaryCycles (cycles.go) consumes to detect
// mutually recursive units.
package graphutil

import (
	"sort"

	"gonum.org/v1/gonum/graph"
)

// UnitGraph is a directed graph over int64-labeled unit ids, built from
// the caller-unit -> callee-unit edges a Manager observes while
// dispatching cross-unit calls. It exists purely as a diagnostic view: the
// engine's own solver never consults it, but a CLI run can use it to warn
// about recursive unit cycles that will force extra quiescence rounds.
type UnitGraph struct {
	order int
	// Labels maps a unit id back to its display name.
	Labels map[int64]string
	// Keys are every node id, sorted ascending.
	Keys []int64
	// Edges is an adjacency set: Edges[x][y] means a call was observed
	// from unit x into unit y.
	Edges map[int64]map[int64]bool
}

// NewUnitGraph builds a UnitGraph from a set of labeled nodes and directed
// edges between them.
func NewUnitGraph(labels map[int64]string, edges map[int64]map[int64]bool) UnitGraph {
	keys := make([]int64, 0, len(labels))
	for id := range labels {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	normalized := make(map[int64]map[int64]bool, len(edges))
	for from, tos := range edges {
		normalized[from] = make(map[int64]bool, len(tos))
		for to := range tos {
			normalized[from][to] = true
		}
	}

	return UnitGraph{
		order:  len(keys),
		Labels: labels,
		Keys:   keys,
		Edges:  normalized,
	}
}

// Order implements yourbasic/graph.Iterator.
func (g UnitGraph) Order() int { return g.order }

// Visit implements yourbasic/graph.Iterator.
func (g UnitGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for w := range g.Edges[int64(v)] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// Node implements gonum graph.Graph.
func (g UnitGraph) Node(id int64) graph.Node {
	return unitNode{id: id, label: g.Labels[id]}
}

// Nodes implements gonum graph.Graph.
func (g UnitGraph) Nodes() graph.Nodes {
	nodes := make([]graph.Node, len(g.Keys))
	for i, id := range g.Keys {
		nodes[i] = unitNode{id: id, label: g.Labels[id]}
	}
	return &nodeIterator{nodes: nodes, cur: -1}
}

// From implements gonum graph.Graph.
func (g UnitGraph) From(id int64) graph.Nodes {
	var nodes []graph.Node
	var outIDs []int64
	for w := range g.Edges[id] {
		outIDs = append(outIDs, w)
	}
	sort.Slice(outIDs, func(i, j int) bool { return outIDs[i] < outIDs[j] })
	for _, w := range outIDs {
		nodes = append(nodes, unitNode{id: w, label: g.Labels[w]})
	}
	return &nodeIterator{nodes: nodes, cur: -1}
}

// HasEdgeBetween implements gonum graph.Graph.
func (g UnitGraph) HasEdgeBetween(xid, yid int64) bool {
	return g.Edges[xid][yid] || g.Edges[yid][xid]
}

// Edge implements gonum graph.Graph.
func (g UnitGraph) Edge(uid, vid int64) graph.Edge {
	if !g.Edges[uid][vid] {
		return nil
	}
	return unitEdge{
		from: unitNode{id: uid, label: g.Labels[uid]},
		to:   unitNode{id: vid, label: g.Labels[vid]},
	}
}

type unitNode struct {
	id    int64
	label string
}

func (n unitNode) ID() int64    { return n.id }
func (n unitNode) String() string { return n.label }

type nodeIterator struct {
	nodes []graph.Node
	cur   int
}

func (it *nodeIterator) Next() bool {
	if it.cur < len(it.nodes)-1 {
		it.cur++
		return true
	}
	return false
}

func (it *nodeIterator) Len() int { return len(it.nodes) - (it.cur + 1) }

func (it *nodeIterator) Reset() { it.cur = -1 }

func (it *nodeIterator) Node() graph.Node { return it.nodes[it.cur] }

type unitEdge struct {
	from, to unitNode
}

func (e unitEdge) From() graph.Node         { return e.from }
func (e unitEdge) To() graph.Node           { return e.to }
func (e unitEdge) ReversedEdge() graph.Edge { return unitEdge{from: e.to, to: e.from} }
