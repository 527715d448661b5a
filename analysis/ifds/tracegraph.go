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

package ifds

import "sort"

// VertexEdge is one directed edge of a reconstructed Witness, distinct
// from Edge (a path edge of the tabulation itself, always self-looped at
// From) - a VertexEdge connects two arbitrary vertices in the witness's
// own graph.
type VertexEdge struct {
	From, To Vertex
}

// Witness is the trace graph reconstructed for one sink (§4.8, C8): the
// set of vertices and directed edges the sink's derivation passes
// through, plus the entry points - the method-entry vertices from which
// the sink is reachable. A single sink can have more than one entry
// point when multiple derivations of the same edge were recorded.
type Witness struct {
	Sink     Vertex
	Vertices map[Vertex]bool
	Edges    map[VertexEdge]bool
	Entries  map[Vertex]bool
}

// EntryStatements returns the statements of every entry vertex, sorted
// by string form for deterministic output.
func (w *Witness) EntryStatements() []Statement {
	stmts := make([]Statement, 0, len(w.Entries))
	for v := range w.Entries {
		stmts = append(stmts, v.Stmt)
	}
	sort.Slice(stmts, func(i, j int) bool { return stmts[i].String() < stmts[j].String() })
	return stmts
}

// Linearize flattens the witness into one concrete path from its
// lexicographically smallest entry point to the sink, for consumers
// (SARIF code flows) that want a single flat sequence rather than the
// full graph. It returns just the sink if no entry reaches it along the
// witness edges: when no entry point was recorded, or when the
// derivation was a same-fact Sequent chain collapsed without emitting
// any witness edge.
func (w *Witness) Linearize() []Vertex {
	if len(w.Entries) == 0 {
		return []Vertex{w.Sink}
	}
	adj := make(map[Vertex][]Vertex, len(w.Vertices))
	for e := range w.Edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	for from := range adj {
		sort.Slice(adj[from], func(i, j int) bool { return adj[from][i].String() < adj[from][j].String() })
	}

	starts := make([]Vertex, 0, len(w.Entries))
	for v := range w.Entries {
		starts = append(starts, v)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].String() < starts[j].String() })

	for _, start := range starts {
		if path, ok := bfsPath(start, w.Sink, adj); ok {
			return path
		}
	}
	return []Vertex{w.Sink}
}

// bfsPath finds a shortest start-to-target path along adj, exploring
// each node's successors in the order given so the result is
// deterministic given a deterministically-sorted adj.
func bfsPath(start, target Vertex, adj map[Vertex][]Vertex) ([]Vertex, bool) {
	if start == target {
		return []Vertex{start}, true
	}
	visited := map[Vertex]bool{start: true}
	queue := [][]Vertex{{start}}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		tail := path[len(path)-1]
		for _, next := range adj[tail] {
			if visited[next] {
				continue
			}
			visited[next] = true
			extended := append(append([]Vertex(nil), path...), next)
			if next == target {
				return extended, true
			}
			queue = append(queue, extended)
		}
	}
	return nil, false
}

// TraceGraph reconstructs witness traces from the Reason DAG each Runner
// accumulates while tabulating (§4.8, C8). It needs every unit's Runner,
// since a cross-unit summary edge's own derivation lives in the Runner
// that owns the callee, not the one that observed the call.
type TraceGraph struct {
	resolver UnitResolver
	graph    Graph
	runners  map[Unit]*Runner
}

// NewTraceGraph builds a TraceGraph over the given runners, typically
// gathered from a Manager after Run has returned.
func NewTraceGraph(graph Graph, resolver UnitResolver, runners map[Unit]*Runner) *TraceGraph {
	return &TraceGraph{resolver: resolver, graph: graph, runners: runners}
}

// visitKey breaks cycles in the backward walk, keyed on the edge being
// descended into together with the vertex it is currently being linked
// to, per the reconstruction algorithm's cycle-breaking rule: the same
// edge reached with a different tail is not a cycle, since it produces a
// different witness edge.
type visitKey struct {
	Edge Edge
	Tail Vertex
}

// Reconstruct finds every path edge ending at sink within method's
// owning unit and walks each of its recorded reasons back to their
// roots, returning the resulting Witness. It returns false if no such
// path edge was recorded.
func (t *TraceGraph) Reconstruct(method Method, sink Vertex) (*Witness, bool) {
	r, ok := t.runners[t.resolver.Resolve(method)]
	if !ok {
		return nil, false
	}
	edges := edgesTo(r, sink)
	if len(edges) == 0 {
		return nil, false
	}

	w := &Witness{
		Sink:     sink,
		Vertices: map[Vertex]bool{sink: true},
		Edges:    make(map[VertexEdge]bool),
		Entries:  make(map[Vertex]bool),
	}
	visited := make(map[visitKey]bool)
	for _, e := range edges {
		t.walk(r, e, sink, w, visited)
	}
	return w, true
}

// edgesTo returns every path edge r recorded with To == sink.
func edgesTo(r *Runner, sink Vertex) []Edge {
	var out []Edge
	for _, e := range r.PathEdges() {
		if e.To == sink {
			out = append(out, e)
		}
	}
	return out
}

// walk descends into every reason recorded for e, recording vertices and
// edges into w. lastVertex is the vertex a Sequent/CallToStart/
// ThroughSummary ancestor's To should be linked to - the tail of the
// witness edge being built as the walk moves backward through the DAG.
func (t *TraceGraph) walk(r *Runner, e Edge, lastVertex Vertex, w *Witness, visited map[visitKey]bool) {
	key := visitKey{Edge: e, Tail: lastVertex}
	if visited[key] {
		return
	}
	visited[key] = true

	reasons, ok := r.ReasonsOf(e)
	if !ok {
		w.Vertices[e.From] = true
		w.Entries[e.From] = true
		return
	}
	for _, reason := range reasons {
		t.walkReason(r, e, reason, lastVertex, w, visited)
	}
}

// walkReason applies one reason recorded for e. e and lastVertex are
// distinct: e is the path edge whose derivation is being expanded, while
// lastVertex is the tail the next recorded witness edge should point to
// - the two coincide except while a run of same-fact Sequent steps is
// being collapsed without emitting an edge, during which e keeps walking
// backward but lastVertex stays fixed at the tail of the eventual edge.
func (t *TraceGraph) walkReason(r *Runner, e Edge, reason Reason, lastVertex Vertex, w *Witness, visited map[visitKey]bool) {
	switch pred := reason.(type) {
	case InitialReason, ExternalReason:
		w.Vertices[e.From] = true
		w.Entries[e.From] = true

	case SequentReason:
		if pred.Pred.To.Fact == e.To.Fact {
			t.walk(r, pred.Pred, lastVertex, w, visited)
			return
		}
		w.Vertices[pred.Pred.To] = true
		w.Vertices[lastVertex] = true
		w.Edges[VertexEdge{From: pred.Pred.To, To: lastVertex}] = true
		t.walk(r, pred.Pred, pred.Pred.To, w, visited)

	case CallToStartReason:
		w.Vertices[pred.Pred.To] = true
		w.Vertices[lastVertex] = true
		w.Edges[VertexEdge{From: pred.Pred.To, To: lastVertex}] = true
		t.walk(r, pred.Pred, pred.Pred.To, w, visited)

	case ThroughSummaryReason:
		w.Vertices[pred.Summary.To] = true
		w.Vertices[lastVertex] = true
		w.Edges[VertexEdge{From: pred.Summary.To, To: lastVertex}] = true

		w.Vertices[pred.Pred.To] = true
		w.Vertices[pred.Summary.From] = true
		w.Edges[VertexEdge{From: pred.Pred.To, To: pred.Summary.From}] = true

		if owner, ok := t.summaryOwner(pred.Summary); ok {
			t.walk(owner, pred.Summary, pred.Summary.To, w, visited)
		}
		t.walk(r, pred.Pred, pred.Pred.To, w, visited)

	default:
		w.Vertices[e.From] = true
		w.Entries[e.From] = true
	}
}

// summaryOwner finds the Runner that produced summary, by checking which
// unit's Runner recognizes it as one of its own path edges. The method
// the summary belongs to is not carried on ThroughSummaryReason, so this
// is a linear scan over units rather than a direct resolver lookup; the
// number of units is small relative to the number of edges within one.
func (t *TraceGraph) summaryOwner(summary Edge) (*Runner, bool) {
	for _, r := range t.runners {
		if _, ok := r.ReasonsOf(summary); ok {
			return r, true
		}
	}
	return nil, false
}
