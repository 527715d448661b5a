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

import (
	"context"
	"sync"
)

type jobKind int

const (
	jobEdge jobKind = iota
	jobSummary
)

// job is the single unit of work a Runner's queue carries, so the Run
// loop only needs to select on one channel rather than juggle a separate
// channel per subscription.
type job struct {
	kind   jobKind
	edge   Edge
	reason Reason
	event  Event
}

// Runner tabulates path and summary edges for every method assigned to
// one Unit, implementing the Reps-Horwitz-Sagiv worklist algorithm
// extended per Naeem-Lhoták-Rodriguez for a supergraph whose callees are
// discovered while the graph is being traversed (§4, C4). A Runner never
// touches another unit's methods directly: calls that cross a unit
// boundary are handed to the shared UnitRouter, and the resulting summary
// travels back over the shared SummaryStore instead of a direct call.
type Runner struct {
	unit     Unit
	graph    Graph
	ffs      FlowFunctionSpace
	analyzer Analyzer
	resolver UnitResolver
	store    *SummaryStore
	router   *UnitRouter
	wg       *sync.WaitGroup

	// foreignSummary, when non-nil, is called with every summary edge this
	// runner's analyzer produces, in addition to the ordinary
	// SummaryStore.Publish - the hook a Bidirectional pair uses to inject
	// one direction's summaries as External facts into the other (§4.7).
	foreignSummary func(Method, Edge)

	queue *unboundedQueue[job]

	// reasons records every path edge discovered so far and every reason it
	// was derived, since a single edge can be reached more than one way and
	// the trace-graph reconstructor (tracegraph.go) needs every derivation,
	// not just the first. The map itself is still the solver's visited set:
	// an edge with a non-empty entry has already been fully processed.
	reasons map[Edge][]Reason
	// incoming maps a callee's (entry, fact) vertex to the same-unit caller
	// path edges awaiting its summary.
	incoming map[Vertex][]Edge
	// endSummary maps a callee's (entry, fact) vertex to every exit vertex
	// reached so far, so a call processed after the callee already
	// produced a summary is satisfied immediately instead of waiting on a
	// future exit.
	endSummary map[Vertex][]Vertex
	// summarySeen dedups summary edges before they are recorded or
	// published.
	summarySeen map[Edge]bool
	// summaryEdges accumulates every summary this runner has produced, by
	// method, for the final Aggregate.
	summaryEdges map[Method][]Edge

	// subs holds one SummaryStore subscription per cross-unit callee this
	// runner has called.
	subs map[Method]Subscription
	// pendingCross maps a cross-unit callee's (entry, fact) vertex to the
	// caller path edges waiting on a summary delivered through subs.
	pendingCross map[Vertex][]Edge

	findingsSeen map[string]bool
	findings     []Vulnerability
}

// newRunner constructs a Runner for unit. It is unexported: runners are
// only created by a Manager, which wires the shared router, store and
// wait group.
func newRunner(unit Unit, graph Graph, analyzer Analyzer, resolver UnitResolver, store *SummaryStore, router *UnitRouter, wg *sync.WaitGroup, foreignSummary func(Method, Edge)) *Runner {
	return &Runner{
		unit:           unit,
		graph:          graph,
		ffs:            analyzer.FlowFunctions(),
		analyzer:       analyzer,
		resolver:       resolver,
		store:          store,
		router:         router,
		wg:             wg,
		foreignSummary: foreignSummary,
		queue:          newUnboundedQueue[job](),
		reasons:        make(map[Edge][]Reason),
		incoming:       make(map[Vertex][]Edge),
		endSummary:     make(map[Vertex][]Vertex),
		summarySeen:    make(map[Edge]bool),
		summaryEdges:   make(map[Method][]Edge),
		subs:           make(map[Method]Subscription),
		pendingCross:   make(map[Vertex][]Edge),
		findingsSeen:   make(map[string]bool),
	}
}

// Seed enqueues an externally-discovered path edge, used both for the
// analysis's initial start facts (reason InitialReason) and for cross-unit
// call entry (reason ExternalReason, via UnitRouter.Dispatch).
func (r *Runner) Seed(v Vertex, reason Reason) {
	r.push(Edge{From: v, To: v}, reason)
}

// push enqueues a candidate path edge. wg is incremented before the push
// and decremented once Run has finished processing it, so Manager can
// detect quiescence with a single WaitGroup across every runner: every
// producer of work (a runner's own propagation, the router, a summary
// subscription) must complete its Add before the edge or event that
// triggered it is marked Done, so the counter never observes a false zero
// while work is still in flight.
func (r *Runner) push(e Edge, reason Reason) {
	r.wg.Add(1)
	r.queue.Push(job{kind: jobEdge, edge: e, reason: reason})
}

func (r *Runner) pushSummaryEvent(ev Event) {
	r.wg.Add(1)
	r.queue.Push(job{kind: jobSummary, event: ev})
}

// Run drains the runner's queue until ctx is canceled (deadline exceeded)
// or the queue is closed by Manager after global quiescence.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j, ok := <-r.queue.Pop():
			if !ok {
				return nil
			}
			err := r.process(j)
			r.wg.Done()
			if err != nil {
				return err
			}
		}
	}
}

// Close stops accepting new work on this runner's own queue and cancels
// its outstanding summary subscriptions.
func (r *Runner) Close() {
	r.queue.Close()
	for _, s := range r.subs {
		s.Close()
	}
}

// process runs one job, turning a panic raised from inside the caller's
// Graph implementation or Analyzer into a typed error instead of letting
// it unwind past the Runner and take the whole analysis down with it
// (§7). A panic already wrapped as a GraphError by graphMethodOf passes
// through unchanged; anything else is attributed to the analyzer.
func (r *Runner) process(j job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if ge, ok := rec.(*GraphError); ok {
				err = ge
				return
			}
			err = &AnalyzerError{Unit: r.unit, Cause: rec}
		}
	}()
	switch j.kind {
	case jobEdge:
		r.handleEdge(j.edge, j.reason)
	case jobSummary:
		r.handleSummaryEvent(j.event)
	}
	return nil
}

// graphMethodOf calls graph.MethodOf, converting a panic into a GraphError
// carrying the offending statement for diagnostics.
func (r *Runner) graphMethodOf(n Statement) (m Method) {
	defer func() {
		if rec := recover(); rec != nil {
			panic(&GraphError{Op: "MethodOf", Value: n, Cause: rec})
		}
	}()
	return r.graph.MethodOf(n)
}

func (r *Runner) handleEdge(e Edge, reason Reason) {
	_, seen := r.reasons[e]
	r.reasons[e] = append(r.reasons[e], reason)
	if seen {
		return
	}
	r.recordFacts(r.analyzer.SummaryFacts(e))

	n := e.To.Stmt
	d2 := e.To.Fact
	m := r.graphMethodOf(n)

	switch {
	case IsCallSite(r.graph, n):
		r.handleCall(e, n, d2)
	case IsExitStatement(r.graph, m, n):
		r.handleExit(e, n, d2, m)
	default:
		r.handleSequent(e, n, d2)
	}
}

func (r *Runner) handleSequent(e Edge, n Statement, d2 Fact) {
	for _, succ := range r.graph.Successors(n) {
		fn := r.ffs.Sequent(n, succ)
		for _, d3 := range fn(d2) {
			r.push(Edge{From: e.From, To: Vertex{Stmt: succ, Fact: d3}}, SequentReason{Pred: e})
		}
	}
}

func (r *Runner) handleCall(e Edge, call Statement, d2 Fact) {
	for _, callee := range r.graph.Callees(call) {
		sameUnit := r.resolver.Resolve(callee) == r.unit
		ctsFn := r.ffs.CallToStart(call, callee)
		for _, d3 := range ctsFn(d2) {
			for _, entry := range r.graph.EntryPoints(callee) {
				entryVertex := Vertex{Stmt: entry, Fact: d3}
				if sameUnit {
					r.incoming[entryVertex] = append(r.incoming[entryVertex], e)
					r.push(Edge{From: entryVertex, To: entryVertex}, CallToStartReason{Pred: e})
					for _, exitVertex := range r.endSummary[entryVertex] {
						r.applyExitToCaller(e, Edge{From: entryVertex, To: exitVertex})
					}
				} else {
					r.ensureSubscription(callee, entryVertex, e)
					r.router.Dispatch(r.unit, entryVertex, callee)
				}
			}
		}
	}
	for _, ret := range r.graph.Successors(call) {
		fn := r.ffs.CallToReturn(call, ret)
		for _, d3 := range fn(d2) {
			r.push(Edge{From: e.From, To: Vertex{Stmt: ret, Fact: d3}}, SequentReason{Pred: e})
		}
	}
}

func (r *Runner) handleExit(e Edge, exit Statement, d2 Fact, method Method) {
	entryVertex := e.From
	exitVertex := e.To
	summary := Edge{From: entryVertex, To: exitVertex}
	if r.summarySeen[summary] {
		return
	}
	r.summarySeen[summary] = true
	r.endSummary[entryVertex] = append(r.endSummary[entryVertex], exitVertex)
	r.summaryEdges[method] = append(r.summaryEdges[method], summary)

	if r.analyzer.SaveSummaryAndCrossUnit() {
		r.store.Publish(method, summary)
	}
	if r.foreignSummary != nil {
		r.foreignSummary(method, summary)
	}
	for _, callerEdge := range r.incoming[entryVertex] {
		r.applyExitToCaller(callerEdge, summary)
	}

	// An exit statement may still have successors along exceptional
	// control flow; the summary publication above does not substitute for
	// the ordinary sequent transfer.
	r.handleSequent(e, exit, d2)
}

// applyExitToCaller translates summary back across the call site recorded
// in callerEdge.To, producing new path edges at the caller's return sites.
func (r *Runner) applyExitToCaller(callerEdge Edge, summary Edge) {
	call := callerEdge.To.Stmt
	exit := summary.To
	for _, ret := range r.graph.Successors(call) {
		fn := r.ffs.ExitToReturn(call, ret, exit.Stmt)
		for _, d5 := range fn(exit.Fact) {
			r.push(Edge{From: callerEdge.From, To: Vertex{Stmt: ret, Fact: d5}},
				ThroughSummaryReason{Pred: callerEdge, Summary: summary})
		}
	}
}

// ensureSubscription lazily subscribes to callee's summary edges the
// first time this runner calls it across a unit boundary, then records
// callerEdge as awaiting delivery at entryVertex. Subscription replay
// means a summary already known when this call is first seen still
// reaches it, same as one discovered afterward.
func (r *Runner) ensureSubscription(callee Method, entryVertex Vertex, callerEdge Edge) {
	r.pendingCross[entryVertex] = append(r.pendingCross[entryVertex], callerEdge)
	if _, ok := r.subs[callee]; ok {
		return
	}
	r.subs[callee] = r.store.Subscribe(callee, func(ev Event) { r.pushSummaryEvent(ev) })
}

func (r *Runner) handleSummaryEvent(ev Event) {
	callerEdges := r.pendingCross[ev.Edge.From]
	for _, callerEdge := range callerEdges {
		r.applyExitToCaller(callerEdge, ev.Edge)
	}
}

func (r *Runner) recordFacts(facts []SummaryFact) {
	for _, f := range facts {
		r.recordVuln(f)
	}
}

func (r *Runner) recordVuln(f SummaryFact) {
	if f.Vuln == nil {
		return
	}
	key := f.Vuln.Key()
	if r.findingsSeen[key] {
		return
	}
	r.findingsSeen[key] = true
	r.findings = append(r.findings, *f.Vuln)
}

// PathEdges returns every path edge discovered, safe to call only after
// the runner's Run loop has returned.
func (r *Runner) PathEdges() []Edge {
	edges := make([]Edge, 0, len(r.reasons))
	for e := range r.reasons {
		edges = append(edges, e)
	}
	return edges
}

// SummaryEdges returns a snapshot of every summary edge this runner
// produced, by method, safe to call only after Run has returned.
func (r *Runner) SummaryEdges() map[Method][]Edge {
	out := make(map[Method][]Edge, len(r.summaryEdges))
	for m, edges := range r.summaryEdges {
		out[m] = append([]Edge(nil), edges...)
	}
	return out
}

// Findings returns every vulnerability this runner's analyzer reported,
// safe to call only after Run has returned.
func (r *Runner) Findings() []Vulnerability {
	return append([]Vulnerability(nil), r.findings...)
}

// ReasonsOf returns every reason recorded for edge, used by the
// trace-graph reconstructor. An edge can be derived more than one way, so
// callers must consider every entry, not just the first.
func (r *Runner) ReasonsOf(e Edge) ([]Reason, bool) {
	reasons, ok := r.reasons[e]
	return reasons, ok
}
