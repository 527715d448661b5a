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
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// UnitRouter lazily creates the Runner owning a unit and seeds it with a
// cross-unit call's entry vertex (§5, "dynamically discovered
// supergraphs"). It exists as its own type, rather than a Manager method
// called directly from Runner, so Runner never needs a full Manager
// reference, only the narrow slice of it a call site can use.
type UnitRouter struct {
	mgr *Manager
}

// Dispatch ensures a Runner exists for the unit owning callee and enqueues
// entryVertex there, tagged ExternalReason since the receiving unit has no
// visibility into the caller's own path-edge provenance.
func (u *UnitRouter) Dispatch(caller Unit, entryVertex Vertex, callee Method) {
	unit := u.mgr.resolver.Resolve(callee)
	u.mgr.recordUnitEdge(caller, unit)
	r := u.mgr.runnerFor(unit)
	r.Seed(entryVertex, ExternalReason{})
}

// Result is the outcome of a completed Manager.Run: every vulnerability
// found, deduplicated across unit boundaries, plus enough of the raw
// solver state for a trace-graph reconstruction and for reporting.
type Result struct {
	RunID        string
	Findings     []Vulnerability
	PathEdges    map[Unit][]Edge
	SummaryEdges map[Method][]Edge
}

// Manager owns the shared SummaryStore and the set of per-unit Runners,
// and coordinates quiescence across all of them (§4.6, C6). One Runner
// goroutine runs per unit, under a single errgroup so a panic or deadline
// in any one of them unwinds the whole analysis.
type Manager struct {
	graph    Graph
	analyzer Analyzer
	resolver UnitResolver
	store    *SummaryStore
	router   *UnitRouter
	deadline time.Duration

	mu        sync.Mutex
	runners   map[Unit]*Runner
	wg        *sync.WaitGroup
	unitEdges map[Unit]map[Unit]bool

	// foreignSummary, when non-nil, is called with every summary edge any
	// of this Manager's runners produce - the hook Bidirectional wires up
	// so a forward and backward Manager can inject each other's summary
	// edges as External facts (§4.7).
	foreignSummary func(Method, Edge)

	// eg and egCtx are set for the duration of Run. runnerFor uses them to
	// start a newly created Runner's goroutine immediately, which matters
	// for a Runner created mid-run by a cross-unit UnitRouter.Dispatch:
	// without this, a Runner registered after Run's startup loop had
	// already launched every then-existing Runner would receive queued
	// jobs nothing was ever consuming, deadlocking the shared WaitGroup.
	eg    *errgroup.Group
	egCtx context.Context
}

// NewManager builds a Manager ready to run analyzer over graph, resolving
// methods to units with resolver. A zero deadline means no deadline.
func NewManager(graph Graph, analyzer Analyzer, resolver UnitResolver, deadline time.Duration) *Manager {
	m := &Manager{
		graph:    graph,
		analyzer: analyzer,
		resolver: resolver,
		store:    NewSummaryStore(),
		deadline: deadline,
		runners:  make(map[Unit]*Runner),
		wg:       &sync.WaitGroup{},
	}
	m.router = &UnitRouter{mgr: m}
	return m
}

// shareQuiescence replaces this Manager's own WaitGroup with wg, so its
// runners' work is counted alongside another Manager's. Bidirectional
// calls this on both of its Managers before either starts Run, so the
// pair only reaches quiescence once both directions have drained (§4.7).
func (m *Manager) shareQuiescence(wg *sync.WaitGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wg = wg
}

// injectForeignSummary seeds the runner owning method with summary's
// endpoints as External facts, letting one direction of a Bidirectional
// pair treat the other direction's summary edges as newly discovered
// path edges of its own.
func (m *Manager) injectForeignSummary(method Method, summary Edge) {
	unit := m.resolver.Resolve(method)
	r := m.runnerFor(unit)
	r.Seed(summary.From, ExternalReason{})
	r.Seed(summary.To, ExternalReason{})
}

func (m *Manager) runnerFor(unit Unit) *Runner {
	m.mu.Lock()
	if r, ok := m.runners[unit]; ok {
		m.mu.Unlock()
		return r
	}
	r := newRunner(unit, m.graph, m.analyzer, m.resolver, m.store, m.router, m.wg, m.foreignSummary)
	m.runners[unit] = r
	eg, egCtx := m.eg, m.egCtx
	m.mu.Unlock()

	if eg != nil {
		eg.Go(func() error { return r.Run(egCtx) })
	}
	return r
}

// Run seeds the analysis at every (statement, start fact) pair obtained
// from the analyzer's FlowFunctionSpace.Start for each entry in
// startPoints, then drives every unit's Runner to quiescence or until the
// configured deadline elapses.
func (m *Manager) Run(ctx context.Context, startPoints []Statement) (*Result, error) {
	if m.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.deadline)
		defer cancel()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	m.mu.Lock()
	m.eg, m.egCtx = eg, egCtx
	// A runner may already exist here, created by Bidirectional.Run's
	// seeding or by a cross-manager injectForeignSummary call before this
	// Manager's own Run began; its
	// goroutine was never started since runnerFor only launches one for a
	// Runner it creates while eg is already set.
	for _, r := range m.runners {
		rr := r
		eg.Go(func() error { return rr.Run(egCtx) })
	}
	m.mu.Unlock()

	ffs := m.analyzer.FlowFunctions()
	for _, stmt := range startPoints {
		unit := m.resolver.Resolve(m.graph.MethodOf(stmt))
		r := m.runnerFor(unit)
		for _, d := range ffs.Start(stmt) {
			r.Seed(Vertex{Stmt: stmt, Fact: d}, InitialReason{})
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.mu.Lock()
		for _, r := range m.runners {
			r.Close()
		}
		m.mu.Unlock()
	case <-egCtx.Done():
	}

	if err := eg.Wait(); err != nil {
		if ctx.Err() != nil {
			m.mu.Lock()
			pending := len(m.runners)
			m.mu.Unlock()
			return nil, &DeadlineExceededError{Pending: pending}
		}
		return nil, err
	}

	return m.collect(), nil
}

// Runners returns a snapshot of every unit's Runner, for building a
// TraceGraph once the analysis has reached quiescence.
func (m *Manager) Runners() map[Unit]*Runner {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Unit]*Runner, len(m.runners))
	for u, r := range m.runners {
		out[u] = r
	}
	return out
}

func (m *Manager) recordUnitEdge(from, to Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unitEdges == nil {
		m.unitEdges = make(map[Unit]map[Unit]bool)
	}
	if m.unitEdges[from] == nil {
		m.unitEdges[from] = make(map[Unit]bool)
	}
	m.unitEdges[from][to] = true
}

// UnitEdges returns a snapshot of every cross-unit call observed during
// Run, keyed by caller unit, for cycle diagnostics (internal/graphutil).
func (m *Manager) UnitEdges() map[Unit]map[Unit]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Unit]map[Unit]bool, len(m.unitEdges))
	for from, tos := range m.unitEdges {
		out[from] = make(map[Unit]bool, len(tos))
		for to := range tos {
			out[from][to] = true
		}
	}
	return out
}

// Resolver returns the UnitResolver this Manager was built with.
func (m *Manager) Resolver() UnitResolver { return m.resolver }

// Graph returns the application graph this Manager was built with.
func (m *Manager) Graph() Graph { return m.graph }

func (m *Manager) collect() *Result {
	res := &Result{
		RunID:        uuid.NewString(),
		PathEdges:    make(map[Unit][]Edge),
		SummaryEdges: make(map[Method][]Edge),
	}

	seen := make(map[string]bool)
	addVuln := func(v Vulnerability) {
		key := v.Key()
		if seen[key] {
			return
		}
		seen[key] = true
		res.Findings = append(res.Findings, v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for unit, r := range m.runners {
		res.PathEdges[unit] = r.PathEdges()
		for method, edges := range r.SummaryEdges() {
			res.SummaryEdges[method] = append(res.SummaryEdges[method], edges...)
		}
		for _, v := range r.Findings() {
			addVuln(v)
		}

		agg := Aggregate{
			Unit:         unit,
			PathEdges:    r.PathEdges(),
			SummaryEdges: r.SummaryEdges(),
		}
		for _, sf := range m.analyzer.SummaryFactsPost(agg) {
			if sf.Vuln != nil {
				addVuln(*sf.Vuln)
			}
		}
	}
	return res
}
