package ifds

import (
	"context"
	"testing"
	"time"
)

// reachFFS is a minimal flow-function space for plain reachability: the
// only fact is Zero, and it holds everywhere Zero itself flows. When
// blockBypass is set, CallToReturn never lets Zero cross a call site
// directly, so a fact reaching the far side of a call must have traveled
// through the callee's own start-to-exit summary.
type reachFFS struct {
	blockBypass bool
}

func (reachFFS) Start(Statement) []Fact { return []Fact{Zero} }
func (reachFFS) Sequent(curr, next Statement) FlowFunction {
	return func(d Fact) []Fact { return []Fact{d} }
}
func (reachFFS) CallToStart(Statement, Method) FlowFunction {
	return func(d Fact) []Fact { return []Fact{d} }
}
func (f reachFFS) CallToReturn(Statement, Statement) FlowFunction {
	return func(d Fact) []Fact {
		if f.blockBypass {
			return nil
		}
		return []Fact{d}
	}
}
func (reachFFS) ExitToReturn(Statement, Statement, Statement) FlowFunction {
	return func(d Fact) []Fact { return []Fact{d} }
}

// reachAnalyzer reports a Vulnerability whenever a path edge lands on a
// designated sink statement.
type reachAnalyzer struct {
	graph Graph
	sinks map[Statement]bool
	ffs   reachFFS
}

func (a *reachAnalyzer) FlowFunctions() FlowFunctionSpace { return a.ffs }
func (a *reachAnalyzer) SaveSummaryAndCrossUnit() bool    { return true }
func (a *reachAnalyzer) SummaryFacts(e Edge) []SummaryFact {
	if !IsZero(e.To.Fact) || !a.sinks[e.To.Stmt] {
		return nil
	}
	return []SummaryFact{{Vuln: &Vulnerability{
		Method: a.graph.MethodOf(e.To.Stmt),
		Sink:   e.To,
		RuleID: "reach",
	}}}
}
func (a *reachAnalyzer) SummaryFactsPost(Aggregate) []SummaryFact { return nil }

func TestManagerDirectReachability(t *testing.T) {
	s1, s2, s3 := strStmt("s1"), strStmt("s2"), strStmt("s3")
	m := strMethod("main")
	g := &fakeGraph{
		entry:    map[Method][]Statement{m: {s1}},
		exit:     map[Method][]Statement{m: {s3}},
		succ:     map[Statement][]Statement{s1: {s2}, s2: {s3}},
		methodOf: map[Statement]Method{s1: m, s2: m, s3: m},
	}
	analyzer := &reachAnalyzer{graph: g, sinks: map[Statement]bool{s2: true}}
	mgr := NewManager(g, analyzer, SingletonResolver{}, 0)

	res, err := mgr.Run(context.Background(), []Statement{s1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %v", len(res.Findings), res.Findings)
	}
	if res.Findings[0].Sink.Stmt != s2 {
		t.Fatalf("unexpected sink: %v", res.Findings[0].Sink)
	}
}

// buildInterproceduralGraph returns a graph shaped like:
//
//	main:   m1 (call helper) -> m2 (sink) -> m3 (exit)
//	helper: h1 (entry == exit, returns immediately)
//
// CallToReturn is blocked, so m2 is only reachable through helper's
// start-to-exit summary being applied back at m1's return site.
func buildInterproceduralGraph() (*fakeGraph, Method, Method, Statement) {
	m1, m2, m3 := strStmt("m1"), strStmt("m2"), strStmt("m3")
	h1 := strStmt("h1")
	main := strMethod("main")
	helper := strMethod("helper")

	g := &fakeGraph{
		entry: map[Method][]Statement{main: {m1}, helper: {h1}},
		exit:  map[Method][]Statement{main: {m3}, helper: {h1}},
		succ:  map[Statement][]Statement{m1: {m2}, m2: {m3}},
		callees: map[Statement][]Method{
			m1: {helper},
		},
		methodOf: map[Statement]Method{m1: main, m2: main, m3: main, h1: helper},
	}
	return g, main, helper, m2
}

func TestManagerInterproceduralSummarySameUnit(t *testing.T) {
	g, main, _, sink := buildInterproceduralGraph()
	analyzer := &reachAnalyzer{graph: g, sinks: map[Statement]bool{sink: true}, ffs: reachFFS{blockBypass: true}}
	mgr := NewManager(g, analyzer, SingletonResolver{}, 0)

	res, err := mgr.Run(context.Background(), []Statement{g.EntryPoints(main)[0]})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("expected 1 finding via the summary path, got %d: %v", len(res.Findings), res.Findings)
	}
}

func TestManagerInterproceduralSummaryCrossUnit(t *testing.T) {
	g, main, _, sink := buildInterproceduralGraph()
	analyzer := &reachAnalyzer{graph: g, sinks: map[Statement]bool{sink: true}, ffs: reachFFS{blockBypass: true}}
	mgr := NewManager(g, analyzer, PerMethodResolver{}, 0)

	res, err := mgr.Run(context.Background(), []Statement{g.EntryPoints(main)[0]})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("expected 1 finding delivered across the unit boundary, got %d: %v", len(res.Findings), res.Findings)
	}

	edges := mgr.UnitEdges()
	if len(edges) != 1 {
		t.Fatalf("expected exactly one caller unit to have recorded an edge, got %d", len(edges))
	}
	for _, tos := range edges {
		if len(tos) != 1 {
			t.Fatalf("expected exactly one callee unit recorded, got %d", len(tos))
		}
	}
}

func TestManagerRecursiveCallConverges(t *testing.T) {
	r1, r2, r3, r4 := strStmt("r1"), strStmt("r2"), strStmt("r3"), strStmt("r4")
	rec := strMethod("rec")
	g := &fakeGraph{
		entry: map[Method][]Statement{rec: {r1}},
		exit:  map[Method][]Statement{rec: {r4}},
		succ:  map[Statement][]Statement{r1: {r2, r4}, r2: {r3}},
		callees: map[Statement][]Method{
			r2: {rec},
		},
		methodOf: map[Statement]Method{r1: rec, r2: rec, r3: rec, r4: rec},
	}
	analyzer := &reachAnalyzer{graph: g, sinks: map[Statement]bool{r3: true}, ffs: reachFFS{blockBypass: true}}
	mgr := NewManager(g, analyzer, SingletonResolver{}, 5*time.Second)

	res, err := mgr.Run(context.Background(), []Statement{r1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("expected the recursive call to converge to exactly 1 finding, got %d: %v", len(res.Findings), res.Findings)
	}
}

type intFact int

func (f intFact) String() string { return "" }

type loopFFS struct{}

func (loopFFS) Start(Statement) []Fact { return []Fact{intFact(0)} }
func (loopFFS) Sequent(curr, next Statement) FlowFunction {
	return func(d Fact) []Fact {
		n, _ := d.(intFact)
		return []Fact{n + 1}
	}
}
func (loopFFS) CallToStart(Statement, Method) FlowFunction {
	return func(Fact) []Fact { return nil }
}
func (loopFFS) CallToReturn(Statement, Statement) FlowFunction {
	return func(Fact) []Fact { return nil }
}
func (loopFFS) ExitToReturn(Statement, Statement, Statement) FlowFunction {
	return func(Fact) []Fact { return nil }
}

type loopAnalyzer struct{}

func (loopAnalyzer) FlowFunctions() FlowFunctionSpace          { return loopFFS{} }
func (loopAnalyzer) SaveSummaryAndCrossUnit() bool             { return true }
func (loopAnalyzer) SummaryFacts(Edge) []SummaryFact           { return nil }
func (loopAnalyzer) SummaryFactsPost(Aggregate) []SummaryFact { return nil }

func TestManagerRunHonorsDeadline(t *testing.T) {
	s1 := strStmt("s1")
	m := strMethod("m")
	g := &fakeGraph{
		entry:    map[Method][]Statement{m: {s1}},
		succ:     map[Statement][]Statement{s1: {s1}},
		methodOf: map[Statement]Method{s1: m},
	}
	mgr := NewManager(g, loopAnalyzer{}, SingletonResolver{}, 50*time.Millisecond)

	_, err := mgr.Run(context.Background(), []Statement{s1})
	if err == nil {
		t.Fatal("expected a deadline error from a never-converging analysis")
	}
	if _, ok := err.(*DeadlineExceededError); !ok {
		t.Fatalf("expected *DeadlineExceededError, got %T: %v", err, err)
	}
}
