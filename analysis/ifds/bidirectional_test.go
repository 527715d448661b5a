package ifds

import (
	"context"
	"testing"
)

func TestNewBidirectionalSharesQuiescence(t *testing.T) {
	s1 := strStmt("s1")
	m := strMethod("m")
	g := &fakeGraph{
		entry:    map[Method][]Statement{m: {s1}},
		exit:     map[Method][]Statement{m: {s1}},
		methodOf: map[Statement]Method{s1: m},
	}
	fwd := &reachAnalyzer{graph: g}
	bwd := &reachAnalyzer{graph: g}
	b := NewBidirectional(g, fwd, bwd, SingletonResolver{}, 0)

	if b.Forward.wg != b.Backward.wg {
		t.Fatal("Forward and Backward must share a single WaitGroup for joint quiescence")
	}
}

// TestBidirectionalCrossInjectsSummaries builds a forward analyzer over
// s1 -> s2 that produces a start-to-exit summary but reports no findings
// of its own, and a backward analyzer with no start points at all: the
// only way the backward side can ever see s2 is if the forward summary
// is injected as an External fact (§4.7).
func TestBidirectionalCrossInjectsSummaries(t *testing.T) {
	s1, s2 := strStmt("s1"), strStmt("s2")
	m := strMethod("m")
	g := &fakeGraph{
		entry:    map[Method][]Statement{m: {s1}},
		exit:     map[Method][]Statement{m: {s2}},
		succ:     map[Statement][]Statement{s1: {s2}},
		methodOf: map[Statement]Method{s1: m, s2: m},
	}

	fwdAnalyzer := &reachAnalyzer{graph: g}
	bwdAnalyzer := &reachAnalyzer{graph: g, sinks: map[Statement]bool{s2: true}}

	b := NewBidirectional(g, fwdAnalyzer, bwdAnalyzer, SingletonResolver{}, 0)

	fwdRes, bwdRes, err := b.Run(context.Background(), []Statement{s1}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fwdRes.Findings) != 0 {
		t.Fatalf("forward side reports no sinks of its own, got %d findings", len(fwdRes.Findings))
	}
	if len(bwdRes.Findings) != 1 {
		t.Fatalf("expected the backward side to find s2 via the injected forward summary, got %d: %v",
			len(bwdRes.Findings), bwdRes.Findings)
	}
}
