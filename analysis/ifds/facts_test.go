package ifds

import "testing"

type strFact string

func (f strFact) String() string { return string(f) }

type strMethod string

func (m strMethod) String() string { return string(m) }
func (m strMethod) ID() string     { return string(m) }

type strStmt string

func (s strStmt) String() string { return string(s) }

func TestIsZero(t *testing.T) {
	if !IsZero(Zero) {
		t.Fatal("Zero must report IsZero")
	}
	if IsZero(strFact("x")) {
		t.Fatal("a concrete fact must not report IsZero")
	}
}

func TestFactsEqual(t *testing.T) {
	if !FactsEqual(strFact("a"), strFact("a")) {
		t.Fatal("equal concrete facts must compare equal")
	}
	if FactsEqual(strFact("a"), strFact("b")) {
		t.Fatal("distinct concrete facts must not compare equal")
	}
}

func TestVertexAndEdgeString(t *testing.T) {
	v := Vertex{Stmt: strStmt("s"), Fact: strFact("f")}
	if v.String() != "<s, f>" {
		t.Fatalf("unexpected Vertex.String(): %s", v.String())
	}
	e := Edge{From: v, To: v}
	if e.String() != "<s, f> -> <s, f>" {
		t.Fatalf("unexpected Edge.String(): %s", e.String())
	}
}

func TestVulnerabilityKeyDedup(t *testing.T) {
	sink := Vertex{Stmt: strStmt("sink"), Fact: strFact("tainted")}
	v1 := Vulnerability{Method: strMethod("m"), Sink: sink, RuleID: "R1"}
	v2 := Vulnerability{Method: strMethod("m"), Sink: sink, RuleID: "R1"}
	v3 := Vulnerability{Method: strMethod("m"), Sink: sink, RuleID: "R2"}

	if v1.Key() != v2.Key() {
		t.Fatal("identical findings must share a dedup key")
	}
	if v1.Key() == v3.Key() {
		t.Fatal("findings under different rules must not share a dedup key")
	}
}

func TestVulnerabilityString(t *testing.T) {
	sink := Vertex{Stmt: strStmt("sink"), Fact: strFact("tainted")}
	withCWE := Vulnerability{Method: strMethod("m"), Sink: sink, RuleID: "R1", CWE: "CWE-89"}
	withoutCWE := Vulnerability{Method: strMethod("m"), Sink: sink, RuleID: "R1"}

	if got := withCWE.String(); got != "[R1/CWE-89] <sink, tainted> in m" {
		t.Fatalf("unexpected String(): %s", got)
	}
	if got := withoutCWE.String(); got != "[R1] <sink, tainted> in m" {
		t.Fatalf("unexpected String(): %s", got)
	}
}
