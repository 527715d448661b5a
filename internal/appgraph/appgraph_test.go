package appgraph

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDoc(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

const simpleDoc = `{"methods":[
	{
		"id": "main", "entry": ["s1"], "exit": ["s3"],
		"statements": [
			{"id": "s1", "kind": "call", "method": "helper", "callees": ["helper"], "args": ["x"], "result": "y", "successors": ["s2"]},
			{"id": "s2", "kind": "assign", "target": "z", "source": "y", "successors": ["s3"]},
			{"id": "s3"}
		]
	},
	{
		"id": "helper", "params": ["p0"], "entry": ["h1"], "exit": ["h1"],
		"statements": [
			{"id": "h1", "kind": "return", "value": "p0"}
		]
	}
]}`

func TestLoadWiresEntryExitSuccessorsAndCallees(t *testing.T) {
	path := writeDoc(t, "g.json", simpleDoc)
	g, err := Load([]string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view := g.(*View)
	raw := view.Unwrap()

	main, ok := raw.MethodByID("main")
	if !ok {
		t.Fatal("expected method 'main' to be registered")
	}
	helper, ok := raw.MethodByID("helper")
	if !ok {
		t.Fatal("expected method 'helper' to be registered")
	}
	if helper.NumParams() != 1 || helper.Param(0) != "p0" {
		t.Fatalf("unexpected helper params: %+v", helper)
	}

	entries := g.EntryPoints(main)
	if len(entries) != 1 || entries[0].String() != "s1" {
		t.Fatalf("unexpected entry points: %v", entries)
	}
	exits := g.ExitPoints(main)
	if len(exits) != 1 || exits[0].String() != "s3" {
		t.Fatalf("unexpected exit points: %v", exits)
	}

	s1 := entries[0]
	succ := g.Successors(s1)
	if len(succ) != 1 || succ[0].String() != "s2" {
		t.Fatalf("unexpected successors of s1: %v", succ)
	}

	callees := g.Callees(s1)
	if len(callees) != 1 || callees[0].ID() != "helper" {
		t.Fatalf("unexpected callees of s1: %v", callees)
	}
	if g.MethodOf(s1).ID() != "main" {
		t.Fatalf("unexpected MethodOf(s1): %v", g.MethodOf(s1))
	}

	call, ok := s1.(*CallStmt)
	if !ok {
		t.Fatalf("expected s1 to be a *CallStmt, got %T", s1)
	}
	if call.NumArgs() != 1 || call.Arg(0) != "x" || call.Result() != "y" {
		t.Fatalf("unexpected call shape: %+v", call)
	}

	s2 := succ[0]
	assign, ok := s2.(*AssignStmt)
	if !ok {
		t.Fatalf("expected s2 to be a *AssignStmt, got %T", s2)
	}
	if assign.Target() != "z" || assign.Source() != "y" {
		t.Fatalf("unexpected assign shape: %+v", assign)
	}

	hEntries := g.EntryPoints(helper)
	ret, ok := hEntries[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("expected helper's entry to be a *ReturnStmt, got %T", hEntries[0])
	}
	if ret.Value() != "p0" {
		t.Fatalf("unexpected return value: %s", ret.Value())
	}
}

func TestLoadBuildsFieldStmt(t *testing.T) {
	doc := `{"methods":[{
		"id": "main", "entry": ["s1"], "exit": ["s2"],
		"statements": [
			{"id": "s1", "kind": "field", "target": "a", "source": "y", "field": "Name", "successors": ["s2"]},
			{"id": "s2"}
		]
	}]}`
	path := writeDoc(t, "g.json", doc)
	g, err := Load([]string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	main, _ := g.(*View).Unwrap().MethodByID("main")
	s1 := g.EntryPoints(main)[0]
	field, ok := s1.(*FieldStmt)
	if !ok {
		t.Fatalf("expected s1 to be a *FieldStmt, got %T", s1)
	}
	if field.Target() != "a" || field.Source() != "y" || field.Field() != "Name" {
		t.Fatalf("unexpected field shape: %+v", field)
	}
}

func TestLoadMergesMultipleDocuments(t *testing.T) {
	docA := `{"methods":[{
		"id": "caller", "entry": ["c1"], "exit": ["c1"],
		"statements": [
			{"id": "c1", "kind": "call", "method": "callee", "callees": ["callee"]}
		]
	}]}`
	docB := `{"methods":[{
		"id": "callee", "entry": ["e1"], "exit": ["e1"],
		"statements": [{"id": "e1"}]
	}]}`
	pathA := writeDoc(t, "a.json", docA)
	pathB := writeDoc(t, "b.json", docB)

	g, err := Load([]string{pathA, pathB})
	if err != nil {
		t.Fatalf("unexpected error merging documents: %v", err)
	}

	caller, _ := g.(*View).Unwrap().MethodByID("caller")
	entries := g.EntryPoints(caller)
	callees := g.Callees(entries[0])
	if len(callees) != 1 || callees[0].ID() != "callee" {
		t.Fatalf("expected a callee resolved from the second document, got %v", callees)
	}
}

func TestViewReversedSwapsDirection(t *testing.T) {
	path := writeDoc(t, "g.json", simpleDoc)
	g, err := Load([]string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	main, _ := g.(*View).Unwrap().MethodByID("main")

	rev := g.Reversed()
	if len(rev.EntryPoints(main)) != 1 || rev.EntryPoints(main)[0].String() != "s3" {
		t.Fatalf("expected reversed entry points to be the forward exit points, got %v", rev.EntryPoints(main))
	}
	if len(rev.ExitPoints(main)) != 1 || rev.ExitPoints(main)[0].String() != "s1" {
		t.Fatalf("expected reversed exit points to be the forward entry points, got %v", rev.ExitPoints(main))
	}

	s3 := rev.EntryPoints(main)[0]
	predOfS3 := rev.Successors(s3)
	if len(predOfS3) != 1 || predOfS3[0].String() != "s2" {
		t.Fatalf("expected reversed successors to walk predecessors, got %v", predOfS3)
	}

	if rev.Reversed().EntryPoints(main)[0].String() != "s1" {
		t.Fatal("expected reversing twice to return to the forward direction")
	}
}

func TestCalleesOnNonCallStatementReturnsNil(t *testing.T) {
	path := writeDoc(t, "g.json", simpleDoc)
	g, err := Load([]string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	main, _ := g.(*View).Unwrap().MethodByID("main")
	s3 := g.ExitPoints(main)[0]
	if callees := g.Callees(s3); callees != nil {
		t.Fatalf("expected no callees on a plain statement, got %v", callees)
	}
}

func TestLoadRejectsUnknownEntryStatement(t *testing.T) {
	doc := `{"methods":[{"id": "m", "entry": ["missing"], "exit": [], "statements": []}]}`
	path := writeDoc(t, "g.json", doc)
	if _, err := Load([]string{path}); err == nil {
		t.Fatal("expected an error for an unknown entry statement id")
	}
}

func TestLoadRejectsUnknownExitStatement(t *testing.T) {
	doc := `{"methods":[{"id": "m", "entry": [], "exit": ["missing"], "statements": []}]}`
	path := writeDoc(t, "g.json", doc)
	if _, err := Load([]string{path}); err == nil {
		t.Fatal("expected an error for an unknown exit statement id")
	}
}

func TestLoadRejectsUnknownSuccessor(t *testing.T) {
	doc := `{"methods":[{
		"id": "m", "entry": ["s1"], "exit": ["s1"],
		"statements": [{"id": "s1", "successors": ["missing"]}]
	}]}`
	path := writeDoc(t, "g.json", doc)
	if _, err := Load([]string{path}); err == nil {
		t.Fatal("expected an error for an unknown successor id")
	}
}

func TestLoadRejectsUnknownCallee(t *testing.T) {
	doc := `{"methods":[{
		"id": "m", "entry": ["s1"], "exit": ["s1"],
		"statements": [{"id": "s1", "kind": "call", "callees": ["missing"]}]
	}]}`
	path := writeDoc(t, "g.json", doc)
	if _, err := Load([]string{path}); err == nil {
		t.Fatal("expected an error for an unknown callee method id")
	}
}

func TestLoadRejectsCalleesOnNonCallStatement(t *testing.T) {
	doc := `{"methods":[{
		"id": "m", "entry": ["s1"], "exit": ["s2"],
		"statements": [
			{"id": "s1", "callees": ["m"], "successors": ["s2"]},
			{"id": "s2"}
		]
	}]}`
	path := writeDoc(t, "g.json", doc)
	if _, err := Load([]string{path}); err == nil {
		t.Fatal("expected an error when callees is set on a non-call statement")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load([]string{filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatal("expected an error for a missing document")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeDoc(t, "g.json", "{not valid json")
	if _, err := Load([]string{path}); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestMethodsReturnsEveryLoadedMethod(t *testing.T) {
	path := writeDoc(t, "g.json", simpleDoc)
	g, err := Load([]string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	methods := g.(*View).Unwrap().Methods()
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(methods))
	}
}
