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

// Package appgraph is a concrete ifds.Graph built from a JSON document
// instead of real bytecode: class-database ingestion and CFG construction
// are out of scope for the engine itself, so the command-line driver reads
// an already-built application graph the way a bytecode front end would
// hand one to it. The JSON shape mirrors the engine's own Statement/Method
// model closely enough that hand-writing small fixtures for the CLI's -cp
// input is practical.
package appgraph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/awslabs/ifds-dataflow-engine/analysis/ifds"
	"github.com/awslabs/ifds-dataflow-engine/analysis/taint"
)

// doc is the on-disk JSON shape of one application graph document. Several
// documents (one per -cp entry) are merged into a single Graph by Load.
type doc struct {
	Methods []jsonMethod `json:"methods"`
}

type jsonMethod struct {
	ID         string     `json:"id"`
	Package    string     `json:"package"`
	Class      string     `json:"class"`
	Params     []string   `json:"params,omitempty"`
	Entry      []string   `json:"entry"`
	Exit       []string   `json:"exit"`
	Statements []jsonStmt `json:"statements"`
}

// jsonStmt represents one statement. Kind selects which of the op-specific
// fields apply: "call", "assign", "field", "return", or anything else
// (plain).
type jsonStmt struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind,omitempty"`
	Successors []string `json:"successors,omitempty"`

	// call
	Callees  []string `json:"callees,omitempty"`
	Package  string   `json:"package,omitempty"`
	Receiver string   `json:"receiver,omitempty"`
	Method   string   `json:"method,omitempty"`
	Args     []string `json:"args,omitempty"`
	Result   string   `json:"result,omitempty"`

	// assign
	Target string `json:"target,omitempty"`
	Source string `json:"source,omitempty"`

	// field (a field read collapsed to target = source.field)
	Field string `json:"field,omitempty"`

	// return
	Value string `json:"value,omitempty"`
}

// Method is the appgraph's ifds.Method: implements ifds.ClassifiedMethod
// (for per-class/per-package unit resolution) and taint.Parameterized (for
// call-to-start actual/formal substitution).
type Method struct {
	id, pkg, class string
	params         []string
}

// ID implements ifds.Method.
func (m *Method) ID() string { return m.id }

// String implements ifds.Method.
func (m *Method) String() string { return m.id }

// Package implements ifds.ClassifiedMethod.
func (m *Method) Package() string { return m.pkg }

// Class implements ifds.ClassifiedMethod.
func (m *Method) Class() string { return m.class }

// NumParams implements taint.Parameterized.
func (m *Method) NumParams() int { return len(m.params) }

// Param implements taint.Parameterized.
func (m *Method) Param(i int) string { return m.params[i] }

var (
	_ ifds.ClassifiedMethod = (*Method)(nil)
	_ taint.Parameterized   = (*Method)(nil)
)

// stmt is the shared base of every concrete statement kind. Statements are
// always used through a pointer, so pointer identity (and therefore plain
// ==) gives the structural-equality contract ifds.Statement requires: the
// same statement in the source graph always produces the same *stmt.
type stmt struct {
	id     string
	method *Method
}

func (s *stmt) String() string { return s.id }

// CallStmt implements taint.CallOp.
type CallStmt struct {
	stmt
	pkg, receiver, name, result string
	args                        []string
	callees                     []ifds.Method
}

func (s *CallStmt) Package() string  { return s.pkg }
func (s *CallStmt) Receiver() string { return s.receiver }
func (s *CallStmt) Name() string     { return s.name }
func (s *CallStmt) NumArgs() int     { return len(s.args) }
func (s *CallStmt) Arg(i int) string { return s.args[i] }
func (s *CallStmt) Result() string   { return s.result }

// AssignStmt implements taint.AssignOp.
type AssignStmt struct {
	stmt
	target, source string
}

func (s *AssignStmt) Target() string { return s.target }
func (s *AssignStmt) Source() string { return s.source }

// ReturnStmt implements taint.ReturnOp.
type ReturnStmt struct {
	stmt
	value string
}

func (s *ReturnStmt) Value() string { return s.value }

// FieldStmt implements taint.FieldOp: target = source.field.
type FieldStmt struct {
	stmt
	target, source, field string
}

func (s *FieldStmt) Target() string { return s.target }
func (s *FieldStmt) Source() string { return s.source }
func (s *FieldStmt) Field() string  { return s.field }

// PlainStmt is any statement that is neither a call, an assignment, a
// field read, nor a return - passed through flow functions as identity.
type PlainStmt struct {
	stmt
}

var (
	_ taint.CallOp   = (*CallStmt)(nil)
	_ taint.AssignOp = (*AssignStmt)(nil)
	_ taint.ReturnOp = (*ReturnStmt)(nil)
	_ taint.FieldOp  = (*FieldStmt)(nil)
)

// Graph is the forward application graph built from one or more JSON
// documents. View adapts it (and its reverse) to ifds.Graph.
type Graph struct {
	methods  map[string]*Method
	stmts    map[string]ifds.Statement
	methodOf map[ifds.Statement]*Method
	succ     map[ifds.Statement][]ifds.Statement
	pred     map[ifds.Statement][]ifds.Statement
	entryOf  map[*Method][]ifds.Statement
	exitOf   map[*Method][]ifds.Statement
}

// Load reads and merges the JSON application-graph documents at paths,
// returning an ifds.Graph view over the forward direction.
func Load(paths []string) (ifds.Graph, error) {
	g := &Graph{
		methods:  make(map[string]*Method),
		stmts:    make(map[string]ifds.Statement),
		methodOf: make(map[ifds.Statement]*Method),
		succ:     make(map[ifds.Statement][]ifds.Statement),
		pred:     make(map[ifds.Statement][]ifds.Statement),
		entryOf:  make(map[*Method][]ifds.Statement),
		exitOf:   make(map[*Method][]ifds.Statement),
	}
	var rawStmts []jsonStmt
	for _, path := range paths {
		stmts, err := g.loadOne(path)
		if err != nil {
			return nil, err
		}
		rawStmts = append(rawStmts, stmts...)
	}
	if err := g.wire(rawStmts); err != nil {
		return nil, err
	}
	return &View{g: g}, nil
}

// loadOne parses the document at path, registers its methods and
// statements, and returns the raw jsonStmt records so the caller can wire
// cross-references (successors, callees) once every document is loaded.
func (g *Graph) loadOne(path string) ([]jsonStmt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("appgraph: opening %s: %w", path, err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("appgraph: reading %s: %w", path, err)
	}
	var d doc
	if err := json.Unmarshal(content, &d); err != nil {
		return nil, fmt.Errorf("appgraph: parsing %s: %w", path, err)
	}

	var rawStmts []jsonStmt
	for _, jm := range d.Methods {
		m := &Method{id: jm.ID, pkg: jm.Package, class: jm.Class, params: jm.Params}
		g.methods[jm.ID] = m
		for _, js := range jm.Statements {
			s := buildStmt(m, js)
			g.stmts[js.ID] = s
			g.methodOf[s] = m
			rawStmts = append(rawStmts, js)
		}
		for _, id := range jm.Entry {
			s, ok := g.stmts[id]
			if !ok {
				return nil, fmt.Errorf("appgraph: method %s: unknown entry statement %s", jm.ID, id)
			}
			g.entryOf[m] = append(g.entryOf[m], s)
		}
		for _, id := range jm.Exit {
			s, ok := g.stmts[id]
			if !ok {
				return nil, fmt.Errorf("appgraph: method %s: unknown exit statement %s", jm.ID, id)
			}
			g.exitOf[m] = append(g.exitOf[m], s)
		}
	}
	return rawStmts, nil
}

func buildStmt(m *Method, js jsonStmt) ifds.Statement {
	base := stmt{id: js.ID, method: m}
	switch js.Kind {
	case "call":
		return &CallStmt{stmt: base, pkg: js.Package, receiver: js.Receiver, name: js.Method, result: js.Result, args: js.Args}
	case "assign":
		return &AssignStmt{stmt: base, target: js.Target, source: js.Source}
	case "field":
		return &FieldStmt{stmt: base, target: js.Target, source: js.Source, field: js.Field}
	case "return":
		return &ReturnStmt{stmt: base, value: js.Value}
	default:
		return &PlainStmt{stmt: base}
	}
}

// wire resolves each statement's successor and callee id references into
// ifds.Statement/ifds.Method values and builds the predecessor index the
// reversed view uses.
func (g *Graph) wire(rawStmts []jsonStmt) error {
	for _, js := range rawStmts {
		s := g.stmts[js.ID]
		for _, succID := range js.Successors {
			succ, ok := g.stmts[succID]
			if !ok {
				return fmt.Errorf("appgraph: statement %s: unknown successor %s", js.ID, succID)
			}
			g.succ[s] = append(g.succ[s], succ)
			g.pred[succ] = append(g.pred[succ], s)
		}
		if len(js.Callees) == 0 {
			continue
		}
		cs, ok := s.(*CallStmt)
		if !ok {
			return fmt.Errorf("appgraph: statement %s: callees set on a non-call statement", js.ID)
		}
		for _, calleeID := range js.Callees {
			callee, ok := g.methods[calleeID]
			if !ok {
				return fmt.Errorf("appgraph: statement %s: unknown callee %s", js.ID, calleeID)
			}
			cs.callees = append(cs.callees, callee)
		}
	}
	return nil
}

// MethodByID looks up a loaded method by its JSON id.
func (g *Graph) MethodByID(id string) (*Method, bool) {
	m, ok := g.methods[id]
	return m, ok
}

// Methods returns every method this Graph knows about.
func (g *Graph) Methods() []*Method {
	out := make([]*Method, 0, len(g.methods))
	for _, m := range g.methods {
		out = append(out, m)
	}
	return out
}

// EntryStatements returns the entry statements of m, for seeding start
// points from the CLI's -s flag.
func (g *Graph) EntryStatements(m *Method) []ifds.Statement {
	return g.entryOf[m]
}

// View adapts a Graph to ifds.Graph, optionally swapping successor and
// entry/exit roles for the backward direction a Bidirectional analysis
// needs.
type View struct {
	g        *Graph
	reversed bool
}

var _ ifds.Graph = (*View)(nil)

// EntryPoints implements ifds.Graph.
func (v *View) EntryPoints(m ifds.Method) []ifds.Statement {
	cm := v.g.methods[m.ID()]
	if v.reversed {
		return v.g.exitOf[cm]
	}
	return v.g.entryOf[cm]
}

// ExitPoints implements ifds.Graph.
func (v *View) ExitPoints(m ifds.Method) []ifds.Statement {
	cm := v.g.methods[m.ID()]
	if v.reversed {
		return v.g.entryOf[cm]
	}
	return v.g.exitOf[cm]
}

// Successors implements ifds.Graph.
func (v *View) Successors(s ifds.Statement) []ifds.Statement {
	if v.reversed {
		return v.g.pred[s]
	}
	return v.g.succ[s]
}

// Callees implements ifds.Graph. Reversing direction does not change which
// methods a call statement may invoke.
func (v *View) Callees(s ifds.Statement) []ifds.Method {
	cs, ok := s.(*CallStmt)
	if !ok {
		return nil
	}
	return cs.callees
}

// MethodOf implements ifds.Graph.
func (v *View) MethodOf(s ifds.Statement) ifds.Method {
	return v.g.methodOf[s]
}

// Reversed implements ifds.Graph.
func (v *View) Reversed() ifds.Graph {
	return &View{g: v.g, reversed: !v.reversed}
}

// Unwrap returns the underlying Graph, letting a caller that knows it is
// holding an appgraph-backed ifds.Graph enumerate methods by name (e.g. to
// resolve the CLI's -s/--start class-name prefixes) - a capability the
// abstract ifds.Graph interface deliberately does not expose.
func (v *View) Unwrap() *Graph { return v.g }
