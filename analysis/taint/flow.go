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

package taint

import (
	"github.com/awslabs/ifds-dataflow-engine/analysis/config"
	"github.com/awslabs/ifds-dataflow-engine/analysis/ifds"
)

// Analyzer implements ifds.Analyzer and ifds.FlowFunctionSpace for one
// taint-tracking problem. It is both, rather than two cooperating types,
// because every flow function needs the same Spec and graph reference and
// nothing else.
type Analyzer struct {
	graph ifds.Graph
	spec  config.TaintSpec
}

// New builds a taint Analyzer for spec. spec's matchers must already be
// compiled (config.Load does this).
func New(graph ifds.Graph, spec config.TaintSpec) *Analyzer {
	return &Analyzer{graph: graph, spec: spec}
}

var _ ifds.Analyzer = (*Analyzer)(nil)
var _ ifds.FlowFunctionSpace = (*Analyzer)(nil)

// FlowFunctions implements ifds.Analyzer.
func (a *Analyzer) FlowFunctions() ifds.FlowFunctionSpace { return a }

// SaveSummaryAndCrossUnit implements ifds.Analyzer: taint summaries always
// travel across unit boundaries, since a source in one unit reaching a
// sink in another is exactly the case unit partitioning must not miss.
func (a *Analyzer) SaveSummaryAndCrossUnit() bool { return true }

// SummaryFacts implements ifds.Analyzer, reporting a Vulnerability
// whenever a newly added path edge lands on a sink call at the matching
// argument position and mark. The matched sink's CWE, if any, travels
// onto the Vulnerability so report/sarif output can tag the finding.
func (a *Analyzer) SummaryFacts(edge ifds.Edge) []ifds.SummaryFact {
	call, ok := edge.To.Stmt.(CallOp)
	if !ok {
		return nil
	}
	ap, ok := edge.To.Fact.(AccessPath)
	if !ok {
		return nil
	}
	m, matched := a.matchPosition(a.spec.Sinks, call, ap)
	if !matched {
		return nil
	}
	return []ifds.SummaryFact{{Vuln: &ifds.Vulnerability{
		Method: a.graph.MethodOf(edge.To.Stmt),
		Sink:   edge.To,
		RuleID: a.spec.Name,
		CWE:    m.CWE,
	}}}
}

// SummaryFactsPost implements ifds.Analyzer. Every detection taint makes
// is local to a single path edge, so there is nothing left to report once
// a unit quiesces.
func (a *Analyzer) SummaryFactsPost(ifds.Aggregate) []ifds.SummaryFact { return nil }

// Start implements ifds.FlowFunctionSpace: every procedure entry starts
// with just the tautological Zero fact. Taint facts are generated later,
// at the source call sites Sequent/CallToReturn observe Zero reach.
func (a *Analyzer) Start(ifds.Statement) []ifds.Fact {
	return []ifds.Fact{ifds.Zero}
}

// Sequent implements ifds.FlowFunctionSpace.
func (a *Analyzer) Sequent(curr, _ ifds.Statement) ifds.FlowFunction {
	if call, ok := curr.(CallOp); ok {
		return func(d ifds.Fact) []ifds.Fact { return a.callFlow(call, d) }
	}
	if assign, ok := curr.(AssignOp); ok {
		return func(d ifds.Fact) []ifds.Fact { return a.assignFlow(assign, d) }
	}
	if field, ok := curr.(FieldOp); ok {
		return func(d ifds.Fact) []ifds.Fact { return a.fieldFlow(field, d) }
	}
	return identity
}

// CallToStart implements ifds.FlowFunctionSpace, substituting actual
// arguments for formal parameters when both the call site and the callee
// expose enough structure to do so.
func (a *Analyzer) CallToStart(call ifds.Statement, callee ifds.Method) ifds.FlowFunction {
	c, cok := call.(CallOp)
	p, pok := callee.(Parameterized)
	return func(d ifds.Fact) []ifds.Fact {
		if ifds.IsZero(d) {
			return []ifds.Fact{ifds.Zero}
		}
		if !cok || !pok {
			return nil
		}
		ap, ok := d.(AccessPath)
		if !ok {
			return nil
		}
		n := c.NumArgs()
		if p.NumParams() < n {
			n = p.NumParams()
		}
		var out []ifds.Fact
		for i := 0; i < n; i++ {
			if c.Arg(i) == ap.Base {
				out = appendFact(out, ap.rebase(p.Param(i)))
			}
		}
		return out
	}
}

// CallToReturn implements ifds.FlowFunctionSpace: the facts that bypass
// the callee entirely follow the same rules as an unresolved call,
// because from the caller's perspective the two look identical (an
// interprocedural call site is also a candidate source/sink/sanitizer,
// e.g. a user-defined wrapper explicitly named in the config).
func (a *Analyzer) CallToReturn(call, _ ifds.Statement) ifds.FlowFunction {
	c, ok := call.(CallOp)
	if !ok {
		return identity
	}
	return func(d ifds.Fact) []ifds.Fact { return a.callFlow(c, d) }
}

// ExitToReturn implements ifds.FlowFunctionSpace, binding the callee's
// returned identifier to the caller's result variable.
func (a *Analyzer) ExitToReturn(call, _, exit ifds.Statement) ifds.FlowFunction {
	c, cok := call.(CallOp)
	ro, rok := exit.(ReturnOp)
	return func(d ifds.Fact) []ifds.Fact {
		if ifds.IsZero(d) {
			return []ifds.Fact{ifds.Zero}
		}
		if !cok || !rok || c.Result() == "" {
			return nil
		}
		ap, ok := d.(AccessPath)
		if !ok || ap.Base != ro.Value() {
			return nil
		}
		return []ifds.Fact{ap.rebase(c.Result())}
	}
}

// callFlow is shared by Sequent (unresolved calls) and CallToReturn
// (resolved calls): it applies mark-aware sanitizers, pass-through rules
// and source generation, then falls back to a conservative args-to-result
// taint widening for calls no rule recognizes at all.
func (a *Analyzer) callFlow(call CallOp, d ifds.Fact) []ifds.Fact {
	var out []ifds.Fact
	ap, isAccessPath := d.(AccessPath)

	fullySanitized := false
	current := ap
	if isAccessPath {
		if m, matched := a.matchPosition(a.spec.Sanitizers, call, ap); matched {
			if m.Mark == "" {
				fullySanitized = true
			} else {
				current = ap.WithoutMark(m.Mark)
				if len(current.Marks()) == 0 {
					fullySanitized = true
				}
			}
		}
	}
	if !fullySanitized {
		if isAccessPath {
			out = appendFact(out, current)
		} else {
			out = appendFact(out, d)
		}
	}

	if isAccessPath && !fullySanitized && call.Result() != "" {
		if _, matched := a.matchPosition(a.spec.PassThrough, call, current); matched {
			out = appendFact(out, current.rebase(call.Result()))
		}
	}

	if ifds.IsZero(d) {
		for _, m := range a.spec.Sources {
			mark := m.Mark
			if mark == "" {
				mark = defaultMark
			}
			if m.Position == nil {
				if !m.MatchesCall(call.Package(), call.Receiver(), call.Name()) || call.Result() == "" {
					continue
				}
				out = appendFact(out, WithMark(call.Result(), mark))
				continue
			}
			pos := *m.Position
			if pos < 0 || pos >= call.NumArgs() || !m.Matches(call.Package(), call.Receiver(), call.Name(), pos) {
				continue
			}
			out = appendFact(out, WithMark(call.Arg(pos), mark))
		}
	}

	if isAccessPath && !fullySanitized && call.Result() != "" && !a.anyRuleNames(call) {
		for i := 0; i < call.NumArgs(); i++ {
			if call.Arg(i) == current.Base {
				out = appendFact(out, current.rebase(call.Result()))
				break
			}
		}
	}
	return out
}

// matchPosition reports the first matcher in matchers that identifies
// call and, if the fact carries marks, shares one with the matcher (an
// empty Mark matches any fact, marked or not). If the matcher fixes a
// position, the fact's base must also be bound to that argument; a
// matcher with no Position matches unconditionally, e.g. a sanitizer
// that cleans every argument of a call.
func (a *Analyzer) matchPosition(matchers []config.Matcher, call CallOp, ap AccessPath) (config.Matcher, bool) {
	for _, m := range matchers {
		if m.Mark != "" && !ap.HasMark(m.Mark) {
			continue
		}
		if m.Position == nil {
			if m.MatchesCall(call.Package(), call.Receiver(), call.Name()) {
				return m, true
			}
			continue
		}
		pos := *m.Position
		if pos < 0 || pos >= call.NumArgs() {
			continue
		}
		if call.Arg(pos) != ap.Base {
			continue
		}
		if m.Matches(call.Package(), call.Receiver(), call.Name(), pos) {
			return m, true
		}
	}
	return config.Matcher{}, false
}

// anyRuleNames reports whether call is named by any rule in the spec at
// all, regardless of position - used to gate the conservative unknown-call
// widening so a call already governed by an explicit rule does not also
// get the default treatment.
func (a *Analyzer) anyRuleNames(call CallOp) bool {
	sets := [][]config.Matcher{a.spec.Sources, a.spec.Sinks, a.spec.Sanitizers, a.spec.PassThrough}
	for _, set := range sets {
		for _, m := range set {
			if m.MatchesCall(call.Package(), call.Receiver(), call.Name()) {
				return true
			}
		}
	}
	return false
}

func (a *Analyzer) assignFlow(assign AssignOp, d ifds.Fact) []ifds.Fact {
	if ifds.IsZero(d) {
		return []ifds.Fact{ifds.Zero}
	}
	ap, ok := d.(AccessPath)
	if !ok {
		return []ifds.Fact{d}
	}
	if ap.Base == assign.Target() {
		return nil
	}
	if assign.Source() != "" && ap.Base == assign.Source() {
		return []ifds.Fact{d, ap.rebase(assign.Target())}
	}
	return []ifds.Fact{d}
}

// fieldFlow implements field-sensitive propagation for a FieldOp
// (x = y.f): a fact rooted at y gains the selector f under x's base,
// without killing the fact at y itself, since the field read leaves y
// live. A fact unrelated to y passes through unchanged.
func (a *Analyzer) fieldFlow(field FieldOp, d ifds.Fact) []ifds.Fact {
	if ifds.IsZero(d) {
		return []ifds.Fact{ifds.Zero}
	}
	ap, ok := d.(AccessPath)
	if !ok {
		return []ifds.Fact{d}
	}
	if ap.Base == field.Target() {
		return nil
	}
	if ap.Base == field.Source() {
		return []ifds.Fact{d, ap.rebase(field.Target()).WithSelector(field.Field())}
	}
	return []ifds.Fact{d}
}

func identity(d ifds.Fact) []ifds.Fact { return []ifds.Fact{d} }

func appendFact(facts []ifds.Fact, f ifds.Fact) []ifds.Fact {
	for _, existing := range facts {
		if existing == f {
			return facts
		}
	}
	return append(facts, f)
}
