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

// FlowFunction maps one input fact to the set of facts it produces across
// a single transition. Implementations must be deterministic and
// idempotent for a given input, must propagate Zero to at least {Zero},
// and must be monotone: enlarging the set of facts fed through the
// function over time must never cause previously produced output facts to
// disappear (§4.3).
type FlowFunction func(Fact) []Fact

// FlowFunctionSpace bundles the four flow-function families of §4.3 plus
// the start-fact oracle.
type FlowFunctionSpace interface {
	// Start returns the facts that may hold at method entry stmt; the
	// result must contain Zero.
	Start(stmt Statement) []Fact
	// Sequent transfers facts across a single non-call, intraprocedural CFG
	// edge from curr to next.
	Sequent(curr, next Statement) FlowFunction
	// CallToStart translates caller facts observed at call into the callee's
	// start facts, substituting actual arguments for formal parameters.
	CallToStart(call Statement, callee Method) FlowFunction
	// CallToReturn computes the facts that bypass callee entirely (e.g.
	// globals or aliased locals the call cannot affect).
	CallToReturn(call, ret Statement) FlowFunction
	// ExitToReturn translates a callee's exit facts back into vertices at
	// the caller's return site ret.
	ExitToReturn(call, ret, exit Statement) FlowFunction
}

// SummaryFact is produced by Analyzer.SummaryFacts/SummaryFactsPost for a
// newly observed edge or for the aggregate state after quiescence. A
// non-nil Vuln records a vulnerability.
type SummaryFact struct {
	Vuln *Vulnerability
}

// Aggregate is the residual solver state of one runner, handed to
// Analyzer.SummaryFactsPost once the analysis has reached quiescence, to
// support detections that need the complete edge set rather than a
// per-edge streaming view (§6).
type Aggregate struct {
	Unit Unit
	// PathEdges is every path edge the runner derived.
	PathEdges []Edge
	// SummaryEdges maps each method to the summary edges discovered for it.
	SummaryEdges map[Method][]Edge
}

// Analyzer is the engine-facing contract an analysis plugin implements
// (§6 "Analyzer contract").
type Analyzer interface {
	// FlowFunctions returns the flow-function space driving the solver.
	FlowFunctions() FlowFunctionSpace
	// SaveSummaryAndCrossUnit reports whether the solver should
	// automatically publish this analyzer's summary edges to the summary
	// store. Backward analyzers (feeding a Bidirectional pair rather than
	// publishing cross-unit) set this to false.
	SaveSummaryAndCrossUnit() bool
	// SummaryFacts is invoked once per newly added path edge; it may
	// report vulnerabilities directly.
	SummaryFacts(edge Edge) []SummaryFact
	// SummaryFactsPost is invoked once per runner after quiescence with the
	// aggregate edge set, to support post-hoc detections.
	SummaryFactsPost(aggregate Aggregate) []SummaryFact
}
