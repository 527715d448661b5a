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

	"golang.org/x/sync/errgroup"
)

// Bidirectional pairs a forward Manager with a backward Manager running
// over the same application graph's Reversed view (§4.7, C7), for
// analyses whose flow functions need both directions - e.g. a taint rule
// that must confirm a value is never sanitized between a source and a
// candidate sink, which is naturally phrased as a backward reachability
// query from the sink.
//
// The two Managers are not independent tabulations: every summary edge
// one direction discovers is injected into the other as an External path
// edge, so a summary the backward pass derives can feed the forward
// pass's own propagation and vice versa. They also share a single
// WaitGroup, so quiescence is joint - neither side's Run returns until
// both directions have drained, since a summary crossing from one to the
// other after its own side would otherwise have gone quiet must still be
// counted as outstanding work.
type Bidirectional struct {
	Forward  *Manager
	Backward *Manager
}

// NewBidirectional builds a Bidirectional pair and wires the cross
// injection described on Bidirectional. backwardAnalyzer is run against
// graph.Reversed(); resolver is shared, since both directions must agree
// on the unit a given method belongs to for their summaries to line up.
func NewBidirectional(graph Graph, forwardAnalyzer, backwardAnalyzer Analyzer, resolver UnitResolver, deadline time.Duration) *Bidirectional {
	fwd := NewManager(graph, forwardAnalyzer, resolver, deadline)
	bwd := NewManager(graph.Reversed(), backwardAnalyzer, resolver, deadline)

	shared := &sync.WaitGroup{}
	fwd.shareQuiescence(shared)
	bwd.shareQuiescence(shared)

	fwd.foreignSummary = func(method Method, edge Edge) { bwd.injectForeignSummary(method, edge) }
	bwd.foreignSummary = func(method Method, edge Edge) { fwd.injectForeignSummary(method, edge) }

	return &Bidirectional{Forward: fwd, Backward: bwd}
}

// Run drives both directions to joint quiescence concurrently and
// returns both results. If either side fails (deadline exceeded,
// analyzer panic), the other is canceled through the shared context and
// Run returns the first error.
func (b *Bidirectional) Run(ctx context.Context, forwardStarts, backwardStarts []Statement) (forward, backward *Result, err error) {
	// Queue both directions' start facts before either Run begins waiting
	// on the shared WaitGroup; otherwise a side with no start points could
	// observe zero outstanding work and return before the other side's
	// summaries reach it.
	seed := func(m *Manager, starts []Statement) {
		ffs := m.analyzer.FlowFunctions()
		for _, stmt := range starts {
			r := m.runnerFor(m.resolver.Resolve(m.graph.MethodOf(stmt)))
			for _, d := range ffs.Start(stmt) {
				r.Seed(Vertex{Stmt: stmt, Fact: d}, InitialReason{})
			}
		}
	}
	seed(b.Forward, forwardStarts)
	seed(b.Backward, backwardStarts)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		res, runErr := b.Forward.Run(egCtx, nil)
		forward = res
		return runErr
	})
	eg.Go(func() error {
		res, runErr := b.Backward.Run(egCtx, nil)
		backward = res
		return runErr
	})

	err = eg.Wait()
	return forward, backward, err
}
