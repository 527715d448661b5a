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

import "sync"

// EventKind discriminates SummaryStore events. Only one kind exists today;
// the type is kept distinct from a bare marker so new kinds (e.g. method
// removal, for incremental reanalysis) can be added without breaking
// existing switches that default on unknown kinds.
type EventKind int

// EventSummaryAdded is the only EventKind currently emitted: a new start-to-exit
// summary edge became known for a method.
const EventSummaryAdded EventKind = 0

// Event is delivered to a Subscription when a summary edge is published.
type Event struct {
	Kind   EventKind
	Method Method
	Edge   Edge
}

// Subscription is a live feed of summary events for one method, seeded
// with every summary already known at subscribe time. A runner keeps its
// Subscription for as long as it has an open call to the subscribed
// method, so that a summary edge discovered after the call site was first
// processed still reaches it (§5, "dynamically discovered supergraphs").
type Subscription struct {
	cancel func()
}

// Close unsubscribes. Close is safe to call more than once.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// subscriber wraps the callback a Subscribe caller registers. It is a
// pointer-identity type (rather than the bare func value) so cancel can
// find and remove exactly the registration Subscribe returned, even though
// func values are not comparable with ==.
type subscriber struct {
	fn func(Event)
}

// SummaryStore is the cross-unit summary-edge bus (§3 "SummaryStore", C5).
// Runners publish start-to-exit summary edges for the methods they own and
// subscribe to the methods they call but do not own; the store always
// replays a subscriber's full history on subscribe rather than only future
// events, so a runner that subscribes after a summary was already
// discovered does not miss it.
//
// Delivery is synchronous: Publish and the history replay in Subscribe both
// invoke a subscriber's callback directly from the calling goroutine,
// rather than handing the event to a channel for some other goroutine to
// drain later. This matters for callers (solver.go's ensureSubscription)
// that fold delivery into a shared quiescence WaitGroup: an Add performed
// before Publish/Subscribe returns is guaranteed to happen-before the
// caller's own Done, so the counter can never be observed at zero while an
// event is still in flight between being published and being enqueued as
// work.
type SummaryStore struct {
	mu       sync.Mutex
	byMethod map[Method][]Edge
	subs     map[Method][]*subscriber
}

// NewSummaryStore returns an empty store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		byMethod: make(map[Method][]Edge),
		subs:     make(map[Method][]*subscriber),
	}
}

// Publish records a new summary edge for method and notifies every current
// subscriber. Publishing an edge already known for method is a no-op; the
// solver also deduplicates on its own visited set, so this check is purely
// to keep the store's memory and subscriber traffic from growing on
// repeated rediscovery.
func (s *SummaryStore) Publish(method Method, edge Edge) {
	s.mu.Lock()
	edges := s.byMethod[method]
	for _, e := range edges {
		if e == edge {
			s.mu.Unlock()
			return
		}
	}
	s.byMethod[method] = append(edges, edge)
	subs := append([]*subscriber(nil), s.subs[method]...)
	s.mu.Unlock()

	ev := Event{Kind: EventSummaryAdded, Method: method, Edge: edge}
	for _, sub := range subs {
		sub.fn(ev)
	}
}

// Subscribe registers fn to be called once for every summary edge already
// known for method, synchronously before Subscribe returns, and again for
// every one published afterward until the returned Subscription is closed.
func (s *SummaryStore) Subscribe(method Method, fn func(Event)) Subscription {
	s.mu.Lock()
	history := append([]Edge(nil), s.byMethod[method]...)
	sub := &subscriber{fn: fn}
	s.subs[method] = append(s.subs[method], sub)
	s.mu.Unlock()

	for _, e := range history {
		fn(Event{Kind: EventSummaryAdded, Method: method, Edge: e})
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[method]
		for i, c := range subs {
			if c == sub {
				s.subs[method] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
	return Subscription{cancel: cancel}
}

// Summaries returns a snapshot of every summary edge known for method.
func (s *SummaryStore) Summaries(method Method) []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Edge(nil), s.byMethod[method]...)
}

// All returns a snapshot of every summary edge known, grouped by method.
func (s *SummaryStore) All() map[Method][]Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Method][]Edge, len(s.byMethod))
	for m, edges := range s.byMethod {
		out[m] = append([]Edge(nil), edges...)
	}
	return out
}
