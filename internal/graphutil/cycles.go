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

package graphutil

import (
	"sort"

	"github.com/yourbasic/graph"
)

// FindAllElementaryCycles finds every elementary cycle in g, using Donald
// B. Johnson's algorithm from "Finding All The Elementary Circuits of a
// Directed Graph" (1975). A cycle among units means two or more units call
// into each other, directly or transitively; the solver handles this fine
// (summaries just keep flowing back and forth until both sides stop
// producing new ones), but it is useful CLI diagnostics for understanding
// why a run needed more than one round of cross-unit dispatch.
func FindAllElementaryCycles(g UnitGraph) [][]int64 {
	s := &cycleState{
		blocked: map[int64]bool{},
		blist:   map[int64]map[int64]bool{},
		cycles:  [][]int64{},
	}
	nodeID := 0
	for nodeID < len(g.Keys) {
		sub := subgraph(g, g.Keys[nodeID:])
		components := graph.StrongComponents(sub)
		foundNontrivial := false
		for _, component := range components {
			if len(component) < 2 {
				continue
			}
			foundNontrivial = true
			sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
			least := component[0]
			nodeID = least
			s.blocked = map[int64]bool{}
			s.blist = map[int64]map[int64]bool{}
			s.stack = nil
			s.circuit(int64(least), int64(least), sub)
			nodeID++
		}
		if !foundNontrivial {
			return s.cycles
		}
	}
	return s.cycles
}

func subgraph(g UnitGraph, include []int64) UnitGraph {
	keys := make([]int64, len(include))
	labels := make(map[int64]string, len(include))
	member := make(map[int64]bool, len(include))
	for i, id := range include {
		keys[i] = id
		labels[id] = g.Labels[id]
		member[id] = true
	}

	edges := make(map[int64]map[int64]bool, len(include))
	for _, id := range include {
		edges[id] = map[int64]bool{}
		for w := range g.Edges[id] {
			if member[w] {
				edges[id][w] = true
			}
		}
	}

	// Ids are not renumbered, and yourbasic/graph indexes vertices
	// 0..Order()-1, so Order must cover the largest included id; ids
	// outside include appear to it as isolated vertices.
	order := 0
	for _, id := range include {
		if int(id)+1 > order {
			order = int(id) + 1
		}
	}
	return UnitGraph{order: order, Labels: labels, Keys: keys, Edges: edges}
}

type cycleState struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *cycleState) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		if s.blocked[w] {
			s.unblock(w)
		}
	}
	delete(s.blist, u)
}

func (s *cycleState) circuit(v, root int64, g UnitGraph) bool {
	found := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true

	for w := range g.Edges[v] {
		if w == root {
			cycle := append(append([]int64(nil), s.stack...), w)
			s.cycles = append(s.cycles, cycle)
			found = true
		} else if !s.blocked[w] {
			if s.circuit(w, root, g) {
				found = true
			}
		}
	}

	if found {
		s.unblock(v)
	} else {
		for w := range g.Edges[v] {
			if s.blist[w] == nil {
				s.blist[w] = map[int64]bool{}
			}
			s.blist[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return found
}
