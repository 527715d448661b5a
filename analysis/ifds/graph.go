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

// Graph is the application-graph interface the engine requires from its
// caller (§4.1). Implementations may materialize control-flow lazily; the
// solver treats the graph as a pure, read-only observation and never
// mutates it. Bytecode ingestion, CFG construction and call-graph
// resolution live entirely outside this package.
type Graph interface {
	// EntryPoints returns the entry statements of m.
	EntryPoints(m Method) []Statement
	// ExitPoints returns the exit statements of m.
	ExitPoints(m Method) []Statement
	// Successors returns the statements immediately reachable from s along
	// the natural (or, on a Reversed view, the reverse) control-flow edges.
	Successors(s Statement) []Statement
	// Callees returns the methods that may be invoked at call statement s.
	// A statement with a non-empty Callees list is a call site.
	Callees(s Statement) []Method
	// MethodOf returns the method that encloses s.
	MethodOf(s Statement) Method
	// Reversed returns a view of the graph with predecessor/successor roles
	// swapped, satisfying the same interface (used by the backward half of
	// a Bidirectional runner).
	Reversed() Graph
}

// ClassifiedMethod is an optional extension of Method, implemented by
// graphs whose methods know their enclosing class and package. It is only
// needed by the PerClass and PerPackage unit resolvers.
type ClassifiedMethod interface {
	Method
	Package() string
	Class() string
}

// IsCallSite reports whether s is a call statement in g, i.e. whether it
// has at least one callee (§4.1).
func IsCallSite(g Graph, s Statement) bool {
	return len(g.Callees(s)) > 0
}

// IsExitStatement reports whether s is one of the exit statements of m.
func IsExitStatement(g Graph, m Method, s Statement) bool {
	for _, e := range g.ExitPoints(m) {
		if e == s {
			return true
		}
	}
	return false
}

// IsEntryStatement reports whether s is one of the entry statements of m.
func IsEntryStatement(g Graph, m Method, s Statement) bool {
	for _, e := range g.EntryPoints(m) {
		if e == s {
			return true
		}
	}
	return false
}
