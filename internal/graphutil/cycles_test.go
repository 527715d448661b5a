package graphutil

import "testing"

func TestFindAllElementaryCyclesNoCycle(t *testing.T) {
	labels := map[int64]string{0: "a", 1: "b", 2: "c"}
	edges := map[int64]map[int64]bool{0: {1: true}, 1: {2: true}}
	g := NewUnitGraph(labels, edges)

	cycles := FindAllElementaryCycles(g)
	if len(cycles) != 0 {
		t.Fatalf("expected no cycles in a linear graph, got %v", cycles)
	}
}

func TestFindAllElementaryCyclesSimpleTwoCycle(t *testing.T) {
	labels := map[int64]string{0: "a", 1: "b"}
	edges := map[int64]map[int64]bool{0: {1: true}, 1: {0: true}}
	g := NewUnitGraph(labels, edges)

	cycles := FindAllElementaryCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("expected exactly 1 cycle, got %d: %v", len(cycles), cycles)
	}
	cycle := cycles[0]
	if len(cycle) != 3 || cycle[0] != cycle[len(cycle)-1] {
		t.Fatalf("expected a closed 2-node circuit, got %v", cycle)
	}
}

func TestFindAllElementaryCyclesThreeCycle(t *testing.T) {
	labels := map[int64]string{0: "a", 1: "b", 2: "c"}
	edges := map[int64]map[int64]bool{0: {1: true}, 1: {2: true}, 2: {0: true}}
	g := NewUnitGraph(labels, edges)

	cycles := FindAllElementaryCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("expected exactly 1 cycle, got %d: %v", len(cycles), cycles)
	}
	if len(cycles[0]) != 4 {
		t.Fatalf("expected a 3-node circuit closing back to its start, got %v", cycles[0])
	}
}

func TestFindAllElementaryCyclesTwoDisjointCycles(t *testing.T) {
	labels := map[int64]string{0: "a", 1: "b", 2: "c", 3: "d"}
	edges := map[int64]map[int64]bool{
		0: {1: true}, 1: {0: true},
		2: {3: true}, 3: {2: true},
	}
	g := NewUnitGraph(labels, edges)

	cycles := FindAllElementaryCycles(g)
	if len(cycles) != 2 {
		t.Fatalf("expected 2 disjoint cycles, got %d: %v", len(cycles), cycles)
	}
}

// A self-loop forms a strongly connected component of size 1, which the
// component filter treats as trivial, so it is never reported as a cycle.
func TestFindAllElementaryCyclesIgnoresSelfLoop(t *testing.T) {
	labels := map[int64]string{0: "a"}
	edges := map[int64]map[int64]bool{0: {0: true}}
	g := NewUnitGraph(labels, edges)

	cycles := FindAllElementaryCycles(g)
	if len(cycles) != 0 {
		t.Fatalf("expected a lone self-loop to be ignored, got %v", cycles)
	}
}

func TestFindAllElementaryCyclesNoEdges(t *testing.T) {
	g := NewUnitGraph(map[int64]string{0: "a", 1: "b"}, nil)
	cycles := FindAllElementaryCycles(g)
	if len(cycles) != 0 {
		t.Fatalf("expected no cycles with no edges at all, got %v", cycles)
	}
}
