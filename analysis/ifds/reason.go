package ifds

import "fmt"

// Reason records why a path edge was added to the solver's state. Reasons
// form a DAG rooted at Initial/External edges (§3); the trace-graph
// reconstructor (tracegraph.go) walks this DAG backward from a sink to
// recover witness paths. Reason is a closed set of cases implemented as a
// tagged union (an interface with an unexported marker method) rather than
// open-ended polymorphism, so the reconstructor's type switch is checked
// exhaustively by the compiler.
type Reason interface {
	fmt.Stringer
	isReason()
}

// InitialReason tags an edge seeded directly from a start fact.
type InitialReason struct{}

func (InitialReason) String() string { return "initial" }
func (InitialReason) isReason()      {}

// ExternalReason tags an edge seeded from outside this runner's own
// propagation: a cross-unit call's entry vertex (UnitRouter.Dispatch), or
// an endpoint of a summary edge injected from the other direction of a
// Bidirectional pair. Summary edges received for a cross-unit callee are
// applied at the call site with ThroughSummaryReason instead.
type ExternalReason struct{}

func (ExternalReason) String() string { return "external" }
func (ExternalReason) isReason()      {}

// SequentReason tags an edge derived by applying a sequent (or
// call-to-return) flow function to Pred.
type SequentReason struct {
	Pred Edge
}

func (r SequentReason) String() string { return fmt.Sprintf("sequent(%s)", r.Pred) }
func (SequentReason) isReason()        {}

// CallToStartReason tags the (sv,sv) self-edge created by entering a callee
// from Pred, the call-site edge that triggered entry.
type CallToStartReason struct {
	Pred Edge
}

func (r CallToStartReason) String() string { return fmt.Sprintf("call-to-start(%s)", r.Pred) }
func (CallToStartReason) isReason()        {}

// ThroughSummaryReason tags an edge derived by applying a callee's
// start-to-exit Summary edge at the call site represented by Pred.
type ThroughSummaryReason struct {
	Pred    Edge
	Summary Edge
}

func (r ThroughSummaryReason) String() string {
	return fmt.Sprintf("through-summary(%s, %s)", r.Pred, r.Summary)
}
func (ThroughSummaryReason) isReason() {}
