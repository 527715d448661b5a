package ifds

import "fmt"

// DeadlineExceededError is returned by Manager.Run when the configured
// analysis deadline elapsed before every unit reached quiescence (§7).
type DeadlineExceededError struct {
	// Pending is the number of units that had a Runner when the deadline
	// hit, whether or not each one still had queued work.
	Pending int
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("ifds: deadline exceeded with %d unit(s) still active", e.Pending)
}

// GraphError wraps a panic or contract violation raised by the caller's
// Graph implementation, so that a misbehaving application graph surfaces
// as an ordinary error instead of crashing the whole analysis process
// (§7). The offending Statement or Method is preserved for diagnostics.
type GraphError struct {
	Op    string
	Value any
	Cause any
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("ifds: graph.%s(%v) failed: %v", e.Op, e.Value, e.Cause)
}

// AnalyzerError wraps a panic raised from within an Analyzer or
// FlowFunctionSpace callback, tagged with the unit whose runner was
// executing it (§7).
type AnalyzerError struct {
	Unit  Unit
	Cause any
}

func (e *AnalyzerError) Error() string {
	return fmt.Sprintf("ifds: analyzer failed in unit %s: %v", e.Unit, e.Cause)
}

// UnitCycleError is returned when unit-dependency diagnostics detect a
// cycle among units and the configuration forbids cyclic unit graphs
// (config.Config.StrictUnitCycles); by default cycles are permitted
// (mutually recursive units simply propagate summaries back and forth to
// quiescence), so this is only raised by strict configurations.
type UnitCycleError struct {
	Cycle []Unit
}

func (e *UnitCycleError) Error() string {
	return fmt.Sprintf("ifds: cyclic unit dependency: %v", e.Cycle)
}
