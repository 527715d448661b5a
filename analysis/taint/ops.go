package taint

import "github.com/awslabs/ifds-dataflow-engine/analysis/ifds"

// CallOp is implemented by a Statement that invokes a function, whether
// or not the application graph resolved it to a known Method. Sources,
// sinks, sanitizers and pass-through rules all match against CallOp.
type CallOp interface {
	ifds.Statement
	Package() string
	Receiver() string
	Name() string
	NumArgs() int
	// Arg returns the identifier bound to the i'th positional argument.
	Arg(i int) string
	// Result is the identifier the call's return value is assigned to, or
	// "" if the result is discarded.
	Result() string
}

// AssignOp is implemented by a Statement that copies one local identifier
// to another, e.g. x = y or a field read/write collapsed to a base
// identifier by the ingestion layer.
type AssignOp interface {
	ifds.Statement
	Target() string
	// Source is "" when the assignment does not derive from a single
	// existing identifier (a constant, a fresh allocation).
	Source() string
}

// ReturnOp is implemented by a method's exit statement when it returns a
// value, letting ExitToReturn recognize which fact corresponds to the
// returned identifier.
type ReturnOp interface {
	ifds.Statement
	// Value is the identifier returned, or "" for a bare return.
	Value() string
}

// Parameterized is implemented by a Method that exposes its formal
// parameter names, letting CallToStart substitute actuals for formals.
type Parameterized interface {
	ifds.Method
	NumParams() int
	Param(i int) string
}

// FieldOp is implemented by a Statement that reads one field off an
// existing local into a new one, e.g. x = y.f. Sequent dispatches to it
// so an access path can grow its selector chain instead of only ever
// copying a whole base identifier. Field writes are not modeled.
type FieldOp interface {
	ifds.Statement
	Target() string
	Source() string
	Field() string
}
