package ifds

// Unit is an equivalence class of methods assigned to a single runner; it
// determines the partition of work and the boundary across which summaries
// travel as messages instead of direct propagation (§3).
type Unit interface {
	String() string
}

type stringUnit string

func (u stringUnit) String() string { return string(u) }

// UnitResolver assigns methods to units (§6 "Unit resolver contract").
type UnitResolver interface {
	Resolve(m Method) Unit
}

// SingletonResolver puts every method in a single unit, so the whole
// program is analyzed by one runner.
type SingletonResolver struct{}

// Resolve implements UnitResolver.
func (SingletonResolver) Resolve(Method) Unit { return stringUnit("singleton") }

// PerMethodResolver makes every method its own unit.
type PerMethodResolver struct{}

// Resolve implements UnitResolver.
func (PerMethodResolver) Resolve(m Method) Unit { return stringUnit("method:" + m.ID()) }

// PerClassResolver groups methods by enclosing class. Methods whose Method
// value does not implement ClassifiedMethod fall back to PerMethodResolver
// behavior for that single method.
type PerClassResolver struct{}

// Resolve implements UnitResolver.
func (PerClassResolver) Resolve(m Method) Unit {
	if cm, ok := m.(ClassifiedMethod); ok {
		return stringUnit("class:" + cm.Package() + "." + cm.Class())
	}
	return stringUnit("method:" + m.ID())
}

// PerPackageResolver groups methods by enclosing package. Methods whose
// Method value does not implement ClassifiedMethod fall back to
// PerMethodResolver behavior for that single method.
type PerPackageResolver struct{}

// Resolve implements UnitResolver.
func (PerPackageResolver) Resolve(m Method) Unit {
	if cm, ok := m.(ClassifiedMethod); ok {
		return stringUnit("package:" + cm.Package())
	}
	return stringUnit("method:" + m.ID())
}

// ResolverByName returns the well-known UnitResolver matching name
// ("singleton", "per-class", "per-package", "per-method"), used by the CLI
// to select a partitioning strategy from a flag.
func ResolverByName(name string) UnitResolver {
	switch name {
	case "per-method":
		return PerMethodResolver{}
	case "per-package":
		return PerPackageResolver{}
	case "singleton":
		return SingletonResolver{}
	case "per-class":
		fallthrough
	default:
		return PerClassResolver{}
	}
}
