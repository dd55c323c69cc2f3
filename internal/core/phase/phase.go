// Package phase contains the pure business logic for workflow phase
// derivation and advancement gating. This is part of the Functional Core -
// no I/O, only pure functions over observed workspace evidence.
package phase

// Phase represents a stage in the ordered RFE workflow sequence.
type Phase string

const (
	// Pre is the initial phase before any artifact work has started.
	Pre Phase = "pre"
	// Specify is the specification-writing phase.
	Specify Phase = "specify"
	// Plan is the implementation-planning phase.
	Plan Phase = "plan"
	// Tasks is the task-breakdown phase.
	Tasks Phase = "tasks"
	// Completed is the terminal phase - all artifacts exist.
	Completed Phase = "completed"
)

// Definition describes a gated phase: its expected artifact path relative to
// the workflow workspace, and its human-readable label.
type Definition struct {
	Phase        Phase
	ArtifactPath string
	Label        string
}

// definitions is the ordered table of gated phases. Pre and Completed are not
// gated - they are derived from the absence or presence of these artifacts.
// Order matters: phase N is reachable only once every earlier artifact exists.
var definitions = []Definition{
	{Phase: Specify, ArtifactPath: "specs/spec.md", Label: "Specify"},
	{Phase: Plan, ArtifactPath: "specs/plan.md", Label: "Plan"},
	{Phase: Tasks, ArtifactPath: "specs/tasks.md", Label: "Tasks"},
}

// ordered is the full phase sequence including the ungated endpoints.
var ordered = []Phase{Pre, Specify, Plan, Tasks, Completed}

// Definitions returns the ordered gated-phase table.
func Definitions() []Definition {
	defs := make([]Definition, len(definitions))
	copy(defs, definitions)
	return defs
}

// Lookup returns the definition for a gated phase.
// Returns false for Pre, Completed, and unknown phases.
func Lookup(p Phase) (Definition, bool) {
	for _, def := range definitions {
		if def.Phase == p {
			return def, true
		}
	}
	return Definition{}, false
}

// Valid reports whether p names a known phase.
func Valid(p Phase) bool {
	for _, candidate := range ordered {
		if p == candidate {
			return true
		}
	}
	return false
}

// Ordinal returns the position of p in the phase order (Pre is 0).
// Unknown phases return -1.
func Ordinal(p Phase) int {
	for i, candidate := range ordered {
		if p == candidate {
			return i
		}
	}
	return -1
}

// Before reports whether a comes strictly before b in the phase order.
func Before(a, b Phase) bool {
	return Ordinal(a) >= 0 && Ordinal(b) >= 0 && Ordinal(a) < Ordinal(b)
}

// IsTerminal reports whether p is the terminal phase.
func IsTerminal(p Phase) bool {
	return p == Completed
}

// IsGated reports whether p has an expected artifact.
func IsGated(p Phase) bool {
	_, ok := Lookup(p)
	return ok
}
