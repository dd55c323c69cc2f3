package phase

import "fmt"

// Evidence records which gated-phase artifacts were observed in the
// workspace. It is a point-in-time snapshot taken by the caller; derivation
// never performs I/O itself.
type Evidence map[Phase]bool

// Derive computes the current phase from artifact evidence alone.
//
// The derived phase is the first gated phase, in order, whose artifact does
// not exist. If every artifact exists the workflow is Completed. If no
// artifact exists at all, work has not started and the phase is Pre.
//
// Derivation is deliberately allowed to regress: deleting specs/tasks.md
// moves the derived phase back to Tasks. The workspace is the only source of
// truth, even when it moves backwards.
func Derive(ev Evidence) Phase {
	firstMissing := -1
	anyPresent := false
	for i, def := range definitions {
		if ev[def.Phase] {
			anyPresent = true
		} else if firstMissing == -1 {
			firstMissing = i
		}
	}
	if firstMissing == -1 {
		return Completed
	}
	if !anyPresent {
		return Pre
	}
	return definitions[firstMissing].Phase
}

// AdvanceCheck is the outcome of an advancement-eligibility evaluation.
type AdvanceCheck struct {
	Allowed bool
	// MissingArtifact is the artifact path blocking advancement, when the
	// block is an absent artifact (empty otherwise).
	MissingArtifact string
	// Reason is a human-readable explanation, populated when not allowed.
	Reason string
}

// Error returns the check as an error if not allowed, nil otherwise.
func (c AdvanceCheck) Error() error {
	if c.Allowed {
		return nil
	}
	return fmt.Errorf("%s", c.Reason)
}

// CheckAdvance evaluates whether a workflow at the given phase may advance,
// given the same evidence snapshot used to derive that phase.
//
// Rules:
//   - From Pre, advancement always starts the Specify phase - no artifact
//     prerequisite.
//   - From a gated phase, the phase's own artifact must exist. Session
//     status is irrelevant: a still-running session does not block, and a
//     finished session does not help, because only the artifact counts.
//   - From Completed there is nowhere to advance to.
func CheckAdvance(current Phase, ev Evidence) AdvanceCheck {
	switch {
	case current == Pre:
		return AdvanceCheck{Allowed: true}
	case current == Completed:
		return AdvanceCheck{Allowed: false, Reason: "workflow is already completed"}
	}

	def, ok := Lookup(current)
	if !ok {
		return AdvanceCheck{Allowed: false, Reason: fmt.Sprintf("unknown phase %q", current)}
	}
	if !ev[current] {
		return AdvanceCheck{
			Allowed:         false,
			MissingArtifact: def.ArtifactPath,
			Reason:          fmt.Sprintf("%s not yet produced for phase %s", def.ArtifactPath, current),
		}
	}
	return AdvanceCheck{Allowed: true}
}

// EntryPhase returns the gated phase whose sessions may be launched when the
// workflow's derived phase is current. From Pre the entry phase is Specify
// (work on the first artifact); a gated phase admits its own sessions; the
// terminal phase admits none.
func EntryPhase(current Phase) (Phase, bool) {
	if current == Pre {
		return Specify, true
	}
	if IsGated(current) {
		return current, true
	}
	return "", false
}
