// Package orchestrator drives a book through its workflow: outline,
// sections in order, final review, compilation, delivery. Editors
// steer it through gates; everything else is resumable machine work.
package orchestrator

import "strings"

// GateStatus is an editor's standing instruction at one review gate.
type GateStatus int

const (
	// GateUnknown is anything we cannot interpret. Unknown pauses
	// the workflow rather than letting work proceed unreviewed.
	GateUnknown GateStatus = iota

	// GateNeedsNotes means the editor wants to add notes first.
	GateNeedsNotes

	// GateNoNotesNeeded waves the stage through.
	GateNoNotesNeeded

	// GateNotesProvided means notes are in and the stage should be
	// regenerated with them.
	GateNotesProvided
)

func (g GateStatus) String() string {
	switch g {
	case GateNeedsNotes:
		return "needs_notes"
	case GateNoNotesNeeded:
		return "no_notes_needed"
	case GateNotesProvided:
		return "notes_provided"
	default:
		return "unknown"
	}
}

// ParseGateStatus interprets a raw gate value from the sheet or the
// store. Legacy sheets used "yes" for needs_notes; both spellings are
// accepted. An empty value means the editor has not weighed in yet,
// which reads as unknown and therefore pauses.
func ParseGateStatus(raw string) GateStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "no_notes_needed":
		return GateNoNotesNeeded
	case "needs_notes", "yes":
		return GateNeedsNotes
	case "notes_provided":
		return GateNotesProvided
	default:
		return GateUnknown
	}
}

// GateDecision is what the engine does at a gate.
type GateDecision int

const (
	// GatePause stops the run until the editor updates the gate.
	GatePause GateDecision = iota

	// GateProceed runs the stage.
	GateProceed

	// GateProceedWithNotes runs the stage with the editor's notes
	// folded into the prompt.
	GateProceedWithNotes
)

func (d GateDecision) String() string {
	switch d {
	case GateProceed:
		return "proceed"
	case GateProceedWithNotes:
		return "proceed_with_notes"
	default:
		return "pause"
	}
}

// EvaluateGate maps a gate status onto an engine decision. The switch
// is exhaustive; any status outside the known set pauses.
func EvaluateGate(status GateStatus) GateDecision {
	switch status {
	case GateNoNotesNeeded:
		return GateProceed
	case GateNotesProvided:
		return GateProceedWithNotes
	case GateNeedsNotes:
		return GatePause
	case GateUnknown:
		return GatePause
	default:
		return GatePause
	}
}
