// Package convostate tracks conversation phase, tool-execution lifecycle and
// operation progress for a single conversation session.
package convostate

// Phase is the current stage of a conversation's workflow.
type Phase string

const (
	PhaseInitial      Phase = "initial"
	PhasePlanning     Phase = "planning"
	PhaseExecution    Phase = "execution"
	PhaseVerification Phase = "verification"
	PhaseCompleted    Phase = "completed"
)

// PhaseDetails describes a phase. Entry and exit criteria are informational;
// the tracker does not enforce them.
type PhaseDetails struct {
	Name          Phase  `json:"name"`
	Description   string `json:"description"`
	EntryCriteria string `json:"entryCriteria"`
	ExitCriteria  string `json:"exitCriteria"`
}

var phaseCatalog = map[Phase]PhaseDetails{
	PhaseInitial: {
		Name:          PhaseInitial,
		Description:   "Conversation has started; no work has been planned yet.",
		EntryCriteria: "A new session begins.",
		ExitCriteria:  "The assistant understands the user's request.",
	},
	PhasePlanning: {
		Name:          PhasePlanning,
		Description:   "The assistant is deciding which tools and steps the request needs.",
		EntryCriteria: "The user's request has been understood.",
		ExitCriteria:  "A concrete sequence of tool calls has been chosen.",
	},
	PhaseExecution: {
		Name:          PhaseExecution,
		Description:   "Tool calls are being dispatched and their results collected.",
		EntryCriteria: "At least one tool call has been issued.",
		ExitCriteria:  "All planned tool calls have terminal results.",
	},
	PhaseVerification: {
		Name:          PhaseVerification,
		Description:   "The assistant is checking tool outcomes against the user's request.",
		EntryCriteria: "Tool execution has finished.",
		ExitCriteria:  "Outcomes are confirmed or follow-up work is identified.",
	},
	PhaseCompleted: {
		Name:          PhaseCompleted,
		Description:   "The request has been answered and the turn is closed.",
		EntryCriteria: "Verification found nothing left to do.",
		ExitCriteria:  "A new user message starts the cycle again.",
	},
}

// KnownPhase reports whether name is one of the declared phases.
func KnownPhase(name Phase) bool {
	_, ok := phaseCatalog[name]
	return ok
}

// Details returns the static descriptive record for a phase. The second
// return is false for undeclared phases.
func Details(name Phase) (PhaseDetails, bool) {
	details, ok := phaseCatalog[name]
	return details, ok
}
