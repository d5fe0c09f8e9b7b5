package convostate

import (
	"fmt"
	"math"
	"time"

	"github.com/taskpilot/taskpilot/src/summarize"
)

// Status is the lifecycle state of one tool execution. Terminal states
// (completed, failed) never change again through normal calls.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ToolExecution records one tool invocation. Result holds the raw output
// for completed executions; Error holds the failure text for failed ones.
type ToolExecution struct {
	ToolName    string
	ExecutionID string
	Status      Status
	StartTime   time.Time
	EndTime     time.Time
	Result      summarize.RawValue
	Error       string
}

// Progress tracks a long-running operation with a known number of steps.
type Progress struct {
	OperationID        string
	TotalSteps         int
	CurrentStep        int
	StepDescription    string
	ProgressPercentage int
}

// Tracker owns the conversation state for one session: the active phase,
// the tool-execution stack and any progress trackers. Not safe for
// concurrent use; each request-scoped invocation owns its tracker.
type Tracker struct {
	mode         string
	phase        Phase
	lastActivity time.Time
	executions   []ToolExecution
	progress     map[string]*Progress

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewTracker creates a tracker in the initial phase.
func NewTracker(mode string) *Tracker {
	if mode == "" {
		mode = "chat"
	}
	return &Tracker{
		mode:         mode,
		phase:        PhaseInitial,
		lastActivity: time.Now(),
		progress:     map[string]*Progress{},
	}
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tracker) touch() {
	t.lastActivity = t.now()
}

// SetPhase moves the conversation to the named phase. An undeclared phase
// name is a caller-contract violation and is the one condition this package
// surfaces as an error.
func (t *Tracker) SetPhase(name Phase) error {
	if !KnownPhase(name) {
		return fmt.Errorf("unknown conversation phase %q", name)
	}
	t.phase = name
	t.touch()
	return nil
}

// Phase returns the active phase.
func (t *Tracker) Phase() Phase {
	return t.phase
}

// LastActivity returns when the tracker last recorded activity.
func (t *Tracker) LastActivity() time.Time {
	return t.lastActivity
}

// StartExecution pushes a pending execution record for a tool invocation.
// The executionID is caller-supplied and expected to be unique per
// invocation.
func (t *Tracker) StartExecution(toolName, executionID string) {
	t.executions = append(t.executions, ToolExecution{
		ToolName:    toolName,
		ExecutionID: executionID,
		Status:      StatusPending,
		StartTime:   t.now(),
	})
	t.touch()
}

// UpdateState transitions an execution to running, completed or failed.
// Unknown execution ids and executions already in a terminal state are
// silent no-ops. EndTime is stamped only on terminal transitions.
func (t *Tracker) UpdateState(executionID string, status Status, result summarize.RawValue, errText string) {
	if status != StatusRunning && status != StatusCompleted && status != StatusFailed {
		return
	}

	for i := range t.executions {
		exec := &t.executions[i]
		if exec.ExecutionID != executionID || exec.Status.terminal() {
			continue
		}
		exec.Status = status
		if result != nil {
			exec.Result = result
		}
		if errText != "" {
			exec.Error = errText
		}
		if status.terminal() {
			exec.EndTime = t.now()
		}
		t.touch()
		return
	}
}

// CompleteExecution marks an execution completed with its result.
func (t *Tracker) CompleteExecution(executionID string, result summarize.RawValue) {
	t.UpdateState(executionID, StatusCompleted, result, "")
}

// FailExecution marks an execution failed with its error text.
func (t *Tracker) FailExecution(executionID string, errText string) {
	t.UpdateState(executionID, StatusFailed, nil, errText)
}

// Execution returns the most recent record for an execution id.
func (t *Tracker) Execution(executionID string) (ToolExecution, bool) {
	for i := len(t.executions) - 1; i >= 0; i-- {
		if t.executions[i].ExecutionID == executionID {
			return t.executions[i], true
		}
	}
	return ToolExecution{}, false
}

// StartProgress creates a progress tracker for an operation.
func (t *Tracker) StartProgress(operationID string, totalSteps int, description string) {
	t.progress[operationID] = &Progress{
		OperationID:     operationID,
		TotalSteps:      totalSteps,
		StepDescription: description,
	}
	t.touch()
}

// UpdateProgress advances an operation and recomputes its percentage.
// Unknown operation ids are silent no-ops.
func (t *Tracker) UpdateProgress(operationID string, currentStep int, description string) {
	p, ok := t.progress[operationID]
	if !ok {
		return
	}
	p.CurrentStep = currentStep
	if description != "" {
		p.StepDescription = description
	}
	p.ProgressPercentage = percentage(currentStep, p.TotalSteps)
	t.touch()
}

// CompleteProgress forces an operation to its final step.
func (t *Tracker) CompleteProgress(operationID string) {
	p, ok := t.progress[operationID]
	if !ok {
		return
	}
	p.CurrentStep = p.TotalSteps
	p.ProgressPercentage = 100
	t.touch()
}

// ProgressFor returns the progress record for an operation id.
func (t *Tracker) ProgressFor(operationID string) (Progress, bool) {
	p, ok := t.progress[operationID]
	if !ok {
		return Progress{}, false
	}
	return *p, true
}

func percentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(current) / float64(total) * 100))
}

// Snapshot is a condensed view of the tracker for persistence and display.
// ToolStatesByName reduces the execution stack to the latest status per
// distinct tool name, later entries overriding earlier ones.
type Snapshot struct {
	Mode             string            `json:"mode"`
	ToolStatesByName map[string]Status `json:"toolStatesByName"`
	Phase            Phase             `json:"phase"`
}

// CreateSnapshot builds the condensed view of the current state.
func (t *Tracker) CreateSnapshot() Snapshot {
	states := map[string]Status{}
	for _, exec := range t.executions {
		states[exec.ToolName] = exec.Status
	}
	return Snapshot{
		Mode:             t.mode,
		ToolStatesByName: states,
		Phase:            t.phase,
	}
}
