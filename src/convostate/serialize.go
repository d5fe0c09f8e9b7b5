package convostate

import (
	"encoding/json"
	"time"

	"github.com/taskpilot/taskpilot/src/summarize"
)

// trackerState is the structural form the tracker round-trips through.
type trackerState struct {
	Mode         string           `json:"mode,omitempty"`
	Phase        Phase            `json:"phase,omitempty"`
	LastActivity time.Time        `json:"lastActivity,omitempty"`
	Executions   []executionState `json:"executions,omitempty"`
	Progress     []Progress       `json:"progress,omitempty"`
}

type executionState struct {
	ToolName    string          `json:"toolName"`
	ExecutionID string          `json:"executionId"`
	Status      Status          `json:"status"`
	StartTime   time.Time       `json:"startTime,omitempty"`
	EndTime     time.Time       `json:"endTime,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Serialize renders the full internal state as JSON.
func (t *Tracker) Serialize() ([]byte, error) {
	state := trackerState{
		Mode:         t.mode,
		Phase:        t.phase,
		LastActivity: t.lastActivity,
	}

	for _, exec := range t.executions {
		entry := executionState{
			ToolName:    exec.ToolName,
			ExecutionID: exec.ExecutionID,
			Status:      exec.Status,
			StartTime:   exec.StartTime,
			EndTime:     exec.EndTime,
			Error:       exec.Error,
		}
		if exec.Result != nil {
			entry.Result = summarize.EncodeRaw(exec.Result)
		}
		state.Executions = append(state.Executions, entry)
	}

	for _, p := range t.progress {
		state.Progress = append(state.Progress, *p)
	}

	return json.Marshal(state)
}

// Deserialize rebuilds a tracker from a persisted snapshot. It is total:
// absent or corrupt fields fall back to defaults (phase initial, empty
// stacks, last activity now) so a partially-corrupt snapshot still yields a
// usable tracker.
func Deserialize(data []byte) *Tracker {
	tracker := NewTracker("")

	var state trackerState
	if err := json.Unmarshal(data, &state); err != nil {
		return tracker
	}

	if state.Mode != "" {
		tracker.mode = state.Mode
	}
	if KnownPhase(state.Phase) {
		tracker.phase = state.Phase
	}
	if !state.LastActivity.IsZero() {
		tracker.lastActivity = state.LastActivity
	}

	for _, entry := range state.Executions {
		exec := ToolExecution{
			ToolName:    entry.ToolName,
			ExecutionID: entry.ExecutionID,
			Status:      entry.Status,
			StartTime:   entry.StartTime,
			EndTime:     entry.EndTime,
			Error:       entry.Error,
		}
		if len(entry.Result) > 0 {
			exec.Result = summarize.ParseRaw(entry.Result)
		}
		tracker.executions = append(tracker.executions, exec)
	}

	for _, p := range state.Progress {
		progress := p
		tracker.progress[p.OperationID] = &progress
	}

	return tracker
}
