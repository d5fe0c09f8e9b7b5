package convostate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/src/summarize"
)

func TestSetPhase(t *testing.T) {
	tracker := NewTracker("chat")
	assert.Equal(t, PhaseInitial, tracker.Phase())

	require.NoError(t, tracker.SetPhase(PhasePlanning))
	assert.Equal(t, PhasePlanning, tracker.Phase())

	err := tracker.SetPhase(Phase("daydreaming"))
	require.Error(t, err)
	assert.Equal(t, PhasePlanning, tracker.Phase(), "failed transition must not change phase")
}

func TestPhaseDetails(t *testing.T) {
	details, ok := Details(PhaseExecution)
	require.True(t, ok)
	assert.Equal(t, PhaseExecution, details.Name)
	assert.NotEmpty(t, details.Description)

	_, ok = Details(Phase("nope"))
	assert.False(t, ok)
}

func TestExecutionLifecycle(t *testing.T) {
	tracker := NewTracker("chat")

	tracker.StartExecution("getTasks", "e1")
	exec, ok := tracker.Execution("e1")
	require.True(t, ok)
	assert.Equal(t, StatusPending, exec.Status)
	assert.False(t, exec.StartTime.IsZero())
	assert.True(t, exec.EndTime.IsZero(), "end time is only set on terminal transitions")

	tracker.UpdateState("e1", StatusRunning, nil, "")
	exec, _ = tracker.Execution("e1")
	assert.Equal(t, StatusRunning, exec.Status)
	assert.True(t, exec.EndTime.IsZero())

	result := summarize.RawText{Text: "3 tasks"}
	tracker.CompleteExecution("e1", result)
	exec, _ = tracker.Execution("e1")
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, result, exec.Result)
	assert.False(t, exec.EndTime.IsZero())
	assert.True(t, !exec.EndTime.Before(exec.StartTime))
}

func TestTerminalStatusNeverRegresses(t *testing.T) {
	tracker := NewTracker("chat")
	tracker.StartExecution("getTasks", "e1")
	tracker.FailExecution("e1", "boom")

	tracker.UpdateState("e1", StatusRunning, nil, "")
	tracker.CompleteExecution("e1", summarize.RawText{Text: "late"})

	exec, _ := tracker.Execution("e1")
	assert.Equal(t, StatusFailed, exec.Status)
	assert.Equal(t, "boom", exec.Error)
	assert.Nil(t, exec.Result)
}

func TestUnknownExecutionIsNoOp(t *testing.T) {
	tracker := NewTracker("chat")
	tracker.UpdateState("missing", StatusRunning, nil, "")
	tracker.CompleteExecution("missing", nil)
	_, ok := tracker.Execution("missing")
	assert.False(t, ok)
}

func TestProgress(t *testing.T) {
	tracker := NewTracker("chat")

	tracker.StartProgress("op1", 4, "collecting tasks")
	p, ok := tracker.ProgressFor("op1")
	require.True(t, ok)
	assert.Equal(t, 0, p.ProgressPercentage)

	tracker.UpdateProgress("op1", 1, "")
	p, _ = tracker.ProgressFor("op1")
	assert.Equal(t, 25, p.ProgressPercentage)
	assert.Equal(t, "collecting tasks", p.StepDescription)

	tracker.UpdateProgress("op1", 3, "almost done")
	p, _ = tracker.ProgressFor("op1")
	assert.Equal(t, 75, p.ProgressPercentage)
	assert.Equal(t, "almost done", p.StepDescription)

	tracker.CompleteProgress("op1")
	p, _ = tracker.ProgressFor("op1")
	assert.Equal(t, 4, p.CurrentStep)
	assert.Equal(t, 100, p.ProgressPercentage)

	// Unknown operation ids are silent no-ops.
	tracker.UpdateProgress("missing", 1, "")
	tracker.CompleteProgress("missing")
}

func TestCreateSnapshot(t *testing.T) {
	tracker := NewTracker("chat")
	require.NoError(t, tracker.SetPhase(PhaseExecution))

	tracker.StartExecution("getTasks", "e1")
	tracker.CompleteExecution("e1", nil)
	tracker.StartExecution("getTasks", "e2") // later entry overrides
	tracker.StartExecution("getCalendarEvents", "e3")
	tracker.FailExecution("e3", "timeout")

	snap := tracker.CreateSnapshot()
	assert.Equal(t, "chat", snap.Mode)
	assert.Equal(t, PhaseExecution, snap.Phase)
	assert.Equal(t, StatusPending, snap.ToolStatesByName["getTasks"])
	assert.Equal(t, StatusFailed, snap.ToolStatesByName["getCalendarEvents"])
}

func TestSerializeRoundTrip(t *testing.T) {
	tracker := NewTracker("chat")
	require.NoError(t, tracker.SetPhase(PhaseVerification))
	tracker.StartExecution("getTasks", "e1")
	tracker.CompleteExecution("e1", summarize.RawText{Text: "done"})
	tracker.StartProgress("op1", 2, "step one")
	tracker.UpdateProgress("op1", 1, "")

	data, err := tracker.Serialize()
	require.NoError(t, err)

	restored := Deserialize(data)
	assert.Equal(t, PhaseVerification, restored.Phase())

	exec, ok := restored.Execution("e1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, summarize.RawText{Text: "done"}, exec.Result)

	p, ok := restored.ProgressFor("op1")
	require.True(t, ok)
	assert.Equal(t, 50, p.ProgressPercentage)
}

func TestDeserializeDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty object", input: `{}`},
		{name: "corrupt json", input: `{"phase": "exec`},
		{name: "unknown phase", input: `{"phase":"daydreaming"}`},
		{name: "empty input", input: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := Deserialize([]byte(tt.input))
			require.NotNil(t, tracker)
			assert.Equal(t, PhaseInitial, tracker.Phase())
			assert.WithinDuration(t, time.Now(), tracker.LastActivity(), 5*time.Second)
			require.NoError(t, tracker.SetPhase(PhasePlanning), "deserialized tracker must be usable")
		})
	}
}
