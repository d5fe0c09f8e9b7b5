package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/src/aisdk"
	"github.com/taskpilot/taskpilot/src/convert"
	"github.com/taskpilot/taskpilot/src/dedup"
	"github.com/taskpilot/taskpilot/src/summarize"
)

type fakeLog struct {
	messages map[string][]convert.StoredMessage
}

func newFakeLog() *fakeLog {
	return &fakeLog{messages: make(map[string][]convert.StoredMessage)}
}

func (l *fakeLog) Messages(_ context.Context, conversationID string) ([]convert.StoredMessage, error) {
	return l.messages[conversationID], nil
}

func (l *fakeLog) Append(_ context.Context, conversationID string, msg convert.StoredMessage) error {
	l.messages[conversationID] = append(l.messages[conversationID], msg)
	return nil
}

type fakeModel struct {
	responses []aisdk.ChatCompletionResponse
	calls     int
}

func (m *fakeModel) CreateChatCompletion(_ context.Context, _ *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("no scripted response")
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	m.calls++
	return &resp, nil
}

func (m *fakeModel) ModelID() string { return "fake/model" }

type fakeTools struct {
	results map[string]*aisdk.ToolResponse
	errs    map[string]error
	calls   []string
}

func (t *fakeTools) Run(_ context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	t.calls = append(t.calls, call.Function.Name)
	if err, ok := t.errs[call.Function.Name]; ok {
		return nil, err
	}
	return t.results[call.Function.Name], nil
}

func (t *fakeTools) Tools() []*aisdk.ChatTool { return nil }

type savedSummary struct {
	toolCallID string
	toolName   string
	summary    summarize.ToolResultSummary
}

type fakeSink struct {
	saved []savedSummary
}

func (s *fakeSink) SaveSummary(_ context.Context, _, toolCallID, toolName string, summary summarize.ToolResultSummary) error {
	s.saved = append(s.saved, savedSummary{toolCallID: toolCallID, toolName: toolName, summary: summary})
	return nil
}

type fakeSnapshots struct {
	states map[string][]byte
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{states: make(map[string][]byte)}
}

func (s *fakeSnapshots) Load(_ context.Context, sessionID string) ([]byte, error) {
	return s.states[sessionID], nil
}

func (s *fakeSnapshots) Save(_ context.Context, sessionID string, state []byte) error {
	s.states[sessionID] = state
	return nil
}

func textResponse(content string) aisdk.ChatCompletionResponse {
	return aisdk.ChatCompletionResponse{
		Choices: []aisdk.Choice{{Message: aisdk.Message{Role: "assistant", Content: content}}},
	}
}

func toolCallResponse(name, id string, args string) aisdk.ChatCompletionResponse {
	return aisdk.ChatCompletionResponse{
		Choices: []aisdk.Choice{{Message: aisdk.Message{
			Role: "assistant",
			ToolCalls: []aisdk.ToolCall{{
				ID:       id,
				Type:     "function",
				Function: aisdk.FunctionCall{Name: name, Arguments: json.RawMessage(args)},
			}},
		}}},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{Model: &fakeModel{}})
	assert.Error(t, err)

	_, err = New(Config{Log: newFakeLog()})
	assert.Error(t, err)

	o, err := New(Config{Log: newFakeLog(), Model: &fakeModel{}, Logger: testLogger()})
	require.NoError(t, err)
	assert.NotNil(t, o)
}

func TestHandleMessageTextReply(t *testing.T) {
	log := newFakeLog()
	model := &fakeModel{responses: []aisdk.ChatCompletionResponse{textResponse("All done.")}}
	snapshots := newFakeSnapshots()

	o, err := New(Config{Log: log, Model: model, Snapshots: snapshots, Logger: testLogger()})
	require.NoError(t, err)

	result, err := o.HandleMessage(context.Background(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Text:           "what's on my plate today?",
	})
	require.NoError(t, err)

	assert.Equal(t, "All done.", result.Reply)
	assert.Equal(t, 1, result.Turns)
	assert.False(t, result.Duplicate)
	assert.False(t, result.LoopDetected)
	assert.NotEmpty(t, result.ResponseID)

	msgs := log.messages["conv-1"]
	require.Len(t, msgs, 2)
	assert.Equal(t, convert.RoleUser, msgs[0].Role)
	assert.Equal(t, "what's on my plate today?", msgs[0].Content)
	assert.Equal(t, convert.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "All done.", msgs[1].Content)

	assert.NotEmpty(t, snapshots.states["sess-1"], "tracker snapshot should be persisted")
}

func TestHandleMessageToolRound(t *testing.T) {
	log := newFakeLog()
	model := &fakeModel{responses: []aisdk.ChatCompletionResponse{
		toolCallResponse("get_tasks", "call-1", `{}`),
		textResponse("You have one open task."),
	}}
	tools := &fakeTools{results: map[string]*aisdk.ToolResponse{
		"get_tasks": {Content: []byte(`{"tasks":[{"title":"File taxes","dueDate":"2026-09-15"}]}`)},
	}}
	sink := &fakeSink{}

	o, err := New(Config{Log: log, Model: model, Tools: tools, Summaries: sink, Logger: testLogger()})
	require.NoError(t, err)

	result, err := o.HandleMessage(context.Background(), Request{ConversationID: "conv-1", Text: "tasks?"})
	require.NoError(t, err)

	assert.Equal(t, "You have one open task.", result.Reply)
	assert.Equal(t, 2, result.Turns)
	assert.Equal(t, []string{"get_tasks"}, tools.calls)
	assert.NotEmpty(t, result.Summary)

	require.Len(t, sink.saved, 1)
	assert.Equal(t, "get_tasks", sink.saved[0].toolName)
	assert.Equal(t, "call-1", sink.saved[0].toolCallID)

	// user, assistant(tool call), tool results, final assistant
	msgs := log.messages["conv-1"]
	require.Len(t, msgs, 4)
	assert.Equal(t, convert.RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "get_tasks", msgs[1].ToolCalls[0].Name)
	assert.Equal(t, convert.RoleTool, msgs[2].Role)
	require.Len(t, msgs[2].ToolResults, 1)
	assert.Equal(t, "call-1", msgs[2].ToolResults[0].ToolCallID)
}

func TestHandleMessageToolFailureIsAbsorbed(t *testing.T) {
	log := newFakeLog()
	model := &fakeModel{responses: []aisdk.ChatCompletionResponse{
		toolCallResponse("get_calendar_events", "call-9", `{}`),
		textResponse("I couldn't reach the calendar."),
	}}
	tools := &fakeTools{errs: map[string]error{
		"get_calendar_events": fmt.Errorf("calendar backend unavailable"),
	}}
	sink := &fakeSink{}

	o, err := New(Config{Log: log, Model: model, Tools: tools, Summaries: sink, Logger: testLogger()})
	require.NoError(t, err)

	result, err := o.HandleMessage(context.Background(), Request{ConversationID: "conv-1", Text: "calendar?"})
	require.NoError(t, err)

	assert.Equal(t, "I couldn't reach the calendar.", result.Reply)
	assert.Contains(t, result.Summary, "calendar backend unavailable")

	require.Len(t, sink.saved, 1)
	assert.Equal(t, summarize.SeverityError, sink.saved[0].summary.Status)
}

func TestHandleMessageDuplicateAbsorbed(t *testing.T) {
	log := newFakeLog()
	model := &fakeModel{responses: []aisdk.ChatCompletionResponse{textResponse("First answer.")}}
	dd := dedup.New(dedup.Config{Store: dedup.NewMemoryStore(), Logger: testLogger()})

	o, err := New(Config{Log: log, Model: model, Dedup: dd, Logger: testLogger()})
	require.NoError(t, err)

	req := Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Identity:       "user@example.com",
		RequestHash:    "hash-1",
		Text:           "remind me about rent",
	}

	first, err := o.HandleMessage(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, "First answer.", first.Reply)

	second, err := o.HandleMessage(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.ResponseID, second.ResponseID)
	assert.Equal(t, 1, model.calls, "duplicate must not reach the model")

	// the duplicate never touched the log either
	assert.Len(t, log.messages["conv-1"], 2)
}

func TestHandleMessageLoopShortCircuits(t *testing.T) {
	log := newFakeLog()
	for i := 0; i < 11; i++ {
		require.NoError(t, log.Append(context.Background(), "conv-1", convert.StoredMessage{
			Role:      convert.RoleUser,
			Content:   "same thing again",
			Timestamp: time.Now().UnixMilli(),
		}))
	}
	model := &fakeModel{responses: []aisdk.ChatCompletionResponse{textResponse("should not be used")}}

	o, err := New(Config{Log: log, Model: model, Logger: testLogger()})
	require.NoError(t, err)

	result, err := o.HandleMessage(context.Background(), Request{ConversationID: "conv-1", Text: "same thing again"})
	require.NoError(t, err)

	assert.True(t, result.LoopDetected)
	assert.Equal(t, loopNotice, result.Reply)
	assert.Zero(t, model.calls, "loop detection must skip the model call")
}

func TestHandleMessageTurnBudgetExhausted(t *testing.T) {
	log := newFakeLog()
	// The model never produces a text answer.
	model := &fakeModel{responses: []aisdk.ChatCompletionResponse{
		toolCallResponse("get_tasks", "call-1", `{}`),
	}}
	tools := &fakeTools{results: map[string]*aisdk.ToolResponse{
		"get_tasks": {Content: []byte(`{"tasks":[]}`)},
	}}

	o, err := New(Config{Log: log, Model: model, Tools: tools, MaxTurns: 2, Logger: testLogger()})
	require.NoError(t, err)

	result, err := o.HandleMessage(context.Background(), Request{ConversationID: "conv-1", Text: "loop forever"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Turns)
	assert.NotEmpty(t, result.Reply, "exhausted budget still yields a reply")
	assert.Equal(t, 2, model.calls)
}

func TestHandleMessageModelFailure(t *testing.T) {
	o, err := New(Config{Log: newFakeLog(), Model: &fakeModel{}, Logger: testLogger()})
	require.NoError(t, err)

	_, err = o.HandleMessage(context.Background(), Request{ConversationID: "conv-1", Text: "hi"})
	assert.Error(t, err)
}
