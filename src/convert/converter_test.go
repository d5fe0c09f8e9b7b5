package convert

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/src/aisdk"
)

func testConverter() *Converter {
	return NewConverter(ConverterConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestToIntermediateSingleUserMessage(t *testing.T) {
	c := testConverter()

	ui := c.ToIntermediate([]StoredMessage{
		{Role: "user", Content: "hi", Timestamp: 1700000000000},
	})

	require.Len(t, ui, 1)
	assert.Equal(t, "user", ui[0].Role)
	require.Len(t, ui[0].Parts, 1)
	text, ok := ui[0].Parts[0].(TextPart)
	require.True(t, ok)
	assert.Equal(t, "hi", text.Text)
	assert.Equal(t, "user-0-1700000000000", ui[0].ID)
}

func TestToIntermediateSkipsMalformed(t *testing.T) {
	c := testConverter()

	ui := c.ToIntermediate([]StoredMessage{
		{Role: "user", Content: "first", Timestamp: 1},
		{Role: "", Content: "no role", Timestamp: 2},
		{Role: "assistant", Content: "reply", Timestamp: 3},
		{Role: "unknown", Content: "bad role", Timestamp: 4},
		{Role: "user", Timestamp: 5}, // no text
		{Role: "user", Content: "last", Timestamp: 6},
	})

	require.Len(t, ui, 3)
	assert.Equal(t, "user-0-1", ui[0].ID)
	assert.Equal(t, "assistant-2-3", ui[1].ID)
	assert.Equal(t, "user-5-6", ui[2].ID)
}

func TestToIntermediateToolCallMatching(t *testing.T) {
	c := testConverter()

	stored := []StoredMessage{
		{Role: "user", Content: "what's on my plate?", Timestamp: 1},
		{
			Role:      "assistant",
			Timestamp: 2,
			ToolCalls: []StoredToolCall{
				{Name: "getTasks", ToolCallID: "call-1"},
				{Name: "getCalendarEvents", ToolCallID: "call-2"},
			},
		},
		{
			Role:      "tool",
			Timestamp: 3,
			ToolResults: []StoredToolResult{
				{ToolCallID: "call-1", ToolName: "getTasks", Result: []byte(`{"metadata":{"taskCount":2,"tasks":[]}}`)},
			},
		},
	}

	ui := c.ToIntermediate(stored)
	require.Len(t, ui, 2)

	parts := ui[1].Parts
	require.Len(t, parts, 2)

	use, ok := parts[0].(ToolUsePart)
	require.True(t, ok, "resolved call should be a tool-use part")
	assert.Equal(t, "call-1", use.ToolCallID)
	assert.False(t, use.Errored)
	assert.Contains(t, use.Output, "2 open tasks")

	pending, ok := parts[1].(PendingToolPart)
	require.True(t, ok, "unresolved call should stay pending")
	assert.Equal(t, "call-2", pending.ToolCallID)
}

func TestToIntermediateErredResult(t *testing.T) {
	c := testConverter()

	ui := c.ToIntermediate([]StoredMessage{
		{
			Role:      "assistant",
			Timestamp: 1,
			ToolCalls: []StoredToolCall{{Name: "getTasks", ToolCallID: "c1"}},
		},
		{
			Role:        "tool",
			Timestamp:   2,
			ToolResults: []StoredToolResult{{ToolCallID: "c1", Result: []byte(`{"error":"rate limited"}`)}},
		},
	})

	require.Len(t, ui, 1)
	use, ok := ui[0].Parts[0].(ToolUsePart)
	require.True(t, ok)
	assert.True(t, use.Errored)
	assert.Equal(t, "Tool error: rate limited", use.Output)
}

func TestReduce(t *testing.T) {
	ui := []UIMessage{
		{ID: "user-0-1", Role: "user", Parts: []Part{TextPart{Text: "hi"}}},
		{ID: "assistant-1-2", Role: "assistant", Parts: []Part{
			ToolUsePart{Name: "getTasks", ToolCallID: "c1", Output: "Tasks summary: 1 open tasks; 0 overdue."},
		}},
	}

	msgs, err := Reduce(ui)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "tool", msgs[2].Role)
	assert.Equal(t, "c1", msgs[2].ToolCallID)
	assert.Contains(t, msgs[2].Content, "1 open tasks")
}

func TestToModelReadyFallbackOnReducerFailure(t *testing.T) {
	c := NewConverter(ConverterConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Reduce: func([]UIMessage) ([]*aisdk.Message, error) {
			return nil, errors.New("reducer exploded")
		},
	})

	ui := []UIMessage{
		{Role: "user", Parts: []Part{TextPart{Text: "hello"}}},
		{Role: "assistant", Parts: []Part{PendingToolPart{Name: "getTasks", ToolCallID: "c1"}}},
		{Role: "assistant", Parts: []Part{TextPart{Text: "on it"}}},
	}

	msgs := c.ToModelReady(ui)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "on it", msgs[1].Content)
}

func TestToModelReadySynthesizesWhenNothingSurvives(t *testing.T) {
	c := NewConverter(ConverterConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Reduce: func([]UIMessage) ([]*aisdk.Message, error) {
			return nil, errors.New("reducer exploded")
		},
	})

	msgs := c.ToModelReady(nil)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Role)
	assert.NotEmpty(t, msgs[0].Content)
}

func TestConvertNeverReturnsEmpty(t *testing.T) {
	c := testConverter()

	batches := [][]StoredMessage{
		nil,
		{},
		{{Role: "bogus", Timestamp: 1}},
		{{Role: "tool", Timestamp: 1, ToolResults: []StoredToolResult{{ToolCallID: "x"}}}},
		{{Role: "user", Content: "hi", Timestamp: 1}},
	}

	for i, batch := range batches {
		t.Run(fmt.Sprintf("batch_%d", i), func(t *testing.T) {
			msgs := c.Convert(batch)
			assert.NotEmpty(t, msgs, "convert must never return an empty slice")
		})
	}
}
