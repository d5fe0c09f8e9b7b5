// Package orchestrator runs the per-request message pipeline: dedup gate,
// context bounding, format conversion, model invocation, tool dispatch and
// summary persistence.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/src/aisdk"
	"github.com/taskpilot/taskpilot/src/convert"
	"github.com/taskpilot/taskpilot/src/convostate"
	"github.com/taskpilot/taskpilot/src/dedup"
	"github.com/taskpilot/taskpilot/src/summarize"
	"github.com/taskpilot/taskpilot/src/window"
)

// loopNotice is the reply substituted when the conversation tail repeats
// itself instead of making progress.
const loopNotice = "I seem to be repeating the same steps without making progress. Could you rephrase the request or narrow it down?"

// MessageLog is the durable conversation log.
type MessageLog interface {
	Messages(ctx context.Context, conversationID string) ([]convert.StoredMessage, error)
	Append(ctx context.Context, conversationID string, msg convert.StoredMessage) error
}

// ToolRunner dispatches one tool call. Tool implementations live outside
// this subsystem.
type ToolRunner interface {
	Run(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error)
	Tools() []*aisdk.ChatTool
}

// SummarySink persists formatted tool summaries alongside their raw outputs.
type SummarySink interface {
	SaveSummary(ctx context.Context, conversationID, toolCallID, toolName string, summary summarize.ToolResultSummary) error
}

// SnapshotStore persists serialized conversation trackers between requests.
type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, state []byte) error
}

// Config holds the collaborators and tunables for an Orchestrator. All
// collaborators are passed by reference; nothing here is a global.
type Config struct {
	Log       MessageLog
	Model     aisdk.ModelClient
	Tools     ToolRunner
	Dedup     *dedup.Deduplicator
	Summaries SummarySink
	Snapshots SnapshotStore
	Logger    *slog.Logger

	MaxContextMessages int
	LoopWindow         int
	MaxTurns           int
}

// Orchestrator handles one inbound chat message per invocation. It holds no
// per-request state; everything request-scoped lives on the stack.
type Orchestrator struct {
	log       MessageLog
	model     aisdk.ModelClient
	tools     ToolRunner
	dedup     *dedup.Deduplicator
	summaries SummarySink
	snapshots SnapshotStore
	converter *convert.Converter
	formatter *summarize.Formatter
	logger    *slog.Logger

	maxContextMessages int
	loopWindow         int
	maxTurns           int
}

// New creates an Orchestrator. Log and Model are required.
func New(config Config) (*Orchestrator, error) {
	if config.Log == nil {
		return nil, fmt.Errorf("orchestrator requires a message log")
	}
	if config.Model == nil {
		return nil, fmt.Errorf("orchestrator requires a model client")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxContextMessages <= 0 {
		config.MaxContextMessages = window.DefaultMaxMessages
	}
	if config.LoopWindow <= 0 {
		config.LoopWindow = window.DefaultLoopWindow
	}
	if config.MaxTurns <= 0 {
		config.MaxTurns = 3
	}

	formatter := summarize.NewFormatter()
	return &Orchestrator{
		log:       config.Log,
		model:     config.Model,
		tools:     config.Tools,
		dedup:     config.Dedup,
		summaries: config.Summaries,
		snapshots: config.Snapshots,
		converter: convert.NewConverter(convert.ConverterConfig{
			Logger:    config.Logger,
			Formatter: formatter,
		}),
		formatter:          formatter,
		logger:             config.Logger,
		maxContextMessages: config.MaxContextMessages,
		loopWindow:         config.LoopWindow,
		maxTurns:           config.MaxTurns,
	}, nil
}

// Request is one inbound user message. RequestHash is caller-supplied and
// stable for semantically identical requests; an empty hash disables the
// dedup gate for this request.
type Request struct {
	ConversationID string
	SessionID      string
	Identity       string
	RequestHash    string
	Text           string
}

// Result is the outcome of one handled message.
type Result struct {
	Reply        string
	ResponseID   string
	Summary      string
	Duplicate    bool
	LoopDetected bool
	Turns        int
}

// HandleMessage runs a user message through the full pipeline.
func (o *Orchestrator) HandleMessage(ctx context.Context, req Request) (*Result, error) {
	logger := o.logger.With("conversation_id", req.ConversationID)

	// Dedup gate. Reserve is an atomic insert-if-absent, so two overlapping
	// identical requests cannot both proceed.
	var reservation *dedup.Record
	if o.dedup != nil && req.RequestHash != "" {
		record, reserved, err := o.dedup.Reserve(ctx, req.RequestHash, req.Identity, req.SessionID, req.Text, "")
		if err != nil {
			return nil, fmt.Errorf("dedup reserve failed: %w", err)
		}
		if !reserved {
			logger.Info("absorbing duplicate request", "request_hash", req.RequestHash)
			result := &Result{Duplicate: true}
			if record != nil {
				result.ResponseID = record.ResponseID
			}
			return result, nil
		}
		reservation = record
	}

	tracker := o.loadTracker(ctx, req.SessionID)

	if err := o.log.Append(ctx, req.ConversationID, convert.StoredMessage{
		Role:      convert.RoleUser,
		Content:   req.Text,
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}

	messages, err := o.log.Messages(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation log: %w", err)
	}

	result := &Result{ResponseID: uuid.New().String()}

	if window.DetectLoop(messages, o.loopWindow) {
		logger.Warn("conversation loop detected, short-circuiting model call")
		result.Reply = loopNotice
		result.LoopDetected = true
		if err := o.finish(ctx, req, tracker, result, reservation); err != nil {
			return nil, err
		}
		return result, nil
	}

	_ = tracker.SetPhase(convostate.PhasePlanning) // known phase

	var outcomes []summarize.ToolOutcome
	reply, turns, err := o.runTurns(ctx, req, tracker, messages, &outcomes)
	if err != nil {
		return nil, err
	}
	result.Reply = reply
	result.Turns = turns
	result.Summary = o.formatter.Aggregate(outcomes)

	if err := o.finish(ctx, req, tracker, result, reservation); err != nil {
		return nil, err
	}
	return result, nil
}

// runTurns drives the model/tool exchange until the model answers with
// text or the turn budget runs out.
func (o *Orchestrator) runTurns(ctx context.Context, req Request, tracker *convostate.Tracker, messages []convert.StoredMessage, outcomes *[]summarize.ToolOutcome) (string, int, error) {
	var chatTools []*aisdk.ChatTool
	if o.tools != nil {
		chatTools = o.tools.Tools()
	}

	reply := ""
	turn := 0
	for ; turn < o.maxTurns; turn++ {
		bounded := window.Optimize(messages, o.maxContextMessages)
		modelMessages := o.converter.Convert(bounded)

		resp, err := o.model.CreateChatCompletion(ctx, &aisdk.ChatCompletionRequest{
			Messages: modelMessages,
			Tools:    chatTools,
		})
		if err != nil {
			return "", turn, fmt.Errorf("model call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", turn, fmt.Errorf("model returned no choices")
		}
		choice := resp.Choices[0].Message

		if len(choice.ToolCalls) == 0 || o.tools == nil {
			reply = choice.Content
			assistant := convert.StoredMessage{
				Role:      convert.RoleAssistant,
				Content:   choice.Content,
				Timestamp: time.Now().UnixMilli(),
			}
			if err := o.log.Append(ctx, req.ConversationID, assistant); err != nil {
				return "", turn, fmt.Errorf("failed to append assistant message: %w", err)
			}
			turn++
			break
		}

		_ = tracker.SetPhase(convostate.PhaseExecution) // known phase

		assistant := convert.StoredMessage{
			Role:      convert.RoleAssistant,
			Content:   choice.Content,
			Timestamp: time.Now().UnixMilli(),
		}
		for _, call := range choice.ToolCalls {
			assistant.ToolCalls = append(assistant.ToolCalls, convert.StoredToolCall{
				Name:       call.Function.Name,
				Args:       call.Function.Arguments,
				ToolCallID: call.ID,
			})
		}
		if err := o.log.Append(ctx, req.ConversationID, assistant); err != nil {
			return "", turn, fmt.Errorf("failed to append assistant message: %w", err)
		}

		toolMsg := convert.StoredMessage{
			Role:      convert.RoleTool,
			Timestamp: time.Now().UnixMilli(),
		}
		for _, call := range choice.ToolCalls {
			raw := o.runTool(ctx, req, tracker, call)
			*outcomes = append(*outcomes, summarize.ToolOutcome{ToolName: call.Function.Name, Raw: raw})
			toolMsg.ToolResults = append(toolMsg.ToolResults, convert.StoredToolResult{
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Result:     summarize.EncodeRaw(raw),
			})
		}
		if err := o.log.Append(ctx, req.ConversationID, toolMsg); err != nil {
			return "", turn, fmt.Errorf("failed to append tool results: %w", err)
		}

		messages = append(messages, assistant, toolMsg)
	}

	if reply == "" {
		o.logger.Warn("turn budget exhausted without a text reply", "max_turns", o.maxTurns)
		reply = o.formatter.Aggregate(*outcomes)
		if reply == "" {
			reply = "I wasn't able to finish that request. Could you try again with more detail?"
		}
	}
	return reply, turn, nil
}

// runTool executes one tool call and records its lifecycle and summary.
// Tool failures are captured as raw error values, never raised.
func (o *Orchestrator) runTool(ctx context.Context, req Request, tracker *convostate.Tracker, call aisdk.ToolCall) summarize.RawValue {
	name := call.Function.Name
	tracker.StartExecution(name, call.ID)
	tracker.UpdateState(call.ID, convostate.StatusRunning, nil, "")

	var raw summarize.RawValue
	resp, err := o.tools.Run(ctx, &call)
	switch {
	case err != nil:
		raw = summarize.RawError{Message: err.Error()}
		tracker.FailExecution(call.ID, err.Error())
	case resp != nil && resp.IsError:
		raw = summarize.ParseRaw(resp.Content)
		if _, ok := raw.(summarize.RawError); !ok {
			raw = summarize.RawError{Message: string(resp.Content)}
		}
		tracker.FailExecution(call.ID, string(resp.Content))
	case resp != nil:
		raw = summarize.ParseRaw(resp.Content)
		tracker.CompleteExecution(call.ID, raw)
	default:
		raw = summarize.RawEmpty{}
		tracker.CompleteExecution(call.ID, raw)
	}

	if o.summaries != nil {
		summary := o.formatter.FormatForStorage(name, raw, nil)
		if err := o.summaries.SaveSummary(ctx, req.ConversationID, call.ID, name, summary); err != nil {
			o.logger.Warn("failed to persist tool summary", "tool", name, "error", err)
		}
	}
	return raw
}

// finish closes out the turn: terminal phases, response binding and
// snapshot persistence. Failures here are logged, not raised; the reply is
// already committed.
func (o *Orchestrator) finish(ctx context.Context, req Request, tracker *convostate.Tracker, result *Result, reservation *dedup.Record) error {
	_ = tracker.SetPhase(convostate.PhaseVerification) // known phase
	_ = tracker.SetPhase(convostate.PhaseCompleted) // known phase

	if reservation != nil {
		if err := o.dedup.SetResponse(ctx, reservation, result.ResponseID); err != nil {
			o.logger.Warn("failed to bind response to dedup record", "error", err)
		}
	}

	if o.snapshots != nil && req.SessionID != "" {
		state, err := tracker.Serialize()
		if err != nil {
			o.logger.Warn("failed to serialize conversation tracker", "error", err)
			return nil
		}
		if err := o.snapshots.Save(ctx, req.SessionID, state); err != nil {
			o.logger.Warn("failed to persist conversation snapshot", "error", err)
		}
	}
	return nil
}

// loadTracker restores the session's tracker from its snapshot, or starts a
// fresh one. Corrupt snapshots still produce a usable tracker.
func (o *Orchestrator) loadTracker(ctx context.Context, sessionID string) *convostate.Tracker {
	if o.snapshots == nil || sessionID == "" {
		return convostate.NewTracker("chat")
	}
	state, err := o.snapshots.Load(ctx, sessionID)
	if err != nil {
		o.logger.Warn("failed to load conversation snapshot", "error", err)
		return convostate.NewTracker("chat")
	}
	if len(state) == 0 {
		return convostate.NewTracker("chat")
	}
	return convostate.Deserialize(state)
}
