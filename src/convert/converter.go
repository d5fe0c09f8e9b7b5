package convert

import (
	"fmt"
	"log/slog"

	"github.com/taskpilot/taskpilot/src/aisdk"
	"github.com/taskpilot/taskpilot/src/summarize"
)

// continuationPrompt is the synthetic user message substituted when nothing
// else survives conversion. The model always receives at least this.
const continuationPrompt = "Please continue helping with the current task."

// Reducer collapses UI messages into model-ready messages. Its failure
// triggers the converter's fallback path.
type Reducer func([]UIMessage) ([]*aisdk.Message, error)

// Converter turns stored conversation entries into model-ready messages.
// All of its methods are total: malformed input is skipped or degraded,
// never raised.
type Converter struct {
	logger    *slog.Logger
	formatter *summarize.Formatter
	reduce    Reducer
}

// ConverterConfig holds configuration for creating a Converter.
type ConverterConfig struct {
	Logger    *slog.Logger
	Formatter *summarize.Formatter
	Reduce    Reducer
}

// NewConverter creates a Converter. Zero-value config fields get defaults:
// the package reducer, a wall-clock formatter, and slog.Default.
func NewConverter(config ConverterConfig) *Converter {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Formatter == nil {
		config.Formatter = summarize.NewFormatter()
	}
	if config.Reduce == nil {
		config.Reduce = Reduce
	}
	return &Converter{
		logger:    config.Logger,
		formatter: config.Formatter,
		reduce:    config.Reduce,
	}
}

// ToIntermediate converts stored messages to UI messages in order. Messages
// that fail shape validation are skipped with a logged warning; the batch
// always continues. Output length never exceeds input length.
func (c *Converter) ToIntermediate(stored []StoredMessage) []UIMessage {
	results := collectResults(stored)

	out := make([]UIMessage, 0, len(stored))
	for i, msg := range stored {
		ui, ok, reason := c.toUIMessage(msg, i, results)
		if !ok {
			if reason != "" {
				c.logger.Warn("skipping malformed stored message", "index", i, "reason", reason)
			}
			continue
		}
		out = append(out, ui)
	}
	return out
}

// collectResults indexes every tool result in the batch by its call id.
func collectResults(stored []StoredMessage) map[string]StoredToolResult {
	results := map[string]StoredToolResult{}
	for _, msg := range stored {
		for _, res := range msg.ToolResults {
			if res.ToolCallID != "" {
				results[res.ToolCallID] = res
			}
		}
	}
	return results
}

// toUIMessage maps one stored message. The second return reports whether a
// UI message was produced; the third carries a warning reason when the
// message was malformed (tool-carrier messages are dropped silently).
func (c *Converter) toUIMessage(msg StoredMessage, index int, results map[string]StoredToolResult) (UIMessage, bool, string) {
	switch msg.Role {
	case RoleUser:
		if msg.Content == "" {
			return UIMessage{}, false, "user message without text"
		}
		return UIMessage{
			ID:    messageID(msg.Role, index, msg.Timestamp),
			Role:  msg.Role,
			Parts: []Part{TextPart{Text: msg.Content}},
		}, true, ""

	case RoleAssistant:
		var parts []Part
		if msg.Content != "" {
			parts = append(parts, TextPart{Text: msg.Content})
		}
		for _, call := range msg.ToolCalls {
			parts = append(parts, c.toolPart(call, results))
		}
		if len(parts) == 0 {
			return UIMessage{}, false, "assistant message without text or tool calls"
		}
		return UIMessage{
			ID:    messageID(msg.Role, index, msg.Timestamp),
			Role:  msg.Role,
			Parts: parts,
		}, true, ""

	case RoleTool:
		// Tool messages only carry results, which are folded into the
		// originating assistant message's parts.
		return UIMessage{}, false, ""

	default:
		return UIMessage{}, false, fmt.Sprintf("unknown role %q", msg.Role)
	}
}

// toolPart embeds the matching result as a completed or erred tool-usage
// part, or a pending part when no result has arrived.
func (c *Converter) toolPart(call StoredToolCall, results map[string]StoredToolResult) Part {
	res, ok := results[call.ToolCallID]
	if !ok {
		return PendingToolPart{
			Name:       call.Name,
			Args:       call.Args,
			ToolCallID: call.ToolCallID,
		}
	}

	name := res.ToolName
	if name == "" {
		name = call.Name
	}

	raw := summarize.ParseRaw(res.Result)
	_, errored := raw.(summarize.RawError)

	output := c.formatter.Describe(name, raw).Text
	if output == "" {
		output = string(summarize.EncodeRaw(raw))
	}

	return ToolUsePart{
		Name:       name,
		ToolCallID: call.ToolCallID,
		Output:     output,
		Errored:    errored,
	}
}

// messageID derives a batch-stable identifier without a global counter.
func messageID(role string, index int, timestamp int64) string {
	return fmt.Sprintf("%s-%d-%d", role, index, timestamp)
}

// ToModelReady reduces UI messages to model-ready messages. It never fails:
// on reducer failure it reconstructs messages from the text parts of
// user/assistant UI messages, and if that yields nothing it synthesizes a
// single generic user message. Every path returns a non-empty slice.
func (c *Converter) ToModelReady(ui []UIMessage) []*aisdk.Message {
	msgs, err := c.reduce(ui)
	if err != nil {
		c.logger.Warn("message reducer failed, using fallback reconstruction", "error", err)
		msgs = fallbackMessages(ui)
	}
	if len(msgs) == 0 {
		msgs = fallbackMessages(ui)
	}
	if len(msgs) == 0 {
		msgs = []*aisdk.Message{{Role: RoleUser, Content: continuationPrompt}}
	}
	return msgs
}

// fallbackMessages rebuilds model messages from text parts only, preserving
// order.
func fallbackMessages(ui []UIMessage) []*aisdk.Message {
	var out []*aisdk.Message
	for _, msg := range ui {
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			continue
		}
		for _, part := range msg.Parts {
			if text, ok := part.(TextPart); ok && text.Text != "" {
				out = append(out, &aisdk.Message{Role: msg.Role, Content: text.Text})
				break
			}
		}
	}
	return out
}

// Convert is the full pipeline from stored log to model-ready messages.
func (c *Converter) Convert(stored []StoredMessage) []*aisdk.Message {
	return c.ToModelReady(c.ToIntermediate(stored))
}

// Reduce is the canonical reducer: text parts become message content,
// pending tool calls become assistant tool-call entries, and tool-usage
// parts expand into the call plus a trailing tool message carrying the
// output.
func Reduce(ui []UIMessage) ([]*aisdk.Message, error) {
	var out []*aisdk.Message
	for _, msg := range ui {
		if msg.Role == "" {
			return nil, fmt.Errorf("message %q has no role", msg.ID)
		}

		head := &aisdk.Message{Role: msg.Role}
		var tail []*aisdk.Message

		for _, part := range msg.Parts {
			switch p := part.(type) {
			case TextPart:
				if head.Content != "" {
					head.Content += "\n"
				}
				head.Content += p.Text
			case PendingToolPart:
				head.ToolCalls = append(head.ToolCalls, aisdk.ToolCall{
					ID:   p.ToolCallID,
					Type: "function",
					Function: aisdk.FunctionCall{
						Name:      p.Name,
						Arguments: p.Args,
					},
				})
			case ToolUsePart:
				head.ToolCalls = append(head.ToolCalls, aisdk.ToolCall{
					ID:   p.ToolCallID,
					Type: "function",
					Function: aisdk.FunctionCall{
						Name: p.Name,
					},
				})
				tail = append(tail, &aisdk.Message{
					Role:       RoleTool,
					Name:       p.Name,
					ToolCallID: p.ToolCallID,
					Content:    p.Output,
				})
			default:
				return nil, fmt.Errorf("message %q has unsupported part type %T", msg.ID, part)
			}
		}

		if head.Content == "" && len(head.ToolCalls) == 0 {
			continue
		}
		out = append(out, head)
		out = append(out, tail...)
	}
	return out, nil
}
