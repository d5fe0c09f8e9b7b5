// Package aisdk defines the message and tool types exchanged with the
// model-invocation runtime.
package aisdk

import (
	"context"
	"encoding/json"
	"time"
)

// Message represents a single model-ready message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Name identifies the function for tool responses
	Name string `json:"name,omitempty"`
	// ToolCallID references the originating call for tool responses
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolCalls contains function calls requested by the assistant.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
}

// ToolExecutor is a function that executes a tool with given parameters
type ToolExecutor func(ctx context.Context, call *ToolCall) (*ToolResponse, error)

// ToolCall represents a function call request from the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // Always "function" for now
	Function FunctionCall `json:"function"`
}

// FunctionCall contains the function name and arguments.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResponse is the raw output of one tool invocation.
type ToolResponse struct {
	Content []byte `json:"content"`
	IsError bool   `json:"is_error"`
}

// ChatCompletionRequest represents a request to the chat completions endpoint.
type ChatCompletionRequest struct {
	Model       string      `json:"model"`
	Messages    []*Message  `json:"messages"`
	Temperature *float64    `json:"temperature,omitempty"`
	MaxTokens   *int        `json:"max_tokens,omitempty"`
	Stop        []string    `json:"stop,omitempty"`
	Tools       []*ChatTool `json:"tools,omitempty"`
	ToolChoice  string      `json:"tool_choice,omitempty"` // "auto", "none", or specific tool
	User        string      `json:"user,omitempty"`
}

// ChatCompletionResponse represents a response from the chat completions endpoint.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Error represents an API error response.
type Error struct {
	Message string                 `json:"message"`
	Type    string                 `json:"type"`
	Code    string                 `json:"code,omitempty"`
	Param   string                 `json:"param,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps an error from the API.
type ErrorResponse struct {
	Error Error `json:"error"`
}
