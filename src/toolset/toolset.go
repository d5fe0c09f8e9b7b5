// Package toolset is the registry the pipeline dispatches tool calls
// through. Tool implementations register here; the orchestrator only sees
// the registry.
package toolset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	jsonschema "github.com/swaggest/jsonschema-go"

	"github.com/taskpilot/taskpilot/src/aisdk"
)

// Tool is one callable capability exposed to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() *jsonschema.Schema
	Execute(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error)
}

// Middleware wraps tool execution to add cross-cutting behavior.
type Middleware func(next aisdk.ToolExecutor) aisdk.ToolExecutor

// Registry holds registered tools and dispatches calls to them.
type Registry struct {
	tools      map[string]Tool
	middleware []Middleware
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(tool Tool) error {
	if tool.Name() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	return nil
}

// Use registers middleware applied to every execution, outermost first.
func (r *Registry) Use(middleware Middleware) {
	r.middleware = append(r.middleware, middleware)
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	_, exists := r.tools[name]
	return exists
}

// Run dispatches one tool call through the middleware chain.
func (r *Registry) Run(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	tool, exists := r.tools[call.Function.Name]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", call.Function.Name)
	}

	executor := aisdk.ToolExecutor(tool.Execute)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		executor = r.middleware[i](executor)
	}
	return executor(ctx, call)
}

// Tools returns the chat-API definitions of every registered tool, in name
// order so request payloads are stable.
func (r *Registry) Tools() []*aisdk.ChatTool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*aisdk.ChatTool, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		out = append(out, &aisdk.ChatTool{
			Type: "function",
			Function: aisdk.ChatToolFunction{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return out
}

// FuncTool adapts a plain function into a Tool.
type FuncTool struct {
	ToolName        string
	ToolDescription string
	Schema          *jsonschema.Schema
	Handler         aisdk.ToolExecutor
}

func (t *FuncTool) Name() string                   { return t.ToolName }
func (t *FuncTool) Description() string            { return t.ToolDescription }
func (t *FuncTool) Parameters() *jsonschema.Schema { return t.Schema }

func (t *FuncTool) Execute(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	return t.Handler(ctx, call)
}

// LoggingMiddleware logs each execution with its outcome.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next aisdk.ToolExecutor) aisdk.ToolExecutor {
		return func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
			logger.Debug("executing tool", "tool", call.Function.Name)
			resp, err := next(ctx, call)
			if err != nil {
				logger.Warn("tool execution failed", "tool", call.Function.Name, "error", err)
			}
			return resp, err
		}
	}
}
