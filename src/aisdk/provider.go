package aisdk

import (
	"context"
)

// ModelClient represents a client for a specific model.
type ModelClient interface {
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
	ModelID() string
}
