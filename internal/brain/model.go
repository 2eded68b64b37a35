package brain

import (
	"context"
	"time"
)

// ToolDefinition describes one callable tool offered to the external
// model, mirroring the tool registry's entry shape without
// this package importing the tools package directly.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// ToolExecutor invokes a named tool with its input and returns a result or
// an error.
type ToolExecutor func(ctx context.Context, name string, input map[string]interface{}) (interface{}, error)

// ModelOptions configures one external-model conversation.
type ModelOptions struct {
	Model    string
	MaxTurns int
	MaxTokens int
	Timeout  time.Duration
}

// ModelTurnResult is a completed (or max-turns-truncated) conversation's
// outcome: the model's final text, the tool names invoked along the way,
// and accumulated usage for the budget tracker.
type ModelTurnResult struct {
	Text      string
	ToolCalls []string
	Usage     ModelUsage
}

// ExternalModel is Tier 3's collaborator: the minimal
// contract the brain needs from the bounded tool-use loop, satisfied by
// *tools.Client. Declaring it here rather than importing the tools package
// keeps the brain decoupled from the HTTP/SDK details of any one model
// provider, the same pattern hologram.CognitionClient uses for stimulate().
type ExternalModel interface {
	Converse(ctx context.Context, systemPrompt, message string, tools []ToolDefinition, executor ToolExecutor, opts ModelOptions) (ModelTurnResult, error)
}
