// Package llm contains the reasoning gateway: the universal client
// interface for chat completion with tool calling, the conversation message
// types, and the Gemini implementation used in deployment.
package llm

import (
	"context"

	"github.com/dataops-hq/dataops-assistant/internal/tools"
)

// Role represents the originator of a message in a conversation. Using a
// defined type and constants prevents typos and improves code clarity.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single entry in a conversation transcript. The
// transcript is append-only within one orchestration run: assistant entries
// may carry requested tool calls, and tool entries answer exactly one of
// those calls via ToolCallID.
type Message struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	Name       string            `json:"name,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	ToolCalls  []*tools.ToolCall `json:"tool_calls,omitempty"`
}

// GenerationConfig holds the parameters controlling the model's output.
// For this deployment the values are fixed per process, not tuned per call.
type GenerationConfig struct {
	// Model is the specific model to use (e.g., "gemini-1.5-pro").
	Model string
	// Temperature controls randomness. A pointer distinguishes 0.0 from unset.
	Temperature *float32
	// MaxTokens bounds the size of the generated response.
	MaxTokens int
}

// Usage carries token accounting for one generation request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationResult holds the complete output of one reasoning call. The
// absence of ToolCalls is the sole terminal signal for the conversation
// loop: content-only means the model is done.
type GenerationResult struct {
	Content   string
	ToolCalls []*tools.ToolCall
	Usage     Usage
}

// Client is the interface every reasoning-model client must implement.
// It takes the full transcript plus the declared tool set and returns
// structured content and/or tool calls.
type Client interface {
	Generate(
		ctx context.Context,
		messages []Message,
		config *GenerationConfig,
		availableTools []tools.Tool,
	) (*GenerationResult, error)
}
