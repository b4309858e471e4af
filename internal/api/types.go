// Package api defines the wire types of the public HTTP surfaces: the
// backend's chat endpoint and the MCP server's tool catalog and execution
// endpoints. Both services and their clients share these structs so the
// two sides cannot drift apart.
package api

import "encoding/json"

// ChatMessage is one prior message in a conversation history, as supplied
// by the caller of the chat endpoint.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound orchestration request.
type ChatRequest struct {
	Message     string        `json:"message" binding:"required"`
	Environment string        `json:"environment"`
	History     []ChatMessage `json:"history"`
}

// ToolTrace is the externally-reported audit record of one tool invocation.
// One entry is produced per executed tool call, in execution order. It is
// distinct from the transcript entry fed back to the model: the trace is
// for the caller, the transcript entry is for the LLM.
type ToolTrace struct {
	ToolName   string         `json:"tool_name"`
	InputData  map[string]any `json:"input_data"`
	OutputData any            `json:"output_data"`
}

// ChatResponse carries the final answer plus the ordered tool audit trail.
type ChatResponse struct {
	Message    string      `json:"message"`
	ToolTraces []ToolTrace `json:"tool_traces"`
}

// ToolDescriptor is one entry of the MCP server's tool catalog. Handlers
// are never serialized; only the declaration surface is exposed.
type ToolDescriptor struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	InputSchema  json.RawMessage `json:"input_schema"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

// ToolCatalog is the response of GET /tools.
type ToolCatalog struct {
	Tools []ToolDescriptor `json:"tools"`
	Count int              `json:"count"`
}

// ToolExecutionRequest is the body of POST /execute.
type ToolExecutionRequest struct {
	ToolName  string          `json:"tool_name" binding:"required"`
	InputData json.RawMessage `json:"input_data"`
}

// ToolExecutionResponse is the envelope returned by POST /execute. Both the
// success and the failure shape are well-formed 200 responses; transport
// errors are reserved for the server itself being unreachable.
type ToolExecutionResponse struct {
	ToolName string          `json:"tool_name"`
	Success  bool            `json:"success"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}
