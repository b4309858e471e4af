package registry

import "fmt"

// The registry's error taxonomy. Duplicate and schema errors can only occur
// at construction time; unknown-tool, argument, and execution errors occur
// at dispatch time and are recoverable from the conversation's perspective.

// DuplicateToolError is returned by Register when a tool with the same name
// already exists.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError is returned when a tool name cannot be resolved.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// InvalidArgumentsError is returned by Dispatch when the raw arguments do
// not decode against the tool's declared input schema.
type InvalidArgumentsError struct {
	Name   string
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %s", e.Name, e.Reason)
}

// ToolExecutionError wraps any failure raised by a tool handler. A single
// failing tool must not abort the conversation, so Dispatch reports this
// instead of propagating the handler's failure.
type ToolExecutionError struct {
	Name    string
	Message string
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Name, e.Message)
}
