// Package tools defines the provider-agnostic data structures for function
// calling (tool use). Both services speak these types: the MCP server
// publishes its catalog in this shape, and the reasoning gateway translates
// them into the provider's native function-declaration format.
package tools

// ToolTypeFunction is the standard type for function-based tools.
const ToolTypeFunction = "function"

// Tool defines the schema for a function that can be described to an LLM.
// This is the information sent *to* the model so it knows the tool exists.
type Tool struct {
	// Type specifies the type of tool, which is almost always "function".
	Type string `json:"type"`
	// Function holds the detailed definition of the function.
	Function Function `json:"function"`
}

// Function defines the name, description, and parameters of a callable tool.
// The structure follows the common JSON Schema format shared by the major
// LLM providers.
type Function struct {
	// Name is the unique name of the function (e.g., "get_pipeline_status").
	Name string `json:"name"`
	// Description explains what the function does. The LLM uses this text
	// to decide when the tool is relevant, so it must be precise.
	Description string `json:"description"`
	// Parameters defines the arguments the function accepts as a JSON Schema.
	Parameters JSONSchema `json:"parameters"`
}

// JSONSchema is a structured, type-safe representation of the JSON Schema
// subset used for tool parameters. Using this struct instead of
// map[string]interface{} keeps tool definitions explicit and lets the
// registry validate them once at registration time.
type JSONSchema struct {
	// Type is the data type for a schema node (e.g., "object", "string",
	// "number"). The top-level parameters object is always "object".
	Type string `json:"type"`
	// Description explains what a specific parameter is for.
	Description string `json:"description,omitempty"`
	// Properties describes the fields of an object node. Keys are parameter
	// names, values are the schemas of those parameters.
	Properties map[string]*JSONSchema `json:"properties,omitempty"`
	// Items is the element schema for array nodes.
	Items *JSONSchema `json:"items,omitempty"`
	// Required lists the parameter names that are mandatory.
	Required []string `json:"required,omitempty"`
}

// ToolCall represents a request *from* the LLM to execute a specific tool.
// The conversation controller receives these, executes each one through the
// tool gateway, and feeds the result back to the model.
type ToolCall struct {
	// ID is a unique identifier for this specific call, scoped to one
	// assistant message. It ties the execution result back to the request
	// in a multi-turn conversation.
	ID string `json:"id"`
	// Type indicates the type of tool being called, almost always "function".
	Type string `json:"type"`
	// Function contains the name and arguments of the requested call.
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction holds the name and arguments of a function call requested
// by the LLM.
type ToolCallFunction struct {
	// Name is the name of the function the LLM has decided to call.
	Name string `json:"name"`
	// Arguments is a JSON object, serialized as a string, containing the
	// arguments for the call. Tool implementations unmarshal it into their
	// own typed input structs.
	Arguments string `json:"arguments"`
}

// NewFunctionTool builds a Tool with the correct "function" type, reducing
// boilerplate at tool definition sites.
func NewFunctionTool(name, description string, parameters JSONSchema) Tool {
	return Tool{
		Type: ToolTypeFunction,
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}
