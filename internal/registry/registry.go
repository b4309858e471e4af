// Package registry implements the in-memory tool registry: a table mapping
// a tool name to its declaration and invocation handler, plus the dispatch
// path that validates arguments and isolates handler failures.
//
// The registry is mutated only while the process starts up. After
// construction it is read-only, which makes it safe to share across
// concurrent orchestration runs without locking.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/dataops-hq/dataops-assistant/internal/tools"
)

// Handler executes one tool invocation. It receives the raw JSON arguments,
// already validated against the tool's input schema, and returns the typed
// result that will be serialized into the execution envelope.
type Handler func(ctx context.Context, input json.RawMessage) (any, error)

// Definition is the registered {name, schemas, handler} record describing
// one callable operation. Definitions are immutable after registration.
type Definition struct {
	Name         string
	Description  string
	InputSchema  tools.JSONSchema
	OutputSchema tools.JSONSchema
	Handler      Handler
}

// Registry holds the tool table. Construct it once at startup, register
// every tool, and treat it as read-only afterwards.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a tool definition. It fails with *DuplicateToolError if the
// name is taken, and rejects structurally invalid schemas up front so that
// dispatch never has to re-validate declarations per call.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool definition has no name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q has no handler", def.Name)
	}
	if _, exists := r.defs[def.Name]; exists {
		return &DuplicateToolError{Name: def.Name}
	}
	if err := validateSchema(&def.InputSchema); err != nil {
		return fmt.Errorf("tool %q input schema: %w", def.Name, err)
	}
	if def.OutputSchema.Type != "" {
		if err := validateSchema(&def.OutputSchema); err != nil {
			return fmt.Errorf("tool %q output schema: %w", def.Name, err)
		}
	}
	d := def
	r.defs[def.Name] = &d
	r.order = append(r.order, def.Name)
	return nil
}

// Get resolves a tool definition by name, failing with *UnknownToolError.
func (r *Registry) Get(name string) (*Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return def, nil
}

// List returns every registered definition in registration order. Handlers
// stay private to the registry; callers only see the declaration surface.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		d := *r.defs[name]
		d.Handler = nil
		out = append(out, d)
	}
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.defs)
}

// Dispatch resolves the named tool, validates the raw arguments against its
// declared input schema, and invokes the handler. Any failure raised by the
// handler — including a panic — is caught and reported as a
// *ToolExecutionError rather than propagated, since one broken tool must
// not take down the conversation it is part of.
func (r *Registry) Dispatch(ctx context.Context, name string, rawArguments json.RawMessage) (result any, err error) {
	def, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if err := validateArguments(name, rawArguments, &def.InputSchema); err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("tool %s panicked: %v", name, rec)
			result = nil
			err = &ToolExecutionError{Name: name, Message: fmt.Sprintf("panic: %v", rec)}
		}
	}()

	out, herr := def.Handler(ctx, rawArguments)
	if herr != nil {
		return nil, &ToolExecutionError{Name: name, Message: herr.Error()}
	}
	return out, nil
}

// validateSchema structurally checks a declaration once, at registration.
func validateSchema(s *tools.JSONSchema) error {
	if s.Type != "object" {
		return fmt.Errorf("top-level type must be \"object\", got %q", s.Type)
	}
	for _, req := range s.Required {
		if _, ok := s.Properties[req]; !ok {
			return fmt.Errorf("required parameter %q is not declared in properties", req)
		}
	}
	for name, prop := range s.Properties {
		if prop == nil {
			return fmt.Errorf("parameter %q has a nil schema", name)
		}
		switch prop.Type {
		case "string", "number", "integer", "boolean", "object", "array":
		default:
			return fmt.Errorf("parameter %q has unsupported type %q", name, prop.Type)
		}
	}
	return nil
}

// validateArguments is the schema-validated decode step that runs once per
// dispatch: unknown JSON, missing required parameters, or a type mismatch
// all surface as *InvalidArgumentsError before the handler ever runs.
func validateArguments(toolName string, raw json.RawMessage, schema *tools.JSONSchema) error {
	args := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return &InvalidArgumentsError{Name: toolName, Reason: fmt.Sprintf("not a JSON object: %v", err)}
		}
	}
	for _, req := range schema.Required {
		if _, ok := args[req]; !ok {
			return &InvalidArgumentsError{Name: toolName, Reason: fmt.Sprintf("missing required parameter %q", req)}
		}
	}
	for name, value := range args {
		prop, ok := schema.Properties[name]
		if !ok {
			// Unknown parameters are tolerated; remote models occasionally
			// add extras and the handlers ignore them.
			continue
		}
		if value == nil {
			continue
		}
		if !matchesType(value, prop.Type) {
			return &InvalidArgumentsError{
				Name:   toolName,
				Reason: fmt.Sprintf("parameter %q must be of type %s", name, prop.Type),
			}
		}
	}
	return nil
}

func matchesType(value any, schemaType string) bool {
	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		f, ok := value.(float64)
		return ok && f == float64(int64(f))
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	default:
		// validateSchema only admits the types above; anything else here
		// means the two lists drifted, so reject rather than wave through.
		return false
	}
}
