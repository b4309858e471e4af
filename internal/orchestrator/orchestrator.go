// Package orchestrator implements the conversation controller: the bounded
// loop that turns one user question into a sequence of reasoning calls and
// tool executions, terminating in a final answer plus an audit trail of
// every tool invocation performed.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/dataops-hq/dataops-assistant/internal/api"
	"github.com/dataops-hq/dataops-assistant/internal/llm"
	"github.com/dataops-hq/dataops-assistant/internal/tools"
)

const (
	// maxRounds is the hard ceiling on reasoning rounds per run.
	maxRounds = 10

	// iterationLimitMessage is the fixed, user-visible incompletion outcome
	// when the round ceiling is hit. Reported, not an error.
	iterationLimitMessage = "I apologize, but I couldn't complete the analysis within the allowed iterations."

	// noResponseFallback replaces an empty terminal answer.
	noResponseFallback = "No response generated"
)

// ToolGateway is the outbound contract the controller needs from the tool
// execution side: catalog discovery plus single-call invocation.
type ToolGateway interface {
	Discover(ctx context.Context) ([]tools.Tool, error)
	Invoke(ctx context.Context, name string, arguments string) (json.RawMessage, error)
}

// runState drives the controller's finite-state loop. The bounded loop with
// its two alternating phases is expressed as an explicit enum rather than
// recursive control flow so each transition stays individually testable.
type runState int

const (
	stateInit runState = iota
	stateAwaitingReasoning
	stateExecutingTools
	stateDone
	stateLimitReached
)

// Orchestrator owns one conversation loop configuration. It holds no
// per-run state, so a single instance is safely shared across concurrent
// requests; each Run builds its own transcript and trace list.
type Orchestrator struct {
	reasoner llm.Client
	gateway  ToolGateway
	config   *llm.GenerationConfig
}

// New wires a controller from its two gateways and the fixed generation
// settings. Dependencies are injected explicitly; there is no ambient
// client state.
func New(reasoner llm.Client, gateway ToolGateway, config *llm.GenerationConfig) *Orchestrator {
	return &Orchestrator{
		reasoner: reasoner,
		gateway:  gateway,
		config:   config,
	}
}

// Run executes one orchestration: system prompt and history become the
// transcript, tools are discovered, then reasoning and tool execution
// alternate until the model answers without tool calls or the round
// ceiling is reached.
//
// Tool-layer failures never escape: they are folded into the transcript so
// the model can react. Only discovery and reasoning failures propagate, and
// those abort the run.
func (o *Orchestrator) Run(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	var (
		transcript   []llm.Message
		declarations []tools.Tool
		result       *llm.GenerationResult
	)
	traces := []api.ToolTrace{}
	iteration := 0
	state := stateInit

	for {
		switch state {
		case stateInit:
			transcript = buildTranscript(req)
			var err error
			declarations, err = o.gateway.Discover(ctx)
			if err != nil {
				return nil, err
			}
			log.Printf("Discovered %d tools for this run", len(declarations))
			state = stateAwaitingReasoning

		case stateAwaitingReasoning:
			iteration++
			if iteration > maxRounds {
				state = stateLimitReached
				continue
			}
			log.Printf("Conversation iteration %d", iteration)

			var err error
			result, err = o.reasoner.Generate(ctx, transcript, o.config, declarations)
			if err != nil {
				return nil, err
			}
			if result.Usage.TotalTokens > 0 {
				log.Printf("Iteration %d used %d tokens", iteration, result.Usage.TotalTokens)
			}

			if len(result.ToolCalls) == 0 {
				state = stateDone
				continue
			}
			log.Printf("Model requested %d tool calls", len(result.ToolCalls))
			transcript = append(transcript, llm.Message{
				Role:      llm.RoleAssistant,
				Content:   result.Content,
				ToolCalls: result.ToolCalls,
			})
			state = stateExecutingTools

		case stateExecutingTools:
			// Calls run strictly sequentially, in the order the model
			// returned them: the transcript is a single ordered append
			// target and the model correlates cause and effect by order.
			for _, call := range result.ToolCalls {
				name := call.Function.Name
				log.Printf("🛠️ Executing tool: %s (ID: %s) with args: %s", name, call.ID, call.Function.Arguments)

				resultMsg, trace := o.executeCall(ctx, call)
				transcript = append(transcript, resultMsg)
				traces = append(traces, trace)
			}
			state = stateAwaitingReasoning

		case stateDone:
			answer := result.Content
			if answer == "" {
				answer = noResponseFallback
			}
			return &api.ChatResponse{Message: answer, ToolTraces: traces}, nil

		case stateLimitReached:
			log.Printf("Iteration limit reached after %d tool executions", len(traces))
			return &api.ChatResponse{Message: iterationLimitMessage, ToolTraces: traces}, nil
		}
	}
}

// executeCall invokes one tool call and produces both its transcript entry
// and its audit trace. A failed call yields a human-readable error string
// in the transcript — never a raw error — so the model can adapt, and the
// trace records the error instead of a crash.
func (o *Orchestrator) executeCall(ctx context.Context, call *tools.ToolCall) (llm.Message, api.ToolTrace) {
	name := call.Function.Name
	trace := api.ToolTrace{
		ToolName:  name,
		InputData: decodeArguments(call.Function.Arguments),
	}

	raw, err := o.gateway.Invoke(ctx, name, call.Function.Arguments)
	if err != nil {
		log.Printf("Tool execution error: %v", err)
		errText := fmt.Sprintf("Error executing tool %s: %v", name, err)
		trace.OutputData = map[string]any{"error": err.Error()}
		return llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: call.ID,
			Name:       name,
			Content:    errText,
		}, trace
	}

	var output any
	if len(raw) > 0 {
		if uerr := json.Unmarshal(raw, &output); uerr != nil {
			output = string(raw)
		}
	}
	trace.OutputData = output

	return llm.Message{
		Role:       llm.RoleTool,
		ToolCallID: call.ID,
		Name:       name,
		Content:    string(raw),
	}, trace
}

// buildTranscript seeds the run's transcript: the system prompt for the
// requested environment, the caller-provided history in order, then the
// current user message.
func buildTranscript(req api.ChatRequest) []llm.Message {
	transcript := []llm.Message{
		{Role: llm.RoleSystem, Content: llm.BuildSystemPrompt(req.Environment)},
	}
	for _, msg := range req.History {
		transcript = append(transcript, llm.Message{
			Role:    llm.Role(msg.Role),
			Content: msg.Content,
		})
	}
	transcript = append(transcript, llm.Message{Role: llm.RoleUser, Content: req.Message})
	return transcript
}

// decodeArguments best-effort decodes a call's argument string for the
// audit trace. The trace mirrors what the model asked for even when the
// arguments were not valid JSON.
func decodeArguments(arguments string) map[string]any {
	args := map[string]any{}
	if arguments == "" {
		return args
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return map[string]any{"_raw": arguments}
	}
	return args
}
