package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/dataops-hq/dataops-assistant/internal/api"
	"github.com/dataops-hq/dataops-assistant/internal/llm"
	"github.com/dataops-hq/dataops-assistant/internal/mcp"
	"github.com/dataops-hq/dataops-assistant/internal/tools"
)

// scriptedReasoner returns its canned results in order and records every
// transcript it was handed.
type scriptedReasoner struct {
	results     []*llm.GenerationResult
	err         error
	calls       int
	transcripts [][]llm.Message
}

func (s *scriptedReasoner) Generate(_ context.Context, messages []llm.Message, _ *llm.GenerationConfig, _ []tools.Tool) (*llm.GenerationResult, error) {
	s.transcripts = append(s.transcripts, append([]llm.Message(nil), messages...))
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls
	s.calls++
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx], nil
}

// stubGateway serves a fixed catalog and dispatches invocations to a
// per-tool function, recording the order of invocations.
type stubGateway struct {
	catalog     []tools.Tool
	discoverErr error
	invoke      func(name, arguments string) (json.RawMessage, error)
	invoked     []string
}

func (g *stubGateway) Discover(context.Context) ([]tools.Tool, error) {
	if g.discoverErr != nil {
		return nil, g.discoverErr
	}
	return g.catalog, nil
}

func (g *stubGateway) Invoke(_ context.Context, name string, arguments string) (json.RawMessage, error) {
	g.invoked = append(g.invoked, name)
	if g.invoke != nil {
		return g.invoke(name, arguments)
	}
	return json.RawMessage(`{"ok": true}`), nil
}

func toolCall(id, name, arguments string) *tools.ToolCall {
	return &tools.ToolCall{
		ID:   id,
		Type: tools.ToolTypeFunction,
		Function: tools.ToolCallFunction{
			Name:      name,
			Arguments: arguments,
		},
	}
}

func answer(content string) *llm.GenerationResult {
	return &llm.GenerationResult{Content: content}
}

func callsThenAnswer(calls ...*tools.ToolCall) []*llm.GenerationResult {
	return []*llm.GenerationResult{
		{ToolCalls: calls},
		answer("done"),
	}
}

func TestRunDirectAnswer(t *testing.T) {
	reasoner := &scriptedReasoner{results: []*llm.GenerationResult{answer("The pipeline is healthy.")}}
	gateway := &stubGateway{}
	orch := New(reasoner, gateway, nil)

	resp, err := orch.Run(context.Background(), api.ChatRequest{Message: "how is my pipeline?"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if resp.Message != "The pipeline is healthy." {
		t.Errorf("Message = %q", resp.Message)
	}
	if len(resp.ToolTraces) != 0 {
		t.Errorf("ToolTraces = %v, want empty", resp.ToolTraces)
	}
	if resp.ToolTraces == nil {
		t.Error("ToolTraces is nil, want empty slice")
	}
	if len(gateway.invoked) != 0 {
		t.Errorf("gateway invoked %v, want nothing", gateway.invoked)
	}
}

func TestRunSingleToolRound(t *testing.T) {
	reasoner := &scriptedReasoner{
		results: callsThenAnswer(toolCall("c1", "get_pipeline_status", `{"pipeline_name":"daily_sales"}`)),
	}
	gateway := &stubGateway{
		invoke: func(name, _ string) (json.RawMessage, error) {
			return json.RawMessage(`{"last_run_status":"Failed"}`), nil
		},
	}
	orch := New(reasoner, gateway, nil)

	resp, err := orch.Run(context.Background(), api.ChatRequest{Message: "status of daily_sales?"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if resp.Message != "done" {
		t.Errorf("Message = %q, want done", resp.Message)
	}
	if len(resp.ToolTraces) != 1 {
		t.Fatalf("got %d traces, want 1", len(resp.ToolTraces))
	}
	trace := resp.ToolTraces[0]
	if trace.ToolName != "get_pipeline_status" {
		t.Errorf("trace.ToolName = %q", trace.ToolName)
	}
	if trace.InputData["pipeline_name"] != "daily_sales" {
		t.Errorf("trace.InputData = %v", trace.InputData)
	}
	output, ok := trace.OutputData.(map[string]any)
	if !ok || output["last_run_status"] != "Failed" {
		t.Errorf("trace.OutputData = %v", trace.OutputData)
	}

	// The second reasoning call must see the assistant tool-call message and
	// the tool result appended after the user message.
	second := reasoner.transcripts[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleTool || last.ToolCallID != "c1" {
		t.Errorf("last transcript message = %+v, want tool result for c1", last)
	}
	if second[len(second)-2].Role != llm.RoleAssistant {
		t.Errorf("message before tool result has role %s, want assistant", second[len(second)-2].Role)
	}
}

func TestRunExecutesCallsSequentiallyInOrder(t *testing.T) {
	reasoner := &scriptedReasoner{
		results: callsThenAnswer(
			toolCall("c1", "fetch_logs", `{"source":"adf"}`),
			toolCall("c2", "summarize_error_logs", `{}`),
			toolCall("c3", "get_failed_tasks_summary", `{"pipeline_name":"p"}`),
		),
	}
	gateway := &stubGateway{}
	orch := New(reasoner, gateway, nil)

	resp, err := orch.Run(context.Background(), api.ChatRequest{Message: "investigate"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []string{"fetch_logs", "summarize_error_logs", "get_failed_tasks_summary"}
	if len(gateway.invoked) != len(want) {
		t.Fatalf("invoked %v, want %v", gateway.invoked, want)
	}
	for i, name := range want {
		if gateway.invoked[i] != name {
			t.Errorf("invocation %d = %s, want %s", i, gateway.invoked[i], name)
		}
		if resp.ToolTraces[i].ToolName != name {
			t.Errorf("trace %d = %s, want %s", i, resp.ToolTraces[i].ToolName, name)
		}
	}
}

func TestRunRecoverableToolFailure(t *testing.T) {
	reasoner := &scriptedReasoner{
		results: callsThenAnswer(toolCall("c1", "get_keyvault_secrets", `{}`)),
	}
	gateway := &stubGateway{
		invoke: func(name, _ string) (json.RawMessage, error) {
			return nil, &mcp.ToolExecutionError{Tool: name, Message: "vault unreachable"}
		},
	}
	orch := New(reasoner, gateway, nil)

	resp, err := orch.Run(context.Background(), api.ChatRequest{Message: "list secrets"})
	if err != nil {
		t.Fatalf("a tool failure must not abort the run: %v", err)
	}
	if resp.Message != "done" {
		t.Errorf("Message = %q, want done", resp.Message)
	}

	// The failure shows up twice: as an error string in the transcript for
	// the model, and as an error object in the audit trace for the caller.
	second := reasoner.transcripts[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleTool {
		t.Fatalf("last transcript role = %s, want tool", last.Role)
	}
	wantPrefix := "Error executing tool get_keyvault_secrets:"
	if len(last.Content) < len(wantPrefix) || last.Content[:len(wantPrefix)] != wantPrefix {
		t.Errorf("transcript content = %q, want prefix %q", last.Content, wantPrefix)
	}

	if len(resp.ToolTraces) != 1 {
		t.Fatalf("got %d traces, want 1", len(resp.ToolTraces))
	}
	output, ok := resp.ToolTraces[0].OutputData.(map[string]any)
	if !ok {
		t.Fatalf("trace output = %#v, want error map", resp.ToolTraces[0].OutputData)
	}
	if _, present := output["error"]; !present {
		t.Errorf("trace output %v has no error key", output)
	}
}

func TestRunIterationLimit(t *testing.T) {
	// The model never stops asking for tools, so the controller must cut it
	// off after ten reasoning rounds and report the incompletion message.
	reasoner := &scriptedReasoner{
		results: []*llm.GenerationResult{
			{ToolCalls: []*tools.ToolCall{toolCall("c", "fetch_logs", `{}`)}},
		},
	}
	gateway := &stubGateway{}
	orch := New(reasoner, gateway, nil)

	resp, err := orch.Run(context.Background(), api.ChatRequest{Message: "loop forever"})
	if err != nil {
		t.Fatalf("hitting the limit must not be an error: %v", err)
	}
	if resp.Message != iterationLimitMessage {
		t.Errorf("Message = %q, want the iteration-limit message", resp.Message)
	}
	if reasoner.calls != maxRounds {
		t.Errorf("reasoner called %d times, want %d", reasoner.calls, maxRounds)
	}
	if len(resp.ToolTraces) != maxRounds {
		t.Errorf("got %d traces, want %d", len(resp.ToolTraces), maxRounds)
	}
}

func TestRunDiscoveryFailureIsFatal(t *testing.T) {
	reasoner := &scriptedReasoner{results: []*llm.GenerationResult{answer("unused")}}
	gateway := &stubGateway{discoverErr: &mcp.DiscoveryError{Err: errors.New("connection refused")}}
	orch := New(reasoner, gateway, nil)

	_, err := orch.Run(context.Background(), api.ChatRequest{Message: "hello"})
	var discErr *mcp.DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("Run error = %v, want *mcp.DiscoveryError", err)
	}
	if reasoner.calls != 0 {
		t.Errorf("reasoner called %d times after failed discovery, want 0", reasoner.calls)
	}
}

func TestRunReasoningFailureIsFatal(t *testing.T) {
	reasoner := &scriptedReasoner{err: &llm.ReasoningUnavailableError{Provider: "gemini", Err: errors.New("quota exceeded")}}
	gateway := &stubGateway{}
	orch := New(reasoner, gateway, nil)

	_, err := orch.Run(context.Background(), api.ChatRequest{Message: "hello"})
	var reasonErr *llm.ReasoningUnavailableError
	if !errors.As(err, &reasonErr) {
		t.Fatalf("Run error = %v, want *llm.ReasoningUnavailableError", err)
	}
}

func TestRunEmptyAnswerFallback(t *testing.T) {
	reasoner := &scriptedReasoner{results: []*llm.GenerationResult{answer("")}}
	orch := New(reasoner, &stubGateway{}, nil)

	resp, err := orch.Run(context.Background(), api.ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if resp.Message != noResponseFallback {
		t.Errorf("Message = %q, want %q", resp.Message, noResponseFallback)
	}
}

func TestRunIsIdempotentAcrossInvocations(t *testing.T) {
	makeOrch := func() (*Orchestrator, *stubGateway) {
		reasoner := &scriptedReasoner{
			results: callsThenAnswer(toolCall("c1", "get_pipeline_status", `{"pipeline_name":"p"}`)),
		}
		gateway := &stubGateway{}
		return New(reasoner, gateway, nil), gateway
	}

	req := api.ChatRequest{Message: "status of p?"}
	first, gw1 := makeOrch()
	second, gw2 := makeOrch()

	respA, errA := first.Run(context.Background(), req)
	respB, errB := second.Run(context.Background(), req)
	if errA != nil || errB != nil {
		t.Fatalf("Run errors: %v, %v", errA, errB)
	}
	if respA.Message != respB.Message {
		t.Errorf("messages differ: %q vs %q", respA.Message, respB.Message)
	}
	if fmt.Sprint(gw1.invoked) != fmt.Sprint(gw2.invoked) {
		t.Errorf("invocation sequences differ: %v vs %v", gw1.invoked, gw2.invoked)
	}
	if len(respA.ToolTraces) != len(respB.ToolTraces) {
		t.Errorf("trace counts differ: %d vs %d", len(respA.ToolTraces), len(respB.ToolTraces))
	}
}

func TestRunTranscriptSeeding(t *testing.T) {
	reasoner := &scriptedReasoner{results: []*llm.GenerationResult{answer("hi")}}
	orch := New(reasoner, &stubGateway{}, nil)

	req := api.ChatRequest{
		Message:     "and now?",
		Environment: "prod",
		History: []api.ChatMessage{
			{Role: "user", Content: "earlier question"},
			{Role: "assistant", Content: "earlier answer"},
		},
	}
	if _, err := orch.Run(context.Background(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	transcript := reasoner.transcripts[0]
	if len(transcript) != 4 {
		t.Fatalf("transcript has %d messages, want 4", len(transcript))
	}
	if transcript[0].Role != llm.RoleSystem {
		t.Errorf("transcript[0].Role = %s, want system", transcript[0].Role)
	}
	if transcript[1].Content != "earlier question" || transcript[2].Content != "earlier answer" {
		t.Errorf("history not preserved in order: %+v", transcript[1:3])
	}
	last := transcript[3]
	if last.Role != llm.RoleUser || last.Content != "and now?" {
		t.Errorf("transcript[3] = %+v, want the current user message", last)
	}
}

func TestDecodeArgumentsFallback(t *testing.T) {
	args := decodeArguments("not json")
	if args["_raw"] != "not json" {
		t.Errorf("decodeArguments fallback = %v", args)
	}
	if len(decodeArguments("")) != 0 {
		t.Error("empty arguments should decode to an empty map")
	}
}
