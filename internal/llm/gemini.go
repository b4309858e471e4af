package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/dataops-hq/dataops-assistant/internal/tools"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient is the reasoning client for Google's Gemini models. The
// underlying connection is shared; each Generate call derives its own
// GenerativeModel so concurrent runs never see each other's settings.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// Statically verify that GeminiClient implements the Client interface.
var _ Client = (*GeminiClient)(nil)

// NewGeminiClient creates a configured client for the given model ID.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelID: modelID}, nil
}

// Generate performs a standard, blocking request to the Gemini API. Any
// provider failure is reported as *ReasoningUnavailableError; the caller
// treats that as fatal for the current run.
func (c *GeminiClient) Generate(
	ctx context.Context,
	messages []Message,
	config *GenerationConfig,
	availableTools []tools.Tool,
) (*GenerationResult, error) {
	contents, instruction := toGeminiContents(messages)
	if len(contents) == 0 {
		return nil, &ReasoningUnavailableError{Provider: "gemini", Err: errors.New("empty transcript")}
	}

	model := c.newRequestModel(config, availableTools, instruction)
	chat := model.StartChat()
	chat.History = contents[:len(contents)-1]
	last := contents[len(contents)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, &ReasoningUnavailableError{Provider: "gemini", Err: err}
	}
	return parseGeminiResponse(resp)
}

// newRequestModel builds a request-scoped model with the run's generation
// settings, tool declarations, and system instruction. The instruction
// varies per request (it embeds the environment), so it must never land on
// shared state.
func (c *GeminiClient) newRequestModel(config *GenerationConfig, availableTools []tools.Tool, instruction *genai.Content) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelID)
	if config != nil && config.Temperature != nil {
		model.SetTemperature(*config.Temperature)
	}
	if config != nil && config.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(config.MaxTokens))
	} else {
		model.SetMaxOutputTokens(2048)
	}
	if len(availableTools) > 0 {
		model.Tools = toGeminiTools(availableTools)
	}
	model.SystemInstruction = instruction
	return model
}

// toGeminiTools converts our universal tool declarations to the Gemini
// SDK's function-declaration format. This translation is the only place
// where the catalog's schema and the provider's schema meet.
func toGeminiTools(toolsToConvert []tools.Tool) []*genai.Tool {
	var geminiTools []*genai.Tool
	for _, t := range toolsToConvert {
		funcDecl := &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  convertSchema(t.Function.Parameters),
		}
		geminiTools = append(geminiTools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{funcDecl},
		})
	}
	return geminiTools
}

// convertSchema maps our JSONSchema to the Gemini SDK's schema type.
func convertSchema(s tools.JSONSchema) *genai.Schema {
	genaiSchema := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}
	switch s.Type {
	case "object":
		genaiSchema.Type = genai.TypeObject
	case "string":
		genaiSchema.Type = genai.TypeString
	case "number":
		genaiSchema.Type = genai.TypeNumber
	case "integer":
		genaiSchema.Type = genai.TypeInteger
	case "boolean":
		genaiSchema.Type = genai.TypeBoolean
	case "array":
		genaiSchema.Type = genai.TypeArray
	}
	if s.Items != nil {
		genaiSchema.Items = convertSchema(*s.Items)
	}
	if s.Properties != nil {
		genaiSchema.Properties = make(map[string]*genai.Schema)
		for k, v := range s.Properties {
			genaiSchema.Properties[k] = convertSchema(*v)
		}
	}
	return genaiSchema
}

// toGeminiContents converts the transcript to the Gemini SDK's content
// list. The system message is returned separately as the system
// instruction; assistant tool calls and tool results become function-call /
// function-response parts so the model keeps the full causal chain across
// rounds.
func toGeminiContents(messages []Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var instruction *genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			instruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
		case RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		case RoleAssistant:
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				args := map[string]any{}
				if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
					log.Printf("Warning: could not decode tool call args for %s: %v", call.Function.Name, err)
				}
				parts = append(parts, genai.FunctionCall{
					Name: call.Function.Name,
					Args: args,
				})
			}
			if len(parts) == 0 {
				parts = append(parts, genai.Text(""))
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		case RoleTool:
			response := map[string]any{}
			if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
				response = map[string]any{"content": msg.Content}
			}
			contents = append(contents, &genai.Content{
				Role: "function",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     msg.Name,
					Response: response,
				}},
			})
		}
	}
	return contents, instruction
}

// parseGeminiResponse converts a Gemini API response into our internal
// GenerationResult. Gemini does not issue call IDs, so one is fabricated
// per call; the index keeps IDs unique when the model requests the same
// function twice in a round.
func parseGeminiResponse(resp *genai.GenerateContentResponse) (*GenerationResult, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &ReasoningUnavailableError{Provider: "gemini", Err: errors.New("no content returned")}
	}

	candidate := resp.Candidates[0]
	var contentBuilder strings.Builder
	var toolCalls []*tools.ToolCall

	for i, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			contentBuilder.WriteString(string(v))
		case genai.FunctionCall:
			argsJSON, err := json.Marshal(v.Args)
			if err != nil {
				log.Printf("Warning: could not marshal tool call args: %v", err)
				continue
			}
			toolCalls = append(toolCalls, &tools.ToolCall{
				ID:   fmt.Sprintf("gemini-toolcall-%d-%s", i, v.Name),
				Type: tools.ToolTypeFunction,
				Function: tools.ToolCallFunction{
					Name:      v.Name,
					Arguments: string(argsJSON),
				},
			})
		}
	}

	result := &GenerationResult{
		Content:   strings.TrimSpace(contentBuilder.String()),
		ToolCalls: toolCalls,
	}
	if resp.UsageMetadata != nil {
		result.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}
