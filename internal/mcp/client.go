// Package mcp implements the tool execution gateway: an HTTP client for the
// MCP server that discovers the remote tool catalog and dispatches single
// tool invocations. It is the only place where the tool server's REST
// contract and the reasoning model's function-declaration format meet.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/dataops-hq/dataops-assistant/internal/api"
	"github.com/dataops-hq/dataops-assistant/internal/tools"
)

const defaultTimeout = 30 * time.Second

// Client talks to one MCP server. The underlying HTTP client pools
// connections and is safe for concurrent reuse across orchestration runs.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the MCP server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Discover fetches the remote tool catalog and reshapes it into the
// function-declaration format the reasoning gateway requires. It is called
// once per orchestration run — not cached across runs, since tool
// availability may change between requests. Failure is a *DiscoveryError.
func (c *Client) Discover(ctx context.Context) ([]tools.Tool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tools", nil)
	if err != nil {
		return nil, &DiscoveryError{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &DiscoveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DiscoveryError{Err: fmt.Errorf("tool server returned status %d", resp.StatusCode)}
	}

	var catalog api.ToolCatalog
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return nil, &DiscoveryError{Err: fmt.Errorf("malformed catalog: %w", err)}
	}

	declarations := make([]tools.Tool, 0, len(catalog.Tools))
	for _, t := range catalog.Tools {
		var params tools.JSONSchema
		if len(t.InputSchema) > 0 {
			if err := json.Unmarshal(t.InputSchema, &params); err != nil {
				log.Printf("Warning: skipping tool %s with unreadable input schema: %v", t.Name, err)
				continue
			}
		}
		declarations = append(declarations, tools.NewFunctionTool(t.Name, t.Description, params))
	}
	return declarations, nil
}

// Invoke sends a single tool-invocation request and returns the raw result
// payload. Transport failures map to *RemoteUnavailableError and an
// application-level {success:false} envelope maps to *ToolExecutionError —
// both recoverable from the controller's perspective.
func (c *Client) Invoke(ctx context.Context, name string, arguments string) (json.RawMessage, error) {
	input := json.RawMessage(arguments)
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	body, err := json.Marshal(api.ToolExecutionRequest{
		ToolName:  name,
		InputData: input,
	})
	if err != nil {
		return nil, &ToolExecutionError{Tool: name, Message: fmt.Sprintf("unencodable arguments: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, &RemoteUnavailableError{Tool: name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteUnavailableError{Tool: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteUnavailableError{Tool: name, Err: fmt.Errorf("tool server returned status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteUnavailableError{Tool: name, Err: err}
	}

	var envelope api.ToolExecutionResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &RemoteUnavailableError{Tool: name, Err: fmt.Errorf("malformed execution envelope: %w", err)}
	}
	if !envelope.Success {
		return nil, &ToolExecutionError{Tool: name, Message: envelope.Error}
	}
	return envelope.Result, nil
}
