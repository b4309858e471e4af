package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dataops-hq/dataops-assistant/internal/api"
)

func catalogServer(t *testing.T, catalog api.ToolCatalog) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tools" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(catalog); err != nil {
			t.Errorf("encoding catalog: %v", err)
		}
	}))
}

func TestDiscover(t *testing.T) {
	catalog := api.ToolCatalog{
		Tools: []api.ToolDescriptor{
			{
				Name:        "get_pipeline_status",
				Description: "Get current status and recent run history of an ADF pipeline",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"pipeline_name":{"type":"string"}},"required":["pipeline_name"]}`),
			},
			{
				Name:        "fetch_logs",
				Description: "Fetch logs",
				InputSchema: json.RawMessage(`{"type":"object"}`),
			},
		},
		Count: 2,
	}
	srv := catalogServer(t, catalog)
	defer srv.Close()

	client := NewClient(srv.URL)
	declarations, err := client.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(declarations) != 2 {
		t.Fatalf("got %d declarations, want 2", len(declarations))
	}
	first := declarations[0]
	if first.Type != "function" || first.Function.Name != "get_pipeline_status" {
		t.Errorf("unexpected first declaration: %+v", first)
	}
	if first.Function.Parameters.Properties["pipeline_name"] == nil {
		t.Error("input schema was not decoded into parameters")
	}
	if len(first.Function.Parameters.Required) != 1 {
		t.Errorf("required = %v", first.Function.Parameters.Required)
	}
}

func TestDiscoverSkipsUnreadableSchemas(t *testing.T) {
	catalog := api.ToolCatalog{
		Tools: []api.ToolDescriptor{
			{Name: "broken", InputSchema: json.RawMessage(`"not a schema object"`)},
			{Name: "working", InputSchema: json.RawMessage(`{"type":"object"}`)},
		},
		Count: 2,
	}
	srv := catalogServer(t, catalog)
	defer srv.Close()

	declarations, err := NewClient(srv.URL).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(declarations) != 1 || declarations[0].Function.Name != "working" {
		t.Errorf("declarations = %+v, want only the working tool", declarations)
	}
}

func TestDiscoverErrors(t *testing.T) {
	t.Run("unreachable server", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1")
		_, err := client.Discover(context.Background())
		var discErr *DiscoveryError
		if !errors.As(err, &discErr) {
			t.Fatalf("error = %v, want *DiscoveryError", err)
		}
	})

	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Discover(context.Background())
		var discErr *DiscoveryError
		if !errors.As(err, &discErr) {
			t.Fatalf("error = %v, want *DiscoveryError", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Discover(context.Background())
		var discErr *DiscoveryError
		if !errors.As(err, &discErr) {
			t.Fatalf("error = %v, want *DiscoveryError", err)
		}
	})
}

func TestInvokeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req api.ToolExecutionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.ToolName != "get_pipeline_status" {
			t.Errorf("tool_name = %q", req.ToolName)
		}
		json.NewEncoder(w).Encode(api.ToolExecutionResponse{
			ToolName: req.ToolName,
			Success:  true,
			Result:   json.RawMessage(`{"last_run_status":"Succeeded"}`),
		})
	}))
	defer srv.Close()

	raw, err := NewClient(srv.URL).Invoke(context.Background(), "get_pipeline_status", `{"pipeline_name":"p"}`)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if result["last_run_status"] != "Succeeded" {
		t.Errorf("result = %v", result)
	}
}

func TestInvokeEmptyArgumentsSendEmptyObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.ToolExecutionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if string(req.InputData) != "{}" {
			t.Errorf("input_data = %s, want {}", req.InputData)
		}
		json.NewEncoder(w).Encode(api.ToolExecutionResponse{ToolName: req.ToolName, Success: true})
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Invoke(context.Background(), "fetch_logs", ""); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
}

func TestInvokeApplicationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(api.ToolExecutionResponse{
			ToolName: "get_secret_usage",
			Success:  false,
			Error:    "secret_name is required",
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Invoke(context.Background(), "get_secret_usage", `{}`)
	var execErr *ToolExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want *ToolExecutionError", err)
	}
	if execErr.Message != "secret_name is required" {
		t.Errorf("error message = %q", execErr.Message)
	}
}

func TestInvokeTransportFailures(t *testing.T) {
	t.Run("unreachable server", func(t *testing.T) {
		_, err := NewClient("http://127.0.0.1:1").Invoke(context.Background(), "fetch_logs", `{}`)
		var remoteErr *RemoteUnavailableError
		if !errors.As(err, &remoteErr) {
			t.Fatalf("error = %v, want *RemoteUnavailableError", err)
		}
	})

	t.Run("5xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Invoke(context.Background(), "fetch_logs", `{}`)
		var remoteErr *RemoteUnavailableError
		if !errors.As(err, &remoteErr) {
			t.Fatalf("error = %v, want *RemoteUnavailableError", err)
		}
	})
}
