package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policycow/cowmcp/pkg/config"
	"github.com/policycow/cowmcp/pkg/logger"
)

const catalogItems = `{"items": [
	{"name": "FetchData", "description": "Fetches records from an API. Supports pagination.",
	 "appTags": {"appType": ["Slack"]},
	 "inputs": [
		{"name": "Source", "description": "Where to fetch from", "dataType": "STRING", "required": true},
		{"name": "QueryConfig", "description": "Query configuration", "dataType": "FILE", "format": "json"}
	 ],
	 "outputs": [{"name": "Records", "description": "Fetched records", "dataType": "FILE"}],
	 "tags": ["primitive", "data-collection"]}
]}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Backend.BaseURL = srv.URL
	cfg.Backend.AuthToken = config.SensitiveString("test-token")
	cfg.Backend.Timeout = 5 * time.Second

	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel})
	return New(cfg, log)
}

func catalogHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if name := r.URL.Query().Get("name"); name != "" && name != "FetchData" {
			w.Write([]byte(`{"items": []}`))
			return
		}
		w.Write([]byte(catalogItems))
	}
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func decodeEnvelope(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &envelope))
	return envelope
}

func TestHandleGetTaskDetails(t *testing.T) {
	t.Run("Should return a success envelope with the task projection", func(t *testing.T) {
		s := newTestServer(t, catalogHandler(t))

		result, err := s.handleGetTaskDetails(context.Background(), toolRequest(map[string]any{
			"task_name": "FetchData",
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		assert.Equal(t, true, envelope["success"])

		task := envelope["task"].(map[string]any)
		assert.Equal(t, "FetchData", task["name"])
		assert.Equal(t, "Slack", task["integration_info"].(map[string]any)["app_type"])
		assert.Len(t, task["inputs"], 2)
	})

	t.Run("Should convert lookup failures into success false, not protocol errors", func(t *testing.T) {
		s := newTestServer(t, catalogHandler(t))

		result, err := s.handleGetTaskDetails(context.Background(), toolRequest(map[string]any{
			"task_name": "NoSuchTask",
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		assert.Equal(t, false, envelope["success"])
		assert.Equal(t, "not_found", envelope["error_kind"])
		assert.Contains(t, envelope["error"], "NoSuchTask")
	})

	t.Run("Should report missing arguments as validation failures", func(t *testing.T) {
		s := newTestServer(t, catalogHandler(t))

		result, err := s.handleGetTaskDetails(context.Background(), toolRequest(nil))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		assert.Equal(t, false, envelope["success"])
		assert.Equal(t, "validation", envelope["error_kind"])
	})
}

func TestHandleVerifyInputs(t *testing.T) {
	t.Run("Should bind the collected inputs object and aggregate it", func(t *testing.T) {
		s := newTestServer(t, catalogHandler(t))

		result, err := s.handleVerifyInputs(context.Background(), toolRequest(map[string]any{
			"collected_inputs": map[string]any{
				"parameter_values": map[string]any{
					"FetchData.Source": map[string]any{
						"value": "api", "data_type": "STRING", "required": true,
					},
				},
			},
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		require.Equal(t, true, envelope["success"])

		verification := envelope["verification"].(map[string]any)
		assert.Equal(t, true, verification["ready_for_creation"])
		structured := verification["structured_inputs"].(map[string]any)
		assert.Equal(t, "api", structured["Source"])
	})
}

func TestHandleRuns(t *testing.T) {
	t.Run("Should surface the page size cap as a validation failure", func(t *testing.T) {
		s := newTestServer(t, catalogHandler(t))

		result, err := s.handleRuns(context.Background(), toolRequest(map[string]any{
			"id": "a1", "page": 1, "page_size": 50,
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		assert.Equal(t, false, envelope["success"])
		assert.Equal(t, "validation", envelope["error_kind"])
	})
}

func TestHandleCollectParameter(t *testing.T) {
	t.Run("Should treat an explicitly empty user value as a value, not a prompt", func(t *testing.T) {
		s := newTestServer(t, catalogHandler(t))

		result, err := s.handleCollectParameter(context.Background(), toolRequest(map[string]any{
			"task_name": "FetchData", "input_name": "Source", "user_value": "",
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		require.Equal(t, true, envelope["success"])
		collection := envelope["collection"].(map[string]any)
		assert.Equal(t, true, collection["needs_final_confirmation"])
		assert.Nil(t, collection["needs_user_input"])
	})

	t.Run("Should prompt when the user value is omitted entirely", func(t *testing.T) {
		s := newTestServer(t, catalogHandler(t))

		result, err := s.handleCollectParameter(context.Background(), toolRequest(map[string]any{
			"task_name": "FetchData", "input_name": "Source",
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		require.Equal(t, true, envelope["success"])
		collection := envelope["collection"].(map[string]any)
		assert.Equal(t, true, collection["needs_user_input"])
		assert.Nil(t, collection["needs_final_confirmation"])
	})
}

func TestTaskResources(t *testing.T) {
	t.Run("Should serve the catalog summary as JSON", func(t *testing.T) {
		s := newTestServer(t, catalogHandler(t))

		req := mcp.ReadResourceRequest{}
		req.Params.URI = "tasks://summary"
		contents, err := s.handleTaskSummary(context.Background(), req)
		require.NoError(t, err)

		require.Len(t, contents, 1)
		text := contents[0].(mcp.TextResourceContents)
		assert.Equal(t, "application/json", text.MIMEType)
		assert.Contains(t, text.Text, `"FetchData"`)
		assert.Contains(t, text.Text, `"template_inputs": 1`)
	})

	t.Run("Should resolve task details from the URI template", func(t *testing.T) {
		s := newTestServer(t, catalogHandler(t))

		req := mcp.ReadResourceRequest{}
		req.Params.URI = "tasks://details/FetchData"
		contents, err := s.handleTaskDetailsResource(context.Background(), req)
		require.NoError(t, err)

		text := contents[0].(mcp.TextResourceContents)
		assert.Contains(t, text.Text, `"QueryConfig"`)
	})

	t.Run("Should group tasks by catalog tag", func(t *testing.T) {
		s := newTestServer(t, catalogHandler(t))

		req := mcp.ReadResourceRequest{}
		req.Params.URI = "tasks://by-category/data-collection"
		contents, err := s.handleTasksByCategory(context.Background(), req)
		require.NoError(t, err)

		text := contents[0].(mcp.TextResourceContents)
		assert.Contains(t, text.Text, "FetchData")
	})
}

func TestServerWiring(t *testing.T) {
	t.Run("Should construct without a reachable backend", func(t *testing.T) {
		cfg := config.Default()
		cfg.Backend.AuthToken = config.SensitiveString("token")
		s := New(cfg, logger.NewLogger(&logger.Config{Level: logger.ErrorLevel}))

		require.NotNil(t, s.mcp)
		assert.False(t, strings.Contains(Version, " "))
	})
}
