package server

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCreateAssessment(t *testing.T) {
	t.Run("Should create the assessment and return the UI link", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.Contains(r.URL.Path, "plan-categories"):
				w.Write([]byte(`[{"id": "cat-1", "name": "Security"}]`))
			default:
				w.Write([]byte(`{"id": "plan-9"}`))
			}
		})

		result, err := s.handleCreateAssessment(context.Background(), toolRequest(map[string]any{
			"yaml_content": "metadata:\n  name: Access Review\n  categoryName: Security\n",
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		require.Equal(t, true, envelope["success"])
		created := envelope["assessment"].(map[string]any)
		assert.Equal(t, "plan-9", created["id"])
		assert.Contains(t, created["url"], "/ui/assessment-controls/plan-9")
		assert.Contains(t, envelope["next_action"], "create_control_config")
	})

	t.Run("Should surface a malformed definition as a validation failure", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {})

		result, err := s.handleCreateAssessment(context.Background(), toolRequest(map[string]any{
			"yaml_content": "metadata:\n  categoryName: Security\n",
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		assert.Equal(t, false, envelope["success"])
		assert.Equal(t, "validation", envelope["error_kind"])
	})
}

func TestHandleAttachCitation(t *testing.T) {
	args := map[string]any{
		"assessment_id":         "plan-9",
		"control_id":            "pc-7",
		"authority_document":    "NIST CSF",
		"authority_control_ids": []any{"ac-7"},
		"sort_id":               "00042",
		"control_names":         []any{"PR.AC-7"},
	}

	t.Run("Should return a preview without confirm", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			t.Fatal("no backend call expected before confirmation")
		})

		result, err := s.handleAttachCitation(context.Background(), toolRequest(args))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		require.Equal(t, true, envelope["success"])
		attach := envelope["result"].(map[string]any)
		assert.Equal(t, false, attach["attached"])
		assert.NotNil(t, attach["preview"])
	})

	t.Run("Should attach when confirmed", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.Path, "sync-ccfid") {
				w.Write([]byte(`{}`))
				return
			}
			w.Write([]byte(`{"items": [{"id": "cit-1", "planControlID": "pc-7"}]}`))
		})

		confirmed := map[string]any{"confirm": true}
		for k, v := range args {
			confirmed[k] = v
		}
		result, err := s.handleAttachCitation(context.Background(), toolRequest(confirmed))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		require.Equal(t, true, envelope["success"])
		attach := envelope["result"].(map[string]any)
		assert.Equal(t, true, attach["attached"])
	})
}

func TestHandleControlSourceSummary(t *testing.T) {
	t.Run("Should point at sample data when evidence is linked", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"controlId": "pc-7", "lineage": [{"originType": "linked", "recursionLevel": 1}]}`))
		})

		result, err := s.handleControlSourceSummary(context.Background(), toolRequest(map[string]any{
			"control_id": "pc-7",
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		require.Equal(t, true, envelope["success"])
		assert.Contains(t, envelope["next_action"], "get_evidence_sample_data")
	})

	t.Run("Should stop SQL automation when the lineage is empty", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"controlId": "pc-7", "lineage": []}`))
		})

		result, err := s.handleControlSourceSummary(context.Background(), toolRequest(map[string]any{
			"control_id": "pc-7",
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		require.Equal(t, true, envelope["success"])
		assert.Contains(t, envelope["next_action"], "cannot proceed")
	})
}

func TestHandleCreateSQLRule(t *testing.T) {
	t.Run("Should bind the rule parameters and return the creation result", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"ruleId": "rule-3", "evidenceId": "ev-5"}`))
		})

		result, err := s.handleCreateSQLRule(context.Background(), toolRequest(map[string]any{
			"control_config_id":         "pc-7",
			"sql_query":                 "SELECT 1",
			"referenced_evidence_names": []any{"UserList"},
			"new_evidence_name":         "UsersWithoutMFA",
			"confirm":                   true,
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		require.Equal(t, true, envelope["success"])
		created := envelope["result"].(map[string]any)
		assert.Equal(t, "rule-3", created["rule_id"])
	})

	t.Run("Should report a missing query as a validation failure", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {})

		result, err := s.handleCreateSQLRule(context.Background(), toolRequest(map[string]any{
			"control_config_id":         "pc-7",
			"referenced_evidence_names": []any{"UserList"},
			"new_evidence_name":         "UsersWithoutMFA",
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		assert.Equal(t, false, envelope["success"])
		assert.Equal(t, "validation", envelope["error_kind"])
	})
}

func TestHandleRuleReadme(t *testing.T) {
	t.Run("Should report an unknown rule as not found", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"items": []}`))
		})

		result, err := s.handleRuleReadme(context.Background(), toolRequest(map[string]any{
			"name": "Ghost",
		}))
		require.NoError(t, err)

		envelope := decodeEnvelope(t, result)
		assert.Equal(t, false, envelope["success"])
		assert.Equal(t, "not_found", envelope["error_kind"])
	})
}

func TestGraphSchemaResource(t *testing.T) {
	t.Run("Should serve the graph schema as JSON", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{
				"node_names": ["User", "Device"],
				"unique_property_values": {"User": {"status": ["active"]}},
				"neo4j_schema": "Node properties: ..."
			}`))
		})

		req := mcp.ReadResourceRequest{}
		req.Params.URI = "graph://schema"
		contents, err := s.handleGraphSchema(context.Background(), req)
		require.NoError(t, err)

		require.Len(t, contents, 1)
		text := contents[0].(mcp.TextResourceContents)
		assert.Equal(t, "application/json", text.MIMEType)
		assert.Contains(t, text.Text, `"Device"`)
		assert.Contains(t, text.Text, "neo4j_schema")
	})
}
