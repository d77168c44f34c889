package assessment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policycow/cowmcp/engine/core"
)

func TestService_CreateSQLRule(t *testing.T) {
	params := SQLRuleParams{
		ControlConfigID:         "pc-7",
		SQLQuery:                "SELECT * FROM users WHERE mfa_enabled = false",
		ReferencedEvidenceNames: []string{"UserList"},
		NewEvidenceName:         "UsersWithoutMFA",
	}

	t.Run("Should preview the rule and persist nothing without confirmation", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			t.Fatal("no backend call expected before confirmation")
		})

		result, err := svc.CreateSQLRule(context.Background(), params)
		require.NoError(t, err)

		assert.False(t, result.Created)
		assert.Equal(t, params.SQLQuery, result.SQLQuery)
		assert.Contains(t, result.NextStep, "confirm=true")
	})

	t.Run("Should create the rule against the control's endpoint when confirmed", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]any
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"ruleId": "rule-3", "evidenceId": "ev-5"}`))
		})

		confirmed := params
		confirmed.Confirm = true
		result, err := svc.CreateSQLRule(context.Background(), confirmed)
		require.NoError(t, err)

		assert.Contains(t, gotPath, "plan-controls/pc-7/create-sql-rule-evidence")
		assert.Equal(t, params.SQLQuery, gotBody["sqlQuery"])
		assert.Equal(t, "UsersWithoutMFA", gotBody["evidenceName"])
		assert.Equal(t, []any{"UserList"}, gotBody["referedEvidenceNames"])

		assert.True(t, result.Created)
		assert.Equal(t, "rule-3", result.RuleID)
		assert.Equal(t, "ev-5", result.EvidenceID)
	})

	t.Run("Should fail when the backend returns no rule id", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{}`))
		})

		confirmed := params
		confirmed.Confirm = true
		_, err := svc.CreateSQLRule(context.Background(), confirmed)
		assert.ErrorIs(t, err, core.ErrBackend)
	})

	t.Run("Should require the referenced evidence names", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {})

		incomplete := params
		incomplete.ReferencedEvidenceNames = nil
		_, err := svc.CreateSQLRule(context.Background(), incomplete)
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestService_ControlSourceSummaryFor(t *testing.T) {
	t.Run("Should decode the lineage graph with evidence schemas", func(t *testing.T) {
		var gotBody map[string]any
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{
				"assessmentId": "plan-9", "assessmentName": "Access Review",
				"controlId": "pc-7", "controlName": "MFA enforced",
				"lineage": [{
					"originType": "linked", "recursionLevel": 1,
					"linkedFrom": [{
						"assessmentId": "plan-2", "assessmentName": "User Inventory",
						"controlId": "pc-2", "controlName": "List users",
						"referenceType": "ccf",
						"evidences": [{
							"id": "ev-1", "name": "UserList", "fileName": "UserList.parquet",
							"columnsInfo": [{"name": "mfa_enabled", "type": "BOOLEAN", "fieldOrder": 3}]
						}],
						"rule": {"ruleId": "rule-1", "ruleName": "FetchUsers"}
					}]
				}]
			}`))
		})

		summary, err := svc.ControlSourceSummaryFor(context.Background(), "pc-7")
		require.NoError(t, err)

		assert.Equal(t, "pc-7", gotBody["controlID"])
		assert.True(t, summary.HasLinkedEvidence())
		require.Len(t, summary.Lineage, 1)
		require.Len(t, summary.Lineage[0].LinkedFrom, 1)
		linked := summary.Lineage[0].LinkedFrom[0]
		assert.Equal(t, "List users", linked.ControlName)
		require.Len(t, linked.Evidences, 1)
		assert.Equal(t, "mfa_enabled", linked.Evidences[0].ColumnsInfo[0].Name)
		require.NotNil(t, linked.Rule)
		assert.Equal(t, "rule-1", linked.Rule.RuleID)
	})

	t.Run("Should report an empty lineage as having no linked evidence", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"assessmentId": "plan-9", "controlId": "pc-7", "lineage": []}`))
		})

		summary, err := svc.ControlSourceSummaryFor(context.Background(), "pc-7")
		require.NoError(t, err)
		assert.False(t, summary.HasLinkedEvidence())
	})

	t.Run("Should require a control id", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {})

		_, err := svc.ControlSourceSummaryFor(context.Background(), "")
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestService_EvidenceSampleData(t *testing.T) {
	t.Run("Should post the record count and pass evidence names through", func(t *testing.T) {
		var gotBody map[string]any
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`[{"evidenceName": "UserList", "records": [{"id": "u1"}]}]`))
		})

		samples, err := svc.EvidenceSampleData(context.Background(), "pc-7", []string{"UserList"}, 5)
		require.NoError(t, err)

		assert.Equal(t, "pc-7", gotBody["controlID"])
		assert.Equal(t, float64(5), gotBody["records"])
		assert.Equal(t, []any{"UserList"}, gotBody["evidenceNames"])
		assert.True(t, samples.HasSamples)
		assert.Equal(t, 5, samples.RecordCount)
	})

	t.Run("Should fall back to the default record count when out of range", func(t *testing.T) {
		var gotBody map[string]any
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`[]`))
		})

		samples, err := svc.EvidenceSampleData(context.Background(), "pc-7", nil, 50)
		require.NoError(t, err)

		assert.Equal(t, float64(3), gotBody["records"])
		assert.False(t, samples.HasSamples)
	})

	t.Run("Should fail when the response is not a list", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"error": "unexpected"}`))
		})

		_, err := svc.EvidenceSampleData(context.Background(), "pc-7", nil, 3)
		assert.ErrorIs(t, err, core.ErrBackend)
	})
}

func TestService_RuleReadmeFor(t *testing.T) {
	t.Run("Should resolve the readme hash and decode the file content", func(t *testing.T) {
		readme := "# FetchUsers\nCollects the user list."
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.Contains(r.URL.Path, "files/"):
				assert.True(t, strings.HasSuffix(r.URL.Path, "/abc123"), r.URL.Path)
				encoded := base64.StdEncoding.EncodeToString([]byte(readme))
				w.Write([]byte(`{"FileContent": "` + encoded + `"}`))
			default:
				assert.Equal(t, "FetchUsers", r.URL.Query().Get("name"))
				w.Write([]byte(`{"items": [{"name": "FetchUsers", "readme": "abc123"}]}`))
			}
		})

		got, err := svc.RuleReadmeFor(context.Background(), "FetchUsers")
		require.NoError(t, err)

		assert.Equal(t, "FetchUsers", got.RuleName)
		assert.Equal(t, readme, got.Readme)
	})

	t.Run("Should keep the file content raw when it is not base64", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.Path, "files/") {
				w.Write([]byte(`{"FileContent": "# plain markdown, not encoded!"}`))
				return
			}
			w.Write([]byte(`{"items": [{"name": "FetchUsers", "readme": "abc123"}]}`))
		})

		got, err := svc.RuleReadmeFor(context.Background(), "FetchUsers")
		require.NoError(t, err)
		assert.Equal(t, "# plain markdown, not encoded!", got.Readme)
	})

	t.Run("Should report a missing rule as not found", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"items": []}`))
		})

		_, err := svc.RuleReadmeFor(context.Background(), "Ghost")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("Should report a rule without a readme as not found", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"items": [{"name": "FetchUsers"}]}`))
		})

		_, err := svc.RuleReadmeFor(context.Background(), "FetchUsers")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestService_GraphSchemaFor(t *testing.T) {
	t.Run("Should post the question and decode the schema sections", func(t *testing.T) {
		var gotBody map[string]any
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{
				"node_names": ["User", "Device"],
				"unique_property_values": {"User": {"status": ["active"]}},
				"neo4j_schema": "Node properties: ..."
			}`))
		})

		schema, err := svc.GraphSchemaFor(context.Background(), "which users lack MFA?")
		require.NoError(t, err)

		assert.Equal(t, "which users lack MFA?", gotBody["user_question"])
		assert.JSONEq(t, `["User", "Device"]`, string(schema.NodeNames))
		assert.JSONEq(t, `"Node properties: ..."`, string(schema.Neo4jSchema))
	})
}

func TestService_AssessmentContext(t *testing.T) {
	t.Run("Should return the entity context unprojected", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.Write([]byte(`{"entities": [{"name": "Production CMDB"}]}`))
		})

		raw, err := svc.AssessmentContext(context.Background())
		require.NoError(t, err)
		assert.JSONEq(t, `{"entities": [{"name": "Production CMDB"}]}`, string(raw))
	})
}
