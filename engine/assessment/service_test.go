package assessment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/config"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService(backend.New(&config.BackendConfig{
		BaseURL:        srv.URL,
		AuthToken:      config.SensitiveString("test-token"),
		Timeout:        5 * time.Second,
		MaxPageFetches: 5,
	}))
}

func TestService_ListAssessments(t *testing.T) {
	t.Run("Should project assessments and pass filters as query parameters", func(t *testing.T) {
		var gotQuery map[string]string
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = map[string]string{
				"category_name_contains": r.URL.Query().Get("category_name_contains"),
				"fields":                 r.URL.Query().Get("fields"),
			}
			w.Write([]byte(`{"items": [
				{"id": "a1", "name": "SOC2", "categoryName": "Security", "extra": "dropped"},
				{"id": "a2", "name": "Orphan"}
			]}`))
		})

		assessments, err := svc.ListAssessments(context.Background(), ListFilter{CategoryName: "Sec"})
		require.NoError(t, err)

		assert.Equal(t, "Sec", gotQuery["category_name_contains"])
		assert.Equal(t, "basic", gotQuery["fields"])
		// Items without a category are dropped from the projection.
		require.Len(t, assessments, 1)
		assert.Equal(t, Assessment{ID: "a1", Name: "SOC2", CategoryName: "Security"}, assessments[0])
	})
}

func TestService_Runs(t *testing.T) {
	runItems := `{"items": [
		{"id": "r1", "planId": "a1", "name": "August run", "status": "completed",
		 "computedScore": 87.5, "complianceStatus": "COMPLIANT", "createdAt": "2026-08-01T00:00:00Z"},
		{"id": "r2", "name": "no plan id, dropped"}
	]}`

	t.Run("Should project runs and default the page parameters", func(t *testing.T) {
		var gotPage, gotSize string
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			gotPage = r.URL.Query().Get("page")
			gotSize = r.URL.Query().Get("page_size")
			w.Write([]byte(runItems))
		})

		runs, err := svc.Runs(context.Background(), "a1", 0, 0)
		require.NoError(t, err)

		assert.Equal(t, "1", gotPage)
		assert.Equal(t, "10", gotSize)
		require.Len(t, runs, 1)
		assert.Equal(t, "r1", runs[0].ID)
		assert.Equal(t, "a1", runs[0].AssessmentID)
		assert.Equal(t, 87.5, runs[0].ComputedScore)
	})

	t.Run("Should cap the page size", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(runItems))
		})

		_, err := svc.Runs(context.Background(), "a1", 1, 25)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrValidation)
		assert.Contains(t, err.Error(), "max page size")
	})

	t.Run("Should bound the page number by the fetch limit", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(runItems))
		})

		_, err := svc.Runs(context.Background(), "a1", 50, 5)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("Should require an assessment id", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(runItems))
		})

		_, err := svc.RecentRuns(context.Background(), "")
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestService_LeafControls(t *testing.T) {
	t.Run("Should request leaf controls and rename displayable to controlNumber", func(t *testing.T) {
		var gotLeaf, gotRun string
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			gotLeaf = r.URL.Query().Get("is_leaf_control")
			gotRun = r.URL.Query().Get("plan_instance_id")
			w.Write([]byte(`{"items": [
				{"id": "c1", "name": "MFA enforced", "displayable": "1.2.3",
				 "alias": "mfa", "status": "open", "complianceStatus": "NON_COMPLIANT"}
			]}`))
		})

		controls, err := svc.LeafControls(context.Background(), "r1")
		require.NoError(t, err)

		assert.Equal(t, "true", gotLeaf)
		assert.Equal(t, "r1", gotRun)
		require.Len(t, controls, 1)
		assert.Equal(t, "1.2.3", controls[0].ControlNumber)
		assert.Equal(t, "mfa", controls[0].Alias)
	})
}

func TestService_SearchControls(t *testing.T) {
	t.Run("Should search by partial name with a fixed page size", func(t *testing.T) {
		var gotName, gotSize string
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			gotName = r.URL.Query().Get("control_name_contains")
			gotSize = r.URL.Query().Get("page_size")
			w.Write([]byte(`{"items": []}`))
		})

		controls, err := svc.SearchControls(context.Background(), "MFA")
		require.NoError(t, err)

		assert.Equal(t, "MFA", gotName)
		assert.Equal(t, "50", gotSize)
		assert.Empty(t, controls)
	})
}

func TestService_EvidenceRecords(t *testing.T) {
	records := []map[string]any{
		{"id": "e1", "ResourceID": "res-1", "ResourceName": "bucket-a", "ResourceType": "s3", "ComplianceStatus": "COMPLIANT"},
		{"ResourceID": "no-id-dropped"},
	}

	t.Run("Should decode the evidence file and project its records", func(t *testing.T) {
		var gotReq map[string]any
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&gotReq)
			raw, _ := json.Marshal(records)
			json.NewEncoder(w).Encode(map[string]string{
				"fileBytes": base64.StdEncoding.EncodeToString(raw),
			})
		})

		result, err := svc.EvidenceRecords(context.Background(), "ev-1")
		require.NoError(t, err)

		assert.Equal(t, "ev-1", gotReq["evidenceID"])
		assert.Equal(t, "evidence", gotReq["templateType"])
		assert.Equal(t, "json", gotReq["returnFormat"])
		require.Len(t, result, 1)
		assert.Equal(t, "bucket-a", result[0].ResourceName)
		assert.Equal(t, "COMPLIANT", result[0].ComplianceStatus)
	})

	t.Run("Should fail on responses without file content", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{}`))
		})

		_, err := svc.EvidenceRecords(context.Background(), "ev-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrBackend)
	})

	t.Run("Should fail when the decoded content is not a record list", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{
				"fileBytes": base64.StdEncoding.EncodeToString([]byte(`{"not": "a list"}`)),
			})
		})

		_, err := svc.EvidenceRecords(context.Background(), "ev-1")
		assert.ErrorIs(t, err, core.ErrBackend)
	})
}

func TestService_AvailableActions(t *testing.T) {
	t.Run("Should strip embedded rules from each action", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"items": [
				{"actionBindingId": "b1", "name": "Notify owner", "rules": [{"huge": "payload"}]},
				{"actionBindingId": "b2", "name": "Create ticket"}
			]}`))
		})

		actions, err := svc.AvailableActions(context.Background(), ActionQuery{AssessmentName: "SOC2"})
		require.NoError(t, err)

		require.Len(t, actions, 2)
		assert.NotContains(t, actions[0], "rules")
		assert.Equal(t, "Notify owner", actions[0]["name"])
	})

	t.Run("Should require the assessment name", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"items": []}`))
		})

		_, err := svc.AvailableActions(context.Background(), ActionQuery{})
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestService_ExecuteAction(t *testing.T) {
	t.Run("Should post the action binding with plan identifiers", func(t *testing.T) {
		var gotReq map[string]any
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&gotReq)
			w.Write([]byte(`{"executionId": "x1", "status": "queued"}`))
		})

		result, err := svc.ExecuteAction(context.Background(), ExecuteParams{
			AssessmentID:    "a1",
			RunID:           "r1",
			ActionBindingID: "b1",
		})
		require.NoError(t, err)

		assert.Equal(t, "b1", gotReq["actionBindingID"])
		assert.Equal(t, "r1", gotReq["planInstanceID"])
		assert.Equal(t, "a1", gotReq["planID"])
		assert.Equal(t, []any{}, gotReq["recordIDs"])
		assert.JSONEq(t, `{"executionId": "x1", "status": "queued"}`, string(result))
	})

	t.Run("Should require the identifying triple", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{}`))
		})

		_, err := svc.ExecuteAction(context.Background(), ExecuteParams{AssessmentID: "a1"})
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}
