package assessment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/logger"
)

const (
	defaultPageSize = 10
	maxPageSize     = 10
	searchPageSize  = 50
)

// Service exposes read-mostly views over assessments, runs, controls, and
// evidence, plus action discovery and execution. Every response is reshaped
// into a small projection before it reaches the caller.
type Service struct {
	backend *backend.Client
}

// NewService creates the assessment service over the backend client.
func NewService(b *backend.Client) *Service {
	return &Service{backend: b}
}

// ListAssessments returns assessments matching the filter. Items without a
// name or category are dropped from the projection.
func (s *Service) ListAssessments(ctx context.Context, filter ListFilter) ([]Assessment, error) {
	body, err := s.backend.Get(ctx, backend.PathAssessments, map[string]string{
		"fields":                 "basic",
		"category_id":            filter.CategoryID,
		"category_name_contains": filter.CategoryName,
		"name_contains":          filter.AssessmentName,
	})
	if err != nil {
		return nil, err
	}

	assessments := []Assessment{}
	for _, item := range gjson.GetBytes(body, "items").Array() {
		if !item.Get("name").Exists() || !item.Get("categoryName").Exists() {
			continue
		}
		assessments = append(assessments, Assessment{
			ID:           item.Get("id").String(),
			Name:         item.Get("name").String(),
			CategoryName: item.Get("categoryName").String(),
		})
	}
	logger.FromContext(ctx).Debug("assessments listed", "count", len(assessments))
	return assessments, nil
}

// RecentRuns returns the first page of runs for an assessment, newest
// first per backend ordering.
func (s *Service) RecentRuns(ctx context.Context, assessmentID string) ([]Run, error) {
	if assessmentID == "" {
		return nil, core.Validationf("assessment id is required")
	}
	return s.fetchRuns(ctx, assessmentID, 1, defaultPageSize)
}

// Runs returns one page of runs for an assessment. Page defaults to 1 and
// the page size is capped; the page number itself is bounded by the
// configured fetch limit.
func (s *Service) Runs(ctx context.Context, assessmentID string, page, pageSize int) ([]Run, error) {
	if assessmentID == "" {
		return nil, core.Validationf("assessment id is required")
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		return nil, core.Validationf("max page size is %d", maxPageSize)
	}
	if page > s.backend.MaxPageFetches() {
		return nil, core.Validationf("page %d exceeds the configured fetch limit of %d", page, s.backend.MaxPageFetches())
	}
	return s.fetchRuns(ctx, assessmentID, page, pageSize)
}

func (s *Service) fetchRuns(ctx context.Context, assessmentID string, page, pageSize int) ([]Run, error) {
	body, err := s.backend.Get(ctx, backend.PathPlanInstances, map[string]string{
		"fields":    "basic",
		"page":      strconv.Itoa(page),
		"page_size": strconv.Itoa(pageSize),
		"plan_id":   assessmentID,
	})
	if err != nil {
		return nil, err
	}

	runs := []Run{}
	for _, item := range gjson.GetBytes(body, "items").Array() {
		if !item.Get("planId").Exists() || !item.Get("id").Exists() {
			continue
		}
		runs = append(runs, Run{
			ID:               item.Get("id").String(),
			Name:             item.Get("name").String(),
			Description:      item.Get("description").String(),
			AssessmentID:     item.Get("planId").String(),
			ApplicationType:  item.Get("applicationType").String(),
			ConfigID:         item.Get("configId").String(),
			FromDate:         item.Get("fromDate").String(),
			ToDate:           item.Get("toDate").String(),
			Started:          item.Get("started").String(),
			Ended:            item.Get("ended").String(),
			Status:           item.Get("status").String(),
			ComputedScore:    item.Get("computedScore").Float(),
			ComputedWeight:   item.Get("computedWeight").Float(),
			ComplianceStatus: item.Get("complianceStatus").String(),
			CreatedAt:        item.Get("createdAt").String(),
		})
	}
	return runs, nil
}

// LeafControls returns the leaf controls of an assessment run.
func (s *Service) LeafControls(ctx context.Context, runID string) ([]Control, error) {
	if runID == "" {
		return nil, core.Validationf("assessment run id is required")
	}
	body, err := s.backend.Get(ctx, backend.PathPlanInstanceControls, map[string]string{
		"fields":           "basic",
		"is_leaf_control":  "true",
		"plan_instance_id": runID,
	})
	if err != nil {
		return nil, err
	}
	return projectControls(body), nil
}

// SearchControls returns controls whose names contain the given fragment,
// across all runs.
func (s *Service) SearchControls(ctx context.Context, name string) ([]Control, error) {
	if name == "" {
		return nil, core.Validationf("control name is required")
	}
	body, err := s.backend.Get(ctx, backend.PathPlanInstanceControls, map[string]string{
		"fields":                "basic",
		"control_name_contains": name,
		"page":                  "1",
		"page_size":             strconv.Itoa(searchPageSize),
	})
	if err != nil {
		return nil, err
	}
	return projectControls(body), nil
}

func projectControls(body []byte) []Control {
	controls := []Control{}
	for _, item := range gjson.GetBytes(body, "items").Array() {
		if !item.Get("id").Exists() || !item.Get("name").Exists() {
			continue
		}
		controls = append(controls, Control{
			ID:               item.Get("id").String(),
			Name:             item.Get("name").String(),
			ControlNumber:    item.Get("displayable").String(),
			Alias:            item.Get("alias").String(),
			Priority:         item.Get("priority").String(),
			Status:           item.Get("status").String(),
			DueDate:          item.Get("dueDate").String(),
			ComplianceStatus: item.Get("complianceStatus").String(),
		})
	}
	return controls
}

// ControlPlanData returns the assessment and run metadata of a control,
// unprojected.
func (s *Service) ControlPlanData(ctx context.Context, controlID string) (json.RawMessage, error) {
	if controlID == "" {
		return nil, core.Validationf("control id is required")
	}
	body, err := s.backend.Get(ctx, backend.PathPlanInstanceControls+"/"+controlID+"/plan-data", nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// ControlEvidence returns the evidence entries attached to a run control.
func (s *Service) ControlEvidence(ctx context.Context, runControlID string) ([]Evidence, error) {
	if runControlID == "" {
		return nil, core.Validationf("assessment run control id is required")
	}
	body, err := s.backend.Get(ctx, backend.PathPlanInstanceEvidences, map[string]string{
		"plan_instance_control_id": runControlID,
	})
	if err != nil {
		return nil, err
	}

	evidences := []Evidence{}
	for _, item := range gjson.GetBytes(body, "items").Array() {
		if !item.Get("id").Exists() || !item.Get("name").Exists() {
			continue
		}
		evidences = append(evidences, Evidence{
			ID:          item.Get("id").String(),
			Name:        item.Get("name").String(),
			Description: item.Get("description").String(),
			FileName:    item.Get("fileName").String(),
		})
	}
	return evidences, nil
}

type fetchDataRequest struct {
	EvidenceID                  string   `json:"evidenceID"`
	TemplateType                string   `json:"templateType"`
	Status                      []string `json:"status"`
	ReturnFormat                string   `json:"returnFormat"`
	IsSrcFetchCall              bool     `json:"isSrcFetchCall"`
	IsUserPriority              bool     `json:"isUserPriority"`
	ConsiderFileSizeRestriction bool     `json:"considerFileSizeRestriction"`
	ViewEvidenceFlow            bool     `json:"viewEvidenceFlow"`
}

// EvidenceRecords fetches an evidence file, decodes it, and projects each
// row down to resource identity and compliance status.
func (s *Service) EvidenceRecords(ctx context.Context, evidenceID string) ([]EvidenceRecord, error) {
	if evidenceID == "" {
		return nil, core.Validationf("evidence id is required")
	}
	body, err := s.backend.Post(ctx, backend.PathDataHandlerFetchData, &fetchDataRequest{
		EvidenceID:                  evidenceID,
		TemplateType:                "evidence",
		Status:                      []string{"active"},
		ReturnFormat:                "json",
		IsSrcFetchCall:              true,
		IsUserPriority:              true,
		ConsiderFileSizeRestriction: true,
		ViewEvidenceFlow:            true,
	})
	if err != nil {
		return nil, err
	}

	encoded := gjson.GetBytes(body, "fileBytes").String()
	if encoded == "" {
		return nil, core.Backendf("evidence '%s' returned no file content", evidenceID)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, core.Backendf("evidence '%s' file content is not valid base64: %v", evidenceID, err)
	}

	records := []EvidenceRecord{}
	parsed := gjson.ParseBytes(decoded)
	if !parsed.IsArray() {
		return nil, core.Backendf("evidence '%s' file content is not a JSON record list", evidenceID)
	}
	for _, item := range parsed.Array() {
		if !item.Get("id").Exists() {
			continue
		}
		records = append(records, EvidenceRecord{
			ID:               item.Get("id").String(),
			ResourceID:       item.Get("ResourceID").String(),
			ResourceName:     item.Get("ResourceName").String(),
			ResourceType:     item.Get("ResourceType").String(),
			ComplianceStatus: item.Get("ComplianceStatus").String(),
		})
	}
	logger.FromContext(ctx).Debug("evidence records decoded", "evidence", evidenceID, "count", len(records))
	return records, nil
}

type availableActionsRequest struct {
	ActionType     string `json:"actionType"`
	AssessmentName string `json:"assessmentName"`
	ControlNumber  string `json:"controlNumber"`
	ControlAlias   string `json:"controlAlias"`
	EvidenceName   string `json:"evidenceName"`
	IsRulesReq     bool   `json:"isRulesReq"`
	TriggerType    string `json:"triggerType"`
}

// AvailableActions lists the actions that can be triggered at the given
// level. The embedded rule definitions are stripped from each action; they
// are large and irrelevant to action selection.
func (s *Service) AvailableActions(ctx context.Context, query ActionQuery) ([]map[string]any, error) {
	if query.AssessmentName == "" {
		return nil, core.Validationf("assessment name is required")
	}
	body, err := s.backend.Post(ctx, backend.PathAvailableActions, &availableActionsRequest{
		ActionType:     "action",
		AssessmentName: query.AssessmentName,
		ControlNumber:  query.ControlNumber,
		ControlAlias:   query.ControlAlias,
		EvidenceName:   query.EvidenceName,
		IsRulesReq:     true,
		TriggerType:    "userAction",
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, core.Backendf("decode available actions: %v", err)
	}
	for _, action := range envelope.Items {
		delete(action, "rules")
	}
	return envelope.Items, nil
}

type executeActionRequest struct {
	ActionBindingID               string   `json:"actionBindingID"`
	PlanInstanceID                string   `json:"planInstanceID"`
	PlanID                        string   `json:"planID"`
	PlanInstanceControlID         string   `json:"planInstanceControlID"`
	PlanInstanceControlEvidenceID string   `json:"planInstanceControlEvidenceID"`
	RecordIDs                     []string `json:"recordIDs"`
	Rules                         []any    `json:"rules"`
}

// ExecuteAction triggers one action at assessment, control, or evidence
// level and returns the execution response unprojected.
func (s *Service) ExecuteAction(ctx context.Context, params ExecuteParams) (json.RawMessage, error) {
	if params.AssessmentID == "" || params.RunID == "" || params.ActionBindingID == "" {
		return nil, core.Validationf("assessment id, assessment run id, and action binding id are required")
	}
	recordIDs := params.EvidenceRecordIDs
	if recordIDs == nil {
		recordIDs = []string{}
	}
	body, err := s.backend.Post(ctx, backend.PathActionExecutions, &executeActionRequest{
		ActionBindingID:               params.ActionBindingID,
		PlanInstanceID:                params.RunID,
		PlanID:                        params.AssessmentID,
		PlanInstanceControlID:         params.RunControlID,
		PlanInstanceControlEvidenceID: params.RunControlEvidenceID,
		RecordIDs:                     recordIDs,
		Rules:                         []any{},
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
