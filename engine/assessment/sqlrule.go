package assessment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/logger"
)

const (
	defaultSampleRecords = 3
	maxSampleRecords     = 10
)

// SQLRuleParams describes a SQL rule to create and attach to a control
// config. The referenced evidence names are the table names the query reads
// from; the new evidence name receives the query output.
type SQLRuleParams struct {
	ControlConfigID         string   `json:"control_config_id"`
	SQLQuery                string   `json:"sql_query"`
	ReferencedEvidenceNames []string `json:"referenced_evidence_names"`
	NewEvidenceName         string   `json:"new_evidence_name"`
	Confirm                 bool     `json:"confirm"`
}

// SQLRuleResult is the outcome of a SQL rule call. Without Confirm the rule
// comes back as a preview and nothing is persisted.
type SQLRuleResult struct {
	Created                 bool     `json:"created"`
	RuleID                  string   `json:"rule_id,omitempty"`
	EvidenceID              string   `json:"evidence_id,omitempty"`
	ControlConfigID         string   `json:"control_config_id"`
	SQLQuery                string   `json:"sql_query"`
	NewEvidenceName         string   `json:"new_evidence_name"`
	ReferencedEvidenceNames []string `json:"referenced_evidence_names"`
	Message                 string   `json:"message"`
	NextStep                string   `json:"next_step,omitempty"`
}

type createSQLRuleRequest struct {
	SQLQuery             string   `json:"sqlQuery"`
	EvidenceName         string   `json:"evidenceName"`
	ReferedEvidenceNames []string `json:"referedEvidenceNames"`
}

// CreateSQLRule creates a SQL rule on a control config together with the
// evidence config that stores its output. The query is previewed first;
// only a confirmed call creates anything.
func (s *Service) CreateSQLRule(ctx context.Context, params SQLRuleParams) (*SQLRuleResult, error) {
	if strings.TrimSpace(params.ControlConfigID) == "" {
		return nil, core.Validationf("control config id is required")
	}
	if strings.TrimSpace(params.SQLQuery) == "" {
		return nil, core.Validationf("sql query is required")
	}
	if len(params.ReferencedEvidenceNames) == 0 {
		return nil, core.Validationf("referenced evidence names must be a non-empty list")
	}
	if strings.TrimSpace(params.NewEvidenceName) == "" {
		return nil, core.Validationf("new evidence name is required")
	}

	controlConfigID := strings.TrimSpace(params.ControlConfigID)
	query := strings.TrimSpace(params.SQLQuery)
	evidenceName := strings.TrimSpace(params.NewEvidenceName)
	referenced := trimAll(params.ReferencedEvidenceNames)

	if !params.Confirm {
		return &SQLRuleResult{
			Created:                 false,
			ControlConfigID:         controlConfigID,
			SQLQuery:                query,
			NewEvidenceName:         evidenceName,
			ReferencedEvidenceNames: referenced,
			Message:                 "Confirmation required before creating SQL rule",
			NextStep:                "Review the SQL above; re-run with confirm=true to create and attach the rule, or pass an updated query first",
		}, nil
	}

	body, err := s.backend.Post(ctx, backend.PathPlanControls+"/"+controlConfigID+"/create-sql-rule-evidence", &createSQLRuleRequest{
		SQLQuery:             query,
		EvidenceName:         evidenceName,
		ReferedEvidenceNames: referenced,
	})
	if err != nil {
		return nil, err
	}
	ruleID := gjson.GetBytes(body, "ruleId").String()
	if ruleID == "" {
		return nil, core.Backendf("sql rule creation returned no rule id")
	}
	logger.FromContext(ctx).Info("sql rule created", "control", controlConfigID, "rule", ruleID)

	return &SQLRuleResult{
		Created:                 true,
		RuleID:                  ruleID,
		EvidenceID:              gjson.GetBytes(body, "evidenceId").String(),
		ControlConfigID:         controlConfigID,
		SQLQuery:                query,
		NewEvidenceName:         evidenceName,
		ReferencedEvidenceNames: referenced,
		Message:                 "SQL rule and evidence config created successfully",
		NextStep:                "Optionally document the rule on the control with a note",
	}, nil
}

// EvidenceColumn describes one column of an evidence schema.
type EvidenceColumn struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Mode          string `json:"mode"`
	FieldDataType string `json:"fieldDataType"`
	FieldOrder    int    `json:"fieldOrder"`
}

// LinkedEvidence is an evidence config reachable from a control, including
// its schema.
type LinkedEvidence struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	FileName    string           `json:"fileName"`
	ColumnsInfo []EvidenceColumn `json:"columnsInfo,omitempty"`
}

// LinkedRule identifies a rule attached to a linked control.
type LinkedRule struct {
	RuleID          string `json:"ruleId"`
	RuleName        string `json:"ruleName"`
	RuleDescription string `json:"ruleDescription"`
}

// LinkedControl is one control reached while walking a control's lineage.
type LinkedControl struct {
	AssessmentID       string           `json:"assessmentId"`
	AssessmentName     string           `json:"assessmentName"`
	ControlID          string           `json:"controlId"`
	ControlName        string           `json:"controlName"`
	ControlDescription string           `json:"controlDescription"`
	ReferenceType      string           `json:"referenceType"`
	Lineage            []ControlLineage `json:"lineage,omitempty"`
	Evidences          []LinkedEvidence `json:"evidences,omitempty"`
	Rule               *LinkedRule      `json:"rule,omitempty"`
}

// ControlLineage is one lineage level of a control's source graph.
type ControlLineage struct {
	OriginType     string          `json:"originType"`
	RecursionLevel int             `json:"recursionLevel"`
	LinkedFrom     []LinkedControl `json:"linkedFrom,omitempty"`
}

// ControlSourceSummary aggregates how a control is connected to evidence
// configurations and what evidence schemas are available. It is the primary
// context for drafting SQL rules.
type ControlSourceSummary struct {
	AssessmentID   string           `json:"assessmentId"`
	AssessmentName string           `json:"assessmentName"`
	ControlID      string           `json:"controlId"`
	ControlName    string           `json:"controlName"`
	Lineage        []ControlLineage `json:"lineage,omitempty"`
}

// HasLinkedEvidence reports whether any evidence configs are reachable from
// the control. Without linked evidence, SQL rule automation cannot proceed.
func (s *ControlSourceSummary) HasLinkedEvidence() bool {
	return len(s.Lineage) > 0
}

// ControlSourceSummaryFor fetches the source summary of a control config.
func (s *Service) ControlSourceSummaryFor(ctx context.Context, controlID string) (*ControlSourceSummary, error) {
	if strings.TrimSpace(controlID) == "" {
		return nil, core.Validationf("control id is required")
	}
	body, err := s.backend.Post(ctx, backend.PathControlSourceSummary, map[string]string{
		"controlID": strings.TrimSpace(controlID),
	})
	if err != nil {
		return nil, err
	}

	summary := &ControlSourceSummary{}
	if err := json.Unmarshal(body, summary); err != nil {
		return nil, core.Backendf("decode control source summary: %v", err)
	}
	return summary, nil
}

// EvidenceSamples carries concrete evidence rows for a control config.
// Evidence configs absent from the payload have no records in the latest
// run.
type EvidenceSamples struct {
	ControlID   string          `json:"control_id"`
	RecordCount int             `json:"record_count"`
	Evidences   json.RawMessage `json:"evidences"`
	HasSamples  bool            `json:"has_samples"`
}

type sampleEvidenceRequest struct {
	ControlID     string   `json:"controlID"`
	Records       int      `json:"records"`
	EvidenceNames []string `json:"evidenceNames,omitempty"`
}

// EvidenceSampleData fetches a few concrete evidence rows per evidence
// config linked to a control. Out-of-range record counts fall back to the
// default rather than failing.
func (s *Service) EvidenceSampleData(ctx context.Context, controlConfigID string, evidenceNames []string, records int) (*EvidenceSamples, error) {
	if strings.TrimSpace(controlConfigID) == "" {
		return nil, core.Validationf("control config id is required")
	}
	if records < 1 || records > maxSampleRecords {
		records = defaultSampleRecords
	}

	controlID := strings.TrimSpace(controlConfigID)
	body, err := s.backend.Post(ctx, backend.PathSampleEvidenceData, &sampleEvidenceRequest{
		ControlID:     controlID,
		Records:       records,
		EvidenceNames: evidenceNames,
	})
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, core.Backendf("evidence samples for control '%s' are not a list", controlID)
	}
	logger.FromContext(ctx).Debug("evidence samples fetched", "control", controlID, "groups", len(parsed.Array()))

	return &EvidenceSamples{
		ControlID:   controlID,
		RecordCount: records,
		Evidences:   json.RawMessage(body),
		HasSamples:  len(parsed.Array()) > 0,
	}, nil
}

// AssessmentContext returns the entity context used to scope control
// automation, unprojected.
func (s *Service) AssessmentContext(ctx context.Context) (json.RawMessage, error) {
	body, err := s.backend.Get(ctx, backend.PathAssessmentContext, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// RuleReadme is the documentation of a deployed rule.
type RuleReadme struct {
	RuleName string `json:"rule_name"`
	Readme   string `json:"readme"`
}

// RuleReadmeFor fetches the README of a rule by name. The rule record holds
// a content hash; the document itself is fetched by that hash and may
// arrive base64-encoded.
func (s *Service) RuleReadmeFor(ctx context.Context, name string) (*RuleReadme, error) {
	if strings.TrimSpace(name) == "" {
		return nil, core.Validationf("rule name is required")
	}

	body, err := s.backend.Get(ctx, backend.PathRules, map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	items := gjson.GetBytes(body, "items").Array()
	if len(items) == 0 {
		return nil, core.NotFoundf("rule '%s' not available", name)
	}
	ruleName := items[0].Get("name").String()
	if ruleName == "" {
		ruleName = name
	}
	hash := items[0].Get("readme").String()
	if hash == "" {
		return nil, core.NotFoundf("readme not available for rule '%s'", name)
	}

	fileBody, err := s.backend.Get(ctx, backend.PathFiles+"/"+hash, nil)
	if err != nil {
		return nil, err
	}
	content := gjson.GetBytes(fileBody, "FileContent").String()
	if content == "" {
		return nil, core.NotFoundf("readme not available for rule '%s'", name)
	}
	text := content
	if decoded, err := base64.StdEncoding.DecodeString(content); err == nil {
		text = string(decoded)
	}
	return &RuleReadme{RuleName: ruleName, Readme: text}, nil
}
