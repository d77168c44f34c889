package assessment

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/logger"
)

// CitationQuery asks for authority-document citation suggestions for one
// control. The control may already exist (ControlID set) or be about to be
// created (ControlID empty).
type CitationQuery struct {
	AssessmentID string `json:"assessment_id"`
	ControlID    string `json:"control_id"`
	ControlName  string `json:"control_name"`
	Description  string `json:"description"`
}

// CitationSuggestion is one suggested authority-document control. The field
// names mirror the backend's similarity response.
type CitationSuggestion struct {
	Name           string  `json:"Name"`
	ControlID      string  `json:"Control ID"`
	Classification string  `json:"Control Classification"`
	ImpactZone     string  `json:"Impact Zone"`
	Requirement    string  `json:"Control Requirement"`
	SortID         string  `json:"Sort ID"`
	ControlType    string  `json:"Control Type"`
	Score          float64 `json:"Score"`
}

// CitationSuggestionGroup holds the suggestions for one input control.
type CitationSuggestionGroup struct {
	InputControlName string               `json:"inputControlName"`
	ControlID        string               `json:"controlId"`
	Suggestions      []CitationSuggestion `json:"suggestions"`
}

// CitationSuggestions is the projected suggestion response.
type CitationSuggestions struct {
	Items             []CitationSuggestionGroup `json:"items"`
	AuthorityDocument string                    `json:"authorityDocument"`
}

type similarControlsRequest struct {
	AssessmentType      string                `json:"assessment_type"`
	AssessmentID        string                `json:"assessment_id"`
	AssessmentName      string                `json:"assessment_name"`
	UseDefaultAuthority bool                  `json:"use_default_authority_document"`
	Controls            []similarControlEntry `json:"controls"`
}

type similarControlEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SuggestCitations returns authority-document controls similar to the named
// control, for the user to pick a citation from.
func (s *Service) SuggestCitations(ctx context.Context, query CitationQuery) (*CitationSuggestions, error) {
	if strings.TrimSpace(query.AssessmentID) == "" {
		return nil, core.Validationf("assessment id is required")
	}
	if strings.TrimSpace(query.ControlName) == "" {
		return nil, core.Validationf("control name is required")
	}

	body, err := s.backend.Post(ctx, backend.PathSimilarControls, &similarControlsRequest{
		AssessmentType:      "asset",
		UseDefaultAuthority: true,
		Controls: []similarControlEntry{{
			ID:          strings.TrimSpace(query.ControlID),
			Name:        strings.TrimSpace(query.ControlName),
			Description: strings.TrimSpace(query.Description),
		}},
	})
	if err != nil {
		return nil, err
	}

	result := &CitationSuggestions{
		Items:             []CitationSuggestionGroup{},
		AuthorityDocument: gjson.GetBytes(body, "authorityDocument").String(),
	}
	for _, item := range gjson.GetBytes(body, "items").Array() {
		group := CitationSuggestionGroup{
			InputControlName: item.Get("inputControlName").String(),
			ControlID:        item.Get("controlId").String(),
			Suggestions:      []CitationSuggestion{},
		}
		for _, suggestion := range item.Get("suggestions").Array() {
			group.Suggestions = append(group.Suggestions, CitationSuggestion{
				Name:           suggestion.Get("Name").String(),
				ControlID:      suggestion.Get("Control ID").String(),
				Classification: suggestion.Get("Control Classification").String(),
				ImpactZone:     suggestion.Get("Impact Zone").String(),
				Requirement:    suggestion.Get("Control Requirement").String(),
				SortID:         suggestion.Get("Sort ID").String(),
				ControlType:    suggestion.Get("Control Type").String(),
				Score:          suggestion.Get("Score").Float(),
			})
		}
		result.Items = append(result.Items, group)
	}
	logger.FromContext(ctx).Debug("citation suggestions fetched",
		"control", query.ControlName, "groups", len(result.Items))
	return result, nil
}

// CitationParams describes one citation to attach to a control config. A
// control config carries at most one citation.
type CitationParams struct {
	AssessmentID        string   `json:"assessment_id"`
	ControlID           string   `json:"control_id"`
	AuthorityDocument   string   `json:"authority_document"`
	AuthorityControlIDs []string `json:"authority_control_ids"`
	SortID              string   `json:"sort_id"`
	ControlNames        []string `json:"control_names"`
	Confirm             bool     `json:"confirm"`
}

// AttachedCitation is one citation as stored by the backend.
type AttachedCitation struct {
	ID                  string   `json:"id"`
	PlanControlID       string   `json:"planControlID"`
	AuthorityDocument   string   `json:"authorityDocument"`
	ControlNames        []string `json:"controlNames"`
	AuthorityControlIDs []string `json:"controlsInAuthorityDocument"`
	SortID              string   `json:"sortID"`
	Status              string   `json:"status"`
}

// CitationResult is the outcome of an attach call. Without Confirm the
// citation details come back as a preview and nothing is persisted.
type CitationResult struct {
	Attached     bool               `json:"attached"`
	AssessmentID string             `json:"assessment_id"`
	ControlID    string             `json:"control_id"`
	Preview      *CitationParams    `json:"preview,omitempty"`
	Citations    []AttachedCitation `json:"citations,omitempty"`
	Message      string             `json:"message"`
	NextStep     string             `json:"next_step,omitempty"`
}

type attachCitationRequest struct {
	AuthorityDocument    string                   `json:"authorityDocument"`
	PlanControlCitations []planControlCitationReq `json:"planControlCitations"`
}

type planControlCitationReq struct {
	PlanControlID       string   `json:"planControlID"`
	AuthorityControlIDs []string `json:"controlsInAuthorityDocument"`
	SortID              string   `json:"sortID"`
	ControlNames        []string `json:"controlNames"`
}

type syncControlLinksRequest struct {
	PlanID               string `json:"planID"`
	AuthorityDocument    string `json:"authorityDocument"`
	UpdateControlLinking bool   `json:"updateControlLinking"`
	ControlID            string `json:"controlId"`
}

// AttachCitation attaches one authority-document citation to a control
// config. The first call returns a preview; a confirmed call persists the
// citation and then syncs control links best-effort.
func (s *Service) AttachCitation(ctx context.Context, params CitationParams) (*CitationResult, error) {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(params.AssessmentID) == "" {
		return nil, core.Validationf("assessment id is required")
	}
	if strings.TrimSpace(params.ControlID) == "" {
		return nil, core.Validationf("control id is required")
	}
	if strings.TrimSpace(params.AuthorityDocument) == "" {
		return nil, core.Validationf("authority document is required")
	}
	if len(params.AuthorityControlIDs) == 0 {
		return nil, core.Validationf("authority control ids must be a non-empty list")
	}
	if strings.TrimSpace(params.SortID) == "" {
		return nil, core.Validationf("sort id is required")
	}
	if len(params.ControlNames) == 0 {
		return nil, core.Validationf("control names must be a non-empty list")
	}

	assessmentID := strings.TrimSpace(params.AssessmentID)
	controlID := strings.TrimSpace(params.ControlID)

	if !params.Confirm {
		preview := params
		return &CitationResult{
			Attached:     false,
			AssessmentID: assessmentID,
			ControlID:    controlID,
			Preview:      &preview,
			Message:      "Confirmation required before attaching citation to control config",
			NextStep:     "Review the assessment, control config id, and citation details; re-run with confirm=true to attach",
		}, nil
	}

	body, err := s.backend.Post(ctx, backend.PathCitationsBatch, &attachCitationRequest{
		AuthorityDocument: strings.TrimSpace(params.AuthorityDocument),
		PlanControlCitations: []planControlCitationReq{{
			PlanControlID:       controlID,
			AuthorityControlIDs: trimAll(params.AuthorityControlIDs),
			SortID:              strings.TrimSpace(params.SortID),
			ControlNames:        trimAll(params.ControlNames),
		}},
	})
	if err != nil {
		return nil, err
	}

	citations := []AttachedCitation{}
	for _, item := range gjson.GetBytes(body, "items").Array() {
		citations = append(citations, AttachedCitation{
			ID:                  item.Get("id").String(),
			PlanControlID:       item.Get("planControlID").String(),
			AuthorityDocument:   item.Get("authorityDocument").String(),
			ControlNames:        stringsOf(item.Get("controlNames")),
			AuthorityControlIDs: stringsOf(item.Get("controlsInAuthorityDocument")),
			SortID:              item.Get("sortID").String(),
			Status:              item.Get("status").String(),
		})
	}

	// Control link sync is best-effort: the citation is already attached,
	// so a sync failure only gets logged.
	if _, err := s.backend.Post(ctx, backend.PathSyncControlLinks, &syncControlLinksRequest{
		PlanID:               assessmentID,
		AuthorityDocument:    strings.TrimSpace(params.AuthorityDocument),
		UpdateControlLinking: true,
		ControlID:            controlID,
	}); err != nil {
		log.Warn("control link sync failed after citation attach", "control", controlID, "error", err)
	}

	log.Info("citation attached", "control", controlID, "citations", len(citations))
	return &CitationResult{
		Attached:     true,
		AssessmentID: assessmentID,
		ControlID:    controlID,
		Citations:    citations,
		Message:      "Citation attached successfully",
	}, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func stringsOf(result gjson.Result) []string {
	values := []string{}
	for _, v := range result.Array() {
		values = append(values, v.String())
	}
	return values
}
