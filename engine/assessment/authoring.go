package assessment

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/tidwall/gjson"

	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/logger"
)

const (
	controlConfigPageSize = 100
	maxControlConfigPages = 10

	// DefaultNoteTopic is used when a control note is created without one.
	DefaultNoteTopic = "SQL Rule Documentation"
)

// CreatedAssessment describes an assessment created from a YAML definition.
type CreatedAssessment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	URL          string `json:"url"`
}

type assessmentDefinition struct {
	Metadata struct {
		Name         string `yaml:"name"`
		CategoryName string `yaml:"categoryName"`
	} `yaml:"metadata"`
}

type createAssessmentRequest struct {
	Name        string `json:"name"`
	FileType    string `json:"fileType"`
	FileContent string `json:"fileContent"`
	CategoryID  string `json:"categoryId"`
}

// CreateAssessment creates an assessment from a YAML definition. The
// definition must carry metadata.name and metadata.categoryName; a category
// that does not exist yet is created first.
func (s *Service) CreateAssessment(ctx context.Context, yamlContent string) (*CreatedAssessment, error) {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(yamlContent) == "" {
		return nil, core.Validationf("assessment definition is empty")
	}
	def := &assessmentDefinition{}
	if err := yaml.Unmarshal([]byte(yamlContent), def); err != nil {
		return nil, core.Validationf("invalid assessment definition: %v", err)
	}
	name := strings.TrimSpace(def.Metadata.Name)
	if name == "" {
		return nil, core.Validationf("assessment name not found in metadata.name")
	}
	categoryName := strings.TrimSpace(def.Metadata.CategoryName)
	if categoryName == "" {
		return nil, core.Validationf("metadata.categoryName is required")
	}

	categoryID, err := s.resolveCategory(ctx, categoryName)
	if err != nil {
		return nil, err
	}

	body, err := s.backend.Post(ctx, backend.PathAssessmentImport, &createAssessmentRequest{
		Name:        name,
		FileType:    "yaml",
		FileContent: base64.StdEncoding.EncodeToString([]byte(yamlContent)),
		CategoryID:  categoryID,
	})
	if err != nil {
		return nil, err
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return nil, core.Backendf("assessment created but no id returned")
	}
	log.Info("assessment created", "id", id, "name", name, "category", categoryName)

	return &CreatedAssessment{
		ID:           id,
		Name:         name,
		CategoryID:   categoryID,
		CategoryName: categoryName,
		URL:          strings.TrimSuffix(s.backend.BaseURL(), "/api") + "/ui/assessment-controls/" + id,
	}, nil
}

// resolveCategory returns the id of the named category, creating it when it
// does not exist yet. The category list endpoint returns a bare array.
func (s *Service) resolveCategory(ctx context.Context, name string) (string, error) {
	body, err := s.backend.Get(ctx, backend.PathAssessmentCategories, nil)
	if err != nil {
		return "", err
	}
	parsed := gjson.ParseBytes(body)
	items := parsed
	if !parsed.IsArray() {
		items = parsed.Get("items")
	}
	for _, item := range items.Array() {
		if strings.TrimSpace(item.Get("name").String()) == name {
			return item.Get("id").String(), nil
		}
	}

	created, err := s.backend.Post(ctx, backend.PathAssessmentCategories, map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(created, "id").String()
	if id == "" {
		return "", core.Backendf("category '%s' created but no id returned", name)
	}
	logger.FromContext(ctx).Info("assessment category created", "name", name, "id", id)
	return id, nil
}

// ControlConfig is one control definition of an assessment, as opposed to a
// run-level control instance.
type ControlConfig struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Alias             string `json:"alias"`
	ControlNumber     string `json:"controlNumber"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// ListControlConfigs returns every leaf control config of an assessment. The
// backend pages the listing; pages are fetched sequentially up to the
// response's own page count, bounded by the configured fetch limit.
func (s *Service) ListControlConfigs(ctx context.Context, assessmentID string) ([]ControlConfig, error) {
	if strings.TrimSpace(assessmentID) == "" {
		return nil, core.Validationf("assessment id is required")
	}

	maxPages := maxControlConfigPages
	if limit := s.backend.MaxPageFetches(); limit < maxPages {
		maxPages = limit
	}

	controls := []ControlConfig{}
	for page := 1; page <= maxPages; page++ {
		body, err := s.backend.Get(ctx, backend.PathPlanControls, map[string]string{
			"page":                       strconv.Itoa(page),
			"page_size":                  strconv.Itoa(controlConfigPageSize),
			"plan_id":                    assessmentID,
			"fields":                     "basic",
			"is_leaf_control":            "true",
			"include_additional_context": "true",
		})
		if err != nil {
			if page == 1 {
				return nil, err
			}
			break
		}

		items := gjson.GetBytes(body, "items").Array()
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			if !item.Get("id").Exists() || !item.Get("name").Exists() {
				continue
			}
			controls = append(controls, ControlConfig{
				ID:                item.Get("id").String(),
				Name:              item.Get("name").String(),
				Alias:             item.Get("alias").String(),
				ControlNumber:     item.Get("displayable").String(),
				AdditionalContext: item.Get("additionalContext").String(),
			})
		}

		totalPages := int(gjson.GetBytes(body, "TotalPage").Int())
		if totalPages < 1 {
			totalPages = 1
		}
		if page >= totalPages {
			break
		}
	}
	logger.FromContext(ctx).Debug("control configs listed", "assessment", assessmentID, "count", len(controls))
	return controls, nil
}

// ControlConfigParams describes a control config to create.
type ControlConfigParams struct {
	AssessmentID  string `json:"assessment_id"`
	Name          string `json:"name"`
	Alias         string `json:"alias"`
	ControlNumber string `json:"control_number"`
	Description   string `json:"description"`
}

type createControlConfigRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Displayable    string `json:"displayable"`
	Alias          string `json:"alias"`
	PlanID         string `json:"planId"`
	IsPreRequisite bool   `json:"isPreRequisite"`
}

// CreateControlConfig creates a control config in an assessment and returns
// the created control's identity.
func (s *Service) CreateControlConfig(ctx context.Context, params ControlConfigParams) (*ControlConfig, error) {
	if strings.TrimSpace(params.AssessmentID) == "" {
		return nil, core.Validationf("assessment id is required")
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, core.Validationf("control name is required")
	}

	body, err := s.backend.Post(ctx, backend.PathPlanControls, &createControlConfigRequest{
		Name:           strings.TrimSpace(params.Name),
		Description:    strings.TrimSpace(params.Description),
		Displayable:    strings.TrimSpace(params.ControlNumber),
		Alias:          strings.TrimSpace(params.Alias),
		PlanID:         strings.TrimSpace(params.AssessmentID),
		IsPreRequisite: false,
	})
	if err != nil {
		return nil, err
	}

	control := &ControlConfig{
		ID:            gjson.GetBytes(body, "id").String(),
		Name:          params.Name,
		Alias:         gjson.GetBytes(body, "alias").String(),
		ControlNumber: gjson.GetBytes(body, "displayable").String(),
	}
	logger.FromContext(ctx).Info("control config created", "id", control.ID, "assessment", params.AssessmentID)
	return control, nil
}

// NoteParams describes a documentation note on a control config.
type NoteParams struct {
	ControlConfigID string `json:"control_config_id"`
	AssessmentID    string `json:"assessment_id"`
	Notes           string `json:"notes"`
	Topic           string `json:"topic"`
	Confirm         bool   `json:"confirm"`
}

// NoteResult is the outcome of a note creation call. Without Confirm the
// note is returned as a preview and nothing is persisted.
type NoteResult struct {
	Created         bool   `json:"created"`
	ControlConfigID string `json:"control_config_id"`
	Topic           string `json:"topic"`
	Notes           string `json:"notes,omitempty"`
	Message         string `json:"message"`
	NextStep        string `json:"next_step,omitempty"`
}

type createNoteRequest struct {
	Topic         string `json:"topic"`
	Notes         string `json:"notes"`
	PlanID        string `json:"planId"`
	PlanControlID string `json:"planControlID"`
}

// CreateControlNote attaches a markdown documentation note to a control
// config. The note is previewed first; only a confirmed call persists it.
func (s *Service) CreateControlNote(ctx context.Context, params NoteParams) (*NoteResult, error) {
	if strings.TrimSpace(params.ControlConfigID) == "" {
		return nil, core.Validationf("control config id is required")
	}
	if strings.TrimSpace(params.AssessmentID) == "" {
		return nil, core.Validationf("assessment id is required")
	}
	if strings.TrimSpace(params.Notes) == "" {
		return nil, core.Validationf("note content is required")
	}
	topic := strings.TrimSpace(params.Topic)
	if topic == "" {
		topic = DefaultNoteTopic
	}

	controlConfigID := strings.TrimSpace(params.ControlConfigID)
	if !params.Confirm {
		return &NoteResult{
			Created:         false,
			ControlConfigID: controlConfigID,
			Topic:           topic,
			Notes:           strings.TrimSpace(params.Notes),
			Message:         "Confirmation required before creating note",
			NextStep:        "Review the note above; re-run with confirm=true to create it, or adjust the content first",
		}, nil
	}

	_, err := s.backend.Post(ctx, backend.PathPlanControls+"/"+controlConfigID+"/notes", &createNoteRequest{
		Topic:         topic,
		Notes:         strings.TrimSpace(params.Notes),
		PlanID:        strings.TrimSpace(params.AssessmentID),
		PlanControlID: controlConfigID,
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("control note created", "control", controlConfigID, "topic", topic)
	return &NoteResult{
		Created:         true,
		ControlConfigID: controlConfigID,
		Topic:           topic,
		Message:         "Note created successfully",
	}, nil
}
