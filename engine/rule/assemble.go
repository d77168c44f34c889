package rule

import (
	"context"
	"fmt"
	"time"

	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/catalog"
	"github.com/policycow/cowmcp/engine/core"
)

// AssembleParams carries everything needed to build a rule document from
// verified inputs.
type AssembleParams struct {
	RuleName       string         `json:"rule_name"`
	Purpose        string         `json:"purpose"`
	Description    string         `json:"description"`
	PrimaryAppType string         `json:"primary_app_type"`
	Tasks          []catalog.Task `json:"-"`
	TaskPurposes   map[string]string
	Inputs         map[string]any
	InputsMeta     []InputMeta
	OutputsMeta    []InputMeta
	IOMap          []string
}

// Assemble builds a rule document from verified inputs. Tasks get aliases
// t1..tn in selection order; the primary application type lands as a
// single-value array in appType, annotateType, and app alike.
func Assemble(params *AssembleParams) *Document {
	appType := params.PrimaryAppType
	if appType == "" {
		appType = GenericAppType
	}

	refs := make([]TaskRef, 0, len(params.Tasks))
	for i := range params.Tasks {
		task := &params.Tasks[i]
		ref := TaskRef{
			Name:    task.Name,
			Alias:   fmt.Sprintf("t%d", i+1),
			Type:    "task",
			Purpose: params.TaskPurposes[task.Name],
			AppTags: task.AppTags,
		}
		if len(ref.AppTags) == 0 {
			ref.AppTags = map[string][]string{"appType": {task.AppType()}}
		}
		refs = append(refs, ref)
	}

	return &Document{
		APIVersion: DocumentAPIVersion,
		Kind:       DocumentKind,
		Meta: Meta{
			Name:        params.RuleName,
			Purpose:     params.Purpose,
			Description: params.Description,
			Labels: Labels{
				AppType:     []string{appType},
				Environment: []string{"logical"},
				ExecLevel:   []string{"app"},
			},
			Annotations: Annotations{
				AnnotateType: []string{appType},
				App:          []string{appType},
			},
		},
		Spec: Spec{
			Inputs:      params.Inputs,
			InputsMeta:  params.InputsMeta,
			OutputsMeta: params.OutputsMeta,
			Tasks:       refs,
			IOMap:       params.IOMap,
		},
	}
}

// CreateResult reports a successful rule submission.
type CreateResult struct {
	RuleID      string `json:"rule_id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	YAMLPreview string `json:"yaml_preview"`
	Message     string `json:"message"`
}

type createResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// CreateRule validates the document structurally and against the task
// catalog, then submits it. Backend errors surface verbatim; there is no
// retry.
func (s *Service) CreateRule(ctx context.Context, doc *Document, tasks []catalog.Task) (*CreateResult, error) {
	if doc == nil {
		return nil, core.Validationf("rule document is required")
	}
	if doc.Meta.Name == "" {
		return nil, core.Validationf("rule document is missing meta.name")
	}
	if len(doc.Spec.Tasks) == 0 {
		return nil, core.Validationf("rule document declares no tasks")
	}
	if err := s.validate.Struct(doc); err != nil {
		return nil, core.Validationf("invalid rule structure: %v", err)
	}
	if err := ValidateIOMap(doc, tasks); err != nil {
		return nil, err
	}

	preview, err := doc.YAMLPreview()
	if err != nil {
		return nil, err
	}

	var resp createResponse
	if err := s.backend.PostJSON(ctx, backend.PathRules, doc, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "" {
		resp.Status = "created"
	}
	if resp.Timestamp == "" {
		resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return &CreateResult{
		RuleID:      resp.ID,
		Status:      resp.Status,
		Timestamp:   resp.Timestamp,
		YAMLPreview: preview,
		Message:     "Rule created successfully",
	}, nil
}
