package rule

import (
	"context"
	"fmt"
	"strings"

	"github.com/policycow/cowmcp/engine/catalog"
	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/logger"
)

// previewLimit bounds how much content is echoed back in confirmation
// prompts.
const previewLimit = 600

// TemplateGuidance is the decoded template plus everything the caller needs
// to prompt the user for content.
type TemplateGuidance struct {
	TaskName        string         `json:"task_name"`
	InputName       string         `json:"input_name"`
	Description     string         `json:"input_description"`
	Format          TemplateFormat `json:"format"`
	DecodedTemplate string         `json:"decoded_template"`
	RequiredFields  []string       `json:"required_fields"`
	ExampleContent  string         `json:"example_content"`
	ValidationRules []string       `json:"validation_rules"`
	Presentation    string         `json:"presentation_format"`
}

// StagedTemplate is a validated-but-unconfirmed template value. Nothing is
// uploaded or stored until the user confirms it.
type StagedTemplate struct {
	TaskName            string         `json:"task_name"`
	InputName           string         `json:"input_name"`
	ValidatedContent    string         `json:"validated_content"`
	ContentPreview      string         `json:"content_preview"`
	DataType            DataType       `json:"data_type"`
	Format              TemplateFormat `json:"format"`
	IsFileType          bool           `json:"is_file_type"`
	ConfirmationMessage string         `json:"final_confirmation_message"`
}

// TemplateGuidance decodes the stored template for a task input and builds
// collection guidance. It fails with core.ErrNotFound for unknown tasks or
// inputs and core.ErrNoTemplate when the input carries no template.
func (s *Service) TemplateGuidance(ctx context.Context, taskName, inputName string) (*TemplateGuidance, error) {
	log := logger.FromContext(ctx)

	_, input, err := s.catalog.GetInput(ctx, taskName, inputName)
	if err != nil {
		return nil, err
	}
	if !input.HasTemplate() {
		return nil, fmt.Errorf("%w: input '%s' of task '%s' does not have a template file",
			core.ErrNoTemplate, inputName, taskName)
	}

	decoded := catalog.DecodeContent(input.TemplateFile)
	format := ParseFormat(input.Format)
	log.Debug("template guidance prepared", "task", taskName, "input", inputName, "format", format)

	return &TemplateGuidance{
		TaskName:        taskName,
		InputName:       inputName,
		Description:     input.Description,
		Format:          format,
		DecodedTemplate: decoded,
		RequiredFields:  format.TopLevelFields(decoded),
		ExampleContent:  decoded,
		ValidationRules: format.ValidationRules(),
		Presentation:    templatePresentation(taskName, inputName, input.Description, decoded, format),
	}, nil
}

// CollectTemplate validates user content against the input's declared
// format and the template's required fields and stages it for confirmation.
// Invalid content is never partially staged, and the template's own content
// is never substituted for the user's.
func (s *Service) CollectTemplate(ctx context.Context, taskName, inputName, userContent string) (*StagedTemplate, error) {
	_, input, err := s.catalog.GetInput(ctx, taskName, inputName)
	if err != nil {
		return nil, err
	}

	format := ParseFormat(input.Format)
	if err := format.ValidateSyntax(userContent); err != nil {
		return nil, err
	}
	if input.HasTemplate() {
		template := catalog.DecodeContent(input.TemplateFile)
		if missing := format.MissingFields(template, userContent); len(missing) > 0 {
			return nil, core.Validationf("content is missing required fields: %s", strings.Join(missing, ", "))
		}
	}

	preview := contentPreview(userContent)
	return &StagedTemplate{
		TaskName:         taskName,
		InputName:        inputName,
		ValidatedContent: userContent,
		ContentPreview:   preview,
		DataType:         ParseDataType(input.DataType),
		Format:           format,
		IsFileType:       input.IsFileType(),
		ConfirmationMessage: fmt.Sprintf(
			"You provided this %s content:\n\n%s\n\nIs this correct? (yes/no)",
			strings.ToUpper(string(format)), preview),
	}, nil
}

func templatePresentation(taskName, inputName, description, template string, format TemplateFormat) string {
	var b strings.Builder
	b.WriteString("Now configuring: [X of Y inputs]\n\n")
	fmt.Fprintf(&b, "Task: %s\n", taskName)
	fmt.Fprintf(&b, "Input: %s - %s\n\n", inputName, description)
	b.WriteString("Here's the template structure:\n\n")
	b.WriteString(template)
	fmt.Fprintf(&b, "\n\nThis %s file requires specific fields. Please provide your actual configuration following this template.", format)
	return b.String()
}

func contentPreview(content string) string {
	if len(content) <= previewLimit {
		return content
	}
	return content[:previewLimit] + "\n... (truncated)"
}
