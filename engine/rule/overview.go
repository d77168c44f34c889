package rule

import (
	"context"
	"fmt"
	"strings"

	"github.com/policycow/cowmcp/engine/catalog"
	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/logger"
)

// Overview is the input collection plan for a selected task set, produced
// before any input is collected.
type Overview struct {
	TemplateInputs  []catalog.Classification `json:"template_inputs"`
	ParameterInputs []catalog.Classification `json:"parameter_inputs"`
	TotalCount      int                      `json:"total_count"`
	TemplateCount   int                      `json:"template_count"`
	ParameterCount  int                      `json:"parameter_count"`
	// EstimatedMinutes is a rough collection-time estimate: template
	// inputs take about three minutes each, parameters half a minute.
	EstimatedMinutes float64                           `json:"estimated_minutes"`
	MissingTasks     []string                          `json:"missing_tasks,omitempty"`
	UniqueInputMap   map[string]catalog.Classification `json:"unique_input_map"`
	CollectionPlan   map[string]string                 `json:"collection_plan"`
	Presentation     string                            `json:"overview_presentation"`
}

// Overview analyzes the selected tasks and produces the collection plan
// with a unique identifier per (task, input) pair. Selected names missing
// from the catalog are reported in MissingTasks rather than silently
// skipped.
func (s *Service) Overview(ctx context.Context, selectedTasks []string) (*Overview, error) {
	log := logger.FromContext(ctx)
	if len(selectedTasks) == 0 {
		return nil, core.Validationf("no tasks selected for input analysis")
	}

	available, err := s.catalog.ListPrimitives(ctx)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, core.Backendf("no tasks loaded from the catalog")
	}

	classified := catalog.Classify(available, selectedTasks)
	if len(classified.MissingTasks) > 0 {
		log.Warn("selected tasks missing from catalog", "tasks", classified.MissingTasks)
	}

	overview := &Overview{
		TemplateInputs:   classified.Templates,
		ParameterInputs:  classified.Parameters,
		TemplateCount:    len(classified.Templates),
		ParameterCount:   len(classified.Parameters),
		TotalCount:       classified.Total(),
		EstimatedMinutes: float64(len(classified.Templates))*3 + float64(len(classified.Parameters))*0.5,
		MissingTasks:     classified.MissingTasks,
		UniqueInputMap:   make(map[string]catalog.Classification, classified.Total()),
		CollectionPlan: map[string]string{
			"step1": "Template inputs (files) - collected first with unique IDs",
			"step2": "Parameter inputs (values) - collected second with unique IDs",
			"step3": "Final verification of all collected inputs",
			"step4": "Rule structure creation with proper task-input mapping",
		},
	}
	for _, record := range classified.Templates {
		overview.UniqueInputMap[record.UniqueID] = record
	}
	for _, record := range classified.Parameters {
		overview.UniqueInputMap[record.UniqueID] = record
	}
	overview.Presentation = overviewPresentation(overview)
	return overview, nil
}

func overviewPresentation(o *Overview) string {
	var b strings.Builder
	b.WriteString("INPUT COLLECTION OVERVIEW:\n\n")
	b.WriteString("I've analyzed your selected tasks. Here's what we need to configure:\n\n")

	if len(o.TemplateInputs) > 0 {
		b.WriteString("TEMPLATE INPUTS (Files):\n")
		for _, record := range o.TemplateInputs {
			format := record.Format
			if format == "" {
				format = record.DataType
			}
			fmt.Fprintf(&b, "• Task: %s → Input: %s (%s file)\n", record.TaskName, record.InputName, format)
			fmt.Fprintf(&b, "    Unique ID: %s\n", record.UniqueID)
			fmt.Fprintf(&b, "    Description: %s\n", record.Description)
		}
		b.WriteString("\n")
	}

	if len(o.ParameterInputs) > 0 {
		b.WriteString("PARAMETER INPUTS (Values):\n")
		for _, record := range o.ParameterInputs {
			required := "No"
			if record.Required {
				required = "Yes"
			}
			fmt.Fprintf(&b, "• Task: %s → Input: %s (%s)\n", record.TaskName, record.InputName, record.DataType)
			fmt.Fprintf(&b, "    Unique ID: %s\n", record.UniqueID)
			fmt.Fprintf(&b, "    Description: %s\n", record.Description)
			fmt.Fprintf(&b, "    Required: %s\n", required)
		}
		b.WriteString("\n")
	}

	if len(o.MissingTasks) > 0 {
		fmt.Fprintf(&b, "NOT FOUND IN CATALOG: %s\n\n", strings.Join(o.MissingTasks, ", "))
	}

	b.WriteString("SUMMARY:\n")
	fmt.Fprintf(&b, "- Total inputs needed: %d\n", o.TotalCount)
	fmt.Fprintf(&b, "- Template files: %d\n", o.TemplateCount)
	fmt.Fprintf(&b, "- Parameter values: %d\n", o.ParameterCount)
	fmt.Fprintf(&b, "- Estimated time: ~%.1f minutes\n\n", o.EstimatedMinutes)
	b.WriteString("This will be collected step-by-step with progress indicators.\n")
	b.WriteString("Ready to start systematic input collection?")
	return b.String()
}
