package catalog

// InputCategory distinguishes how an input is collected.
type InputCategory string

const (
	// CategoryTemplate marks file-shaped inputs collected from a template.
	CategoryTemplate InputCategory = "template"
	// CategoryParameter marks primitive scalar inputs.
	CategoryParameter InputCategory = "parameter"
)

// Classification describes one (task, input) pair of the selected task set.
type Classification struct {
	// UniqueID is "{taskName}.{inputName}" and disambiguates same-named
	// inputs across tasks.
	UniqueID    string        `json:"unique_input_id"`
	TaskName    string        `json:"task_name"`
	InputName   string        `json:"input_name"`
	Category    InputCategory `json:"category"`
	Description string        `json:"description"`
	DataType    string        `json:"data_type"`
	Required    bool          `json:"required"`
	HasTemplate bool          `json:"has_template"`
	// Format is only set for template inputs.
	Format       string `json:"format,omitempty"`
	HasDefault   bool   `json:"has_default"`
	DefaultValue string `json:"default_value,omitempty"`
}

// ClassifyResult carries the classification of every input of the selected
// tasks plus the names that were not present in the catalog. Unknown names
// are reported rather than silently dropped so the caller can surface them.
type ClassifyResult struct {
	Templates    []Classification
	Parameters   []Classification
	MissingTasks []string
}

// Total returns the number of classified inputs.
func (r *ClassifyResult) Total() int {
	return len(r.Templates) + len(r.Parameters)
}

// Classify produces a classification record for every input of every
// selected task. It is a pure transform over already-fetched catalog data.
func Classify(available []Task, selected []string) *ClassifyResult {
	byName := make(map[string]*Task, len(available))
	for i := range available {
		byName[available[i].Name] = &available[i]
	}

	result := &ClassifyResult{}
	for _, name := range selected {
		task, ok := byName[name]
		if !ok {
			result.MissingTasks = append(result.MissingTasks, name)
			continue
		}
		for i := range task.Inputs {
			input := &task.Inputs[i]
			record := Classification{
				UniqueID:     task.Name + "." + input.Name,
				TaskName:     task.Name,
				InputName:    input.Name,
				Description:  input.Description,
				DataType:     input.DataType,
				Required:     input.Required,
				HasTemplate:  input.HasTemplate(),
				HasDefault:   input.DefaultValue != "",
				DefaultValue: input.DefaultValue,
			}
			if input.IsTemplateInput() {
				record.Category = CategoryTemplate
				record.Format = input.Format
				result.Templates = append(result.Templates, record)
			} else {
				record.Category = CategoryParameter
				result.Parameters = append(result.Parameters, record)
			}
		}
	}
	return result
}
