package rule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/policycow/cowmcp/engine/core"
)

// CollectedTemplate is a confirmed template file as replayed by the caller,
// keyed in CollectedInputs by unique input identifier.
type CollectedTemplate struct {
	FileName  string `json:"filename"`
	FileURL   string `json:"file_url"`
	FileSize  int    `json:"file_size"`
	Format    string `json:"format"`
	DataType  string `json:"data_type"`
	Required  bool   `json:"required"`
	Validated bool   `json:"validated"`
}

// CollectedParameter is a confirmed parameter value as replayed by the
// caller.
type CollectedParameter struct {
	Value    any    `json:"value"`
	DataType string `json:"data_type"`
	Required bool   `json:"required"`
}

// CollectedInputs groups everything the caller has confirmed so far, keyed
// by unique input identifier ("TaskName.InputName"). The gateway keeps no
// session state; the full set is passed in on every verification.
type CollectedInputs struct {
	TemplateFiles   map[string]CollectedTemplate  `json:"template_files"`
	ParameterValues map[string]CollectedParameter `json:"parameter_values"`
}

// VerificationItem is one line of the verification summary.
type VerificationItem struct {
	UniqueID  string `json:"unique_input_id"`
	TaskName  string `json:"task_name"`
	InputName string `json:"input_name"`
	FileName  string `json:"filename,omitempty"`
	FileURL   string `json:"file_url,omitempty"`
	FileSize  int    `json:"file_size,omitempty"`
	Value     any    `json:"value,omitempty"`
	Format    string `json:"format,omitempty"`
	DataType  string `json:"data_type"`
	Required  bool   `json:"required"`
	Status    string `json:"status"`
}

// TaskInputRef maps a rule-level input name back to the task input it came
// from, for I/O-map construction.
type TaskInputRef struct {
	TaskName      string `json:"task_name"`
	InputName     string `json:"input_name"`
	UniqueID      string `json:"unique_id"`
	RuleInputName string `json:"rule_input_name"`
}

// InputMeta is one entry of a rule document's inputsMeta__/outputsMeta__
// lists. The name is the bare input name; the confirmed value doubles as
// the default.
type InputMeta struct {
	Name         string `json:"name"         yaml:"name"`
	DataType     string `json:"dataType"     yaml:"dataType"`
	Required     bool   `json:"required"     yaml:"required"`
	DefaultValue any    `json:"defaultValue" yaml:"defaultValue"`
}

// Verification is the aggregated view of all confirmed inputs, ready for
// rule assembly.
type Verification struct {
	TemplateFiles   []VerificationItem `json:"template_files"`
	ParameterValues []VerificationItem `json:"parameter_values"`
	TotalCollected  int                `json:"total_collected"`
	MissingInputs   []string           `json:"missing_inputs"`
	// NameCollisions lists bare input names shared by multiple tasks.
	// Rule-level inputs are keyed by bare name, so the collision policy
	// is last writer wins over the aggregation order (unique IDs sorted
	// lexicographically).
	NameCollisions   []string                `json:"name_collisions,omitempty"`
	StructuredInputs map[string]any          `json:"structured_inputs"`
	InputsMeta       []InputMeta             `json:"inputs_meta"`
	TaskInputMapping map[string]TaskInputRef `json:"task_input_mapping"`
	ReadyForCreation bool                    `json:"ready_for_creation"`
	Presentation     string                  `json:"verification_presentation"`
}

// Verify aggregates all confirmed inputs into the flattened structures rule
// assembly needs. It is pure: no backend calls. Aggregation iterates unique
// identifiers in sorted order, which makes the last-writer-wins collision
// policy deterministic.
func (s *Service) Verify(collected *CollectedInputs) (*Verification, error) {
	if collected == nil || (len(collected.TemplateFiles) == 0 && len(collected.ParameterValues) == 0) {
		return nil, core.Validationf("no inputs provided for verification")
	}

	verification := &Verification{
		StructuredInputs: make(map[string]any),
		TaskInputMapping: make(map[string]TaskInputRef),
	}
	seenBareNames := make(map[string]bool)

	for _, uniqueID := range sortedKeys(collected.TemplateFiles) {
		info := collected.TemplateFiles[uniqueID]
		id, err := ParseInputID(uniqueID)
		if err != nil {
			return nil, err
		}
		status := "✓ Validated"
		if !info.Validated {
			status = "⚠ Needs validation"
		}
		dataType := info.DataType
		if dataType == "" {
			dataType = string(TypeFile)
		}
		verification.TemplateFiles = append(verification.TemplateFiles, VerificationItem{
			UniqueID:  uniqueID,
			TaskName:  id.TaskName,
			InputName: id.InputName,
			FileName:  info.FileName,
			FileURL:   info.FileURL,
			FileSize:  info.FileSize,
			Format:    info.Format,
			DataType:  dataType,
			Required:  info.Required,
			Status:    status,
		})
		// File-typed inputs carry the uploaded URL as their value.
		verification.recordInput(id, dataType, info.Required, info.FileURL, seenBareNames)
	}

	for _, uniqueID := range sortedKeys(collected.ParameterValues) {
		info := collected.ParameterValues[uniqueID]
		id, err := ParseInputID(uniqueID)
		if err != nil {
			return nil, err
		}
		status := "✓ Set"
		if info.Value == nil {
			status = "⚠ Missing"
		}
		dataType := info.DataType
		if dataType == "" {
			dataType = string(TypeString)
		}
		verification.ParameterValues = append(verification.ParameterValues, VerificationItem{
			UniqueID:  uniqueID,
			TaskName:  id.TaskName,
			InputName: id.InputName,
			Value:     info.Value,
			DataType:  dataType,
			Required:  info.Required,
			Status:    status,
		})
		verification.recordInput(id, dataType, info.Required, info.Value, seenBareNames)
	}

	verification.TotalCollected = len(collected.TemplateFiles) + len(collected.ParameterValues)
	for _, item := range verification.TemplateFiles {
		if strings.Contains(item.Status, "⚠") {
			verification.MissingInputs = append(verification.MissingInputs, item.UniqueID)
		}
	}
	for _, item := range verification.ParameterValues {
		if strings.Contains(item.Status, "⚠") {
			verification.MissingInputs = append(verification.MissingInputs, item.UniqueID)
		}
	}
	verification.ReadyForCreation = len(verification.MissingInputs) == 0
	verification.Presentation = verificationPresentation(verification)
	return verification, nil
}

// recordInput writes the rule-level structures for one confirmed input.
// The rule-level key is the bare input name, not the task-qualified one;
// a later entry sharing a bare name overwrites the earlier one.
func (v *Verification) recordInput(id InputID, dataType string, required bool, value any, seen map[string]bool) {
	bareName := id.InputName
	if seen[bareName] {
		v.NameCollisions = append(v.NameCollisions, bareName)
		for i := range v.InputsMeta {
			if v.InputsMeta[i].Name == bareName {
				v.InputsMeta = append(v.InputsMeta[:i], v.InputsMeta[i+1:]...)
				break
			}
		}
	}
	seen[bareName] = true
	v.StructuredInputs[bareName] = value
	v.InputsMeta = append(v.InputsMeta, InputMeta{
		Name:         bareName,
		DataType:     dataType,
		Required:     required,
		DefaultValue: value,
	})
	v.TaskInputMapping[bareName] = TaskInputRef{
		TaskName:      id.TaskName,
		InputName:     id.InputName,
		UniqueID:      id.String(),
		RuleInputName: bareName,
	}
}

func verificationPresentation(v *Verification) string {
	var b strings.Builder
	b.WriteString("INPUT VERIFICATION SUMMARY:\n\n")
	b.WriteString("Please review all collected inputs before rule creation:\n\n")

	if len(v.TemplateFiles) > 0 {
		b.WriteString("TEMPLATE INPUTS (Uploaded Files):\n")
		for _, item := range v.TemplateFiles {
			fmt.Fprintf(&b, "%s Task Input: %s\n", statusMark(item.Status), item.UniqueID)
			fmt.Fprintf(&b, "    Task: %s → Input: %s\n", item.TaskName, item.InputName)
			fmt.Fprintf(&b, "    Format: %s\n", item.Format)
			fmt.Fprintf(&b, "    File: %s\n", item.FileName)
			fmt.Fprintf(&b, "    URL: %s\n", item.FileURL)
			fmt.Fprintf(&b, "    Size: %d bytes\n", item.FileSize)
			fmt.Fprintf(&b, "    Status: %s\n", item.Status)
		}
		b.WriteString("\n")
	}

	if len(v.ParameterValues) > 0 {
		b.WriteString("PARAMETER INPUTS (Values):\n")
		for _, item := range v.ParameterValues {
			required := "No"
			if item.Required {
				required = "Yes"
			}
			fmt.Fprintf(&b, "%s Task Input: %s\n", statusMark(item.Status), item.UniqueID)
			fmt.Fprintf(&b, "    Task: %s → Input: %s\n", item.TaskName, item.InputName)
			fmt.Fprintf(&b, "    Type: %s\n", item.DataType)
			fmt.Fprintf(&b, "    Value: %v\n", item.Value)
			fmt.Fprintf(&b, "    Required: %s\n", required)
			fmt.Fprintf(&b, "    Status: %s\n", item.Status)
		}
		b.WriteString("\n")
	}

	if len(v.NameCollisions) > 0 {
		fmt.Fprintf(&b, "WARNING: input names shared across tasks (last value wins): %s\n\n",
			strings.Join(v.NameCollisions, ", "))
	}

	if len(v.MissingInputs) > 0 {
		fmt.Fprintf(&b, "MISSING INPUTS: %s\n\n", strings.Join(v.MissingInputs, ", "))
	}

	b.WriteString("Are all these inputs correct?\n")
	b.WriteString("- Type 'yes' to proceed with rule creation\n")
	b.WriteString("- Type 'modify [TaskName.InputName]' to change a specific input\n")
	b.WriteString("- Type 'cancel' to abort rule creation")
	return b.String()
}

func statusMark(status string) string {
	if strings.Contains(status, "⚠") {
		return "⚠"
	}
	return "✓"
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
