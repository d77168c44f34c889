package catalog

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// Task is a reusable capability fetched from the backend catalog. It is
// immutable once fetched; this package only reads it.
type Task struct {
	Name            string              `json:"name"`
	DisplayName     string              `json:"displayName"`
	Version         string              `json:"version"`
	Description     string              `json:"description"`
	Type            string              `json:"type"`
	Tags            []string            `json:"tags"`
	ApplicationType string              `json:"applicationType"`
	Inputs          []TaskInput         `json:"inputs"`
	Outputs         []TaskOutput        `json:"outputs"`
	AppTags         map[string][]string `json:"appTags"`
	ReadmeData      string              `json:"readmeData"`
}

// TaskInput describes one declared input of a task.
type TaskInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	DataType        string `json:"dataType"`
	DefaultValue    string `json:"defaultValue"`
	ShowField       bool   `json:"showField"`
	Required        bool   `json:"required"`
	AllowUserValues bool   `json:"allowUserValues"`
	AllowedValues   []any  `json:"allowedValues"`
	TemplateFile    string `json:"templateFile"`
	Format          string `json:"format"`
}

// TaskOutput describes one declared output of a task.
type TaskOutput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DataType    string `json:"dataType"`
}

// HasTemplate reports whether the input carries an attached template file.
func (i *TaskInput) HasTemplate() bool {
	return i.TemplateFile != ""
}

// IsFileType reports whether the input's data type requires file storage.
func (i *TaskInput) IsFileType() bool {
	switch strings.ToUpper(i.DataType) {
	case "FILE", "HTTP_CONFIG":
		return true
	default:
		return false
	}
}

// IsTemplateInput reports whether the input is collected as file-shaped
// content. An input qualifies when it has a template attached or when its
// data type is FILE or HTTP_CONFIG, regardless of the other condition.
func (i *TaskInput) IsTemplateInput() bool {
	return i.HasTemplate() || i.IsFileType()
}

// Input returns the named input descriptor, or nil when the task does not
// declare it.
func (t *Task) Input(name string) *TaskInput {
	for idx := range t.Inputs {
		if t.Inputs[idx].Name == name {
			return &t.Inputs[idx]
		}
	}
	return nil
}

// Output returns the named output descriptor, or nil when the task does not
// declare it.
func (t *Task) Output(name string) *TaskOutput {
	for idx := range t.Outputs {
		if t.Outputs[idx].Name == name {
			return &t.Outputs[idx]
		}
	}
	return nil
}

// AppType returns the task's primary application type tag, or "generic"
// when none is declared.
func (t *Task) AppType() string {
	if values, ok := t.AppTags["appType"]; ok && len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return "generic"
}

// TemplateInputNames lists the names of inputs that carry templates.
func (t *Task) TemplateInputNames() []string {
	var names []string
	for i := range t.Inputs {
		if t.Inputs[i].HasTemplate() {
			names = append(names, t.Inputs[i].Name)
		}
	}
	return names
}

// DecodeContent decodes catalog payloads that may arrive base64-encoded.
// Content that is not valid base64, or whose decoded form is not valid
// UTF-8, is returned unchanged.
func DecodeContent(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return content
	}
	if !utf8.Valid(decoded) {
		return content
	}
	return string(decoded)
}
