package rule

import (
	"github.com/goccy/go-yaml"

	"github.com/policycow/cowmcp/engine/core"
)

const (
	// DocumentAPIVersion is the fixed apiVersion of every rule document.
	DocumentAPIVersion = "rule.policycow.live/v1alpha1"

	// DocumentKind is the fixed kind of every rule document.
	DocumentKind = "rule"
)

// Labels classify a rule document for cataloging and execution.
type Labels struct {
	AppType     []string `json:"appType"     yaml:"appType"     validate:"min=1"`
	Environment []string `json:"environment" yaml:"environment"`
	ExecLevel   []string `json:"execlevel"   yaml:"execlevel"`
}

// Annotations carry free-form classification of a rule document.
type Annotations struct {
	AnnotateType []string `json:"annotateType" yaml:"annotateType"`
	App          []string `json:"app"          yaml:"app"`
}

// Meta is the metadata block of a rule document.
type Meta struct {
	Name        string      `json:"name"        yaml:"name" validate:"required"`
	Purpose     string      `json:"purpose"     yaml:"purpose"`
	Description string      `json:"description" yaml:"description"`
	Labels      Labels      `json:"labels"      yaml:"labels"`
	Annotations Annotations `json:"annotations" yaml:"annotations"`
}

// TaskRef is one task entry in a rule document's spec. The alias names the
// task inside the rule ("t1".."tn") and is the place component of I/O-map
// addresses.
type TaskRef struct {
	Name    string              `json:"name"              yaml:"name"    validate:"required"`
	Alias   string              `json:"alias"             yaml:"alias"   validate:"required"`
	Type    string              `json:"type"              yaml:"type"`
	Purpose string              `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	AppTags map[string][]string `json:"appTags,omitempty" yaml:"appTags,omitempty"`
}

// Spec is the spec block of a rule document.
type Spec struct {
	Inputs      map[string]any `json:"inputs"       yaml:"inputs"`
	InputsMeta  []InputMeta    `json:"inputsMeta__" yaml:"inputsMeta__"`
	OutputsMeta []InputMeta    `json:"outputsMeta__,omitempty" yaml:"outputsMeta__,omitempty"`
	Tasks       []TaskRef      `json:"tasks"        yaml:"tasks" validate:"min=1,dive"`
	IOMap       []string       `json:"ioMap"        yaml:"ioMap"`
}

// Document is a complete rule document as submitted to the backend.
type Document struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion" validate:"required"`
	Kind       string `json:"kind"       yaml:"kind"       validate:"required"`
	Meta       Meta   `json:"meta"       yaml:"meta"`
	Spec       Spec   `json:"spec"       yaml:"spec"`
}

// YAMLPreview renders the document as YAML for review before submission.
func (d *Document) YAMLPreview() (string, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return "", core.Validationf("render rule document: %v", err)
	}
	return string(out), nil
}
