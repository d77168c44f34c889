package rule

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/policycow/cowmcp/engine/core"
)

// TemplateFormat is the declared syntax of a template input's content.
type TemplateFormat string

const (
	FormatJSON TemplateFormat = "json"
	FormatYAML TemplateFormat = "yaml"
	FormatTOML TemplateFormat = "toml"
	FormatXML  TemplateFormat = "xml"
	FormatText TemplateFormat = "text"
)

// ParseFormat normalizes a catalog format string. Unknown or empty formats
// are treated as plain text.
func ParseFormat(s string) TemplateFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "toml":
		return FormatTOML
	case "xml":
		return FormatXML
	default:
		return FormatText
	}
}

// Extension returns the file extension used when the content is uploaded.
func (f TemplateFormat) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatTOML:
		return ".toml"
	case FormatXML:
		return ".xml"
	default:
		return ".txt"
	}
}

// ValidateSyntax checks that content parses under the format. JSON accepts
// both objects and arrays; XML only needs to be well-formed.
func (f TemplateFormat) ValidateSyntax(content string) error {
	switch f {
	case FormatJSON:
		var parsed any
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return core.Validationf("invalid JSON: %v", err)
		}
	case FormatYAML:
		var parsed any
		if err := yaml.Unmarshal([]byte(content), &parsed); err != nil {
			return core.Validationf("invalid YAML: %v", err)
		}
	case FormatTOML:
		parsed := map[string]any{}
		if err := toml.Unmarshal([]byte(content), &parsed); err != nil {
			return core.Validationf("invalid TOML: %v", err)
		}
	case FormatXML:
		decoder := xml.NewDecoder(bytes.NewReader([]byte(content)))
		sawElement := false
		for {
			token, err := decoder.Token()
			if err == io.EOF {
				break
			}
			if err != nil {
				return core.Validationf("invalid XML: %v", err)
			}
			if _, ok := token.(xml.StartElement); ok {
				sawElement = true
			}
		}
		if !sawElement {
			return core.Validationf("invalid XML: no elements found")
		}
	}
	return nil
}

// TopLevelFields extracts the top-level field names of structured content.
// For JSON arrays the first element's keys are used. XML and plain text
// have no extractable field set.
func (f TemplateFormat) TopLevelFields(content string) []string {
	var parsed any
	switch f {
	case FormatJSON:
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return nil
		}
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(content), &parsed); err != nil {
			return nil
		}
	case FormatTOML:
		target := map[string]any{}
		if err := toml.Unmarshal([]byte(content), &target); err != nil {
			return nil
		}
		parsed = target
	default:
		return nil
	}
	return mapKeys(parsed)
}

// MissingFields returns the template's top-level fields absent from the
// user content.
func (f TemplateFormat) MissingFields(template, content string) []string {
	required := f.TopLevelFields(template)
	if len(required) == 0 {
		return nil
	}
	present := make(map[string]bool)
	for _, field := range f.TopLevelFields(content) {
		present[field] = true
	}
	var missing []string
	for _, field := range required {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	return missing
}

// ValidationRules describes the format's validation constraints for
// presentation to the user.
func (f TemplateFormat) ValidationRules() []string {
	switch f {
	case FormatJSON:
		return []string{
			"Must be valid JSON (object or array) with proper brackets and quotes",
			"All template fields must be present in the content",
		}
	case FormatYAML:
		return []string{
			"Must have correct YAML indentation and structure",
			"All template fields must be present in the content",
		}
	case FormatTOML:
		return []string{
			"Must follow TOML syntax with proper sections [section_name]",
			"All template fields must be present in the content",
		}
	case FormatXML:
		return []string{
			"Must be well-formed XML with properly closed tags",
		}
	default:
		return []string{"Free-form text content"}
	}
}

func mapKeys(parsed any) []string {
	switch value := parsed.(type) {
	case map[string]any:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return keys
	case []any:
		if len(value) > 0 {
			return mapKeys(value[0])
		}
	}
	return nil
}
