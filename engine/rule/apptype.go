package rule

import (
	"sort"

	"github.com/policycow/cowmcp/engine/catalog"
)

const (
	// PlaceholderAppType marks tasks that carry no real application
	// binding; it is ignored when resolving the primary type.
	PlaceholderAppType = "nocredapp"

	// GenericAppType is the fallback when no task declares a real
	// application type.
	GenericAppType = "generic"
)

// AppTypeResolution is the outcome of resolving a rule's primary
// application type from its selected tasks.
type AppTypeResolution struct {
	PrimaryAppType string              `json:"primary_app_type,omitempty"`
	AutoSelected   bool                `json:"auto_selected"`
	Ambiguous      bool                `json:"ambiguous"`
	Candidates     []string            `json:"candidates,omitempty"`
	CandidateTasks map[string][]string `json:"candidate_tasks,omitempty"`
	Message        string              `json:"message"`
}

// ResolvePrimaryAppType inspects the selected tasks' application types,
// discards the placeholder, and resolves a primary type. Exactly one
// distinct real type auto-selects it; more than one requires the caller to
// choose; none falls back to the generic type.
func ResolvePrimaryAppType(tasks []catalog.Task) *AppTypeResolution {
	candidateTasks := make(map[string][]string)
	for i := range tasks {
		appType := tasks[i].AppType()
		if appType == PlaceholderAppType || appType == GenericAppType {
			continue
		}
		candidateTasks[appType] = append(candidateTasks[appType], tasks[i].Name)
	}

	candidates := make([]string, 0, len(candidateTasks))
	for appType := range candidateTasks {
		candidates = append(candidates, appType)
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return &AppTypeResolution{
			PrimaryAppType: GenericAppType,
			Message:        "No specific application type found; using '" + GenericAppType + "'.",
		}
	case 1:
		return &AppTypeResolution{
			PrimaryAppType: candidates[0],
			AutoSelected:   true,
			Candidates:     candidates,
			CandidateTasks: candidateTasks,
			Message:        "Automatically selected application type '" + candidates[0] + "' from the chosen tasks.",
		}
	default:
		return &AppTypeResolution{
			Ambiguous:      true,
			Candidates:     candidates,
			CandidateTasks: candidateTasks,
			Message:        "Multiple application types found; choose one as the primary type for this rule.",
		}
	}
}
