package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	t.Run("Should alias tasks sequentially and spread the primary type", func(t *testing.T) {
		doc := Assemble(&AssembleParams{
			RuleName:       "SlackComplianceCheck",
			Purpose:        "Check Slack channel compliance",
			PrimaryAppType: "Slack",
			Tasks:          workflowTasks(),
			TaskPurposes:   map[string]string{"FetchData": "Fetch raw records"},
			Inputs:         map[string]any{"Source": "api"},
			IOMap:          []string{"t1.Input.Source:=*.Input.Source"},
		})

		assert.Equal(t, DocumentAPIVersion, doc.APIVersion)
		assert.Equal(t, DocumentKind, doc.Kind)
		assert.Equal(t, []string{"Slack"}, doc.Meta.Labels.AppType)
		assert.Equal(t, []string{"Slack"}, doc.Meta.Annotations.AnnotateType)
		assert.Equal(t, []string{"Slack"}, doc.Meta.Annotations.App)
		assert.Equal(t, []string{"logical"}, doc.Meta.Labels.Environment)
		assert.Equal(t, []string{"app"}, doc.Meta.Labels.ExecLevel)

		require.Len(t, doc.Spec.Tasks, 2)
		assert.Equal(t, "t1", doc.Spec.Tasks[0].Alias)
		assert.Equal(t, "t2", doc.Spec.Tasks[1].Alias)
		assert.Equal(t, "Fetch raw records", doc.Spec.Tasks[0].Purpose)
		// Task-level appTags keep the task's own declared type.
		assert.Equal(t, []string{PlaceholderAppType}, doc.Spec.Tasks[1].AppTags["appType"])
	})

	t.Run("Should default the primary type to generic", func(t *testing.T) {
		doc := Assemble(&AssembleParams{RuleName: "Check", Tasks: workflowTasks()})
		assert.Equal(t, []string{GenericAppType}, doc.Meta.Labels.AppType)
	})
}

func TestDocument_YAMLPreview(t *testing.T) {
	t.Run("Should render the document structure as YAML", func(t *testing.T) {
		preview, err := workflowDocument().YAMLPreview()
		require.NoError(t, err)

		assert.Contains(t, preview, "apiVersion: rule.policycow.live/v1alpha1")
		assert.Contains(t, preview, "kind: rule")
		assert.Contains(t, preview, "inputsMeta__")
		assert.Contains(t, preview, "alias: t1")
	})
}
