package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policycow/cowmcp/engine/catalog"
)

func taskWithAppType(name, appType string) catalog.Task {
	task := catalog.Task{Name: name}
	if appType != "" {
		task.AppTags = map[string][]string{"appType": {appType}}
	}
	return task
}

func TestResolvePrimaryAppType(t *testing.T) {
	t.Run("Should auto-select the single real application type", func(t *testing.T) {
		resolution := ResolvePrimaryAppType([]catalog.Task{
			taskWithAppType("FetchSlackMessages", "Slack"),
			taskWithAppType("TransformRecords", PlaceholderAppType),
		})

		assert.True(t, resolution.AutoSelected)
		assert.False(t, resolution.Ambiguous)
		assert.Equal(t, "Slack", resolution.PrimaryAppType)
		assert.Equal(t, []string{"FetchSlackMessages"}, resolution.CandidateTasks["Slack"])
	})

	t.Run("Should report ambiguity when multiple real types appear", func(t *testing.T) {
		resolution := ResolvePrimaryAppType([]catalog.Task{
			taskWithAppType("FetchSlackMessages", "Slack"),
			taskWithAppType("CreateJiraTicket", "Jira"),
			taskWithAppType("TransformRecords", PlaceholderAppType),
		})

		require.True(t, resolution.Ambiguous)
		assert.False(t, resolution.AutoSelected)
		assert.Empty(t, resolution.PrimaryAppType)
		assert.Equal(t, []string{"Jira", "Slack"}, resolution.Candidates)
	})

	t.Run("Should fall back to generic when every type is the placeholder", func(t *testing.T) {
		resolution := ResolvePrimaryAppType([]catalog.Task{
			taskWithAppType("TransformRecords", PlaceholderAppType),
			taskWithAppType("FilterRecords", ""),
		})

		assert.Equal(t, GenericAppType, resolution.PrimaryAppType)
		assert.False(t, resolution.AutoSelected)
		assert.False(t, resolution.Ambiguous)
	})

	t.Run("Should collapse duplicate types into one candidate", func(t *testing.T) {
		resolution := ResolvePrimaryAppType([]catalog.Task{
			taskWithAppType("FetchSlackMessages", "Slack"),
			taskWithAppType("PostSlackSummary", "Slack"),
		})

		assert.True(t, resolution.AutoSelected)
		assert.Equal(t, "Slack", resolution.PrimaryAppType)
		assert.Len(t, resolution.CandidateTasks["Slack"], 2)
	})
}
