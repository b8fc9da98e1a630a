package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

func TestSuggestContent(t *testing.T) {
	gaps := models.TopicGapAnalysisResults{
		Period: models.Period{Start: testStart, End: testEnd},
		Gaps: []models.TopicGap{
			{Topic: "pricing", GapScore: 1, Frequency: 6, ExampleQuestions: []string{"How much?"}},
			{Topic: "billing", GapScore: 0.5, Frequency: 3},
		},
	}
	clusters := models.TopicClusteringResults{
		Clusters: []models.TopicCluster{
			{CentralTopic: "pricing", Frequency: 10, Relevance: 0.6},
			{CentralTopic: "shipping", Frequency: 5, Relevance: 0.3, RelatedTopics: []string{"delivery"}},
		},
	}

	out := SuggestContent(gaps, clusters, 10)
	require.Len(t, out.Suggestions, 3)
	assert.False(t, out.InsufficientData)
	assert.Equal(t, gaps.Period, out.Period)

	first := out.Suggestions[0]
	assert.Equal(t, "pricing", first.Topic)
	assert.Equal(t, models.ContentTypeFAQ, first.ContentType)
	assert.Equal(t, models.PriorityHigh, first.Priority)
	assert.Equal(t, []string{"How much?"}, first.ExampleQuestions)

	second := out.Suggestions[1]
	assert.Equal(t, "billing", second.Topic)
	assert.Equal(t, models.ContentTypeGuide, second.ContentType)
	assert.Equal(t, models.PriorityMedium, second.Priority)

	third := out.Suggestions[2]
	assert.Equal(t, "shipping", third.Topic)
	assert.Equal(t, models.ContentTypeOverview, third.ContentType)
	assert.Equal(t, models.PriorityLow, third.Priority)
	assert.Equal(t, []string{"delivery"}, third.RelatedTopics)
	assert.Equal(t, "Overview: shipping", third.Title)
}

func TestSuggestContent_Limit(t *testing.T) {
	clusters := models.TopicClusteringResults{
		Clusters: []models.TopicCluster{
			{CentralTopic: "a", Relevance: 0.2},
			{CentralTopic: "b", Relevance: 0.5},
			{CentralTopic: "c", Relevance: 0.3},
		},
	}
	out := SuggestContent(models.TopicGapAnalysisResults{}, clusters, 2)
	require.Len(t, out.Suggestions, 2)
	assert.Equal(t, "b", out.Suggestions[0].Topic)
	assert.Equal(t, "c", out.Suggestions[1].Topic)
}

func TestSuggestContent_Empty(t *testing.T) {
	out := SuggestContent(models.TopicGapAnalysisResults{}, models.TopicClusteringResults{}, 0)
	assert.NotNil(t, out.Suggestions)
	assert.Empty(t, out.Suggestions)
	assert.True(t, out.InsufficientData)
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, models.PriorityHigh, priorityFor(0.75))
	assert.Equal(t, models.PriorityMedium, priorityFor(0.5))
	assert.Equal(t, models.PriorityLow, priorityFor(0.49))
}
