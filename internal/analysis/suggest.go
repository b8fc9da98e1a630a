package analysis

import (
	"fmt"
	"sort"

	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// SuggestContent merges gap and cluster reports into a ranked list of content
// to write. Every gap yields an FAQ (when it has unanswered example questions)
// or a guide, scored by its gap score. Every cluster whose central topic is
// not already a gap yields an overview, scored by its relevance.
func SuggestContent(gaps models.TopicGapAnalysisResults, clusters models.TopicClusteringResults, limit int) models.ContentSuggestions {
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := models.ContentSuggestions{
		Suggestions: []models.ContentSuggestion{},
		Period:      gaps.Period,
	}

	covered := make(map[string]bool)
	for _, g := range gaps.Gaps {
		covered[g.Topic] = true

		s := models.ContentSuggestion{
			Topic:            g.Topic,
			Score:            g.GapScore,
			Priority:         priorityFor(g.GapScore),
			RelatedTopics:    g.RelatedTopics,
			ExampleQuestions: g.ExampleQuestions,
			Reason: fmt.Sprintf("%d mentions, %.0f%% of questions left unanswered",
				g.Frequency, g.GapScore*100),
		}
		if len(g.ExampleQuestions) > 0 {
			s.ContentType = models.ContentTypeFAQ
			s.Title = "Frequently asked questions about " + g.Topic
		} else {
			s.ContentType = models.ContentTypeGuide
			s.Title = "A guide to " + g.Topic
		}
		out.Suggestions = append(out.Suggestions, s)
	}

	for _, c := range clusters.Clusters {
		if covered[c.CentralTopic] {
			continue
		}
		covered[c.CentralTopic] = true
		out.Suggestions = append(out.Suggestions, models.ContentSuggestion{
			Title:         "Overview: " + c.CentralTopic,
			Topic:         c.CentralTopic,
			ContentType:   models.ContentTypeOverview,
			Score:         c.Relevance,
			Priority:      priorityFor(c.Relevance),
			RelatedTopics: c.RelatedTopics,
			Reason: fmt.Sprintf("discussed %d times, %.0f%% of all topic mentions",
				c.Frequency, c.Relevance*100),
		})
	}

	sort.SliceStable(out.Suggestions, func(i, j int) bool {
		return out.Suggestions[i].Score > out.Suggestions[j].Score
	})
	if len(out.Suggestions) > limit {
		out.Suggestions = out.Suggestions[:limit]
	}

	out.InsufficientData = len(out.Suggestions) == 0
	return out
}

func priorityFor(score float64) string {
	switch {
	case score >= 0.75:
		return models.PriorityHigh
	case score >= 0.5:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
