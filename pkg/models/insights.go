package models

import "time"

// Period is the analysis window a report was computed over.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TopicCluster groups topics that tend to appear in the same conversations.
// RelatedTopics never contains CentralTopic.
type TopicCluster struct {
	CentralTopic  string   `json:"central_topic"`
	RelatedTopics []string `json:"related_topics"`
	Frequency     int      `json:"frequency"`
	Relevance     float64  `json:"relevance"`
	Examples      []string `json:"examples"`
}

type TopicClusteringResults struct {
	Clusters           []TopicCluster `json:"clusters"`
	Period             Period         `json:"period"`
	TotalTopics        int            `json:"total_topics"`
	TotalConversations int            `json:"total_conversations"`
	InsufficientData   bool           `json:"insufficient_data"`
}

// QueryTrend describes how often a user query phrase appeared and how that
// changed between the two halves of the analysis window.
type QueryTrend struct {
	Pattern       string    `json:"pattern"`
	Frequency     int       `json:"frequency"`
	GrowthRate    float64   `json:"growth_rate"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	RelatedTopics []string  `json:"related_topics"`
}

type QueryTrendAnalysis struct {
	RisingTrends     []QueryTrend `json:"rising_trends"`
	FallingTrends    []QueryTrend `json:"falling_trends"`
	StableTrends     []QueryTrend `json:"stable_trends"`
	Period           Period       `json:"period"`
	TotalQueries     int          `json:"total_queries"`
	InsufficientData bool         `json:"insufficient_data"`
}

// TopicGap is a topic users ask about that rarely gets an answer.
// GapScore is 1 - satisfaction and lies in [0, 1].
type TopicGap struct {
	Topic                 string   `json:"topic"`
	GapScore              float64  `json:"gap_score"`
	RelatedTopics         []string `json:"related_topics"`
	Frequency             int      `json:"frequency"`
	ExampleQuestions      []string `json:"example_questions"`
	SuggestedContentAreas []string `json:"suggested_content_areas"`
}

type TopicGapAnalysisResults struct {
	Gaps                       []TopicGap `json:"gaps"`
	Period                     Period     `json:"period"`
	TotalTopicsAnalyzed        int        `json:"total_topics_analyzed"`
	TotalConversationsAnalyzed int        `json:"total_conversations_analyzed"`
	InsufficientData           bool       `json:"insufficient_data"`
}

const (
	ContentTypeFAQ      = "faq"
	ContentTypeGuide    = "guide"
	ContentTypeOverview = "overview"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ContentSuggestion is a piece of content the brand should write, derived from
// topic gaps and topic clusters.
type ContentSuggestion struct {
	Title            string   `json:"title"`
	Topic            string   `json:"topic"`
	ContentType      string   `json:"content_type"`
	Priority         string   `json:"priority"`
	Score            float64  `json:"score"`
	Reason           string   `json:"reason"`
	RelatedTopics    []string `json:"related_topics"`
	ExampleQuestions []string `json:"example_questions,omitempty"`
}

type ContentSuggestions struct {
	Suggestions      []ContentSuggestion `json:"suggestions"`
	Period           Period              `json:"period"`
	InsufficientData bool                `json:"insufficient_data"`
}
