package cache

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Analysis kinds, used as cache key namespaces and metric labels.
const (
	KindTopicClusters      = "topic_clusters"
	KindQueryTrends        = "query_trends"
	KindTopicGaps          = "topic_gaps"
	KindContentSuggestions = "content_suggestions"
)

// AnalysisKey builds "{kind}:{brandID}:{options as JSON}". Options are encoded
// as the caller passed them, so identical requests share an entry.
func AnalysisKey(kind string, brandID uuid.UUID, opts any) (string, error) {
	raw, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("encode cache key options: %w", err)
	}
	return fmt.Sprintf("%s:%s:%s", kind, brandID, raw), nil
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
