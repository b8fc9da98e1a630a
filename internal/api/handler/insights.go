package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/brandpulse/internal/analysis"
	mw "github.com/kiranshivaraju/brandpulse/internal/api/middleware"
	"github.com/kiranshivaraju/brandpulse/internal/api/response"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// Insights defines the interface the insight handlers depend on.
type Insights interface {
	ClusterTopics(ctx context.Context, brandID uuid.UUID, opts analysis.ClusterOptions) (models.TopicClusteringResults, error)
	QueryTrends(ctx context.Context, brandID uuid.UUID, opts analysis.TrendOptions) (models.QueryTrendAnalysis, error)
	TopicGaps(ctx context.Context, brandID uuid.UUID, opts analysis.GapOptions) (models.TopicGapAnalysisResults, error)
	SuggestContent(ctx context.Context, brandID uuid.UUID, opts analysis.SuggestionOptions) (models.ContentSuggestions, error)
}

// queryParams parses optional query parameters, keeping the first error.
type queryParams struct {
	values url.Values
	err    error
}

func (p *queryParams) intValue(name string) int {
	v, err := intParam(p.values.Get(name))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be an integer", name)
	}
	return v
}

func (p *queryParams) floatValue(name string) *float64 {
	v, err := floatParam(p.values.Get(name))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be a finite number", name)
	}
	return v
}

func (p *queryParams) window() analysis.Window {
	start, err := timeParam(p.values.Get("start"))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("start must be a valid RFC3339 timestamp")
	}
	end, err := timeParam(p.values.Get("end"))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("end must be a valid RFC3339 timestamp")
	}
	return analysis.Window{Start: start, End: end}
}

// insightHandler wires the shared parse, brand lookup and error mapping
// around one analysis call.
func insightHandler[O, R any](parse func(*queryParams) O, run func(context.Context, uuid.UUID, O) (R, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brandID, ok := mw.GetBrandID(r)
		if !ok {
			missingBrand(w)
			return
		}

		p := &queryParams{values: r.URL.Query()}
		opts := parse(p)
		if p.err != nil {
			invalidRequest(w, p.err.Error())
			return
		}

		result, err := run(r.Context(), brandID, opts)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, result)
	}
}

// NewTopicClustersHandler returns an http.HandlerFunc for
// GET /api/v1/insights/topic-clusters.
func NewTopicClustersHandler(svc Insights) http.HandlerFunc {
	return insightHandler(func(p *queryParams) analysis.ClusterOptions {
		return analysis.ClusterOptions{
			Window:              p.window(),
			MinFrequency:        p.intValue("min_frequency"),
			SimilarityThreshold: p.floatValue("similarity_threshold"),
			Limit:               p.intValue("limit"),
		}
	}, svc.ClusterTopics)
}

// NewQueryTrendsHandler returns an http.HandlerFunc for
// GET /api/v1/insights/query-trends.
func NewQueryTrendsHandler(svc Insights) http.HandlerFunc {
	return insightHandler(func(p *queryParams) analysis.TrendOptions {
		return analysis.TrendOptions{
			Window:        p.window(),
			MinFrequency:  p.intValue("min_frequency"),
			MinGrowthRate: p.floatValue("min_growth_rate"),
			Limit:         p.intValue("limit"),
		}
	}, svc.QueryTrends)
}

// NewTopicGapsHandler returns an http.HandlerFunc for
// GET /api/v1/insights/topic-gaps.
func NewTopicGapsHandler(svc Insights) http.HandlerFunc {
	return insightHandler(func(p *queryParams) analysis.GapOptions {
		return analysis.GapOptions{
			Window:       p.window(),
			MinFrequency: p.intValue("min_frequency"),
			MinGapScore:  p.floatValue("min_gap_score"),
			Limit:        p.intValue("limit"),
		}
	}, svc.TopicGaps)
}

// NewContentSuggestionsHandler returns an http.HandlerFunc for
// GET /api/v1/insights/content-suggestions.
func NewContentSuggestionsHandler(svc Insights) http.HandlerFunc {
	return insightHandler(func(p *queryParams) analysis.SuggestionOptions {
		return analysis.SuggestionOptions{
			Window: p.window(),
			Limit:  p.intValue("limit"),
		}
	}, svc.SuggestContent)
}
