// Package insights serves the mining core over stored conversations. It
// fetches a brand's corpus for the requested window, runs the analysis and
// caches the report per analysis kind.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kiranshivaraju/brandpulse/internal/analysis"
	"github.com/kiranshivaraju/brandpulse/internal/cache"
	"github.com/kiranshivaraju/brandpulse/internal/metrics"
	"github.com/kiranshivaraju/brandpulse/internal/store"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

var (
	ErrInvalidOptions  = analysis.ErrInvalidOptions
	ErrAnalysisTimeout = errors.New("analysis timed out")
)

// TTLs holds the cache lifetime of each analysis kind.
type TTLs struct {
	Clusters    time.Duration
	Trends      time.Duration
	Gaps        time.Duration
	Suggestions time.Duration
}

// Service runs analyses for the API and CLI. It is safe for concurrent use.
type Service struct {
	source   store.ConversationSource
	cache    cache.Cache
	analyzer *analysis.Analyzer
	metrics  *metrics.Metrics
	ttls     TTLs
	timeout  time.Duration
	now      func() time.Time

	flight singleflight.Group
}

// NewService creates a Service. A nil cache disables caching and a nil
// analyzer uses the built-in lexicon.
func NewService(source store.ConversationSource, c cache.Cache, analyzer *analysis.Analyzer, m *metrics.Metrics, ttls TTLs, timeout time.Duration) *Service {
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer(nil)
	}
	return &Service{
		source:   source,
		cache:    c,
		analyzer: analyzer,
		metrics:  m,
		ttls:     ttls,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type options[O any] interface {
	Validate() error
	Resolve(now time.Time) O
}

// resolveOptions validates opts as given and again once defaults are applied,
// so a start after the defaulted end is rejected.
func resolveOptions[O options[O]](opts O, now time.Time) (O, error) {
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	resolved := opts.Resolve(now)
	if err := resolved.Validate(); err != nil {
		return opts, err
	}
	return resolved, nil
}

// ClusterTopics groups the brand's topics into clusters of co-occurring topics.
func (s *Service) ClusterTopics(ctx context.Context, brandID uuid.UUID, opts analysis.ClusterOptions) (models.TopicClusteringResults, error) {
	resolved, err := resolveOptions(opts, s.now())
	if err != nil {
		return models.TopicClusteringResults{}, err
	}
	return run(ctx, s, cache.KindTopicClusters, brandID, opts, s.ttls.Clusters,
		func(ctx context.Context) (models.TopicClusteringResults, int, error) {
			convs, err := s.corpus(ctx, brandID, resolved.Window)
			if err != nil {
				return models.TopicClusteringResults{}, 0, err
			}
			return s.analyzer.ClusterTopics(convs, resolved), len(convs), nil
		})
}

// QueryTrends reports the brand's rising, falling and stable query phrases.
func (s *Service) QueryTrends(ctx context.Context, brandID uuid.UUID, opts analysis.TrendOptions) (models.QueryTrendAnalysis, error) {
	resolved, err := resolveOptions(opts, s.now())
	if err != nil {
		return models.QueryTrendAnalysis{}, err
	}
	return run(ctx, s, cache.KindQueryTrends, brandID, opts, s.ttls.Trends,
		func(ctx context.Context) (models.QueryTrendAnalysis, int, error) {
			convs, err := s.corpus(ctx, brandID, resolved.Window)
			if err != nil {
				return models.QueryTrendAnalysis{}, 0, err
			}
			return s.analyzer.QueryTrends(convs, resolved), len(convs), nil
		})
}

// TopicGaps reports the topics the brand's assistant leaves unanswered.
func (s *Service) TopicGaps(ctx context.Context, brandID uuid.UUID, opts analysis.GapOptions) (models.TopicGapAnalysisResults, error) {
	resolved, err := resolveOptions(opts, s.now())
	if err != nil {
		return models.TopicGapAnalysisResults{}, err
	}
	return run(ctx, s, cache.KindTopicGaps, brandID, opts, s.ttls.Gaps,
		func(ctx context.Context) (models.TopicGapAnalysisResults, int, error) {
			convs, err := s.corpus(ctx, brandID, resolved.Window)
			if err != nil {
				return models.TopicGapAnalysisResults{}, 0, err
			}
			return s.analyzer.TopicGaps(convs, resolved), len(convs), nil
		})
}

// SuggestContent merges the gap and cluster reports of the same window into
// ranked content suggestions. Both reports are fetched concurrently and go
// through their own caches.
func (s *Service) SuggestContent(ctx context.Context, brandID uuid.UUID, opts analysis.SuggestionOptions) (models.ContentSuggestions, error) {
	resolved, err := resolveOptions(opts, s.now())
	if err != nil {
		return models.ContentSuggestions{}, err
	}
	return run(ctx, s, cache.KindContentSuggestions, brandID, opts, s.ttls.Suggestions,
		func(ctx context.Context) (models.ContentSuggestions, int, error) {
			var (
				gaps     models.TopicGapAnalysisResults
				clusters models.TopicClusteringResults
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				gaps, err = s.TopicGaps(gctx, brandID, analysis.GapOptions{Window: resolved.Window})
				return err
			})
			g.Go(func() error {
				var err error
				clusters, err = s.ClusterTopics(gctx, brandID, analysis.ClusterOptions{Window: resolved.Window})
				return err
			})
			if err := g.Wait(); err != nil {
				return models.ContentSuggestions{}, 0, err
			}
			return analysis.SuggestContent(gaps, clusters, resolved.Limit), gaps.TotalConversationsAnalyzed, nil
		})
}

// corpus fetches the brand's conversations for w and marks them analyzed.
// Marking is best effort: a failure is logged and does not fail the analysis.
func (s *Service) corpus(ctx context.Context, brandID uuid.UUID, w analysis.Window) ([]models.Conversation, error) {
	convs, err := s.source.FindConversationsByBrand(ctx, brandID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("fetch corpus: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(convs) > 0 {
		ids := make([]uuid.UUID, len(convs))
		for i, c := range convs {
			ids[i] = c.ID
		}
		if err := s.source.MarkConversationsAnalyzed(ctx, ids, s.now()); err != nil {
			slog.Warn("mark conversations analyzed failed", "brand_id", brandID, "error", err)
		}
	}
	return convs, nil
}

type outcome[T any] struct {
	value         T
	conversations int
	cached        bool
}

// run executes compute for one (kind, brand, options) request. Concurrent
// identical requests share a single execution, which is bounded by the
// service timeout and outlives the cancellation of any single caller.
func run[T any](ctx context.Context, s *Service, kind string, brandID uuid.UUID, rawOpts any, ttl time.Duration,
	compute func(context.Context) (T, int, error)) (T, error) {
	var zero T
	start := time.Now()

	key, err := cache.AnalysisKey(kind, brandID, rawOpts)
	if err != nil {
		return zero, err
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		var conversations int
		value, cached, err := cache.GetOrSet(runCtx, s.cache, key, ttl, func(ctx context.Context) (T, error) {
			value, n, err := compute(ctx)
			conversations = n
			return value, err
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%s: %w", kind, ErrAnalysisTimeout)
			}
			return nil, err
		}
		return outcome[T]{value: value, conversations: conversations, cached: cached}, nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordAnalysisFailure(kind)
		}
		slog.Error("analysis failed", "kind", kind, "brand_id", brandID, "error", err)
		return zero, err
	}

	out := v.(outcome[T])
	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordAnalysis(kind, out.cached, out.conversations, duration)
	}
	slog.Info("analysis completed",
		"kind", kind,
		"brand_id", brandID,
		"conversations", out.conversations,
		"duration_ms", duration.Milliseconds(),
		"cached", out.cached,
	)
	return out.value, nil
}
