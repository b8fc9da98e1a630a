package insights

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/brandpulse/internal/analysis"
	"github.com/kiranshivaraju/brandpulse/internal/cache"
	"github.com/kiranshivaraju/brandpulse/internal/metrics"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// --- mocks ---

type fakeSource struct {
	mu       sync.Mutex
	convs    []models.Conversation
	err      error
	markErr  error
	block    bool
	calls    int
	windows  [][2]time.Time
	analyzed []uuid.UUID
}

func (f *fakeSource) FindConversationsByBrand(ctx context.Context, _ uuid.UUID, start, end time.Time) ([]models.Conversation, error) {
	f.mu.Lock()
	f.calls++
	f.windows = append(f.windows, [2]time.Time{start, end})
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.convs, f.err
}

func (f *fakeSource) MarkConversationsAnalyzed(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzed = append(f.analyzed, ids...)
	return f.markErr
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Delete(context.Context, string) error { return nil }
func (m *memCache) Ping(context.Context) error           { return nil }

func (m *memCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 0, nil
}

// --- helpers ---

var (
	windowStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
)

func window() analysis.Window {
	return analysis.Window{Start: windowStart, End: windowEnd}
}

func conv(at time.Time, user string, reply string) models.Conversation {
	c := models.Conversation{ID: uuid.New(), StartedAt: at}
	c.Messages = append(c.Messages, models.Message{
		ID: uuid.New(), ConversationID: c.ID, Position: 0, Role: models.RoleUser, Content: user, Timestamp: at,
	})
	if reply != "" {
		c.Messages = append(c.Messages, models.Message{
			ID: uuid.New(), ConversationID: c.ID, Position: 1, Role: models.RoleAssistant, Content: reply, Timestamp: at,
		})
	}
	return c
}

func corpus() []models.Conversation {
	var convs []models.Conversation
	for i := 0; i < 3; i++ {
		at := windowStart.AddDate(0, 0, 2+i)
		convs = append(convs,
			conv(at, "How much does the premium plan cost?", ""),
			conv(at, "billing invoice problem", "Let me check."),
		)
	}
	return convs
}

func testTTLs() TTLs {
	return TTLs{Clusters: time.Minute, Trends: time.Minute, Gaps: time.Minute, Suggestions: time.Minute}
}

func newTestService(src *fakeSource, c cache.Cache) (*Service, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return NewService(src, c, nil, m, testTTLs(), 5*time.Second), m
}

// --- tests ---

func TestClusterTopics_ComputesThenServesFromCache(t *testing.T) {
	src := &fakeSource{convs: corpus()}
	svc, m := newTestService(src, newMemCache())
	ctx := context.Background()
	brandID := uuid.New()
	opts := analysis.ClusterOptions{Window: window()}

	first, err := svc.ClusterTopics(ctx, brandID, opts)
	require.NoError(t, err)
	require.NotEmpty(t, first.Clusters)
	assert.Equal(t, 6, first.TotalConversations)

	second, err := svc.ClusterTopics(ctx, brandID, opts)
	require.NoError(t, err)
	assert.Equal(t, first.Clusters, second.Clusters)

	assert.Equal(t, 1, src.callCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(cache.KindTopicClusters, metrics.SourceComputed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(cache.KindTopicClusters, metrics.SourceCache)))
}

func TestClusterTopics_FetchesResolvedWindow(t *testing.T) {
	src := &fakeSource{}
	svc, _ := newTestService(src, nil)
	fixed := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	res, err := svc.ClusterTopics(context.Background(), uuid.New(), analysis.ClusterOptions{})
	require.NoError(t, err)
	assert.True(t, res.InsufficientData)

	require.Len(t, src.windows, 1)
	assert.Equal(t, fixed.Add(-analysis.DefaultWindow), src.windows[0][0])
	assert.Equal(t, fixed, src.windows[0][1])
}

func TestService_InvalidOptions(t *testing.T) {
	src := &fakeSource{}
	svc, _ := newTestService(src, nil)
	ctx := context.Background()

	_, err := svc.ClusterTopics(ctx, uuid.New(), analysis.ClusterOptions{SimilarityThreshold: analysis.Float(2)})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = svc.TopicGaps(ctx, uuid.New(), analysis.GapOptions{Window: analysis.Window{Start: windowEnd, End: windowStart}})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = svc.QueryTrends(ctx, uuid.New(), analysis.TrendOptions{MinGrowthRate: analysis.Float(-1)})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = svc.SuggestContent(ctx, uuid.New(), analysis.SuggestionOptions{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	assert.Zero(t, src.callCount())
}

func TestService_FutureStartWithoutEndIsInvalid(t *testing.T) {
	src := &fakeSource{}
	svc, _ := newTestService(src, nil)
	fixed := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	future := analysis.Window{Start: fixed.Add(time.Hour)}
	_, err := svc.TopicGaps(context.Background(), uuid.New(), analysis.GapOptions{Window: future})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	_, err = svc.SuggestContent(context.Background(), uuid.New(), analysis.SuggestionOptions{Window: future})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Zero(t, src.callCount())
}

func TestService_SourceErrorIsReturnedAndCounted(t *testing.T) {
	boom := errors.New("connection reset")
	src := &fakeSource{err: boom}
	svc, m := newTestService(src, newMemCache())

	_, err := svc.QueryTrends(context.Background(), uuid.New(), analysis.TrendOptions{Window: window()})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisFailuresTotal.WithLabelValues(cache.KindQueryTrends)))
}

func TestService_Timeout(t *testing.T) {
	src := &fakeSource{block: true}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(src, nil, nil, m, testTTLs(), 20*time.Millisecond)

	_, err := svc.TopicGaps(context.Background(), uuid.New(), analysis.GapOptions{Window: window()})
	assert.ErrorIs(t, err, ErrAnalysisTimeout)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisFailuresTotal.WithLabelValues(cache.KindTopicGaps)))
}

func TestService_MarksConversationsAnalyzed(t *testing.T) {
	convs := corpus()
	src := &fakeSource{convs: convs, markErr: errors.New("read only")}
	svc, _ := newTestService(src, nil)

	_, err := svc.TopicGaps(context.Background(), uuid.New(), analysis.GapOptions{Window: window()})
	require.NoError(t, err, "mark failures must not fail the analysis")
	assert.Len(t, src.analyzed, len(convs))
	assert.Equal(t, convs[0].ID, src.analyzed[0])
}

func TestTopicGaps_ThroughService(t *testing.T) {
	src := &fakeSource{convs: corpus()}
	svc, _ := newTestService(src, nil)

	res, err := svc.TopicGaps(context.Background(), uuid.New(), analysis.GapOptions{Window: window()})
	require.NoError(t, err)

	var found bool
	for _, g := range res.Gaps {
		if g.Topic == "pricing" {
			found = true
			assert.Equal(t, 1.0, g.GapScore)
			assert.Equal(t, []string{"How much does the premium plan cost?"}, g.ExampleQuestions)
		}
	}
	assert.True(t, found, "expected a pricing gap")
}

func TestSuggestContent_MergesGapsAndClusters(t *testing.T) {
	src := &fakeSource{convs: corpus()}
	c := newMemCache()
	svc, _ := newTestService(src, c)

	res, err := svc.SuggestContent(context.Background(), uuid.New(), analysis.SuggestionOptions{Window: window(), Limit: 50})
	require.NoError(t, err)
	require.NotEmpty(t, res.Suggestions)
	assert.False(t, res.InsufficientData)

	types := map[string]bool{}
	for _, s := range res.Suggestions {
		types[s.ContentType] = true
	}
	assert.True(t, types[models.ContentTypeFAQ], "unanswered pricing questions yield an FAQ")
	assert.True(t, types[models.ContentTypeOverview], "billing cluster yields an overview")

	for i := 1; i < len(res.Suggestions); i++ {
		assert.GreaterOrEqual(t, res.Suggestions[i-1].Score, res.Suggestions[i].Score)
	}

	// suggestion, gap and cluster reports are each cached
	assert.Len(t, c.data, 3)
}

func TestService_CacheKeyUsesRawOptions(t *testing.T) {
	src := &fakeSource{convs: corpus()}
	c := newMemCache()
	svc, _ := newTestService(src, c)
	brandID := uuid.New()

	_, err := svc.QueryTrends(context.Background(), brandID, analysis.TrendOptions{Window: window()})
	require.NoError(t, err)

	key, err := cache.AnalysisKey(cache.KindQueryTrends, brandID, analysis.TrendOptions{Window: window()})
	require.NoError(t, err)
	_, ok := c.data[key]
	assert.True(t, ok, "expected entry under %s", key)
}

func TestService_ConcurrentCallsComputeOnce(t *testing.T) {
	src := &fakeSource{convs: corpus()}
	svc, _ := newTestService(src, newMemCache())
	brandID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ClusterTopics(context.Background(), brandID, analysis.ClusterOptions{Window: window()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, src.callCount())
}
