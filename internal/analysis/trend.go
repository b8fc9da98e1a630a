package analysis

import (
	"sort"
	"time"

	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

const maxTrendRelatedTopics = 5

// phraseStats accumulates the occurrences of one key phrase.
type phraseStats struct {
	pattern string
	times   []time.Time
	related map[string]int
}

// QueryTrends tracks every key phrase of every user message over the window
// and classifies it by GrowthRate: the percent change in occurrences between
// the first and second half of the window. The two-bucket rate is a coarse
// signal and is sensitive to where bursts fall relative to the midpoint.
//
// Phrases with at least MinFrequency occurrences are rising when GrowthRate >=
// MinGrowthRate, falling when GrowthRate <= -MinGrowthRate, and stable
// otherwise. Each list is truncated to Limit.
func (a *Analyzer) QueryTrends(convs []models.Conversation, opts TrendOptions) models.QueryTrendAnalysis {
	opts = opts.Resolve(time.Now())
	start, end := periodOf(opts.Window)

	result := models.QueryTrendAnalysis{
		RisingTrends:  []models.QueryTrend{},
		FallingTrends: []models.QueryTrend{},
		StableTrends:  []models.QueryTrend{},
		Period:        models.Period{Start: start, End: end},
	}

	phrases := make(map[string]*phraseStats)
	userMessages(convs, func(_ models.Conversation, msg models.Message) bool {
		result.TotalQueries++
		related := a.lexicon.relatedTerms(msg.Content)
		for _, p := range a.lexicon.KeyPhrases(msg.Content) {
			ps, ok := phrases[p]
			if !ok {
				ps = &phraseStats{pattern: p, related: make(map[string]int)}
				phrases[p] = ps
			}
			ps.times = append(ps.times, msg.Timestamp)
			for _, r := range related {
				if r != p {
					ps.related[r]++
				}
			}
		}
		return true
	})

	midPoint := opts.Start.Add(opts.End.Sub(opts.Start) / 2)
	for _, ps := range phrases {
		if len(ps.times) < opts.MinFrequency {
			continue
		}
		trend := ps.trend(midPoint)
		switch {
		case trend.GrowthRate >= *opts.MinGrowthRate:
			result.RisingTrends = append(result.RisingTrends, trend)
		case trend.GrowthRate <= -*opts.MinGrowthRate:
			result.FallingTrends = append(result.FallingTrends, trend)
		default:
			result.StableTrends = append(result.StableTrends, trend)
		}
	}

	sort.Slice(result.RisingTrends, func(i, j int) bool {
		return trendLess(result.RisingTrends[i], result.RisingTrends[j], -1)
	})
	sort.Slice(result.FallingTrends, func(i, j int) bool {
		return trendLess(result.FallingTrends[i], result.FallingTrends[j], 1)
	})
	sort.Slice(result.StableTrends, func(i, j int) bool {
		return trendLess(result.StableTrends[i], result.StableTrends[j], 0)
	})

	result.RisingTrends = truncateTrends(result.RisingTrends, opts.Limit)
	result.FallingTrends = truncateTrends(result.FallingTrends, opts.Limit)
	result.StableTrends = truncateTrends(result.StableTrends, opts.Limit)

	result.InsufficientData = len(result.RisingTrends)+len(result.FallingTrends)+len(result.StableTrends) == 0
	return result
}

func (ps *phraseStats) trend(midPoint time.Time) models.QueryTrend {
	sort.Slice(ps.times, func(i, j int) bool { return ps.times[i].Before(ps.times[j]) })

	firstHalf, secondHalf := 0, 0
	for _, t := range ps.times {
		if t.Before(midPoint) {
			firstHalf++
		} else {
			secondHalf++
		}
	}

	return models.QueryTrend{
		Pattern:       ps.pattern,
		Frequency:     len(ps.times),
		GrowthRate:    GrowthRate(firstHalf, secondHalf),
		FirstSeen:     ps.times[0],
		LastSeen:      ps.times[len(ps.times)-1],
		RelatedTopics: topByCount(ps.related, maxTrendRelatedTopics),
	}
}

// GrowthRate is the percent change from first to second. With no first-half
// occurrences it is 100 when the second half has any, else 0.
func GrowthRate(first, second int) float64 {
	if first > 0 {
		return float64(second-first) / float64(first) * 100
	}
	if second > 0 {
		return 100
	}
	return 0
}

// trendLess orders by growth rate in direction dir (-1 descending, 1
// ascending, 0 ignored), then frequency descending, then pattern.
func trendLess(a, b models.QueryTrend, dir int) bool {
	if dir != 0 && a.GrowthRate != b.GrowthRate {
		if dir < 0 {
			return a.GrowthRate > b.GrowthRate
		}
		return a.GrowthRate < b.GrowthRate
	}
	if a.Frequency != b.Frequency {
		return a.Frequency > b.Frequency
	}
	return a.Pattern < b.Pattern
}

func truncateTrends(trends []models.QueryTrend, limit int) []models.QueryTrend {
	if len(trends) > limit {
		return trends[:limit]
	}
	return trends
}

// topByCount returns up to n keys ranked by count DESC, then lexical order.
func topByCount(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
