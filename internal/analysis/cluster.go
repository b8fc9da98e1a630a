package analysis

import (
	"sort"
	"strings"
	"time"

	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

const (
	maxClusterExamples = 3
	maxExampleBytes    = 500
)

// ClusterTopics groups the topics of a corpus into clusters of topics that
// appear in the same conversations.
//
// Topics below MinFrequency are dropped. Two surviving topics are linked when
// their similarity is at least SimilarityThreshold, and each connected
// component of that graph becomes one cluster, keyed by its most frequent
// member. Clusters are sorted by Frequency DESC and truncated to Limit.
// Returns an empty (never nil) cluster slice for an empty corpus.
func (a *Analyzer) ClusterTopics(convs []models.Conversation, opts ClusterOptions) models.TopicClusteringResults {
	opts = opts.Resolve(time.Now())
	start, end := periodOf(opts.Window)

	result := models.TopicClusteringResults{
		Clusters:           []models.TopicCluster{},
		Period:             models.Period{Start: start, End: end},
		TotalConversations: len(convs),
	}

	occurrences, _ := a.lexicon.Occurrences(convs)
	freq := Frequencies(occurrences)
	result.TotalTopics = len(freq)

	topics := rankTopics(freq, opts.MinFrequency)
	if len(topics) == 0 {
		result.InsufficientData = true
		return result
	}

	idx := NewSimilarityIndex(occurrences)
	sets := newDisjointSet(len(topics))
	for i := range topics {
		for j := i + 1; j < len(topics); j++ {
			if idx.Similarity(topics[i], topics[j]) >= *opts.SimilarityThreshold {
				sets.union(i, j)
			}
		}
	}

	total := totalFrequency(freq)
	clusters := make([]models.TopicCluster, 0)
	clusterOf := make(map[int]int)
	for i, topic := range topics {
		root := sets.find(i)
		ci, ok := clusterOf[root]
		if !ok {
			// topics are ranked, so the first member seen is the key
			ci = len(clusters)
			clusterOf[root] = ci
			clusters = append(clusters, models.TopicCluster{
				CentralTopic:  topic,
				RelatedTopics: []string{},
			})
		} else {
			clusters[ci].RelatedTopics = append(clusters[ci].RelatedTopics, topic)
		}
		clusters[ci].Frequency += freq[topic]
	}

	for i := range clusters {
		clusters[i].Relevance = float64(clusters[i].Frequency) / float64(total)
	}

	// Stable: equal frequencies keep the rank order of their central topics.
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Frequency > clusters[j].Frequency
	})
	if len(clusters) > opts.Limit {
		clusters = clusters[:opts.Limit]
	}

	for i := range clusters {
		clusters[i].Examples = clusterExamples(convs, clusters[i])
	}

	result.Clusters = clusters
	return result
}

// rankTopics returns the topics with at least minFrequency occurrences, most
// frequent first. Ties go to the longer (more specific) topic, then lexical order.
func rankTopics(freq map[string]int, minFrequency int) []string {
	topics := make([]string, 0, len(freq))
	for t, n := range freq {
		if n >= minFrequency {
			topics = append(topics, t)
		}
	}
	sort.Slice(topics, func(i, j int) bool {
		a, b := topics[i], topics[j]
		if freq[a] != freq[b] {
			return freq[a] > freq[b]
		}
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return topics
}

// clusterExamples returns up to three distinct user messages mentioning any
// topic of the cluster.
func clusterExamples(convs []models.Conversation, c models.TopicCluster) []string {
	members := append([]string{c.CentralTopic}, c.RelatedTopics...)
	examples := make([]string, 0, maxClusterExamples)
	seen := newOrderedSet()

	userMessages(convs, func(_ models.Conversation, msg models.Message) bool {
		lowered := strings.ToLower(msg.Content)
		for _, topic := range members {
			if strings.Contains(lowered, topic) {
				text := truncateString(strings.TrimSpace(msg.Content), maxExampleBytes)
				if !seen.has(text) {
					seen.add(text)
					examples = append(examples, text)
				}
				break
			}
		}
		return len(examples) < maxClusterExamples
	})
	return examples
}

// disjointSet is a union-find over indexes 0..n-1. The root of a merged set is
// always its smallest index.
type disjointSet struct {
	parent []int
}

func newDisjointSet(n int) *disjointSet {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &disjointSet{parent: parent}
}

func (d *disjointSet) find(i int) int {
	for d.parent[i] != i {
		d.parent[i] = d.parent[d.parent[i]]
		i = d.parent[i]
	}
	return i
}

func (d *disjointSet) union(i, j int) {
	ri, rj := d.find(i), d.find(j)
	if ri == rj {
		return
	}
	if rj < ri {
		ri, rj = rj, ri
	}
	d.parent[rj] = ri
}
