package analysis

import (
	"sort"

	"github.com/google/uuid"
)

// TopicPair is an unordered pair of topics. NewTopicPair orders the members so
// that (a, b) and (b, a) produce the same key.
type TopicPair struct {
	A, B string
}

func NewTopicPair(a, b string) TopicPair {
	if b < a {
		a, b = b, a
	}
	return TopicPair{A: a, B: b}
}

// SimilarityMatrix holds pairwise topic similarities.
type SimilarityMatrix map[TopicPair]float64

// Get returns the similarity of a and b regardless of argument order.
func (m SimilarityMatrix) Get(a, b string) float64 {
	return m[NewTopicPair(a, b)]
}

// SimilarityIndex records which conversations each topic appears in and
// answers Jaccard similarity queries over those sets.
type SimilarityIndex struct {
	conversations map[string]map[uuid.UUID]struct{}
}

func NewSimilarityIndex(occurrences []TopicOccurrence) *SimilarityIndex {
	idx := &SimilarityIndex{conversations: make(map[string]map[uuid.UUID]struct{})}
	for _, o := range occurrences {
		set, ok := idx.conversations[o.Topic]
		if !ok {
			set = make(map[uuid.UUID]struct{})
			idx.conversations[o.Topic] = set
		}
		set[o.ConversationID] = struct{}{}
	}
	return idx
}

// Similarity is |A ∩ B| / |A ∪ B| over the conversation sets of a and b.
// Unknown topics have similarity 0 with everything.
func (idx *SimilarityIndex) Similarity(a, b string) float64 {
	setA, setB := idx.conversations[a], idx.conversations[b]
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	if len(setB) < len(setA) {
		setA, setB = setB, setA
	}
	shared := 0
	for id := range setA {
		if _, ok := setB[id]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union)
}

// Topics returns every indexed topic in lexical order.
func (idx *SimilarityIndex) Topics() []string {
	topics := make([]string, 0, len(idx.conversations))
	for t := range idx.conversations {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Similarities computes the similarity of every pair of distinct topics.
// Cost is quadratic in the number of distinct topics.
func Similarities(occurrences []TopicOccurrence) SimilarityMatrix {
	idx := NewSimilarityIndex(occurrences)
	topics := idx.Topics()
	m := make(SimilarityMatrix, len(topics)*(len(topics)-1)/2)
	for i := range topics {
		for j := i + 1; j < len(topics); j++ {
			m[NewTopicPair(topics[i], topics[j])] = idx.Similarity(topics[i], topics[j])
		}
	}
	return m
}
