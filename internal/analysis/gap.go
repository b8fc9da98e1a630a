package analysis

import (
	"sort"
	"time"

	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

const (
	maxGapRelatedTopics    = 5
	maxGapExampleQuestions = 3
	maxGapContentAreas     = 5
	gapAreaRelatedTopics   = 2
)

// satisfaction counts, per topic, the questions that referenced it and how
// many of those got an immediate assistant reply.
type satisfaction struct {
	answered int
	total    int
}

func (s satisfaction) score() float64 {
	if s.total == 0 {
		return 1
	}
	return float64(s.answered) / float64(s.total)
}

// TopicGaps finds topics users ask about that rarely get an answer.
//
// A topic's satisfaction is the fraction of questions referencing it that were
// immediately followed by an assistant message (1 when never asked as a
// question); GapScore = 1 - satisfaction. Topics with at least MinFrequency
// occurrences and GapScore >= MinGapScore are reported, highest GapScore first.
// InsufficientData is set when no topic qualifies.
func (a *Analyzer) TopicGaps(convs []models.Conversation, opts GapOptions) models.TopicGapAnalysisResults {
	opts = opts.Resolve(time.Now())
	start, end := periodOf(opts.Window)

	result := models.TopicGapAnalysisResults{
		Gaps:                       []models.TopicGap{},
		Period:                     models.Period{Start: start, End: end},
		TotalConversationsAnalyzed: len(convs),
	}

	occurrences, questions := a.lexicon.Occurrences(convs)
	freq := Frequencies(occurrences)
	result.TotalTopicsAnalyzed = len(freq)

	sat := make(map[string]*satisfaction)
	coOccurring := make(map[string]map[string]int)
	unanswered := make(map[string]*orderedSet)
	for _, q := range questions {
		for _, topic := range q.Topics {
			s, ok := sat[topic]
			if !ok {
				s = &satisfaction{}
				sat[topic] = s
			}
			s.total++
			if q.IsAnswered {
				s.answered++
			} else {
				if unanswered[topic] == nil {
					unanswered[topic] = newOrderedSet()
				}
				unanswered[topic].add(q.Question)
			}

			for _, other := range q.Topics {
				if other == topic {
					continue
				}
				if coOccurring[topic] == nil {
					coOccurring[topic] = make(map[string]int)
				}
				coOccurring[topic][other]++
			}
		}
	}

	for topic, n := range freq {
		if n < opts.MinFrequency {
			continue
		}
		score := 1.0
		if s, ok := sat[topic]; ok {
			score = s.score()
		}
		gapScore := 1 - score
		if gapScore < *opts.MinGapScore {
			continue
		}

		related := topByCount(coOccurring[topic], maxGapRelatedTopics)
		var examples []string
		if set := unanswered[topic]; set != nil {
			examples = set.items
			if len(examples) > maxGapExampleQuestions {
				examples = examples[:maxGapExampleQuestions]
			}
		}

		result.Gaps = append(result.Gaps, models.TopicGap{
			Topic:                 topic,
			GapScore:              gapScore,
			RelatedTopics:         related,
			Frequency:             n,
			ExampleQuestions:      append([]string{}, examples...),
			SuggestedContentAreas: a.contentAreas(topic, related, examples),
		})
	}

	sort.Slice(result.Gaps, func(i, j int) bool {
		gi, gj := result.Gaps[i], result.Gaps[j]
		if gi.GapScore != gj.GapScore {
			return gi.GapScore > gj.GapScore
		}
		if gi.Frequency != gj.Frequency {
			return gi.Frequency > gj.Frequency
		}
		return gi.Topic < gj.Topic
	})
	if len(result.Gaps) > opts.Limit {
		result.Gaps = result.Gaps[:opts.Limit]
	}
	result.InsufficientData = len(result.Gaps) == 0
	return result
}

// contentAreas proposes what to write for a gap topic: an overview, a guide,
// combinations with the top related topics and one entry per question word
// the unanswered questions opened with.
func (a *Analyzer) contentAreas(topic string, related, questions []string) []string {
	areas := newOrderedSet()
	areas.add(topic + " overview")
	areas.add(topic + " guide")
	for i, r := range related {
		if i == gapAreaRelatedTopics {
			break
		}
		areas.add(topic + " and " + r)
	}
	for _, q := range questions {
		if qw := a.lexicon.QuestionWord(q); qw != "" {
			areas.add(qw + " to " + topic)
		}
	}

	items := areas.items
	if len(items) > maxGapContentAreas {
		items = items[:maxGapContentAreas]
	}
	return items
}
