package analysis

import (
	"strings"
	"unicode/utf8"
)

// Minimum token lengths (exclusive) for topics, trend phrases and trend
// related topics.
const (
	topicMinLen        = 3
	phraseMinLen       = 2
	relatedTopicMinLen = 3
)

var punctuationStripper = strings.NewReplacer(
	".", "", ",", "", "?", "", "!", "", ";", "", ":", "",
)

// tokenize lower-cases s, strips sentence punctuation and splits on whitespace.
func tokenize(s string) []string {
	return strings.Fields(punctuationStripper.Replace(strings.ToLower(s)))
}

func longerThan(s string, n int) bool {
	return utf8.RuneCountInString(s) > n
}

// orderedSet collects strings once each, in insertion order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) has(v string) bool {
	_, ok := s.seen[v]
	return ok
}

// ExtractTopics returns the candidate topics of a message: every token longer
// than three characters that is not a stop-word, followed by the canonical
// topics whose keywords appear in the message. Each topic appears once, in
// first-seen order.
func (l *Lexicon) ExtractTopics(message string) []string {
	set := newOrderedSet()
	for _, tok := range tokenize(message) {
		if longerThan(tok, topicMinLen) && !l.IsStopWord(tok) {
			set.add(tok)
		}
	}
	l.inject(set, l.Topics, message)
	return set.items
}

// KeyPhrases returns the phrases a user query is tracked under for trend
// analysis: tokens longer than two characters, adjacent bigrams of such
// tokens, and the canonical phrases whose keywords appear in the query.
func (l *Lexicon) KeyPhrases(query string) []string {
	tokens := tokenize(query)
	keep := func(tok string) bool {
		return longerThan(tok, phraseMinLen) && !l.IsStopWord(tok)
	}

	set := newOrderedSet()
	for _, tok := range tokens {
		if keep(tok) {
			set.add(tok)
		}
	}
	for i := 0; i+1 < len(tokens); i++ {
		if keep(tokens[i]) && keep(tokens[i+1]) {
			set.add(tokens[i] + " " + tokens[i+1])
		}
	}
	l.inject(set, l.Phrases, query)
	return set.items
}

// relatedTerms returns the terms a query contributes to the related topics of
// every trend it belongs to.
func (l *Lexicon) relatedTerms(query string) []string {
	set := newOrderedSet()
	for _, tok := range tokenize(query) {
		if longerThan(tok, relatedTopicMinLen) && !l.IsStopWord(tok) {
			set.add(tok)
		}
	}
	l.inject(set, l.Phrases, query)
	return set.items
}

func (l *Lexicon) inject(set *orderedSet, rules []KeywordRule, text string) {
	lowered := strings.ToLower(text)
	for _, r := range rules {
		if r.Matches(lowered) {
			set.add(r.Topic)
		}
	}
}

// IsQuestion reports whether a message ends with a question mark or opens
// with a question word.
func (l *Lexicon) IsQuestion(message string) bool {
	trimmed := strings.TrimSpace(message)
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	return l.QuestionWord(trimmed) != ""
}

// QuestionWord returns the question word a message opens with, or "".
func (l *Lexicon) QuestionWord(message string) string {
	tokens := tokenize(strings.TrimSpace(message))
	if len(tokens) == 0 {
		return ""
	}
	if l.isQuestionWord(tokens[0]) {
		return tokens[0]
	}
	return ""
}
