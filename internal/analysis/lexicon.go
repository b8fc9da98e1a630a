package analysis

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeywordRule injects Topic when a lower-cased message contains at least one
// of Any (if set) and every one of All (if set). Matching is by substring.
type KeywordRule struct {
	Topic string   `yaml:"topic"`
	Any   []string `yaml:"any,omitempty"`
	All   []string `yaml:"all,omitempty"`
}

// Matches reports whether the rule fires for an already lower-cased text.
func (r KeywordRule) Matches(lowered string) bool {
	if len(r.Any) == 0 && len(r.All) == 0 {
		return false
	}
	for _, kw := range r.All {
		if !strings.Contains(lowered, kw) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, kw := range r.Any {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Lexicon is the vocabulary the mining pipeline runs on: stop-words, the words
// that open a question, and the canonical topics injected on keyword match.
// Topics feeds topic extraction; Phrases feeds query trend extraction.
type Lexicon struct {
	StopWords     []string      `yaml:"stop_words"`
	QuestionWords []string      `yaml:"question_words"`
	Topics        []KeywordRule `yaml:"topics"`
	Phrases       []KeywordRule `yaml:"phrases"`

	stop     map[string]struct{}
	question map[string]struct{}
}

// DefaultLexicon returns the built-in vocabulary.
func DefaultLexicon() *Lexicon {
	l := &Lexicon{
		StopWords: []string{
			"the", "a", "an", "and", "or", "but", "is", "are", "was", "were",
			"do", "does", "did", "i", "you", "he", "she", "it", "we", "they",
			"my", "your", "his", "her", "its", "our", "their",
		},
		QuestionWords: []string{
			"what", "how", "why", "when", "where", "who", "which", "can",
			"could", "would", "should", "is", "are", "do", "does",
		},
		Topics: []KeywordRule{
			{Topic: "subscription", Any: []string{"subscription"}},
			{Topic: "pricing", Any: []string{"pricing", "price", "cost"}},
			{Topic: "plan", Any: []string{"plan"}},
			{Topic: "feature", Any: []string{"feature"}},
			{Topic: "support", Any: []string{"support"}},
			{Topic: "billing", Any: []string{"billing"}},
			{Topic: "account", Any: []string{"account"}},
			{Topic: "premium plan", All: []string{"premium", "plan"}},
			{Topic: "subscription plan", All: []string{"subscription", "plan"}},
		},
		Phrases: []KeywordRule{
			{Topic: "subscription", Any: []string{"subscription"}},
			{Topic: "plan", Any: []string{"plan"}},
			{Topic: "subscription plan", All: []string{"subscription", "plan"}},
			{Topic: "change subscription", All: []string{"change", "subscription"}},
			{Topic: "pricing", Any: []string{"pricing", "price", "cost"}},
			{Topic: "discount", Any: []string{"discount"}},
		},
	}
	l.compile()
	return l
}

// LoadLexicon reads a YAML lexicon. Sections missing from the file fall back
// to the built-in vocabulary.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes a YAML lexicon document.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var l Lexicon
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	def := DefaultLexicon()
	if len(l.StopWords) == 0 {
		l.StopWords = def.StopWords
	}
	if len(l.QuestionWords) == 0 {
		l.QuestionWords = def.QuestionWords
	}
	if len(l.Topics) == 0 {
		l.Topics = def.Topics
	}
	if len(l.Phrases) == 0 {
		l.Phrases = def.Phrases
	}

	for _, r := range append(append([]KeywordRule{}, l.Topics...), l.Phrases...) {
		if strings.TrimSpace(r.Topic) == "" {
			return nil, fmt.Errorf("parse lexicon: keyword rule without topic")
		}
		if len(r.Any) == 0 && len(r.All) == 0 {
			return nil, fmt.Errorf("parse lexicon: rule %q has no keywords", r.Topic)
		}
	}

	l.normalize()
	l.compile()
	return &l, nil
}

func (l *Lexicon) normalize() {
	lower := func(words []string) []string {
		out := make([]string, len(words))
		for i, w := range words {
			out[i] = strings.ToLower(strings.TrimSpace(w))
		}
		return out
	}
	l.StopWords = lower(l.StopWords)
	l.QuestionWords = lower(l.QuestionWords)
	for _, rules := range [][]KeywordRule{l.Topics, l.Phrases} {
		for i := range rules {
			rules[i].Topic = strings.ToLower(strings.TrimSpace(rules[i].Topic))
			rules[i].Any = lower(rules[i].Any)
			rules[i].All = lower(rules[i].All)
		}
	}
}

func (l *Lexicon) compile() {
	l.stop = make(map[string]struct{}, len(l.StopWords))
	for _, w := range l.StopWords {
		l.stop[w] = struct{}{}
	}
	l.question = make(map[string]struct{}, len(l.QuestionWords))
	for _, w := range l.QuestionWords {
		l.question[w] = struct{}{}
	}
}

// IsStopWord reports whether word is in the stop-word list.
func (l *Lexicon) IsStopWord(word string) bool {
	_, ok := l.stop[word]
	return ok
}

func (l *Lexicon) isQuestionWord(word string) bool {
	_, ok := l.question[word]
	return ok
}
