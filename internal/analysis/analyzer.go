// Package analysis mines conversation corpora for topic clusters, query trends,
// topic gaps and content suggestions.
//
// Every function here is a pure transformation over an in-memory slice of
// conversations. Results never depend on map iteration order: all rankings
// carry explicit tie-breakers.
package analysis

import (
	"time"
	"unicode/utf8"
)

// Analyzer runs the mining pipeline with a fixed lexicon.
// It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	lexicon *Lexicon
}

// NewAnalyzer returns an Analyzer over lex, or over DefaultLexicon when lex is nil.
func NewAnalyzer(lex *Lexicon) *Analyzer {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Analyzer{lexicon: lex}
}

// Lexicon returns the vocabulary the analyzer runs on.
func (a *Analyzer) Lexicon() *Lexicon { return a.lexicon }

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

func periodOf(w Window) (time.Time, time.Time) {
	return w.Start.UTC(), w.End.UTC()
}
