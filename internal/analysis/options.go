package analysis

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidOptions is returned by Validate for out-of-range options.
var ErrInvalidOptions = errors.New("invalid analysis options")

const (
	DefaultWindow              = 30 * 24 * time.Hour
	DefaultLimit               = 10
	DefaultClusterMinFrequency = 2
	DefaultSimilarityThreshold = 0.3
	DefaultTrendMinFrequency   = 2
	DefaultMinGrowthRate       = 5.0
	DefaultGapMinFrequency     = 3
	DefaultMinGapScore         = 0.5
)

// Window is the [Start, End] range an analysis covers. Zero values resolve to
// the 30 days ending now.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) resolve(now time.Time) Window {
	if w.End.IsZero() {
		w.End = now
	}
	if w.Start.IsZero() {
		w.Start = w.End.Add(-DefaultWindow)
	}
	return w
}

// Float returns a pointer to v, for setting the optional threshold fields.
func Float(v float64) *float64 {
	return &v
}

func floatOr(v *float64, def float64) *float64 {
	if v == nil {
		return Float(def)
	}
	return v
}

// inRange reports whether v is unset or a number within [lo, hi].
func inRange(v *float64, lo, hi float64) bool {
	if v == nil {
		return true
	}
	return !math.IsNaN(*v) && *v >= lo && *v <= hi
}

func (w Window) validate() error {
	if !w.Start.IsZero() && !w.End.IsZero() && w.Start.After(w.End) {
		return fmt.Errorf("%w: start must not be after end", ErrInvalidOptions)
	}
	return nil
}

// ClusterOptions configures topic clustering. Zero counts and a nil
// SimilarityThreshold take defaults; an explicit threshold of 0 is kept.
type ClusterOptions struct {
	Window
	MinFrequency        int      `json:"min_frequency"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
	Limit               int      `json:"limit"`
}

func (o ClusterOptions) Resolve(now time.Time) ClusterOptions {
	o.Window = o.Window.resolve(now)
	if o.MinFrequency <= 0 {
		o.MinFrequency = DefaultClusterMinFrequency
	}
	o.SimilarityThreshold = floatOr(o.SimilarityThreshold, DefaultSimilarityThreshold)
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}

func (o ClusterOptions) Validate() error {
	if !inRange(o.SimilarityThreshold, 0, 1) {
		return fmt.Errorf("%w: similarity_threshold must be within [0, 1]", ErrInvalidOptions)
	}
	if o.MinFrequency < 0 || o.Limit < 0 {
		return fmt.Errorf("%w: min_frequency and limit must not be negative", ErrInvalidOptions)
	}
	return o.Window.validate()
}

// TrendOptions configures query trend analysis. MinGrowthRate is a percentage.
type TrendOptions struct {
	Window
	MinFrequency  int      `json:"min_frequency"`
	MinGrowthRate *float64 `json:"min_growth_rate"`
	Limit         int      `json:"limit"`
}

func (o TrendOptions) Resolve(now time.Time) TrendOptions {
	o.Window = o.Window.resolve(now)
	if o.MinFrequency <= 0 {
		o.MinFrequency = DefaultTrendMinFrequency
	}
	o.MinGrowthRate = floatOr(o.MinGrowthRate, DefaultMinGrowthRate)
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}

func (o TrendOptions) Validate() error {
	if !inRange(o.MinGrowthRate, 0, math.MaxFloat64) {
		return fmt.Errorf("%w: min_growth_rate must be a finite, non-negative number", ErrInvalidOptions)
	}
	if o.MinFrequency < 0 || o.Limit < 0 {
		return fmt.Errorf("%w: min_frequency and limit must not be negative", ErrInvalidOptions)
	}
	return o.Window.validate()
}

// GapOptions configures topic gap analysis.
type GapOptions struct {
	Window
	MinFrequency int      `json:"min_frequency"`
	MinGapScore  *float64 `json:"min_gap_score"`
	Limit        int      `json:"limit"`
}

func (o GapOptions) Resolve(now time.Time) GapOptions {
	o.Window = o.Window.resolve(now)
	if o.MinFrequency <= 0 {
		o.MinFrequency = DefaultGapMinFrequency
	}
	o.MinGapScore = floatOr(o.MinGapScore, DefaultMinGapScore)
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}

func (o GapOptions) Validate() error {
	if !inRange(o.MinGapScore, 0, 1) {
		return fmt.Errorf("%w: min_gap_score must be within [0, 1]", ErrInvalidOptions)
	}
	if o.MinFrequency < 0 || o.Limit < 0 {
		return fmt.Errorf("%w: min_frequency and limit must not be negative", ErrInvalidOptions)
	}
	return o.Window.validate()
}

// SuggestionOptions configures content suggestions. The underlying gap and
// cluster analyses run with their defaults over the same window.
type SuggestionOptions struct {
	Window
	Limit int `json:"limit"`
}

func (o SuggestionOptions) Resolve(now time.Time) SuggestionOptions {
	o.Window = o.Window.resolve(now)
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}

func (o SuggestionOptions) Validate() error {
	if o.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidOptions)
	}
	return o.Window.validate()
}
