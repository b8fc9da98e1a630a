package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/brandpulse/internal/analysis"
	"github.com/kiranshivaraju/brandpulse/internal/insights"
	"github.com/kiranshivaraju/brandpulse/internal/store"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an analysis offline over exported conversations",
	Long: `Run an analysis over a JSON file holding an array of conversations, without
a database or cache. The report is printed as JSON.

Without --start and --end the window spans the exported conversations.

Examples:
  pulsectl analyze gaps --file export.json
  pulsectl analyze clusters --file export.json --similarity-threshold 0.5
  pulsectl analyze trends --file export.json --start 2024-03-01T00:00:00Z --end 2024-03-31T00:00:00Z`,
}

var analyzeClustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Group co-occurring topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := prepareAnalysis(cmd)
		if err != nil {
			return err
		}
		minFreq, _ := cmd.Flags().GetInt("min-frequency")
		threshold := floatFlag(cmd, "similarity-threshold")

		res, err := job.svc.ClusterTopics(cmd.Context(), job.brandID, analysis.ClusterOptions{
			Window:              job.window,
			MinFrequency:        minFreq,
			SimilarityThreshold: threshold,
			Limit:               job.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var analyzeTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Report rising, falling and stable query phrases",
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := prepareAnalysis(cmd)
		if err != nil {
			return err
		}
		minFreq, _ := cmd.Flags().GetInt("min-frequency")
		growth := floatFlag(cmd, "min-growth-rate")

		res, err := job.svc.QueryTrends(cmd.Context(), job.brandID, analysis.TrendOptions{
			Window:        job.window,
			MinFrequency:  minFreq,
			MinGrowthRate: growth,
			Limit:         job.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var analyzeGapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Report topics users ask about that go unanswered",
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := prepareAnalysis(cmd)
		if err != nil {
			return err
		}
		minFreq, _ := cmd.Flags().GetInt("min-frequency")
		minScore := floatFlag(cmd, "min-gap-score")

		res, err := job.svc.TopicGaps(cmd.Context(), job.brandID, analysis.GapOptions{
			Window:       job.window,
			MinFrequency: minFreq,
			MinGapScore:  minScore,
			Limit:        job.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var analyzeSuggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Suggest content to write from gaps and clusters",
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := prepareAnalysis(cmd)
		if err != nil {
			return err
		}

		res, err := job.svc.SuggestContent(cmd.Context(), job.brandID, analysis.SuggestionOptions{
			Window: job.window,
			Limit:  job.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

func init() {
	pf := analyzeCmd.PersistentFlags()
	pf.String("file", "", "JSON file holding an array of conversations (required)")
	pf.String("start", "", "window start, RFC3339")
	pf.String("end", "", "window end, RFC3339")
	pf.Int("limit", 0, "maximum number of results (default 10)")
	pf.String("lexicon", os.Getenv("LEXICON_PATH"), "YAML lexicon file (default built-in)")
	pf.Duration("timeout", 30*time.Second, "analysis timeout")

	analyzeClustersCmd.Flags().Int("min-frequency", 0, "minimum topic frequency (default 2)")
	analyzeClustersCmd.Flags().Float64("similarity-threshold", 0, "minimum Jaccard similarity to merge topics (default 0.3)")

	analyzeTrendsCmd.Flags().Int("min-frequency", 0, "minimum phrase frequency (default 2)")
	analyzeTrendsCmd.Flags().Float64("min-growth-rate", 0, "minimum growth rate in percent (default 5)")

	analyzeGapsCmd.Flags().Int("min-frequency", 0, "minimum topic frequency (default 3)")
	analyzeGapsCmd.Flags().Float64("min-gap-score", 0, "minimum gap score (default 0.5)")

	analyzeCmd.AddCommand(analyzeClustersCmd, analyzeTrendsCmd, analyzeGapsCmd, analyzeSuggestionsCmd)
}

// analysisJob is an in-memory corpus ready to be analyzed.
type analysisJob struct {
	svc     *insights.Service
	brandID uuid.UUID
	window  analysis.Window
	limit   int
}

func prepareAnalysis(cmd *cobra.Command) (*analysisJob, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	limit, _ := cmd.Flags().GetInt("limit")
	lexiconPath, _ := cmd.Flags().GetString("lexicon")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var window analysis.Window
	var err error
	if window.Start, err = parseTimeFlag("start", startStr); err != nil {
		return nil, err
	}
	if window.End, err = parseTimeFlag("end", endStr); err != nil {
		return nil, err
	}

	convs, err := loadExport(path)
	if err != nil {
		return nil, err
	}

	st := store.NewMemoryStore()
	brand, err := st.GetDefaultBrand(cmd.Context())
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].BrandID = brand.ID
		if err := st.CreateConversation(cmd.Context(), &convs[i]); err != nil {
			return nil, fmt.Errorf("load conversation %d: %w", i, err)
		}
	}
	window = spanOf(convs, window)

	var lex *analysis.Lexicon
	if lexiconPath != "" {
		if lex, err = analysis.LoadLexicon(lexiconPath); err != nil {
			return nil, err
		}
	}

	svc := insights.NewService(st, nil, analysis.NewAnalyzer(lex), nil, insights.TTLs{}, timeout)
	return &analysisJob{svc: svc, brandID: brand.ID, window: window, limit: limit}, nil
}

func loadExport(path string) ([]models.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	var convs []models.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, err)
	}
	return convs, nil
}

// spanOf fills the unset sides of w with the earliest and latest StartedAt
// of convs.
func spanOf(convs []models.Conversation, w analysis.Window) analysis.Window {
	var first, last time.Time
	for _, c := range convs {
		if first.IsZero() || c.StartedAt.Before(first) {
			first = c.StartedAt
		}
		if last.IsZero() || c.StartedAt.After(last) {
			last = c.StartedAt
		}
	}
	if w.Start.IsZero() {
		w.Start = first
	}
	if w.End.IsZero() {
		w.End = last
	}
	return w
}

// floatFlag returns nil unless the flag was set on the command line, so the
// analysis default applies and an explicit 0 is kept.
func floatFlag(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

func parseTimeFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be an RFC3339 timestamp: %w", name, err)
	}
	return t.UTC(), nil
}
