package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/brandpulse/internal/analysis"
	"github.com/kiranshivaraju/brandpulse/internal/store"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// execute runs rootCmd with args and returns what it printed to stdout.
// Flag values are reset first since the command tree is shared between tests.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

var exportStart = time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

func exportConversation(at time.Time, question, answer string) models.Conversation {
	msgs := []models.Message{{Role: models.RoleUser, Content: question, Timestamp: at}}
	if answer != "" {
		msgs = append(msgs, models.Message{Role: models.RoleAssistant, Content: answer, Timestamp: at.Add(time.Minute)})
	}
	return models.Conversation{Messages: msgs}
}

// writeExport writes three days of conversations: an unanswered pricing
// question and an answered billing complaint per day.
func writeExport(t *testing.T) string {
	t.Helper()
	var convs []models.Conversation
	for i := 0; i < 3; i++ {
		at := exportStart.AddDate(0, 0, i)
		convs = append(convs,
			exportConversation(at, "How much does the premium plan cost?", ""),
			exportConversation(at, "billing invoice problem", "Let me check."),
		)
	}
	data, err := json.Marshal(convs)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestAnalyzeGaps_FromExport(t *testing.T) {
	path := writeExport(t)

	out, err := execute(t, "analyze", "gaps", "--file", path)
	require.NoError(t, err)

	var res models.TopicGapAnalysisResults
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	assert.Equal(t, 6, res.TotalConversationsAnalyzed)
	assert.Equal(t, exportStart, res.Period.Start)
	assert.Equal(t, exportStart.AddDate(0, 0, 2), res.Period.End)
	require.NotEmpty(t, res.Gaps)

	var topics []string
	for _, g := range res.Gaps {
		assert.Equal(t, 1.0, g.GapScore)
		topics = append(topics, g.Topic)
	}
	assert.Contains(t, topics, "premium plan")
}

func TestAnalyzeGaps_Limit(t *testing.T) {
	path := writeExport(t)

	out, err := execute(t, "analyze", "gaps", "--file", path, "--limit", "2")
	require.NoError(t, err)

	var res models.TopicGapAnalysisResults
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Gaps, 2)
}

func TestAnalyzeGaps_StartFlagNarrowsWindow(t *testing.T) {
	path := writeExport(t)

	out, err := execute(t, "analyze", "gaps", "--file", path, "--start", "2024-03-03T12:00:00Z")
	require.NoError(t, err)

	var res models.TopicGapAnalysisResults
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.TotalConversationsAnalyzed)
	assert.Equal(t, time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), res.Period.Start)
}

func TestAnalyzeClusters_FromExport(t *testing.T) {
	path := writeExport(t)

	out, err := execute(t, "analyze", "clusters", "--file", path)
	require.NoError(t, err)

	var res models.TopicClusteringResults
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 6, res.TotalConversations)
	assert.NotEmpty(t, res.Clusters)
	assert.False(t, res.InsufficientData)
}

func TestAnalyzeTrends_FromExport(t *testing.T) {
	path := writeExport(t)

	out, err := execute(t, "analyze", "trends", "--file", path)
	require.NoError(t, err)

	var res models.QueryTrendAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, exportStart, res.Period.Start)
}

func TestAnalyzeSuggestions_FromExport(t *testing.T) {
	path := writeExport(t)

	out, err := execute(t, "analyze", "suggestions", "--file", path)
	require.NoError(t, err)

	var res models.ContentSuggestions
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotEmpty(t, res.Suggestions)
	for i := 1; i < len(res.Suggestions); i++ {
		assert.GreaterOrEqual(t, res.Suggestions[i-1].Score, res.Suggestions[i].Score)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	path := writeExport(t)
	badJSON := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(badJSON, []byte(`{"not": "an array"}`), 0o600))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file flag", []string{"analyze", "gaps"}, "--file is required"},
		{"file not found", []string{"analyze", "gaps", "--file", filepath.Join(t.TempDir(), "missing.json")}, "read export"},
		{"not an array", []string{"analyze", "gaps", "--file", badJSON}, "parse export"},
		{"bad start", []string{"analyze", "gaps", "--file", path, "--start", "yesterday"}, "RFC3339"},
		{"missing lexicon", []string{"analyze", "gaps", "--file", path, "--lexicon", filepath.Join(t.TempDir(), "lex.yaml")}, "lex.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAnalyzeClusters_InvalidThreshold(t *testing.T) {
	path := writeExport(t)

	_, err := execute(t, "analyze", "clusters", "--file", path, "--similarity-threshold", "1.5")
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrInvalidOptions)
}

func TestAnalyzeGaps_ExplicitZeroScoreKeepsAnsweredTopics(t *testing.T) {
	path := writeExport(t)

	out, err := execute(t, "analyze", "gaps", "--file", path, "--min-gap-score", "0", "--limit", "100")
	require.NoError(t, err)

	var res models.TopicGapAnalysisResults
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	var answered int
	for _, g := range res.Gaps {
		if g.GapScore == 0 {
			answered++
		}
	}
	assert.Positive(t, answered, "billing topics score 0 and pass a zero threshold")
	assert.False(t, res.InsufficientData)
}

func TestKeysCreate_Validation(t *testing.T) {
	_, err := execute(t, "keys", "create", "--database-url", "postgres://unused")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name is required")

	_, err = execute(t, "keys", "create", "--name", "ci", "--scopes", "bogus", "--database-url", "postgres://unused")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestBrandsCreate_RequiresName(t *testing.T) {
	_, err := execute(t, "brands", "create", "--name", "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name is required")
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	_, err := execute(t, "migrate", "--database-url=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestResolveBrand(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	def, err := s.GetDefaultBrand(ctx)
	require.NoError(t, err)

	other := &models.Brand{ID: uuid.New(), Name: "acme"}
	require.NoError(t, s.CreateBrand(ctx, other))

	b, err := resolveBrand(ctx, s, "")
	require.NoError(t, err)
	assert.Equal(t, def.ID, b.ID)

	b, err = resolveBrand(ctx, s, store.DefaultBrandName)
	require.NoError(t, err)
	assert.Equal(t, def.ID, b.ID)

	b, err = resolveBrand(ctx, s, other.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "acme", b.Name)

	_, err = resolveBrand(ctx, s, "acme")
	require.Error(t, err)

	_, err = resolveBrand(ctx, s, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSpanOf(t *testing.T) {
	convs := []models.Conversation{
		{StartedAt: exportStart.AddDate(0, 0, 1)},
		{StartedAt: exportStart},
		{StartedAt: exportStart.AddDate(0, 0, 4)},
	}

	w := spanOf(convs, analysis.Window{})
	assert.Equal(t, exportStart, w.Start)
	assert.Equal(t, exportStart.AddDate(0, 0, 4), w.End)

	fixed := exportStart.AddDate(0, 0, 2)
	w = spanOf(convs, analysis.Window{Start: fixed})
	assert.Equal(t, fixed, w.Start)
	assert.Equal(t, exportStart.AddDate(0, 0, 4), w.End)

	assert.Equal(t, analysis.Window{}, spanOf(nil, analysis.Window{}))
}
