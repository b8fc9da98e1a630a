package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandpulse/internal/store"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ store.Store = (*store.MemoryStore)(nil)
var _ store.Store = (*store.PostgresStore)(nil)

func TestMemoryStore_DefaultBrand(t *testing.T) {
	s := store.NewMemoryStore()
	brand, err := s.GetDefaultBrand(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.DefaultBrandName, brand.Name)

	got, err := s.GetBrand(context.Background(), brand.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.ID, got.ID)
}

func TestMemoryStore_CreateBrandDuplicateName(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateBrand(ctx, &models.Brand{ID: uuid.New(), Name: "acme"}))
	assert.ErrorIs(t, s.CreateBrand(ctx, &models.Brand{ID: uuid.New(), Name: "acme"}), store.ErrDuplicateKey)
}

func TestMemoryStore_APIKeys(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	brandID := defaultBrandID(t, s)

	key := &models.APIKey{ID: uuid.New(), BrandID: brandID, KeyPrefix: "bp_12345", Scopes: []string{"read"}}
	require.NoError(t, s.CreateAPIKey(ctx, key))
	assert.ErrorIs(t, s.CreateAPIKey(ctx, key), store.ErrDuplicateKey)

	keys, err := s.GetAPIKeyByPrefix(ctx, "bp_12345")
	require.NoError(t, err)
	require.Len(t, keys, 1)

	// returned keys are copies
	keys[0].Scopes[0] = "admin"
	keys, _ = s.GetAPIKeyByPrefix(ctx, "bp_12345")
	assert.Equal(t, []string{"read"}, keys[0].Scopes)

	require.NoError(t, s.UpdateAPIKeyLastUsed(ctx, key.ID))
	keys, _ = s.ListAPIKeys(ctx, brandID)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)

	assert.ErrorIs(t, s.RevokeAPIKey(ctx, key.ID, uuid.New()), store.ErrNotFound)
	require.NoError(t, s.RevokeAPIKey(ctx, key.ID, brandID))
	keys, _ = s.GetAPIKeyByPrefix(ctx, "bp_12345")
	assert.Empty(t, keys)
}

func TestMemoryStore_CreateConversationPreparesFields(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	brandID := defaultBrandID(t, s)
	at := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	conv := &models.Conversation{
		BrandID: brandID,
		Messages: []models.Message{
			{Role: models.RoleAssistant, Content: "second", Position: 7, Timestamp: at.Add(time.Minute)},
			{Role: models.RoleUser, Content: "first", Position: 3, Timestamp: at},
		},
	}
	require.NoError(t, s.CreateConversation(ctx, conv))

	assert.NotEqual(t, uuid.Nil, conv.ID)
	assert.Equal(t, at, conv.StartedAt)
	assert.NotNil(t, conv.Metadata)

	got, err := s.GetConversation(ctx, conv.ID, brandID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "first", got.Messages[0].Content)
	assert.Equal(t, 0, got.Messages[0].Position)
	assert.Equal(t, 1, got.Messages[1].Position)
	assert.Equal(t, conv.ID, got.Messages[1].ConversationID)
}

func TestMemoryStore_CreateConversationUnknownBrand(t *testing.T) {
	s := store.NewMemoryStore()
	err := s.CreateConversation(context.Background(), &models.Conversation{BrandID: uuid.New()})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore_FindConversationsByBrand(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	brandID := defaultBrandID(t, s)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, d := range []int{10, 0, 5, 40} {
		require.NoError(t, s.CreateConversation(ctx, conversation(brandID, base.AddDate(0, 0, d), "q?", "a")))
	}

	convs, err := s.FindConversationsByBrand(ctx, brandID, base, base.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, base, convs[0].StartedAt)
	assert.Equal(t, base.AddDate(0, 0, 10), convs[2].StartedAt)
	assert.Len(t, convs[1].Messages, 2)

	none, err := s.FindConversationsByBrand(ctx, uuid.New(), base, base.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryStore_ListConversations(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	brandID := defaultBrandID(t, s)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for d := 0; d < 5; d++ {
		require.NoError(t, s.CreateConversation(ctx, conversation(brandID, base.AddDate(0, 0, d), "hi")))
	}

	page, total, err := s.ListConversations(ctx, store.ConversationFilter{BrandID: brandID, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, base.AddDate(0, 0, 2), page[0].StartedAt)
	assert.Empty(t, page[0].Messages)

	page, _, err = s.ListConversations(ctx, store.ConversationFilter{BrandID: brandID, Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page)

	_, total, err = s.ListConversations(ctx, store.ConversationFilter{
		BrandID: brandID, Since: base.AddDate(0, 0, 1), Until: base.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestMemoryStore_MarkConversationsAnalyzed(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	brandID := defaultBrandID(t, s)

	conv := conversation(brandID, time.Now().UTC(), "hi")
	require.NoError(t, s.CreateConversation(ctx, conv))

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkConversationsAnalyzed(ctx, []uuid.UUID{conv.ID, uuid.New()}, at))

	got, err := s.GetConversation(ctx, conv.ID, brandID)
	require.NoError(t, err)
	require.NotNil(t, got.AnalyzedAt)
	assert.Equal(t, at, *got.AnalyzedAt)
}
