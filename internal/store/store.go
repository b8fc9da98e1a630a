package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// DefaultBrandName is the brand seeded by the initial migration.
const DefaultBrandName = "default"

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetDefaultBrand(ctx context.Context) (*models.Brand, error)
	GetBrand(ctx context.Context, id uuid.UUID) (*models.Brand, error)
	CreateBrand(ctx context.Context, brand *models.Brand) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, brandID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, brandID uuid.UUID) error

	ConversationSource
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID, brandID uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, filter ConversationFilter) ([]*models.Conversation, int, error)
}

// ConversationSource supplies analysis corpora.
type ConversationSource interface {
	// FindConversationsByBrand returns every conversation of brandID whose
	// StartedAt lies in [start, end], with messages in Position order.
	// Conversations are ordered by StartedAt, then ID.
	FindConversationsByBrand(ctx context.Context, brandID uuid.UUID, start, end time.Time) ([]models.Conversation, error)
	MarkConversationsAnalyzed(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// ConversationFilter selects a page of conversation headers. Zero Since and
// Until leave that side of the range open.
type ConversationFilter struct {
	BrandID uuid.UUID
	Since   time.Time
	Until   time.Time
	Page    int
	Limit   int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Normalize clamps pagination to its defaults and bounds and returns the
// row offset.
func (f *ConversationFilter) Normalize() int {
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return (f.Page - 1) * f.Limit
}

// prepareConversation fills in IDs, positions, timestamps and StartedAt
// before a write.
func prepareConversation(conv *models.Conversation, now time.Time) {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	if conv.Metadata == nil {
		conv.Metadata = map[string]any{}
	}
	// Messages keep their relative Position order and are renumbered from 0.
	sort.SliceStable(conv.Messages, func(i, j int) bool {
		return conv.Messages[i].Position < conv.Messages[j].Position
	})
	var earliest time.Time
	for i := range conv.Messages {
		m := &conv.Messages[i]
		m.Position = i
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.ConversationID = conv.ID
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		if earliest.IsZero() || m.Timestamp.Before(earliest) {
			earliest = m.Timestamp
		}
	}
	if conv.StartedAt.IsZero() {
		conv.StartedAt = earliest
	}
	if conv.StartedAt.IsZero() {
		conv.StartedAt = now
	}
	conv.CreatedAt = now
	conv.UpdatedAt = now
}
