package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// MemoryStore is an in-process Store. It backs offline analysis and tests;
// data does not survive the process.
type MemoryStore struct {
	mu            sync.RWMutex
	brands        map[uuid.UUID]*models.Brand
	keys          map[uuid.UUID]*models.APIKey
	conversations map[uuid.UUID]*models.Conversation
}

// NewMemoryStore returns an empty MemoryStore holding only the default brand.
func NewMemoryStore() *MemoryStore {
	now := time.Now().UTC()
	def := &models.Brand{ID: uuid.New(), Name: DefaultBrandName, CreatedAt: now, UpdatedAt: now}
	return &MemoryStore{
		brands:        map[uuid.UUID]*models.Brand{def.ID: def},
		keys:          make(map[uuid.UUID]*models.APIKey),
		conversations: make(map[uuid.UUID]*models.Conversation),
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// --- Brands ---

func (s *MemoryStore) GetDefaultBrand(_ context.Context) (*models.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.brands {
		if b.Name == DefaultBrandName {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetBrand(_ context.Context, id uuid.UUID) (*models.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.brands[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) CreateBrand(_ context.Context, brand *models.Brand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.brands[brand.ID]; ok {
		return ErrDuplicateKey
	}
	for _, b := range s.brands {
		if b.Name == brand.Name {
			return ErrDuplicateKey
		}
	}
	cp := *brand
	s.brands[brand.ID] = &cp
	return nil
}

// --- API Keys ---

func (s *MemoryStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix && k.Active() {
			keys = append(keys, copyKey(k))
		}
	}
	return keys, nil
}

func (s *MemoryStore) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[id]; ok {
		now := time.Now().UTC()
		k.LastUsedAt = &now
		k.UpdatedAt = now
	}
	return nil
}

func (s *MemoryStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key.ID]; ok {
		return ErrDuplicateKey
	}
	if _, ok := s.brands[key.BrandID]; !ok {
		return ErrNotFound
	}
	s.keys[key.ID] = copyKey(key)
	return nil
}

func (s *MemoryStore) ListAPIKeys(_ context.Context, brandID uuid.UUID) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []*models.APIKey
	for _, k := range s.keys {
		if k.BrandID == brandID && k.Active() {
			keys = append(keys, copyKey(k))
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (s *MemoryStore) RevokeAPIKey(_ context.Context, id uuid.UUID, brandID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok || k.BrandID != brandID || !k.Active() {
		return ErrNotFound
	}
	now := time.Now().UTC()
	k.DeletedAt = &now
	k.UpdatedAt = now
	return nil
}

func copyKey(k *models.APIKey) *models.APIKey {
	cp := *k
	cp.Scopes = append([]string(nil), k.Scopes...)
	return &cp
}

// --- Conversations ---

func (s *MemoryStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	prepareConversation(conv, time.Now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conv.ID]; ok {
		return ErrDuplicateKey
	}
	if _, ok := s.brands[conv.BrandID]; !ok {
		return ErrNotFound
	}
	s.conversations[conv.ID] = copyConversation(conv, true)
	return nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id uuid.UUID, brandID uuid.UUID) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok || c.BrandID != brandID {
		return nil, ErrNotFound
	}
	return copyConversation(c, true), nil
}

func (s *MemoryStore) ListConversations(_ context.Context, filter ConversationFilter) ([]*models.Conversation, int, error) {
	s.mu.RLock()
	var matched []*models.Conversation
	for _, c := range s.conversations {
		if c.BrandID != filter.BrandID {
			continue
		}
		if !filter.Since.IsZero() && c.StartedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && c.StartedAt.After(filter.Until) {
			continue
		}
		matched = append(matched, copyConversation(c, false))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartedAt.Equal(matched[j].StartedAt) {
			return matched[i].StartedAt.After(matched[j].StartedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	offset := filter.Normalize()
	if offset >= total {
		return []*models.Conversation{}, total, nil
	}
	end := offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *MemoryStore) FindConversationsByBrand(_ context.Context, brandID uuid.UUID, start, end time.Time) ([]models.Conversation, error) {
	s.mu.RLock()
	convs := []models.Conversation{}
	for _, c := range s.conversations {
		if c.BrandID != brandID || c.StartedAt.Before(start) || c.StartedAt.After(end) {
			continue
		}
		convs = append(convs, *copyConversation(c, true))
	}
	s.mu.RUnlock()

	sort.Slice(convs, func(i, j int) bool {
		if !convs[i].StartedAt.Equal(convs[j].StartedAt) {
			return convs[i].StartedAt.Before(convs[j].StartedAt)
		}
		return convs[i].ID.String() < convs[j].ID.String()
	})
	return convs, nil
}

func (s *MemoryStore) MarkConversationsAnalyzed(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if c, ok := s.conversations[id]; ok {
			t := at
			c.AnalyzedAt = &t
			c.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

func copyConversation(c *models.Conversation, withMessages bool) *models.Conversation {
	cp := *c
	cp.Messages = nil
	if withMessages {
		cp.Messages = append([]models.Message(nil), c.Messages...)
	}
	if c.Metadata != nil {
		cp.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	if c.AnalyzedAt != nil {
		t := *c.AnalyzedAt
		cp.AnalyzedAt = &t
	}
	return &cp
}
