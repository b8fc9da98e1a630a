package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Brands ---

func (s *PostgresStore) GetDefaultBrand(ctx context.Context) (*models.Brand, error) {
	var b models.Brand
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM brands WHERE name = $1 LIMIT 1`, DefaultBrandName,
	).Scan(&b.ID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default brand: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) GetBrand(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	var b models.Brand
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM brands WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) CreateBrand(ctx context.Context, brand *models.Brand) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO brands (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		brand.ID, brand.Name, brand.CreatedAt, brand.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create brand: %w", err)
	}
	return nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, brand_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, brand_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.BrandID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, brandID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, brand_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE brand_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, brandID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, brandID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND brand_id = $2 AND deleted_at IS NULL`, id, brandID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.BrandID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// --- Conversations ---

// CreateConversation stores a conversation and its messages in one transaction.
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	prepareConversation(conv, time.Now().UTC())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create conversation: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (id, brand_id, metadata, started_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		conv.ID, conv.BrandID, conv.Metadata, conv.StartedAt, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("create conversation: %w", err)
	}

	if len(conv.Messages) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"messages"},
			[]string{"id", "conversation_id", "position", "role", "content", "sent_at"},
			pgx.CopyFromSlice(len(conv.Messages), func(i int) ([]any, error) {
				m := conv.Messages[i]
				return []any{m.ID, m.ConversationID, m.Position, m.Role, m.Content, m.Timestamp}, nil
			}),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return ErrDuplicateKey
			}
			return fmt.Errorf("create messages: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID, brandID uuid.UUID) (*models.Conversation, error) {
	var c models.Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id, brand_id, metadata, started_at, analyzed_at, created_at, updated_at
		 FROM conversations WHERE id = $1 AND brand_id = $2`, id, brandID,
	).Scan(&c.ID, &c.BrandID, &c.Metadata, &c.StartedAt, &c.AnalyzedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	byConv, err := s.messagesFor(ctx, []uuid.UUID{c.ID})
	if err != nil {
		return nil, err
	}
	c.Messages = byConv[c.ID]
	return &c, nil
}

// ListConversations returns a page of conversation headers, newest first.
// Messages are not loaded.
func (s *PostgresStore) ListConversations(ctx context.Context, filter ConversationFilter) ([]*models.Conversation, int, error) {
	conditions := []string{"brand_id = $1"}
	args := []any{filter.BrandID}
	argIdx := 2

	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("started_at >= $%d", argIdx))
		args = append(args, filter.Since)
		argIdx++
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, fmt.Sprintf("started_at <= $%d", argIdx))
		args = append(args, filter.Until)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM conversations WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	offset := filter.Normalize()
	dataQuery := fmt.Sprintf(
		`SELECT id, brand_id, metadata, started_at, analyzed_at, created_at, updated_at
		 FROM conversations WHERE %s ORDER BY started_at DESC, id LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := []*models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.BrandID, &c.Metadata, &c.StartedAt, &c.AnalyzedAt,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, &c)
	}
	return convs, total, rows.Err()
}

func (s *PostgresStore) FindConversationsByBrand(ctx context.Context, brandID uuid.UUID, start, end time.Time) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, brand_id, metadata, started_at, analyzed_at, created_at, updated_at
		 FROM conversations WHERE brand_id = $1 AND started_at >= $2 AND started_at <= $3
		 ORDER BY started_at, id`, brandID, start, end)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	defer rows.Close()

	convs := []models.Conversation{}
	var ids []uuid.UUID
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.BrandID, &c.Metadata, &c.StartedAt, &c.AnalyzedAt,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	if len(ids) == 0 {
		return convs, nil
	}

	byConv, err := s.messagesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].Messages = byConv[convs[i].ID]
	}
	return convs, nil
}

func (s *PostgresStore) messagesFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, position, role, content, sent_at
		 FROM messages WHERE conversation_id = ANY($1) ORDER BY conversation_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	byConv := make(map[uuid.UUID][]models.Message, len(ids))
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Position, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		byConv[m.ConversationID] = append(byConv[m.ConversationID], m)
	}
	return byConv, rows.Err()
}

func (s *PostgresStore) MarkConversationsAnalyzed(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE conversations SET analyzed_at = $2, updated_at = NOW() WHERE id = ANY($1)`, ids, at)
	if err != nil {
		return fmt.Errorf("mark conversations analyzed: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}
