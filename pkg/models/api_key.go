package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Scopes grant access to route groups: ingest posts conversations, read
// lists them and runs insights, admin manages keys.
const (
	ScopeIngest = "ingest"
	ScopeRead   = "read"
	ScopeAdmin  = "admin"
)

// APIKey authenticates callers for one brand. The raw key is shown once at
// creation; only its bcrypt hash and clear-text prefix are stored.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	BrandID    uuid.UUID  `db:"brand_id"     json:"brand_id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"key_prefix"`
	Scopes     []string   `db:"scopes"       json:"scopes"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	DeletedAt  *time.Time `db:"deleted_at"   json:"-"`
	CreatedAt  time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updated_at"`
}

// Active reports whether the key has not been revoked.
func (k *APIKey) Active() bool { return k.DeletedAt == nil }

func (k *APIKey) HasScope(scope string) bool { return slices.Contains(k.Scopes, scope) }

// IsValidScope reports whether scope is one of the supported scopes.
func IsValidScope(scope string) bool {
	return scope == ScopeIngest || scope == ScopeRead || scope == ScopeAdmin
}
