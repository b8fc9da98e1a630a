// Package models contains shared data models used across the BrandPulse codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation. Messages are immutable once stored;
// Position fixes their order, which question/answer pairing depends on.
type Message struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	Position       int       `db:"position"        json:"position"`
	Role           string    `db:"role"            json:"role"`
	Content        string    `db:"content"         json:"content"`
	Timestamp      time.Time `db:"sent_at"         json:"timestamp"`
}

// Conversation is an ordered exchange between a brand's user and its assistant.
// StartedAt is the earliest message timestamp; analysis windows filter on it.
type Conversation struct {
	ID         uuid.UUID      `db:"id"          json:"id"`
	BrandID    uuid.UUID      `db:"brand_id"    json:"brand_id"`
	Messages   []Message      `db:"-"           json:"messages,omitempty"`
	Metadata   map[string]any `db:"metadata"    json:"metadata,omitempty"`
	StartedAt  time.Time      `db:"started_at"  json:"started_at"`
	AnalyzedAt *time.Time     `db:"analyzed_at" json:"analyzed_at,omitempty"`
	CreatedAt  time.Time      `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"  json:"updated_at"`
}

// IsValidRole reports whether role is one of the supported message roles.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
