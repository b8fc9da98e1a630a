package models

import (
	"time"

	"github.com/google/uuid"
)

// Brand owns conversations and API keys. Every insight is computed per brand.
type Brand struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
