// Package apikey mints and verifies BrandPulse API keys.
//
// A raw key looks like "bp_" followed by 40 hex characters. Only its bcrypt
// hash is stored; the first PrefixLen characters are stored in clear so a
// presented key can be looked up before the (slow) hash comparison.
package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

const (
	Prefix    = "bp_"
	PrefixLen = 8
	secretLen = 20
)

// Generated is a freshly minted key. Raw is shown to the caller once and
// never persisted.
type Generated struct {
	Raw  string
	Hash string
	Key  *models.APIKey
}

// Generate mints a key for brandID with the given name and scopes.
func Generate(brandID uuid.UUID, name string, scopes []string) (*Generated, error) {
	if err := ValidateScopes(scopes); err != nil {
		return nil, err
	}

	secret := make([]byte, secretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	raw := Prefix + hex.EncodeToString(secret)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}

	now := time.Now().UTC()
	return &Generated{
		Raw:  raw,
		Hash: string(hash),
		Key: &models.APIKey{
			ID:        uuid.New(),
			BrandID:   brandID,
			Name:      name,
			KeyHash:   string(hash),
			KeyPrefix: raw[:PrefixLen],
			Scopes:    scopes,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}, nil
}

// Matches reports whether raw is the key behind hash.
func Matches(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// ValidateScopes rejects an empty scope list and unknown scopes.
func ValidateScopes(scopes []string) error {
	if len(scopes) == 0 {
		return fmt.Errorf("at least one scope is required")
	}
	for _, s := range scopes {
		if !models.IsValidScope(s) {
			return fmt.Errorf("unknown scope %q, must be one of ingest, read, admin", s)
		}
	}
	return nil
}

// ParseScopes splits a comma separated scope list.
func ParseScopes(s string) []string {
	var scopes []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			scopes = append(scopes, part)
		}
	}
	return scopes
}
