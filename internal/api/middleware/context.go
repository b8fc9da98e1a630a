package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

type contextKey string

const (
	brandIDKey   contextKey = "brand_id"
	keyPrefixKey contextKey = "key_prefix"
	apiKeyKey    contextKey = "api_key"
)

func SetBrandID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, brandIDKey, id)
}

func GetBrandID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(brandIDKey).(uuid.UUID)
	return id, ok
}

// SetKeyPrefix binds the authenticated key prefix to ctx. The rate limiter
// counts requests per prefix.
func SetKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func setAPIKey(ctx context.Context, key *models.APIKey) context.Context {
	return context.WithValue(ctx, apiKeyKey, key)
}

func getAPIKey(r *http.Request) (*models.APIKey, bool) {
	key, ok := r.Context().Value(apiKeyKey).(*models.APIKey)
	return key, ok && key != nil
}
