package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/kiranshivaraju/brandpulse/internal/api/middleware"
	"github.com/kiranshivaraju/brandpulse/internal/api/response"
	"github.com/kiranshivaraju/brandpulse/internal/apikey"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// KeyStore is the subset of store.Store the key handlers use.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, brandID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, brandID uuid.UUID) error
}

type createKeyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
// The raw key is only ever returned here.
func NewCreateKeyHandler(s KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brandID, ok := mw.GetBrandID(r)
		if !ok {
			missingBrand(w)
			return
		}

		var req struct {
			Name   string   `json:"name"`
			Scopes []string `json:"scopes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			invalidRequest(w, "Invalid JSON body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			invalidRequest(w, "name is required")
			return
		}

		gen, err := apikey.Generate(brandID, req.Name, req.Scopes)
		if err != nil {
			invalidRequest(w, err.Error())
			return
		}
		if err := s.CreateAPIKey(r.Context(), gen.Key); err != nil {
			writeError(w, r, err)
			return
		}

		response.Created(w, createKeyResponse{
			ID:        gen.Key.ID,
			Name:      gen.Key.Name,
			Key:       gen.Raw,
			KeyPrefix: gen.Key.KeyPrefix,
			Scopes:    gen.Key.Scopes,
			CreatedAt: gen.Key.CreatedAt,
		})
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys.
func NewListKeysHandler(s KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brandID, ok := mw.GetBrandID(r)
		if !ok {
			missingBrand(w)
			return
		}

		keys, err := s.ListAPIKeys(r.Context(), brandID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if keys == nil {
			keys = []*models.APIKey{}
		}
		response.JSON(w, keys)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for
// DELETE /api/v1/admin/keys/{keyID}.
func NewRevokeKeyHandler(s KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brandID, ok := mw.GetBrandID(r)
		if !ok {
			missingBrand(w)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "keyID"))
		if err != nil {
			invalidRequest(w, "keyID must be a UUID")
			return
		}

		if err := s.RevokeAPIKey(r.Context(), id, brandID); err != nil {
			writeError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}
