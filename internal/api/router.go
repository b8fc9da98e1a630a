package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/kiranshivaraju/brandpulse/internal/api/middleware"
	"github.com/kiranshivaraju/brandpulse/internal/api/response"
	"github.com/kiranshivaraju/brandpulse/internal/metrics"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit
	Metrics   *metrics.Metrics

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	IngestConversation http.HandlerFunc
	ListConversations  http.HandlerFunc
	GetConversation    http.HandlerFunc

	TopicClusters      http.HandlerFunc
	QueryTrends        http.HandlerFunc
	TopicGaps          http.HandlerFunc
	ContentSuggestions http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	if deps.Metrics != nil {
		r.Use(mw.Instrument(deps.Metrics))
	}
	r.Use(mw.Recovery)

	// Public endpoints
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.With(deps.Auth.RequireScope(models.ScopeIngest)).
			Post("/api/v1/conversations", orNotImplemented(deps.IngestConversation))

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeRead))

			r.Get("/api/v1/conversations", orNotImplemented(deps.ListConversations))
			r.Get("/api/v1/conversations/{conversationID}", orNotImplemented(deps.GetConversation))

			r.Get("/api/v1/insights/topic-clusters", orNotImplemented(deps.TopicClusters))
			r.Get("/api/v1/insights/query-trends", orNotImplemented(deps.QueryTrends))
			r.Get("/api/v1/insights/topic-gaps", orNotImplemented(deps.TopicGaps))
			r.Get("/api/v1/insights/content-suggestions", orNotImplemented(deps.ContentSuggestions))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, response.CodeNotImplemented, "Endpoint not yet implemented", nil)
	}
}
