package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/kiranshivaraju/brandpulse/internal/api/middleware"
	"github.com/kiranshivaraju/brandpulse/internal/api/response"
	"github.com/kiranshivaraju/brandpulse/internal/metrics"
	"github.com/kiranshivaraju/brandpulse/internal/store"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

const (
	maxConversationBody = 1 << 20
	maxMessages         = 500
	maxMessageLength    = 8000
)

// ConversationStore is the subset of store.Store the conversation handlers use.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID, brandID uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, filter store.ConversationFilter) ([]*models.Conversation, int, error)
}

type messageRequest struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type conversationRequest struct {
	Messages []messageRequest `json:"messages"`
	Metadata map[string]any   `json:"metadata"`
}

// NewIngestConversationHandler returns an http.HandlerFunc for
// POST /api/v1/conversations. m may be nil.
func NewIngestConversationHandler(s ConversationStore, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brandID, ok := mw.GetBrandID(r)
		if !ok {
			missingBrand(w)
			return
		}

		var req conversationRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConversationBody)).Decode(&req); err != nil {
			invalidRequest(w, "Invalid JSON body")
			return
		}

		conv, details := req.toConversation(brandID)
		if len(details) > 0 {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid conversation", details)
			return
		}

		if err := s.CreateConversation(r.Context(), conv); err != nil {
			writeError(w, r, err)
			return
		}
		if m != nil {
			m.RecordIngest(len(conv.Messages))
		}

		response.Created(w, conv)
	}
}

// toConversation validates the request and builds the conversation. Message
// order in the request is the conversation order.
func (req conversationRequest) toConversation(brandID uuid.UUID) (*models.Conversation, map[string]string) {
	details := make(map[string]string)
	switch {
	case len(req.Messages) == 0:
		details["messages"] = "at least one message is required"
	case len(req.Messages) > maxMessages:
		details["messages"] = "at most " + strconv.Itoa(maxMessages) + " messages are allowed"
	}

	conv := &models.Conversation{BrandID: brandID, Metadata: req.Metadata}
	for i, msg := range req.Messages {
		field := "messages[" + strconv.Itoa(i) + "]"

		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if !models.IsValidRole(role) {
			details[field+".role"] = "role must be user or assistant"
		}
		if strings.TrimSpace(msg.Content) == "" {
			details[field+".content"] = "content is required"
		} else if len(msg.Content) > maxMessageLength {
			details[field+".content"] = "content must be at most " + strconv.Itoa(maxMessageLength) + " bytes"
		}

		var ts time.Time
		if msg.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339, msg.Timestamp)
			if err != nil {
				details[field+".timestamp"] = "timestamp must be a valid RFC3339 timestamp"
			}
			ts = parsed.UTC()
		}

		conv.Messages = append(conv.Messages, models.Message{
			Position:  i,
			Role:      role,
			Content:   msg.Content,
			Timestamp: ts,
		})
	}
	return conv, details
}

// NewListConversationsHandler returns an http.HandlerFunc for
// GET /api/v1/conversations. Messages are not included.
func NewListConversationsHandler(s ConversationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brandID, ok := mw.GetBrandID(r)
		if !ok {
			missingBrand(w)
			return
		}

		q := r.URL.Query()
		filter := store.ConversationFilter{BrandID: brandID}

		var err error
		if filter.Page, err = intParam(q.Get("page")); err != nil {
			invalidRequest(w, "page must be an integer")
			return
		}
		if filter.Limit, err = intParam(q.Get("limit")); err != nil {
			invalidRequest(w, "limit must be an integer")
			return
		}
		if filter.Since, err = timeParam(q.Get("since")); err != nil {
			invalidRequest(w, "since must be a valid RFC3339 timestamp")
			return
		}
		if filter.Until, err = timeParam(q.Get("until")); err != nil {
			invalidRequest(w, "until must be a valid RFC3339 timestamp")
			return
		}

		// Meta reports the page and limit the store applies.
		filter.Normalize()

		convs, total, err := s.ListConversations(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if convs == nil {
			convs = []*models.Conversation{}
		}

		response.Page(w, convs, filter.Page, filter.Limit, total)
	}
}

// NewGetConversationHandler returns an http.HandlerFunc for
// GET /api/v1/conversations/{conversationID}.
func NewGetConversationHandler(s ConversationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brandID, ok := mw.GetBrandID(r)
		if !ok {
			missingBrand(w)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "conversationID"))
		if err != nil {
			invalidRequest(w, "conversationID must be a UUID")
			return
		}

		conv, err := s.GetConversation(r.Context(), id, brandID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, conv)
	}
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func timeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	return t.UTC(), err
}

// floatParam returns nil for an absent value so an explicit 0 stays distinct
// from a default. NaN and infinities are rejected.
func floatParam(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %q", v)
	}
	return &f, nil
}
