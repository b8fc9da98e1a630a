package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Degraded(t *testing.T) {
	h := NewHealthHandler("1.2.3", map[string]Pinger{
		"database": pingFunc(func(context.Context) error { return nil }),
		"cache":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Details healthResponse `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "SERVICE_UNAVAILABLE" {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %s", env.Error.Code)
	}
	if env.Error.Details.Checks["cache"] != "unavailable" || env.Error.Details.Checks["database"] != "ok" {
		t.Errorf("unexpected checks: %v", env.Error.Details.Checks)
	}
	if env.Error.Details.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", env.Error.Details.Version)
	}
}

func TestToConversation_KeepsRequestOrder(t *testing.T) {
	req := conversationRequest{Messages: []messageRequest{
		{Role: "USER", Content: "Is shipping free?", Timestamp: "2024-03-02T10:00:00+02:00"},
		{Role: "assistant", Content: "Yes, over $50."},
	}}

	conv, details := req.toConversation(uuid.New())
	if len(details) != 0 {
		t.Fatalf("unexpected validation errors: %v", details)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Role != "user" || conv.Messages[1].Position != 1 {
		t.Errorf("unexpected messages: %+v", conv.Messages)
	}
	if got := conv.Messages[0].Timestamp.Format("15:04"); got != "08:00" {
		t.Errorf("expected timestamp normalised to UTC 08:00, got %s", got)
	}
	if !conv.Messages[1].Timestamp.IsZero() {
		t.Errorf("missing timestamp should stay zero until stored")
	}
}
