package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/brandpulse/internal/api/response"
	"github.com/kiranshivaraju/brandpulse/internal/insights"
	"github.com/kiranshivaraju/brandpulse/internal/store"
)

// writeError maps service and store errors onto the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, insights.ErrInvalidOptions):
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Resource not found", nil)
	case errors.Is(err, store.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, response.CodeDuplicateKey, "Resource already exists", nil)
	case errors.Is(err, insights.ErrAnalysisTimeout):
		response.Error(w, http.StatusGatewayTimeout, response.CodeAnalysisTimeout,
			"Analysis took too long and was cancelled", nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, response.CodeInternal,
			"An unexpected error occurred", nil)
	}
}

func invalidRequest(w http.ResponseWriter, message string) {
	response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, message, nil)
}

func missingBrand(w http.ResponseWriter) {
	response.Error(w, http.StatusUnauthorized, response.CodeInvalidToken, "Missing brand", nil)
}
