package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/seamanship/internal/progress"
)

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progress.ErrInvalidEvent):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case progress.IsPersistenceError(err):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "progress store unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

func parseLimit(r *http.Request, defaultValue int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get("limit"))
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
