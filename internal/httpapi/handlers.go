package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

const (
	defaultLeaderboardLimit = 10
	maxBodyBytes            = 1 << 20
)

func (a *API) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReconcile records a completion event fired by a theory page or quiz.
func (a *API) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	topicID := strings.TrimSpace(r.PathValue("topic"))

	var req reconcileRequest
	// An empty body is a plain visit with default values.
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	outcome, err := a.service.Reconcile(r.Context(), learnerID(r), topicID, req.event())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reconcileResponse{TopicID: topicID, Outcome: outcome})
}

func (a *API) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	topicID := strings.TrimSpace(r.PathValue("topic"))

	rec, err := a.service.Progress(r.Context(), learnerID(r), topicID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no progress for topic"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) HandleListProgress(w http.ResponseWriter, r *http.Request) {
	userID := learnerID(r)

	recs, err := a.service.ListProgress(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progressListResponse{UserID: userID, Progress: recs})
}

// HandleReset removes one topic record. Points are not refunded.
func (a *API) HandleReset(w http.ResponseWriter, r *http.Request) {
	topicID := strings.TrimSpace(r.PathValue("topic"))

	if err := a.service.Reset(r.Context(), learnerID(r), topicID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandlePoints(w http.ResponseWriter, r *http.Request) {
	userID := learnerID(r)

	points, err := a.service.Points(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pointsResponse{UserID: userID, Points: points})
}

func (a *API) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultLeaderboardLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	entries, err := a.service.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Entries: entries})
}
