package httpapi

import (
	"net/http"

	"github.com/example/seamanship/internal/progress"
	"github.com/gorilla/sessions"
)

func NewRouter(service *progress.Service, store sessions.Store) http.Handler {
	api := NewAPI(service, store)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", api.HandleHealth)
	mux.Handle("GET /api/progress", api.withLearner(api.HandleListProgress))
	mux.Handle("GET /api/progress/{topic}", api.withLearner(api.HandleGetProgress))
	mux.Handle("POST /api/progress/{topic}", api.withLearner(api.HandleReconcile))
	mux.Handle("DELETE /api/progress/{topic}", api.withLearner(api.HandleReset))
	mux.Handle("GET /api/points", api.withLearner(api.HandlePoints))
	mux.HandleFunc("GET /api/leaderboard", api.HandleLeaderboard)

	return mux
}
