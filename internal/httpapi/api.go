package httpapi

import (
	"github.com/example/seamanship/internal/progress"
	"github.com/gorilla/sessions"
)

type API struct {
	service  *progress.Service
	sessions sessions.Store
}

func NewAPI(service *progress.Service, store sessions.Store) *API {
	return &API{service: service, sessions: store}
}
