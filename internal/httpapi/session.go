package httpapi

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	sessionName   = "seamanship"
	sessionUserID = "user_id"
)

type learnerKey struct{}

// NewCookieStore builds the session store for learner cookies.
func NewCookieStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 365,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// withLearner resolves the learner id from the session cookie, minting a new
// anonymous id on first visit.
func (a *API) withLearner(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A cookie that fails to decode yields a fresh session, which is what we want.
		session, _ := a.sessions.Get(r, sessionName)

		userID, _ := session.Values[sessionUserID].(string)
		if userID == "" {
			userID = uuid.NewString()
			session.Values[sessionUserID] = userID
			if err := session.Save(r, w); err != nil {
				log.Printf("Failed to save session: %v", err)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
				return
			}
		}

		next(w, r.WithContext(context.WithValue(r.Context(), learnerKey{}, userID)))
	})
}

func learnerID(r *http.Request) string {
	userID, _ := r.Context().Value(learnerKey{}).(string)
	return userID
}
