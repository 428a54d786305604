package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
)

const (
	identityCookie = "bodhiment"
	identityKey    = "user_id"
)

// Identity resolves the player behind a request from a signed cookie.
type Identity struct {
	store sessions.Store
}

func NewIdentity(secret []byte) *Identity {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Identity{store: store}
}

// UserID returns the signed-in user, if any.
func (i *Identity) UserID(r *http.Request) (string, bool) {
	session, err := i.store.Get(r, identityCookie)
	if err != nil {
		return "", false
	}
	userID, ok := session.Values[identityKey].(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

type identityRequest struct {
	UserID string `json:"userId"`
}

type identityResponse struct {
	UserID string `json:"userId,omitempty"`
}

func handleSetIdentity(identity *Identity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req identityRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		userID := strings.TrimSpace(req.UserID)
		if userID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}
		// A stale or foreign cookie yields a fresh session, which is fine here.
		session, _ := identity.store.Get(r, identityCookie)
		session.Values[identityKey] = userID
		if err := session.Save(r, w); err != nil {
			writeError(w, http.StatusInternalServerError, "could not save identity")
			return
		}
		writeJSON(w, http.StatusOK, identityResponse{UserID: userID})
	}
}

func handleClearIdentity(identity *Identity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := identity.store.Get(r, identityCookie)
		delete(session.Values, identityKey)
		session.Options.MaxAge = -1
		if err := session.Save(r, w); err != nil {
			writeError(w, http.StatusInternalServerError, "could not clear identity")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleGetIdentity(identity *Identity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := identity.UserID(r)
		writeJSON(w, http.StatusOK, identityResponse{UserID: userID})
	}
}
