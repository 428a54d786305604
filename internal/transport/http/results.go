package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/domain"
)

const defaultResultsLimit = 20

func handleResults(logger *slog.Logger, identity *Identity, results app.ResultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := identity.UserID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		limit := defaultResultsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}

		list, err := results.ListResults(r.Context(), userID, limit)
		if err != nil {
			logger.Error("list results", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not load results")
			return
		}
		if list == nil {
			list = []domain.GameResult{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
