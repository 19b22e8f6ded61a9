package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ventana-core/internal/account"
	"github.com/nerrad567/ventana-core/internal/infrastructure/logging"
)

// pushTokenRequest is the body of PUT /users/{id}/push-token.
// An empty token unregisters the device.
type pushTokenRequest struct {
	Token string `json:"token"`
}

// handleSetPushToken stores the Expo push token for a user.
func (s *Server) handleSetPushToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req pushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.users.SetPushToken(r.Context(), id, req.Token); err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("storing push token failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to store push token")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("reloading user failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to load user")
		return
	}

	s.logger.Info("push token updated",
		"user_id", id,
		"registered", user.CanReceivePush(),
		"token", logging.Redact(user.PushToken),
	)
	writeJSON(w, http.StatusOK, user)
}
