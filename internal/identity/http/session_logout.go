package http

import (
	"encoding/json"
	"net/http"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/obs"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/service"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/httpx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/slogx"
)

// LogoutHandler serves POST /v1/session/logout. It always answers
// {"success":true}: logout must never fail for anything the client presents,
// and the response must not reveal whether the secret was ever valid.
type LogoutHandler struct {
	Sessions *service.SessionService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req LogoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.RefreshToken != "" {
		if err := h.Sessions.EndSession(ctx, req.RefreshToken); err != nil {
			log.Error("logout revocation failed", "err", err)
		}
	}

	obs.SessionEvent(obs.EventLogout, true)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// LogoutAllHandler serves POST /v1/session/logout-all, revoking every
// refresh secret for the authenticated user.
type LogoutAllHandler struct {
	Sessions *service.SessionService
}

func (h *LogoutAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok || userID == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	if err := h.Sessions.EndAllSessions(ctx, userID); err != nil {
		log.Error("logout-all revocation failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	obs.SessionEvent(obs.EventLogout, true)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
