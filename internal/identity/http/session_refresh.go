package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/obs"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/service"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/httpx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/slogx"
)

// RefreshHandler serves POST /v1/session/refresh. Requires a still-valid
// access token; the subject comes from the verified bearer, never the body.
type RefreshHandler struct {
	Sessions *service.SessionService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok || userID == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "refreshToken is required",
		})
		return
	}

	user, pair, err := h.Sessions.RefreshSession(ctx, userID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			obs.SessionEvent(obs.EventRefresh, false)
			httpx.WriteJSON(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}
		log.Error("session refresh failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	info, err := h.Sessions.Introspect(ctx, user.ID)
	if err != nil {
		log.Error("session introspection failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	obs.SessionEvent(obs.EventRefresh, true)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, SessionResponse{
		Token: TokenPayload{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		User:  userPayload(info),
	})
}
