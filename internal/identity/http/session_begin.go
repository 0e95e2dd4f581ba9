package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/obs"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/service"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/httpx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/slogx"
)

// LoginHandler serves POST /v1/session.
type LoginHandler struct {
	Sessions *service.SessionService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "username and password are required",
		})
		return
	}

	user, pair, err := h.Sessions.BeginSession(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			obs.SessionEvent(obs.EventLogin, false)
			httpx.WriteJSON(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	info, err := h.Sessions.Introspect(ctx, user.ID)
	if err != nil {
		log.Error("session introspection failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	obs.SessionEvent(obs.EventLogin, true)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, SessionResponse{
		Token: TokenPayload{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		User:  userPayload(info),
	})
}
