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

// SignupHandler serves POST /v1/signup.
type SignupHandler struct {
	Sessions *service.SessionService
}

func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "username and password are required",
		})
		return
	}

	user, pair, err := h.Sessions.Signup(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			obs.SessionEvent(obs.EventSignup, false)
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "Username is already taken",
			})
			return
		}
		log.Error("signup failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	info, err := h.Sessions.Introspect(ctx, user.ID)
	if err != nil {
		log.Error("session introspection failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	obs.SessionEvent(obs.EventSignup, true)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, SessionResponse{
		Token: TokenPayload{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		User:  userPayload(info),
	})
}
