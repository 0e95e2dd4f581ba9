package http

import (
	"errors"
	"net/http"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/service"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/httpx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/slogx"
)

// SessionInfoHandler serves GET /v1/session, returning the canonical view
// of the authenticated subject.
type SessionInfoHandler struct {
	Sessions *service.SessionService
}

func (h *SessionInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok || userID == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	info, err := h.Sessions.Introspect(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			httpx.WriteJSON(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}
		log.Error("session introspection failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, userPayload(info))
}
