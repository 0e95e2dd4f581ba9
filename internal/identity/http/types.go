package http

import (
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/service"
)

// ErrorResponse is the uniform error body. Authentication failures carry the
// bare "unauthenticated" code with no further detail.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ClaimPayload struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type UserPayload struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Email  string         `json:"email,omitempty"`
	Roles  []string       `json:"roles"`
	Claims []ClaimPayload `json:"claims"`
}

type TokenPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SessionResponse is returned by login, signup, and refresh.
type SessionResponse struct {
	Token TokenPayload `json:"token"`
	User  UserPayload  `json:"user"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

func userPayload(info service.SessionInfo) UserPayload {
	claims := make([]ClaimPayload, 0, len(info.Claims))
	for _, c := range info.Claims {
		claims = append(claims, ClaimPayload{Type: c.Type, Value: c.Value})
	}
	roles := info.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserPayload{
		ID:     info.User.ID,
		Name:   info.User.Name,
		Email:  info.User.Email,
		Roles:  roles,
		Claims: claims,
	}
}

var errUnauthenticated = ErrorResponse{Error: "unauthenticated"}
