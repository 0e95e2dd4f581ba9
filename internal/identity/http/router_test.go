package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/claims"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/directory"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/service"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store/drivers/sqlite"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/jwtx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/slogx"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	dir := directory.NewMemory()
	_, err = dir.Seed("alice", "alice@example.com", "s3cret-password",
		[]string{"admin"},
		[]domain.ClaimEntry{{Type: "department", Value: "engineering"}},
	)
	require.NoError(t, err)
	dir.SetRoleClaims("admin", []domain.ClaimEntry{{Type: "permission", Value: "users:write"}})

	signer, err := jwtx.NewSignerHS256(testKey)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testKey, "https://identity.test", "identity-app")
	require.NoError(t, err)

	sessions := &service.SessionService{
		Store:      st,
		Directory:  dir,
		Aggregator: claims.NewAggregator(dir),
		Signer:     signer,
		Refresh:    &service.RefreshService{Store: st, TTL: 24 * time.Hour},
		Issuer:     "https://identity.test",
		Audience:   "identity-app",
		AccessTTL:  15 * time.Minute,
	}

	logger := slogx.New(slogx.Config{Service: "identity-test", Level: "error", Format: "text"})
	r := NewRouter(verifier, "test", st, sessions, logger)
	r.ApplyRoutes()
	return r
}

func doJSON(t *testing.T, r *Router, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, r *Router) SessionResponse {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/v1/session", "",
		LoginRequest{Username: "alice", Password: "s3cret-password"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestLoginReturnsSessionShape(t *testing.T) {
	r := newTestRouter(t)

	resp := login(t, r)
	require.NotEmpty(t, resp.Token.AccessToken)
	require.NotEmpty(t, resp.Token.RefreshToken)
	require.NotEmpty(t, resp.User.ID)
	require.Equal(t, "alice", resp.User.Name)
	require.Equal(t, "alice@example.com", resp.User.Email)
	require.Equal(t, []string{"admin"}, resp.User.Roles)
	require.NotEmpty(t, resp.User.Claims)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	r := newTestRouter(t)

	for name, req := range map[string]LoginRequest{
		"wrong password": {Username: "alice", Password: "wrong"},
		"unknown user":   {Username: "nobody", Password: "s3cret-password"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/v1/session", "", req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.Equal(t, "unauthenticated", resp.Error)
			require.Empty(t, resp.ErrorDescription)
		})
	}
}

func TestLoginRejectsMissingFields(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/session", "", LoginRequest{Username: "alice"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupCreatesSession(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/signup", "",
		SignupRequest{Username: "bob", Email: "bob@example.com", Password: "bob-password"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "bob", resp.User.Name)
	require.NotEmpty(t, resp.Token.RefreshToken)
	require.Empty(t, resp.User.Roles)

	rec = doJSON(t, r, http.MethodPost, "/v1/signup", "",
		SignupRequest{Username: "bob", Password: "other"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRotatesPair(t *testing.T) {
	r := newTestRouter(t)
	first := login(t, r)

	rec := doJSON(t, r, http.MethodPost, "/v1/session/refresh", first.Token.AccessToken,
		RefreshRequest{RefreshToken: first.Token.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	var second SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	require.NotEqual(t, first.Token.RefreshToken, second.Token.RefreshToken)

	// The old refresh secret is dead.
	rec = doJSON(t, r, http.MethodPost, "/v1/session/refresh", second.Token.AccessToken,
		RefreshRequest{RefreshToken: first.Token.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRequiresBearer(t *testing.T) {
	r := newTestRouter(t)
	pair := login(t, r)

	rec := doJSON(t, r, http.MethodPost, "/v1/session/refresh", "",
		RefreshRequest{RefreshToken: pair.Token.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/session/refresh", "garbage-token",
		RefreshRequest{RefreshToken: pair.Token.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	r := newTestRouter(t)
	pair := login(t, r)

	for name, body := range map[string]any{
		"valid secret":   LogoutRequest{RefreshToken: pair.Token.RefreshToken},
		"unknown secret": LogoutRequest{RefreshToken: "never-issued"},
		"empty body":     nil,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/v1/session/logout", "", body)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp SuccessResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.True(t, resp.Success)
		})
	}

	// The revoked secret no longer refreshes.
	rec := doJSON(t, r, http.MethodPost, "/v1/session/refresh", pair.Token.AccessToken,
		RefreshRequest{RefreshToken: pair.Token.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	r := newTestRouter(t)
	first := login(t, r)
	second := login(t, r)

	rec := doJSON(t, r, http.MethodPost, "/v1/session/logout-all", first.Token.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, pair := range []SessionResponse{first, second} {
		rec := doJSON(t, r, http.MethodPost, "/v1/session/refresh", pair.Token.AccessToken,
			RefreshRequest{RefreshToken: pair.Token.RefreshToken})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestSessionInfo(t *testing.T) {
	r := newTestRouter(t)
	pair := login(t, r)

	rec := doJSON(t, r, http.MethodGet, "/v1/session", pair.Token.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user UserPayload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
	require.Equal(t, "alice", user.Name)
	require.Equal(t, []string{"admin"}, user.Roles)

	rec = doJSON(t, r, http.MethodGet, "/v1/session", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.Equal(t, "ok", health.Status)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
}
