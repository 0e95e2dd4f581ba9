package identity_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/claims"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/directory"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
	httpapi "github.com/jcoliz/NuxtIdentity-sub000/internal/identity/http"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/service"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
	redisstore "github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store/drivers/redis"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store/drivers/sqlite"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/jwtx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/slogx"
)

const (
	testIssuer   = "https://identity.test"
	testAudience = "identity-app"
	alicePass    = "s3cret-password"
)

var signingKey = []byte("0123456789abcdef0123456789abcdef")

func sqliteStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func redisStore(t *testing.T) store.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewStore(client, "identity")
}

func newServer(t *testing.T, st store.Store) *httptest.Server {
	t.Helper()

	dir := directory.NewMemory()
	_, err := dir.Seed("alice", "alice@example.com", alicePass,
		[]string{"admin"},
		[]domain.ClaimEntry{{Type: "department", Value: "engineering"}},
	)
	require.NoError(t, err)
	dir.SetRoleClaims("admin", []domain.ClaimEntry{{Type: "permission", Value: "users:write"}})

	signer, err := jwtx.NewSignerHS256(signingKey)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(signingKey, testIssuer, testAudience)
	require.NoError(t, err)

	sessions := &service.SessionService{
		Store:      st,
		Directory:  dir,
		Aggregator: claims.NewAggregator(dir),
		Signer:     signer,
		Refresh:    &service.RefreshService{Store: st, TTL: 24 * time.Hour},
		Issuer:     testIssuer,
		Audience:   testAudience,
		AccessTTL:  15 * time.Minute,
	}

	logger := slogx.New(slogx.Config{Service: "identity-e2e", Level: "error", Format: "text"})
	router := httpapi.NewRouter(verifier, "test", st, sessions, logger)
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, bearer string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeSession(t *testing.T, resp *http.Response) httpapi.SessionResponse {
	t.Helper()
	defer resp.Body.Close()

	var out httpapi.SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSessionLifecycle(t *testing.T) {
	drivers := map[string]func(*testing.T) store.Store{
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}

	for name, newStore := range drivers {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, newStore(t))

			// Login.
			resp := postJSON(t, srv.URL+"/v1/session", "", map[string]string{
				"username": "alice",
				"password": alicePass,
			})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			first := decodeSession(t, resp)
			require.NotEmpty(t, first.Token.AccessToken)
			require.NotEmpty(t, first.Token.RefreshToken)
			require.Equal(t, []string{"admin"}, first.User.Roles)

			// Introspect with the access token.
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/session", nil)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+first.Token.AccessToken)
			infoResp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, infoResp.StatusCode)
			var user httpapi.UserPayload
			require.NoError(t, json.NewDecoder(infoResp.Body).Decode(&user))
			infoResp.Body.Close()
			require.Equal(t, "alice", user.Name)

			// Rotate.
			resp = postJSON(t, srv.URL+"/v1/session/refresh", first.Token.AccessToken,
				map[string]string{"refreshToken": first.Token.RefreshToken})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			second := decodeSession(t, resp)
			require.NotEqual(t, first.Token.RefreshToken, second.Token.RefreshToken)

			// Replaying the rotated-out secret fails.
			resp = postJSON(t, srv.URL+"/v1/session/refresh", second.Token.AccessToken,
				map[string]string{"refreshToken": first.Token.RefreshToken})
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			resp.Body.Close()

			// Logout.
			resp = postJSON(t, srv.URL+"/v1/session/logout", "",
				map[string]string{"refreshToken": second.Token.RefreshToken})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var success httpapi.SuccessResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&success))
			resp.Body.Close()
			require.True(t, success.Success)

			// The logged-out secret no longer refreshes.
			resp = postJSON(t, srv.URL+"/v1/session/refresh", second.Token.AccessToken,
				map[string]string{"refreshToken": second.Token.RefreshToken})
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestBadCredentialsAcrossTheWire(t *testing.T) {
	srv := newServer(t, sqliteStore(t))

	resp := postJSON(t, srv.URL+"/v1/session", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var out httpapi.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "unauthenticated", out.Error)
}
