package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef") // 32 bytes

func testEntries() []Entry {
	return []Entry{
		{Type: "sub", Value: "alice"},
		{Type: "name", Value: "Alice"},
		{Type: "role", Value: "admin"},
	}
}

func TestNewSignerHS256_RejectsShortKey(t *testing.T) {
	t.Parallel()

	_, err := NewSignerHS256([]byte("too-short"))
	require.Error(t, err)

	_, err = NewVerifierHS256([]byte("too-short"), "iss", "aud")
	require.Error(t, err)
}

func TestHS256_RoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := NewSignerHS256(testKey)
	require.NoError(t, err)
	verifier, err := NewVerifierHS256(testKey, "identity-service", "identity-clients")
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := NewAccessClaims("alice", "jti-1", testEntries(), 15*time.Minute, "identity-service", "identity-clients", now)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3, "compact JWS has three parts")

	got, err := verifier.Verify(token, now)
	require.NoError(t, err)
	require.Equal(t, testEntries(), got.Entries)
	require.Equal(t, "alice", got.Subject)
	require.Equal(t, "jti-1", got.ID)
	require.Equal(t, got.IssuedAt.Unix(), got.NotBefore.Unix())
	require.Equal(t, now.Truncate(time.Second).Add(15*time.Minute).Unix(), got.ExpiresAt.Unix())
}

func TestHS256_TamperDetection(t *testing.T) {
	t.Parallel()

	signer, err := NewSignerHS256(testKey)
	require.NoError(t, err)
	verifier, err := NewVerifierHS256(testKey, "identity-service", "identity-clients")
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := NewAccessClaims("alice", "jti-1", testEntries(), 15*time.Minute, "identity-service", "identity-clients", now)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	flip := func(s string, i int) string {
		b := []byte(s)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		return string(b)
	}

	parts := strings.Split(token, ".")

	t.Run("flipped signature byte", func(t *testing.T) {
		bad := parts[0] + "." + parts[1] + "." + flip(parts[2], 3)
		_, err := verifier.Verify(bad, now)
		require.Error(t, err)
	})

	t.Run("flipped payload byte", func(t *testing.T) {
		bad := parts[0] + "." + flip(parts[1], 10) + "." + parts[2]
		_, err := verifier.Verify(bad, now)
		require.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewVerifierHS256([]byte("ffffffffffffffffffffffffffffffff"), "identity-service", "identity-clients")
		require.NoError(t, err)
		_, err = other.Verify(token, now)
		require.ErrorIs(t, err, ErrInvalidSig)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := verifier.Verify("not.a.token", now)
		require.ErrorIs(t, err, ErrMalformed)
	})
}

func TestHS256_ExpiryBounds(t *testing.T) {
	t.Parallel()

	signer, err := NewSignerHS256(testKey)
	require.NoError(t, err)
	verifier, err := NewVerifierHS256(testKey, "identity-service", "identity-clients")
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	lifespan := 15 * time.Minute
	claims := NewAccessClaims("alice", "jti-1", nil, lifespan, "identity-service", "identity-clients", now)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	t.Run("one second before expiry", func(t *testing.T) {
		_, err := verifier.Verify(token, now.Add(lifespan-time.Second))
		require.NoError(t, err)
	})

	t.Run("one second after expiry", func(t *testing.T) {
		_, err := verifier.Verify(token, now.Add(lifespan+time.Second))
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("before not-before", func(t *testing.T) {
		_, err := verifier.Verify(token, now.Add(-time.Second))
		require.ErrorIs(t, err, ErrNotYetValid)
	})
}

func TestHS256_IssuerAudienceExactMatch(t *testing.T) {
	t.Parallel()

	signer, err := NewSignerHS256(testKey)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := NewAccessClaims("alice", "jti-1", nil, time.Minute, "identity-service", "identity-clients", now)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	tests := []struct {
		name     string
		issuer   string
		audience string
		wantErr  error
	}{
		{"exact match", "identity-service", "identity-clients", nil},
		{"wrong issuer", "other-service", "identity-clients", ErrIssuer},
		{"issuer prefix is not a match", "identity", "identity-clients", ErrIssuer},
		{"issuer case differs", "Identity-Service", "identity-clients", ErrIssuer},
		{"wrong audience", "identity-service", "other-clients", ErrAudience},
		{"audience prefix is not a match", "identity-service", "identity", ErrAudience},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier, err := NewVerifierHS256(testKey, tt.issuer, tt.audience)
			require.NoError(t, err)

			_, err = verifier.Verify(token, now)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
