package obs

import (
	"errors"
	"time"

	"github.com/jcoliz/NuxtIdentity-sub000/pkg/jwtx"
)

type instrumentedVerifier struct {
	inner jwtx.Verifier
}

// InstrumentVerifier wraps a verifier so every verification outcome is
// counted.
func InstrumentVerifier(v jwtx.Verifier) jwtx.Verifier {
	return instrumentedVerifier{inner: v}
}

func (v instrumentedVerifier) Verify(token string, now time.Time) (jwtx.Claims, error) {
	claims, err := v.inner.Verify(token, now)
	TokenVerification(verifyResult(err))
	return claims, err
}

func verifyResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, jwtx.ErrExpired):
		return "expired"
	case errors.Is(err, jwtx.ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, jwtx.ErrInvalidSig):
		return "bad_signature"
	case errors.Is(err, jwtx.ErrIssuer), errors.Is(err, jwtx.ErrAudience):
		return "wrong_audience"
	default:
		return "invalid"
	}
}
