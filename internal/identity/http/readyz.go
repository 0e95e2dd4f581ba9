package http

import (
	"net/http"
	"time"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/httpx"
)

// ReadyzHandler answers the readiness probe, checking the token store.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &HealthChecks{Database: "ok"}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
