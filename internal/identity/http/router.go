package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/obs"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/service"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/httpx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/jwtx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	Sessions *service.SessionService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	sessions *service.SessionService,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		Sessions:     sessions,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		obs.Instrument,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSessions() {
	// POST /v1/session - strict rate limit (credential guessing target)
	loginHandler := &LoginHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/session",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/signup - strict rate limit by IP (public account creation)
	signupHandler := &SignupHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/signup",
		httpx.Chain(signupHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/session/refresh - authenticated, moderate limit by user
	refreshHandler := &RefreshHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/session/refresh",
		httpx.Chain(refreshHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// POST /v1/session/logout - unauthenticated so stale clients can always
	// log out; moderate limit by IP
	logoutHandler := &LogoutHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/session/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /v1/session/logout-all - authenticated "log out everywhere"
	logoutAllHandler := &LogoutAllHandler{Sessions: r.Sessions}
	r.Mux.Handle("POST /v1/session/logout-all",
		httpx.Chain(logoutAllHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// GET /v1/session - authenticated introspection, lenient limit
	infoHandler := &SessionInfoHandler{Sessions: r.Sessions}
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(infoHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", obs.Handler())
}
