// Package routes assembles the pool gateway's HTTP API.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"prizepool/gateway"
	"prizepool/gateway/middleware"
)

// Rate limit groups referenced by route registration.
const (
	LimitMutations = "mutations"
	LimitQueries   = "queries"
	LimitAdmin     = "admin"
)

type Config struct {
	Service       *gateway.Service
	AdminToken    string
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
}

// New builds the router: public pool and draw endpoints, bearer-guarded admin
// endpoints, health and metrics.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h := &handlers{service: cfg.Service}

	r.Route("/v1/pool", func(sr chi.Router) {
		sr.With(limit(cfg.RateLimiter, LimitQueries)).Get("/", h.poolStatus)
		sr.With(limit(cfg.RateLimiter, LimitQueries)).Get("/accounts/{address}", h.accountStatus)
		sr.With(limit(cfg.RateLimiter, LimitMutations)).Post("/deposit", h.deposit)
		sr.With(limit(cfg.RateLimiter, LimitMutations)).Post("/withdraw", h.withdraw)
		sr.With(limit(cfg.RateLimiter, LimitMutations)).Post("/transfer", h.transfer)
	})

	r.Route("/v1/draws", func(sr chi.Router) {
		sr.With(limit(cfg.RateLimiter, LimitQueries)).Get("/{requestID}", h.draw)
		sr.With(limit(cfg.RateLimiter, LimitMutations)).Post("/start", h.startAward)
		sr.With(limit(cfg.RateLimiter, LimitMutations)).Post("/fulfill", h.fulfill)
		sr.With(limit(cfg.RateLimiter, LimitMutations)).Post("/{requestID}/recover", h.recover)
	})

	r.Route("/v1/admin", func(sr chi.Router) {
		sr.Use(limit(cfg.RateLimiter, LimitAdmin))
		sr.Use(middleware.AdminAuth(cfg.AdminToken))
		sr.Put("/fee-receiver", h.setFeeReceiver)
		sr.Put("/fee-bps", h.setFeeBps)
		sr.Put("/max-stake", h.setMaxStake)
		sr.Get("/draws/export", h.exportDraws)
	})

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	return r
}

func limit(rl *middleware.RateLimiter, key string) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware(key)
}
