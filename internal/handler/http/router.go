package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/auth"
)

// Recorder receives business events worth counting.
type Recorder interface {
	OrderPlaced(total decimal.Decimal)
	CartOperation(op string)
}

type noopRecorder struct{}

func (noopRecorder) OrderPlaced(decimal.Decimal) {}
func (noopRecorder) CartOperation(string)        {}

// Instrumentation wraps every request and serves the scrape endpoint.
type Instrumentation interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

type RouteRegistrar interface {
	RegisterRoutes(router chi.Router)
}

type RouterConfig struct {
	Issuer          *auth.Issuer
	Instrumentation Instrumentation
	Handlers        []RouteRegistrar
}

// NewRouter mounts the handlers under /api behind the shared middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)
	if cfg.Instrumentation != nil {
		router.Use(cfg.Instrumentation.Middleware)
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Instrumentation != nil {
		router.Handle("/metrics", cfg.Instrumentation.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate(cfg.Issuer))
		for _, h := range cfg.Handlers {
			h.RegisterRoutes(r)
		}
	})

	return router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
