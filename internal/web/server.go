// Package web serves the meal planner as a server-rendered HTML page.
package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"weekly-meal-planner/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// Options configures a Server.
type Options struct {
	App                *app.App
	Logger             *zap.Logger
	SessionSecret      []byte
	SessionTTL         time.Duration
	RateLimitPerMinute int
	// TrustProxyHeaders keys rate limiting on X-Forwarded-For/X-Real-IP
	// instead of the connection address.
	TrustProxyHeaders bool
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// DataPath is reported in /healthz disk usage when set.
	DataPath string
	// Telegram receives webhook updates when set.
	Telegram http.Handler
}

// Server holds the HTTP handlers.
type Server struct {
	app        *app.App
	logger     *zap.Logger
	sessions   *sessionCookies
	limiter    *RateLimiter
	gatherer   prometheus.Gatherer
	dataPath   string
	telegram   http.Handler
	trustProxy bool
}

// NewServer creates a Server. Call Close to stop its background work.
func NewServer(opts Options) *Server {
	return &Server{
		app:        opts.App,
		logger:     opts.Logger,
		sessions:   newSessionCookies(opts.SessionSecret, opts.SessionTTL, opts.Logger),
		limiter:    NewRateLimiter(opts.RateLimitPerMinute),
		gatherer:   opts.Gatherer,
		dataPath:   opts.DataPath,
		telegram:   opts.Telegram,
		trustProxy: opts.TrustProxyHeaders,
	}
}

// Close stops the rate limiter cleanup loop.
func (s *Server) Close() {
	s.limiter.Stop()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.telegram != nil {
		r.Method(http.MethodPost, "/telegram/webhook", s.telegram)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)
		r.Get("/", s.handleIndex)
		r.Post("/plan", s.handleGeneratePlan)
		r.Post("/plan/days/{day}/regenerate", s.handleRegenerateDay)
		r.Post("/pantry", s.handleUpdatePantry)
		r.Post("/shopping-list", s.handleShoppingList)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
