package adapthttp

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"quotadash/internal/app"
)

// Server is the driving HTTP adapter that routes requests to the
// application services.
type Server struct {
	authSvc  *app.AuthService
	usageSvc *app.UsageService
	log      *slog.Logger
	metrics  *metrics

	basePath     string
	cookieName   string
	cookieSecure bool
	sessionTTL   time.Duration
	allowOrigin  string
	webDir       string
}

// Option customizes a Server.
type Option func(*Server)

// WithBasePath overrides the default /api/auth mount point.
func WithBasePath(p string) Option {
	return func(s *Server) { s.basePath = strings.TrimRight(p, "/") }
}

// WithCookie sets the session cookie name and whether it is Secure.
func WithCookie(name string, secure bool) Option {
	return func(s *Server) {
		s.cookieName = name
		s.cookieSecure = secure
	}
}

// WithSessionTTL sets the cookie lifetime; it should match the
// service-side session TTL.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Server) { s.sessionTTL = d }
}

// WithAllowedOrigin enables CORS headers for the given origin.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) { s.allowOrigin = origin }
}

// WithWebDir serves the dashboard SPA from the given directory.
func WithWebDir(dir string) Option {
	return func(s *Server) { s.webDir = dir }
}

// New creates a Server wired to the given application services.
func New(authSvc *app.AuthService, usageSvc *app.UsageService, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		authSvc:    authSvc,
		usageSvc:   usageSvc,
		log:        log,
		metrics:    newMetrics(),
		basePath:   "/api/auth",
		cookieName: "qd_session",
		sessionTTL: 7 * 24 * time.Hour,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	auth := http.NewServeMux()
	auth.HandleFunc("/signup", s.handleSignup)
	auth.HandleFunc("/login", s.handleLogin)
	auth.HandleFunc("/logout", s.handleLogout)
	auth.HandleFunc("/me", s.handleMe)
	auth.HandleFunc("/request-password-reset", s.handleRequestPasswordReset)
	auth.HandleFunc("/reset-password", s.handleResetPassword)

	api := http.NewServeMux()
	api.Handle(s.basePath+"/", http.StripPrefix(s.basePath, auth))
	api.Handle("/api/usage", s.authMiddleware(http.HandlerFunc(s.handleUsage)))
	api.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	root := http.NewServeMux()
	instrumented := s.metricsMiddleware(api)
	root.Handle("/api/", instrumented)
	if !strings.HasPrefix(s.basePath, "/api/") {
		root.Handle(s.basePath+"/", instrumented)
	}
	root.Handle("/metrics", s.metrics.handler())
	if s.webDir != "" {
		root.Handle("/", spaFromDisk(s.webDir))
	}

	var h http.Handler = root
	h = withNoCache(h)
	h = s.corsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.recoverMiddleware(h)
	return h
}
