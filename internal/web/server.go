// Package web provides the HTTP API for the input sheet service.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/JonMunkholm/inputsheet/internal/auth"
	"github.com/JonMunkholm/inputsheet/internal/config"
	"github.com/JonMunkholm/inputsheet/internal/core"
	mw "github.com/JonMunkholm/inputsheet/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for the input sheet API.
type Server struct {
	service  *core.Service
	sessions *auth.SessionStore
	cfg      *config.Config
	driver   string

	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a Server. driver names the storage backend for the
// health endpoint.
func NewServer(service *core.Service, sessions *auth.SessionStore, cfg *config.Config, driver string) *Server {
	s := &Server{
		service:  service,
		sessions: sessions,
		cfg:      cfg,
		driver:   driver,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}

	s.router.Use(mw.LoadSession(s.sessions))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	loginLimit := s.limit(s.cfg.Rate.LoginLimit)
	heavyLimit := s.limit(s.cfg.Rate.HeavyLimit)

	s.router.Route("/api", func(r chi.Router) {
		// Authentication
		r.With(loginLimit).Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/check", s.handleCheck)

		// Public reads and submissions
		r.Get("/structure", s.handleGetStructure)
		r.Get("/items_a", s.handleItemsA)
		r.Get("/items_d", s.handleItemsD)
		r.Post("/input/save", s.handleSaveInput)
		r.Get("/inputs/{itemAID}", s.handleInputsByItem)
		r.With(heavyLimit).Get("/pdf/generate/{itemAID}", s.handleGenerateItem)

		// Any logged-in user
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireSession)
			r.Get("/inputs", s.handleListInputs)
			r.With(heavyLimit).Get("/pdf/generate-all", s.handleGenerateAll)
		})

		// Main administrator only
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(core.RoleMainAdmin))

			r.Get("/users", s.handleListUsers)
			r.Post("/users/create", s.handleCreateUser)
			r.Delete("/users/{username}", s.handleDeleteUser)
			r.Put("/users/{username}/password", s.handleChangePassword)

			r.Put("/structure", s.handleReplaceStructure)
			r.With(heavyLimit).Post("/structure/upload", s.handleUploadStructure)
		})
	})
}

// limit returns a per-route rate limit middleware, or a pass-through when
// rate limiting is disabled.
func (s *Server) limit(perMinute int) func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.newRateLimiter(perMinute, time.Minute).middleware
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a limiter owned by s; Shutdown stops its cleanup
// goroutine.
func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	s.limiters = append(s.limiters, rl)
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every window.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1,
			lastReset: time.Now(),
		}
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware rejects requests over the limit with 429.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(mw.ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
