// Package http exposes the ledger engine as a JSON API. Routes are keyed by
// the caller identity in the X-User-ID header; each identity gets its own
// engine from the manager.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"smartspend/internal/advice"
	"smartspend/internal/engine"
	applog "smartspend/internal/log"
)

// writeLimit is the per-IP mutation budget per minute.
const writeLimit = 60

type Server struct {
	*http.Server
	manager      *engine.Manager
	advisor      *advice.Client
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

func NewServer(addr string, manager *engine.Manager, advisor *advice.Client, logger *applog.Logger) *Server {
	s := &Server{
		manager:     manager,
		advisor:     advisor,
		rateLimiter: newRateLimiter(writeLimit),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleHealth)

	mux.HandleFunc("GET /api/expenses", s.withIdentity(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withIdentity(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withIdentity(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withIdentity(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/summary", s.withIdentity(s.handleSummary))

	mux.HandleFunc("GET /api/budget", s.withIdentity(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget", s.withIdentity(s.handleSetBudget))

	mux.HandleFunc("GET /api/alerts", s.withIdentity(s.handleAlerts))
	mux.HandleFunc("POST /api/alerts/{id}/read", s.withIdentity(s.handleMarkAlertRead))
	mux.HandleFunc("POST /api/alerts/read-all", s.withIdentity(s.handleMarkAllAlertsRead))

	mux.HandleFunc("POST /api/advice/chat", s.withIdentity(s.handleAdviceChat))

	mux.HandleFunc("DELETE /api/session", s.withIdentity(s.handleEndSession))

	handler := applog.AccessLog(logger)(s.withSecurityHeaders(mux))

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// withIdentity rejects requests without a caller identity and hands the
// identity's engine to the wrapped handler.
func (s *Server) withIdentity(next func(http.ResponseWriter, *http.Request, *engine.Engine)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		if uid == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + userIDHeader + " header"})
			return
		}
		eng := s.manager.Acquire(r.Context(), uid)
		next(w, r, eng)
	}
}

func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
