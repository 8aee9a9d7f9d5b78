// Package http is the JSON API transport. Every route maps onto one session
// intent; the handlers do parsing and status codes, nothing else.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"mindcash/internal/app"
	"mindcash/internal/auth"
	"mindcash/internal/backend"
	"mindcash/internal/cache"
	"mindcash/internal/core"
	mclog "mindcash/internal/log"
	"mindcash/internal/trial"
)

const (
	cacheSize      = 200
	readTimeout    = 10 * time.Second
	writeTimeout   = 30 * time.Second
	handlerTimeout = 15 * time.Second
)

type Server struct {
	http.Server

	store  backend.Store
	auth   *auth.Service
	trials *trial.Tracker
	pub    app.Publisher
	logger *mclog.Logger
	now    func() time.Time

	rateLimiter *rateLimiter
	metrics     *serverMetrics

	mu       sync.Mutex
	sessions map[string]*app.Session

	summaryCache   *cache.LRUCache[core.FinancialSummary]
	breakdownCache *cache.LRUCache[[]core.CategoryBreakdown]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

type Options struct {
	Addr      string
	Store     backend.Store
	Auth      *auth.Service
	Trials    *trial.Tracker
	Publisher app.Publisher
	Logger    *mclog.Logger
	CacheTTL  time.Duration
	Now       func() time.Time
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = mclog.New(mclog.DefaultConfig()).WithComponent(mclog.ComponentHTTP)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}

	mux := http.NewServeMux()
	s := &Server{
		store:          opts.Store,
		auth:           opts.Auth,
		trials:         opts.Trials,
		pub:            opts.Publisher,
		logger:         opts.Logger,
		now:            opts.Now,
		rateLimiter:    newRateLimiter(),
		metrics:        newServerMetrics(opts.Now()),
		sessions:       make(map[string]*app.Session),
		summaryCache:   cache.NewLRUCache[core.FinancialSummary](cacheSize, opts.CacheTTL),
		breakdownCache: cache.NewLRUCache[[]core.CategoryBreakdown](cacheSize, opts.CacheTTL),
		cacheManager:   cache.NewManager(),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.breakdownCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.withSession(s.handleLogout))
	mux.HandleFunc("GET /api/me", s.withSession(s.handleMe))
	mux.HandleFunc("POST /api/trial/start", s.withSession(s.handleStartTrial))
	mux.HandleFunc("PUT /api/settings", s.withSession(s.handleSettings))

	mux.HandleFunc("GET /api/transactions", s.withSession(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withSession(s.handleAddTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSession(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/summary", s.withSession(s.handleSummary))
	mux.HandleFunc("GET /api/breakdown", s.withSession(s.handleBreakdown))
	mux.HandleFunc("PUT /api/period", s.withSession(s.handleSetPeriod))

	mux.HandleFunc("GET /api/alerts", s.withSession(s.handleAlerts))
	mux.HandleFunc("POST /api/alerts/{id}/read", s.withSession(s.handleMarkAlertRead))
	mux.HandleFunc("GET /api/insights/next", s.withSession(s.handleNextInsight))

	mux.HandleFunc("GET /api/goals", s.withSession(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.withSession(s.handleAddGoal))
	mux.HandleFunc("PUT /api/goals/{id}/progress", s.withSession(s.handleGoalProgress))
	mux.HandleFunc("GET /api/recurring", s.withSession(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring", s.withSession(s.handleAddRecurring))

	mux.HandleFunc("GET /api/plans", s.handlePlans)
	mux.HandleFunc("GET /api/checkout", s.handleCheckout)
	mux.HandleFunc("POST /api/subscribe", s.withSession(s.handleSubscribe))

	mux.HandleFunc("POST /api/backup", s.withSession(s.handleBackup))
	mux.HandleFunc("GET /api/export.csv", s.withSession(s.handleExportCSV))
	mux.HandleFunc("POST /api/import.csv", s.withSession(s.handleImportCSV))

	chain := mclog.RequestLogger(opts.Logger)(s.withSecurity(mux))
	s.Server = http.Server{
		Addr:         opts.Addr,
		Handler:      http.TimeoutHandler(chain, handlerTimeout, "request timed out"),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// withSecurity sets the response headers every route carries and applies the
// rate limit to mutating requests.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.countRequest()
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP(r)) {
			s.metrics.countRateLimitHit()
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *app.Session)

// withSession resolves the bearer token to a live session, resuming one from
// the session store when the server has restarted since sign-in.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		sess, err := s.sessionFor(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) sessionFor(ctx context.Context, token string) (*app.Session, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[token]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	sess := s.newAppSession()
	if err := sess.Resume(ctx, token); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[token]; ok {
		return existing, nil
	}
	s.sessions[token] = sess
	return sess, nil
}

func (s *Server) newAppSession() *app.Session {
	return app.NewSession(app.Options{
		Store:     s.store,
		Auth:      s.auth,
		Trials:    s.trials,
		Publisher: s.pub,
		Now:       s.now,
	})
}

func (s *Server) registerSession(token string, sess *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = sess
}

func (s *Server) dropSession(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *Server) invalidateDashboards(userID string) {
	for _, p := range []core.Period{core.PeriodDay, core.PeriodWeek, core.PeriodMonth} {
		s.summaryCache.Delete(dashboardKey(userID, p))
		s.breakdownCache.Delete(dashboardKey(userID, p))
	}
}

func dashboardKey(userID string, p core.Period) string {
	return userID + "|" + string(p)
}

// Shutdown stops the background goroutines and then the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// The store answering a read is the readiness signal.
	if _, err := s.store.ListAlerts(r.Context(), "readiness-probe"); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
