package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// serverMetrics holds the process-local counters behind /metrics.
type serverMetrics struct {
	startedAt           time.Time
	totalRequests       int64
	transactionsCreated int64
	rateLimitHits       int64
	cacheHits           int64
	cacheMisses         int64
}

func newServerMetrics(now time.Time) *serverMetrics {
	return &serverMetrics{startedAt: now}
}

func (m *serverMetrics) countRequest()     { atomic.AddInt64(&m.totalRequests, 1) }
func (m *serverMetrics) countTransaction() { m.countTransactions(1) }
func (m *serverMetrics) countTransactions(n int) {
	atomic.AddInt64(&m.transactionsCreated, int64(n))
}
func (m *serverMetrics) countRateLimitHit() { atomic.AddInt64(&m.rateLimitHits, 1) }
func (m *serverMetrics) countCacheHit()     { atomic.AddInt64(&m.cacheHits, 1) }
func (m *serverMetrics) countCacheMiss()    { atomic.AddInt64(&m.cacheMisses, 1) }

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	uptime := s.now().Sub(s.metrics.startedAt)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", atomic.LoadInt64(&s.metrics.totalRequests))

	fmt.Fprintf(w, "# HELP transactions_created_total Total number of transactions created\n")
	fmt.Fprintf(w, "# TYPE transactions_created_total counter\n")
	fmt.Fprintf(w, "transactions_created_total %d\n\n", atomic.LoadInt64(&s.metrics.transactionsCreated))

	fmt.Fprintf(w, "# HELP cache_hits_total Total dashboard cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total %d\n\n", atomic.LoadInt64(&s.metrics.cacheHits))

	fmt.Fprintf(w, "# HELP cache_misses_total Total dashboard cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total %d\n\n", atomic.LoadInt64(&s.metrics.cacheMisses))

	fmt.Fprintf(w, "# HELP cache_entries Current dashboard cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{type=\"summary\"} %d\n", s.summaryCache.Size())
	fmt.Fprintf(w, "cache_entries{type=\"breakdown\"} %d\n\n", s.breakdownCache.Size())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", atomic.LoadInt64(&s.metrics.rateLimitHits))

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.activeClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}
