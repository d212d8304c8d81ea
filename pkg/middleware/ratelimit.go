package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/myschoolstory/collab-3d/pkg/auth"
)

// WriteLimiterConfig holds per-user write throttling settings.
type WriteLimiterConfig struct {
	// WritesPerSecond is the sustained token refill rate.
	WritesPerSecond float64
	// Burst is how many writes a user can issue back to back.
	Burst int
	// CleanupInterval is how often idle user entries are swept. Entries
	// idle for twice this interval are dropped.
	CleanupInterval time.Duration
}

// DefaultWriteLimiterConfig returns settings sized for interactive editing:
// a drag operation streams transform updates, so the sustained rate is high
// compared to a CRUD API.
func DefaultWriteLimiterConfig() WriteLimiterConfig {
	return WriteLimiterConfig{
		WritesPerSecond: 20,
		Burst:           40,
		CleanupInterval: 5 * time.Minute,
	}
}

// userLimiter pairs a token bucket with its last use, for cleanup.
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// WriteLimiter throttles mutating requests per user. Reads are never
// throttled: scene sync polls hard, and starving reads would stall every
// open editor at once.
type WriteLimiter struct {
	config WriteLimiterConfig
	logger *zap.Logger

	mu       sync.RWMutex
	limiters map[string]*userLimiter

	stopCh chan struct{}
}

// NewWriteLimiter creates a write limiter and starts its background sweep
// of idle user entries.
func NewWriteLimiter(config WriteLimiterConfig, logger *zap.Logger) *WriteLimiter {
	wl := &WriteLimiter{
		config:   config,
		logger:   logger,
		limiters: make(map[string]*userLimiter),
		stopCh:   make(chan struct{}),
	}

	go wl.cleanupLoop()

	return wl
}

// Stop halts the background cleanup goroutine.
func (wl *WriteLimiter) Stop() {
	close(wl.stopCh)
}

// Middleware returns the write-throttling middleware. Only POST, PUT, PATCH
// and DELETE requests consume tokens. Requests without authenticated claims
// pass through: every write route requires auth, so they will be rejected
// there with the right status.
func (wl *WriteLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := auth.GetClaims(r.Context())
			if !ok || claims.Subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			limiter := wl.getOrCreateLimiter(claims.Subject)

			if !limiter.Allow() {
				wl.writeThrottledResponse(w)
				wl.logger.Warn("Write rate limit exceeded",
					zap.String("user_id", claims.Subject),
					zap.String("path", r.URL.Path))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Size returns how many user entries the limiter currently tracks.
func (wl *WriteLimiter) Size() int {
	wl.mu.RLock()
	defer wl.mu.RUnlock()
	return len(wl.limiters)
}

// getOrCreateLimiter returns the user's token bucket, creating it on first
// write.
func (wl *WriteLimiter) getOrCreateLimiter(userID string) *rate.Limiter {
	wl.mu.RLock()
	ul, exists := wl.limiters[userID]
	wl.mu.RUnlock()

	if exists {
		wl.mu.Lock()
		ul.lastAccess = time.Now()
		wl.mu.Unlock()
		return ul.limiter
	}

	wl.mu.Lock()
	defer wl.mu.Unlock()

	// Another request may have created the entry between the RUnlock and
	// the Lock.
	if ul, exists := wl.limiters[userID]; exists {
		ul.lastAccess = time.Now()
		return ul.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(wl.config.WritesPerSecond), wl.config.Burst)
	wl.limiters[userID] = &userLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop sweeps idle entries until Stop is called.
func (wl *WriteLimiter) cleanupLoop() {
	ticker := time.NewTicker(wl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			wl.cleanup()
		case <-wl.stopCh:
			return
		}
	}
}

// cleanup drops entries idle for more than twice the cleanup interval.
func (wl *WriteLimiter) cleanup() {
	ttl := wl.config.CleanupInterval * 2
	now := time.Now()

	wl.mu.Lock()
	for userID, ul := range wl.limiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(wl.limiters, userID)
		}
	}
	wl.mu.Unlock()
}

// writeThrottledResponse writes a 429 with a Retry-After hint derived from
// the refill rate.
func (wl *WriteLimiter) writeThrottledResponse(w http.ResponseWriter) {
	retryAfterSec := int(math.Ceil(1.0 / wl.config.WritesPerSecond))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":   "rate_limited",
		"message": "Too many write requests. Please slow down and retry.",
	}); err != nil {
		wl.logger.Error("Failed to write rate limit response", zap.Error(err))
	}
}
