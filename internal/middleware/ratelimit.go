// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/metrics"
)

const (
	ScopeGlobal   = "global"
	ScopeMessages = "messages"
)

type RateLimitConfig struct {
	Limit redis_rate.Limit
	// Scope prefixes Redis keys and labels rejections in logs and metrics.
	Scope      string
	KeyFunc    func(*http.Request) string
	FailOpen   bool
	BypassFunc func(*http.Request) bool
	// Exceeded renders the 429. Defaults to a generic throttle error.
	Exceeded func(r *http.Request, retryAfter time.Duration) *core.AppError
}

// RateLimiter counts in Redis and falls back to in-process token buckets
// while Redis is unreachable, so a Redis outage degrades to per-instance
// limits instead of none.
type RateLimiter struct {
	redis    *redis_rate.Limiter
	fallback *localBuckets
	cfg      RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.Scope == "" {
		cfg.Scope = ScopeGlobal
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientKey
	}
	if cfg.Exceeded == nil {
		cfg.Exceeded = tooManyRequests
	}

	return &RateLimiter{
		redis:    redis_rate.NewLimiter(rdb),
		fallback: newLocalBuckets(localIdleTTL),
		cfg:      cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.cfg.BypassFunc != nil && rl.cfg.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := "ratelimit:" + rl.cfg.Scope + ":" + rl.cfg.KeyFunc(r)
		res := rl.take(r.Context(), key)
		if res == nil {
			if rl.cfg.FailOpen {
				next.ServeHTTP(w, r)
				return
			}
			core.JSONError(w, core.NewAppError(
				core.ErrUpstream,
				"Service temporarily unavailable",
				http.StatusServiceUnavailable,
				"RATE_LIMITER_UNAVAILABLE",
			))
			return
		}

		writeLimitHeaders(w, res)

		if res.Allowed == 0 {
			metrics.RateLimitedTotal.WithLabelValues(rl.cfg.Scope).Inc()
			slog.InfoContext(r.Context(), "request rate limited",
				"scope", rl.cfg.Scope,
				"path", r.URL.Path,
				"user_id", GetUserID(r.Context()),
				"request_id", GetRequestID(r.Context()),
			)
			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(res.RetryAfter)))
			core.JSONError(w, rl.cfg.Exceeded(r, res.RetryAfter))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take returns nil only when neither Redis nor the local buckets can decide.
func (rl *RateLimiter) take(ctx context.Context, key string) *redis_rate.Result {
	res, err := rl.redis.Allow(ctx, key, rl.cfg.Limit)
	if err == nil {
		return res
	}

	slog.WarnContext(ctx, "redis rate limiter unavailable, using local buckets",
		"scope", rl.cfg.Scope,
		"error", err,
	)
	return rl.fallback.take(key, rl.cfg.Limit, time.Now())
}

// MessageLimiter throttles paid chat and voice messages per user, separately
// from the global per-client limit. It must run after the auth gate. The 429
// carries needsCoins or needsPayment set to false so clients show a wait
// notice rather than the purchase prompt.
func MessageLimiter(rdb *redis.Client, perMinute, burst int) func(http.Handler) http.Handler {
	return NewRateLimiter(rdb, RateLimitConfig{
		Limit:    PerMinute(perMinute, burst),
		Scope:    ScopeMessages,
		KeyFunc:  UserRouteKey,
		FailOpen: true,
		Exceeded: messagesTooFast,
	}).Handler
}

func tooManyRequests(_ *http.Request, retryAfter time.Duration) *core.AppError {
	return core.RateLimitedError(
		"Too many requests. Please slow down.",
		"RATE_LIMITED",
		retryAfter,
	)
}

func messagesTooFast(r *http.Request, retryAfter time.Duration) *core.AppError {
	hint := "needsCoins"
	if strings.Contains(r.URL.Path, "/voice/") {
		hint = "needsPayment"
	}
	return core.RateLimitedError(
		"You're sending messages too quickly. Please wait a moment.",
		"MESSAGE_RATE_LIMITED",
		retryAfter,
	).With(hint, false)
}

// ClientKey identifies the caller by network address. Only the proxy-set
// X-Real-IP or the last X-Forwarded-For hop is trusted.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return "ip:" + strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return "ip:" + xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// UserRouteKey buckets an authenticated user per endpoint, so text and voice
// messages are limited independently. Anonymous callers fall back to
// ClientKey.
func UserRouteKey(r *http.Request) string {
	userID := GetUserID(r.Context())
	if userID == "" {
		return ClientKey(r)
	}
	return "user:" + userID + ":" + strings.TrimSuffix(r.URL.Path, "/")
}

func PerMinute(perMinute, burst int) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   perMinute,
		Burst:  burst,
		Period: time.Minute,
	}
}

func writeLimitHeaders(w http.ResponseWriter, res *redis_rate.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset",
		strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
}

func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

const (
	localIdleTTL   = 10 * time.Minute
	localSweepTick = time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localBuckets is the per-process fallback. Idle buckets are swept while
// serving, so no background goroutine is needed.
type localBuckets struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	idleTTL   time.Duration
	lastSweep time.Time
}

func newLocalBuckets(idleTTL time.Duration) *localBuckets {
	return &localBuckets{
		buckets: make(map[string]*bucket),
		idleTTL: idleTTL,
	}
}

func (l *localBuckets) take(
	key string,
	limit redis_rate.Limit,
	now time.Time,
) *redis_rate.Result {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil
	}
	interval := limit.Period / time.Duration(limit.Rate)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= localSweepTick {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(interval), max(limit.Burst, 1))}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := &redis_rate.Result{
		Limit:      limit,
		ResetAfter: interval,
		RetryAfter: -1,
	}
	if b.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	res.Remaining = max(int(b.limiter.TokensAt(now)), 0)
	return res
}
