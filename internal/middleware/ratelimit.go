package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dungeon-master/internal/handlers"
)

// RateRule caps requests per client for paths under Prefix.
type RateRule struct {
	Name   string
	Prefix string
	Limit  int
}

// RateLimiter is a fixed-window limiter keyed by client address and stored
// in Redis, so every API instance shares the same counters.
type RateLimiter struct {
	// TrustProxy keys clients on the first X-Forwarded-For hop. Leave it off
	// unless a proxy in front of the API overwrites that header.
	TrustProxy bool

	client *redis.Client
	window time.Duration
	rules  []RateRule // first matching prefix wins
	logger *slog.Logger
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client, window time.Duration, rules []RateRule, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		window: window,
		rules:  rules,
		logger: logger,
		now:    time.Now,
	}
}

// Allow counts one hit for key under rule and reports whether it is within
// the limit, and how long until the window resets.
func (l *RateLimiter) Allow(ctx context.Context, rule RateRule, key string) (bool, time.Duration, error) {
	now := l.now()
	start := now.Truncate(l.window)
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", rule.Name, key, start.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("failed to count request: %w", err)
	}

	reset := start.Add(l.window).Sub(now)
	return incr.Val() <= int64(rule.Limit), reset, nil
}

func (l *RateLimiter) match(path string) (RateRule, bool) {
	for _, rule := range l.rules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule, true
		}
	}
	return RateRule{}, false
}

// Middleware rejects requests over their rule's limit with 429. Paths that
// match no rule are not limited. Redis errors let the request through.
func (l *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := l.match(r.URL.Path)
			if !ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			allowed, reset, err := l.Allow(r.Context(), rule, l.clientKey(r))
			if err != nil {
				l.logger.Error("Rate limiter unavailable", "error", err, "rule", rule.Name)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				retry := int(math.Ceil(reset.Seconds()))
				if retry < 1 {
					retry = 1
				}
				l.logger.Warn("Rate limit exceeded", "rule", rule.Name, "client", l.clientKey(r), "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				handlers.WriteError(w, http.StatusTooManyRequests, handlers.CodeRateLimitExceeded,
					"Too many requests, please try again later", map[string]int{"retryAfter": retry})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) clientKey(r *http.Request) string {
	if l.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
