// Package ratelimit limits model-backed endpoints per client with a token
// bucket kept in Redis. Limiter errors let the request through.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/okian/skillcheck/internal/domain/types"
	"github.com/okian/skillcheck/pkg/logger"
	"github.com/okian/skillcheck/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// Capacity is burstFactor times the refill rate.
const (
	burstFactor   = 2
	defaultPrefix = "skillcheck:ratelimit:"
	bucketTTL     = 24 * time.Hour

	decisionAllowed  = "allowed"
	decisionRejected = "rejected"
	decisionBypassed = "bypassed"
)

// KEYS[1] bucket; ARGV capacity, rate/s, now (s), requested, ttl (s).
// Returns {allowed, remaining, retry_after_seconds}.
//
//nolint:gochecknoglobals // loaded once per process
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local bucket = redis.call('HMGET', key, 'tokens', 'updated_at')
local tokens = tonumber(bucket[1])
local updated_at = tonumber(bucket[2])
if tokens == nil or updated_at == nil then
    tokens = capacity
    updated_at = now
end

tokens = math.min(capacity, tokens + math.max(0, now - updated_at) * rate)

local allowed = 0
local retry_after = 0
if tokens >= requested then
    tokens = tokens - requested
    allowed = 1
else
    retry_after = (requested - tokens) / rate
end

redis.call('HSET', key, 'tokens', tokens, 'updated_at', now)
redis.call('EXPIRE', key, ttl)
return {allowed, math.floor(tokens), math.ceil(retry_after)}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int
}

// Limiter is a Redis token bucket keyed by client address.
type Limiter struct {
	client redis.Scripter
	qps    int
	prefix string
	now    func() time.Time
	logger logger.Logger
	// trusted peers whose X-Forwarded-For header is believed
	trusted []netip.Prefix
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithPrefix sets the Redis key prefix.
func WithPrefix(p string) Option {
	return func(l *Limiter) {
		if p != "" {
			l.prefix = p
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Limiter) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithTrustedProxies makes the limiter key requests relayed by these
// proxies on the client address they forward. See ParseProxies.
func WithTrustedProxies(proxies []netip.Prefix) Option {
	return func(l *Limiter) {
		l.trusted = proxies
	}
}

// ParseProxies parses addresses ("10.0.0.1") and CIDR ranges ("10.0.0.0/8").
func ParseProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("ratelimit: trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("ratelimit: trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// New creates a limiter refilling qps tokens per second. A nil client or a
// non-positive qps yields a disabled limiter.
func New(client redis.Scripter, qps int, opts ...Option) *Limiter {
	l := &Limiter{
		client: client,
		qps:    qps,
		prefix: defaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Named("ratelimit")
	}
	return l
}

// Enabled reports whether requests are checked at all.
func (l *Limiter) Enabled() bool { return l != nil && l.client != nil && l.qps > 0 }

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	capacity := burstFactor * l.qps
	now := float64(l.now().UnixNano()) / float64(time.Second)
	res, err := bucketScript.Run(ctx, l.client, []string{l.prefix + key},
		capacity, l.qps, now, 1, int(bucketTTL.Seconds())).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit.allow: %w", err)
	}
	if len(res) < 3 {
		return Decision{}, fmt.Errorf("ratelimit.allow: unexpected reply %v", res)
	}
	return Decision{
		Allowed:    res[0] == 1,
		Limit:      capacity,
		Remaining:  int(res[1]),
		RetryAfter: int(res[2]),
	}, nil
}

// Middleware rejects requests over the limit with 429 and Retry-After.
// Redis failures are logged and the request proceeds.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if !l.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := l.Allow(r.Context(), l.ClientIP(r))
		if err != nil {
			metrics.RecordRateLimitDecision(decisionBypassed)
			l.logger.Warn(r.Context(), "rate limiter unavailable, allowing request", logger.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		if !d.Allowed {
			metrics.RecordRateLimitDecision(decisionRejected)
			w.Header().Set("Retry-After", strconv.Itoa(max(d.RetryAfter, 1)))
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(types.ErrorResponse{
				Code:    "rate_limited",
				Message: "too many requests, slow down",
			})
			return
		}
		metrics.RecordRateLimitDecision(decisionAllowed)
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the address a request is limited under. X-Forwarded-For
// is only read when the direct peer is a trusted proxy, and then the
// rightmost entry that is not itself a trusted proxy is used.
func (l *Limiter) ClientIP(r *http.Request) string {
	host := remoteHost(r)
	if len(l.trusted) == 0 || !l.isTrusted(host) {
		return host
	}
	entries := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(entries) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(entries[i])
		if ip != "" && !l.isTrusted(ip) {
			return ip
		}
	}
	return host
}

func (l *Limiter) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
