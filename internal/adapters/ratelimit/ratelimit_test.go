package ratelimit_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/skillcheck/internal/adapters/ratelimit"
	"github.com/okian/skillcheck/pkg/logger"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

// scripter answers every script call with a fixed reply.
type scripter struct {
	reply []interface{}
	err   error
	keys  []string
}

func (s *scripter) result(keys []string) *redis.Cmd {
	s.keys = keys
	return redis.NewCmdResult(s.reply, s.err)
}

func (s *scripter) Eval(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return s.result(keys)
}

func (s *scripter) EvalSha(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return s.result(keys)
}

func (s *scripter) EvalRO(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return s.result(keys)
}

func (s *scripter) EvalShaRO(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return s.result(keys)
}

func (s *scripter) ScriptExists(_ context.Context, _ ...string) *redis.BoolSliceCmd { return nil }

func (s *scripter) ScriptLoad(_ context.Context, _ string) *redis.StringCmd { return nil }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mentor/turn", nil)
	req.RemoteAddr = "10.0.0.7:52311"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLimiter_Disabled(t *testing.T) {
	_ = logger.Init(logger.WithWriter(io.Discard))

	Convey("Given a limiter without a Redis client", t, func() {
		l := ratelimit.New(nil, 5)

		Convey("Then it should be disabled and pass every request", func() {
			So(l.Enabled(), ShouldBeFalse)
			So(serve(l.Middleware(okHandler())).Code, ShouldEqual, http.StatusOK)
		})
	})

	Convey("Given a limiter with qps 0", t, func() {
		l := ratelimit.New(&scripter{}, 0)
		So(l.Enabled(), ShouldBeFalse)
	})
}

func TestLimiter_Decisions(t *testing.T) {
	_ = logger.Init(logger.WithWriter(io.Discard))

	Convey("Given a limiter backed by a scripted Redis", t, func() {
		s := &scripter{}
		l := ratelimit.New(s, 3, ratelimit.WithPrefix("t:"), ratelimit.WithClock(func() time.Time { return time.Unix(100, 0) }))

		Convey("When the bucket has tokens", func() {
			s.reply = []interface{}{int64(1), int64(4), int64(0)}
			rec := serve(l.Middleware(okHandler()))

			Convey("Then the request should pass with limit headers", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("X-RateLimit-Limit"), ShouldEqual, "6")
				So(rec.Header().Get("X-RateLimit-Remaining"), ShouldEqual, "4")
				So(s.keys, ShouldResemble, []string{"t:10.0.0.7"})
			})
		})

		Convey("When the bucket is empty", func() {
			s.reply = []interface{}{int64(0), int64(0), int64(2)}
			rec := serve(l.Middleware(okHandler()))

			Convey("Then the request should be rejected with Retry-After", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(rec.Header().Get("Retry-After"), ShouldEqual, "2")
				So(rec.Body.String(), ShouldContainSubstring, `"code":"rate_limited"`)
			})
		})

		Convey("When Redis fails", func() {
			s.err = errors.New("connection refused")
			rec := serve(l.Middleware(okHandler()))

			Convey("Then the request should be let through", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the reply is malformed", func() {
			s.reply = []interface{}{int64(1)}
			_, err := l.Allow(context.Background(), "x")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLimiter_UnreachableRedis(t *testing.T) {
	_ = logger.Init(logger.WithWriter(io.Discard))

	Convey("Given a real client pointing at a closed port", t, func() {
		client := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
			MaxRetries:  -1,
		})
		defer func() { _ = client.Close() }()
		l := ratelimit.New(client, 1)

		Convey("Then requests should fail open", func() {
			So(serve(l.Middleware(okHandler())).Code, ShouldEqual, http.StatusOK)
		})
	})
}

// bucketScripter keeps one token bucket per key without refill.
type bucketScripter struct {
	scripter
	capacity int64
	used     map[string]int64
}

func (b *bucketScripter) take(keys []string) *redis.Cmd {
	b.keys = keys
	b.used[keys[0]]++
	if left := b.capacity - b.used[keys[0]]; left >= 0 {
		return redis.NewCmdResult([]interface{}{int64(1), left, int64(0)}, nil)
	}
	return redis.NewCmdResult([]interface{}{int64(0), int64(0), int64(1)}, nil)
}

func (b *bucketScripter) Eval(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return b.take(keys)
}

func (b *bucketScripter) EvalSha(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return b.take(keys)
}

func TestClientIP(t *testing.T) {
	_ = logger.Init(logger.WithWriter(io.Discard))

	proxies, err := ratelimit.ParseProxies([]string{"192.168.1.0/24", "10.0.0.1"})
	if err != nil {
		t.Fatal(err)
	}

	Convey("Given a limiter without trusted proxies", t, func() {
		l := ratelimit.New(&scripter{}, 1)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.2:4000"

		Convey("When X-Forwarded-For is set", func() {
			req.Header.Set("X-Forwarded-For", "203.0.113.9")

			Convey("Then the header is ignored", func() {
				So(l.ClientIP(req), ShouldEqual, "192.168.1.2")
			})
		})
	})

	Convey("Given a limiter behind trusted proxies", t, func() {
		l := ratelimit.New(&scripter{}, 1, ratelimit.WithTrustedProxies(proxies))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.2:4000"

		Convey("When the proxy chain is trusted", func() {
			req.Header.Set("X-Forwarded-For", "198.51.100.4, 203.0.113.9, 10.0.0.1")

			Convey("Then the rightmost untrusted address wins", func() {
				So(l.ClientIP(req), ShouldEqual, "203.0.113.9")
			})
		})

		Convey("When the header is missing", func() {
			So(l.ClientIP(req), ShouldEqual, "192.168.1.2")
		})

		Convey("When the peer is not a trusted proxy", func() {
			req.RemoteAddr = "203.0.113.50:1234"
			req.Header.Set("X-Forwarded-For", "198.51.100.4")

			Convey("Then the header is ignored", func() {
				So(l.ClientIP(req), ShouldEqual, "203.0.113.50")
			})
		})
	})

	Convey("Given invalid trusted proxy entries", t, func() {
		_, err := ratelimit.ParseProxies([]string{"10.0.0.0/33"})
		So(err, ShouldNotBeNil)
		_, err = ratelimit.ParseProxies([]string{"proxy.internal"})
		So(err, ShouldNotBeNil)
	})
}

func TestLimiter_SpoofedForwardedFor(t *testing.T) {
	_ = logger.Init(logger.WithWriter(io.Discard))

	Convey("Given a limiter with a two-token bucket and no trusted proxies", t, func() {
		b := &bucketScripter{capacity: 2, used: map[string]int64{}}
		h := ratelimit.New(b, 1).Middleware(okHandler())

		send := func(forwarded string) int {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/mentor/turn", nil)
			req.RemoteAddr = "198.51.100.23:40000"
			req.Header.Set("X-Forwarded-For", forwarded)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec.Code
		}

		Convey("When every request claims a new forwarded address", func() {
			first := send("1.1.1.1")
			second := send("2.2.2.2")
			third := send("3.3.3.3")

			Convey("Then they share one bucket and the third is rejected", func() {
				So(first, ShouldEqual, http.StatusOK)
				So(second, ShouldEqual, http.StatusOK)
				So(third, ShouldEqual, http.StatusTooManyRequests)
				So(b.used, ShouldHaveLength, 1)
			})
		})
	})
}
