package middleware

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"

	"github.com/V4T54L/watch-tower-console/internal/adapter/metrics"
)

const RequestIDHeader = "X-Request-ID"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Transport decorates an outbound http.RoundTripper.
type Transport func(http.RoundTripper) http.RoundTripper

// Chain wraps base so that the first transport is the outermost.
func Chain(base http.RoundTripper, transports ...Transport) http.RoundTripper {
	rt := base
	for i := len(transports) - 1; i >= 0; i-- {
		rt = transports[i](rt)
	}
	return rt
}

// TokenSource exposes the current bearer credential.
type TokenSource interface {
	Token() string
}

// Invalidator discards a credential that the identity layer rejected.
type Invalidator interface {
	Invalidate(ctx context.Context, token string) bool
}

// RequestID tags each request with a unique X-Request-ID unless the caller
// already set one.
func RequestID() Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set(RequestIDHeader, uuid.NewString())
			return next.RoundTrip(r)
		})
	}
}

// RateLimit waits for the limiter before each request.
func RateLimit(limiter *rate.Limiter) Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
			return next.RoundTrip(r)
		})
	}
}

// Bearer attaches the current credential, read at send time. Without a
// credential the request goes out unauthenticated.
func Bearer(source TokenSource) Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			token := source.Token()
			if token == "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(r)
		})
	}
}

// SessionGuard discards the credential a request carried when the response
// is 401. 403 and every other status pass through untouched.
func SessionGuard(inv Invalidator) Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(r)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if ok && token != "" {
				inv.Invalidate(context.WithoutCancel(r.Context()), token)
			}
			return resp, nil
		})
	}
}

// Decompress advertises zstd and gzip and decodes the response body.
func Decompress() Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("Accept-Encoding") == "" {
				r = r.Clone(r.Context())
				r.Header.Set("Accept-Encoding", "zstd, gzip")
			}

			resp, err := next.RoundTrip(r)
			if err != nil {
				return nil, err
			}

			var body io.ReadCloser
			switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
			case "zstd":
				dec, err := zstd.NewReader(resp.Body)
				if err != nil {
					resp.Body.Close()
					return nil, fmt.Errorf("zstd response: %w", err)
				}
				body = &zstdBody{dec: dec, src: resp.Body}
			case "gzip":
				gz, err := gzip.NewReader(resp.Body)
				if err != nil {
					resp.Body.Close()
					return nil, fmt.Errorf("gzip response: %w", err)
				}
				body = &gzipBody{gz: gz, src: resp.Body}
			default:
				return resp, nil
			}

			resp.Body = body
			resp.Header.Del("Content-Encoding")
			resp.Header.Del("Content-Length")
			resp.ContentLength = -1
			resp.Uncompressed = true
			return resp, nil
		})
	}
}

type zstdBody struct {
	dec *zstd.Decoder
	src io.ReadCloser
}

func (b *zstdBody) Read(p []byte) (int, error) { return b.dec.Read(p) }

func (b *zstdBody) Close() error {
	b.dec.Close()
	return b.src.Close()
}

type gzipBody struct {
	gz  *gzip.Reader
	src io.ReadCloser
}

func (b *gzipBody) Read(p []byte) (int, error) { return b.gz.Read(p) }

func (b *gzipBody) Close() error {
	b.gz.Close()
	return b.src.Close()
}

// OutboundLogging logs every outbound request.
func OutboundLogging(logger *slog.Logger) Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			duration := time.Since(start)

			if err != nil {
				logger.Warn("request failed",
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", r.Header.Get(RequestIDHeader),
					"duration_ms", duration.Milliseconds(),
					"error", err,
				)
				return nil, err
			}

			logger.Info("sent request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", r.Header.Get(RequestIDHeader),
				"status", resp.StatusCode,
				"duration_ms", duration.Milliseconds(),
			)
			return resp, nil
		})
	}
}

// Metrics records request counts and latency per path.
func Metrics(m *metrics.ClientMetrics) Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			endpoint := r.URL.Path
			m.RequestDurationSecond.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

			outcome := "error"
			if err == nil {
				switch {
				case resp.StatusCode == http.StatusUnauthorized:
					outcome = "unauthorized"
				case resp.StatusCode == http.StatusForbidden:
					outcome = "forbidden"
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					outcome = "ok"
				}
			}
			m.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
			return resp, err
		})
	}
}
