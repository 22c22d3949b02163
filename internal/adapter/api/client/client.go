// Package client is a REST client for the remote logging API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fastjson"
	"golang.org/x/time/rate"

	"github.com/V4T54L/watch-tower-console/internal/adapter/api/middleware"
	"github.com/V4T54L/watch-tower-console/internal/adapter/metrics"
	"github.com/V4T54L/watch-tower-console/internal/domain"
)

const maxResponseSize = 32 << 20

// Session is what the transport needs from the session store: the current
// credential and a way to discard it after a 401.
type Session interface {
	middleware.TokenSource
	middleware.Invalidator
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit rate.Limit
	RateBurst int
}

// Client implements domain.AuthAPI and domain.LogAPI over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	parser  fastjson.ParserPool
	logger  *slog.Logger
}

// New creates a Client whose transport attaches the session credential and
// enforces the session policy on every request. m may be nil.
func New(cfg Config, sess Session, logger *slog.Logger, m *metrics.ClientMetrics) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid API base url %q: %w", cfg.BaseURL, err)
	}

	logger = logger.With("component", "api_client")

	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = rate.Inf
	}

	transports := []middleware.Transport{
		middleware.RequestID(),
		middleware.OutboundLogging(logger),
	}
	if m != nil {
		transports = append(transports, middleware.Metrics(m))
	}
	transports = append(transports,
		middleware.RateLimit(rate.NewLimiter(limit, burst)),
		middleware.Bearer(sess),
		middleware.SessionGuard(sess),
		middleware.Decompress(),
	)

	base := http.DefaultTransport.(*http.Transport).Clone()
	return NewWithHTTPClient(cfg.BaseURL, &http.Client{
		Timeout:   cfg.Timeout,
		Transport: middleware.Chain(base, transports...),
	}, logger), nil
}

// NewWithHTTPClient creates a Client around an already configured
// http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  logger,
	}
}

// Me returns the identity behind the current credential.
func (c *Client) Me(ctx context.Context) (*domain.Identity, error) {
	body, err := c.call(ctx, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return nil, err
	}

	id := &domain.Identity{}
	if len(bytes.TrimSpace(body)) == 0 {
		return id, nil
	}
	if err := json.Unmarshal(body, id); err != nil {
		return nil, fmt.Errorf("%w: decode identity: %w", domain.ErrTransient, err)
	}
	return id, nil
}

// Login exchanges username and password for a token.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (domain.TokenResponse, error) {
	return c.token(ctx, "/auth/login", req)
}

// Register creates an account; the token may be empty.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (domain.TokenResponse, error) {
	return c.token(ctx, "/auth/register", req)
}

func (c *Client) token(ctx context.Context, path string, payload any) (domain.TokenResponse, error) {
	body, err := c.callJSON(ctx, http.MethodPost, path, payload)
	if err != nil {
		return domain.TokenResponse{}, err
	}

	var resp domain.TokenResponse
	if len(bytes.TrimSpace(body)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		// A successful response without a JSON object simply carries no token.
		c.logger.Debug("token response is not an object", "path", path, "error", err)
		return domain.TokenResponse{}, nil
	}
	return resp, nil
}

// PermittedProjects lists the projects the caller may query.
func (c *Client) PermittedProjects(ctx context.Context) ([]string, error) {
	var projects []string
	err := c.parse(ctx, "/auth/projects", nil, func(v *fastjson.Value) {
		projects = stringList(v.Get("projects"))
	})
	return projects, err
}

// DistinctValues returns the global values per filter dimension.
func (c *Client) DistinctValues(ctx context.Context) (domain.FilterOptions, error) {
	var opts domain.FilterOptions
	err := c.parse(ctx, "/logs/distinctValues", nil, func(v *fastjson.Value) {
		opts = decodeFilterOptions(v)
	})
	return opts, err
}

// Logs returns the records matching params, in server order.
func (c *Client) Logs(ctx context.Context, params url.Values) ([]domain.LogRecord, error) {
	var records []domain.LogRecord
	err := c.parse(ctx, "/logs", params, func(v *fastjson.Value) {
		records = decodeLogRecords(v)
	})
	return records, err
}

// CountByLevel returns record counts per level.
func (c *Client) CountByLevel(ctx context.Context) (domain.LevelCounts, error) {
	var counts domain.LevelCounts
	err := c.parse(ctx, "/logs/countByLevel", nil, func(v *fastjson.Value) {
		counts = decodeLevelCounts(v)
	})
	return counts, err
}

// AddLog submits one record.
func (c *Client) AddLog(ctx context.Context, record domain.LogRecord) error {
	_, err := c.callJSON(ctx, http.MethodPost, "/logs", record)
	return err
}

func (c *Client) parse(ctx context.Context, path string, query url.Values, fn func(*fastjson.Value)) error {
	body, err := c.call(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}

	p := c.parser.Get()
	defer c.parser.Put(p)

	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("null")
	}
	v, err := p.ParseBytes(body)
	if err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrTransient, path, err)
	}
	fn(v)
	return nil
}

func (c *Client) callJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", path, err)
	}
	return c.call(ctx, method, path, nil, bytes.NewReader(data))
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, data io.Reader) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, data)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrTransient, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(resp.StatusCode, body)
	}
	return body, nil
}
