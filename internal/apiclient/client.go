// Package apiclient talks to the token tracker backend. Every read goes
// through FetchJSON, which never fails loudly: transport errors, non-2xx
// responses and malformed JSON are logged, surfaced to the user through a
// Notifier and turned into a nil result.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/goubera/top10/internal/config"
	"github.com/goubera/top10/internal/infra"
	"github.com/goubera/top10/pkg/models"
)

// Notification kinds understood by the dashboard toast.
const (
	KindSuccess = "success"
	KindError   = "error"
)

// Notifier receives user-facing messages.
type Notifier interface {
	Show(message, kind string)
}

// ErrHTTP is returned for a non-2xx backend response.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// errDecode marks a response body that is not the expected JSON.
type errDecode struct{ err error }

func (e *errDecode) Error() string { return "invalid JSON: " + e.err.Error() }
func (e *errDecode) Unwrap() error { return e.err }

// errNull marks a 2xx response whose body is the JSON literal null.
var errNull = errors.New("null response body")

// Client is the backend API client. It is safe for concurrent use.
type Client struct {
	base        string // as shown to browsers
	requestBase string // absolute, used for server-side requests
	http        *http.Client
	breaker     *gobreaker.CircuitBreaker // nil: requests go straight to the backend
	limiter     *infra.RateLimiter
	log         *zap.Logger
	notifier    Notifier
	userAgent   string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithNotifier sets where failure messages are shown.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithBreaker puts a circuit breaker in front of the backend. Clients that
// feed the dashboard are built without one: every load cycle must reach the
// backend, and a failed cycle is simply retried on the next one.
func WithBreaker(cfg config.BreakerConfig) Option {
	return func(c *Client) { c.breaker = newBreaker(cfg, c) }
}

// New creates a client for the backend described by cfg. pageHost plays the
// role of the hostname the dashboard is served under: "localhost" selects the
// development backend on dev_port, anything else the same-origin API path.
func New(cfg config.BackendConfig, pageHost string, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		base:      BaseURL(cfg, pageHost),
		http:      &http.Client{Timeout: timeout},
		limiter:   infra.NewRateLimiter(cfg.RateLimit, time.Second),
		log:       zap.NewNop(),
		userAgent: "top10/dev",
	}
	c.requestBase = resolve(c.base, cfg.Origin)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL derives the API base for the given page host.
func BaseURL(cfg config.BackendConfig, pageHost string) string {
	path := cfg.APIPath
	if path == "" {
		path = "/api"
	}
	if pageHost == "localhost" {
		port := cfg.DevPort
		if port == 0 {
			port = 8000
		}
		return fmt.Sprintf("http://localhost:%d%s", port, path)
	}
	return path
}

// resolve turns a relative base into an absolute one against origin.
func resolve(base, origin string) string {
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return base
	}
	return strings.TrimRight(origin, "/") + base
}

// halfOpenRequests is how many requests a half-open breaker lets through,
// enough for one full dashboard fan-out.
const halfOpenRequests = 4

func newBreaker(cfg config.BreakerConfig, c *Client) *gobreaker.CircuitBreaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: halfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// BaseURL returns the API base as presented to browsers.
func (c *Client) BaseURL() string { return c.base }

// ExportURL returns the CSV download link for a YYYY-MM-DD date.
func (c *Client) ExportURL(date string) string {
	return c.base + "/export/csv?date=" + url.QueryEscape(date)
}

// FetchJSON performs GET {base}{endpoint} and decodes the body into a T.
// On any failure it logs, notifies and returns nil. A null body is no data
// rather than a failure: it returns nil without a notification.
func FetchJSON[T any](ctx context.Context, c *Client, endpoint string) *T {
	var out T
	err := c.doJSON(ctx, http.MethodGet, endpoint, &out)
	if errors.Is(err, errNull) {
		c.log.Debug("API returned null", zap.String("endpoint", endpoint))
		return nil
	}
	if err != nil {
		c.log.Error("API error",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		if c.notifier != nil {
			c.notifier.Show("Error loading data: "+err.Error(), KindError)
		}
		return nil
	}
	return &out
}

// Stats fetches the aggregate statistics.
func (c *Client) Stats(ctx context.Context) *models.StatsSnapshot {
	return FetchJSON[models.StatsSnapshot](ctx, c, "/stats")
}

// TopGainers fetches today's top gainers.
func (c *Client) TopGainers(ctx context.Context) *models.TopGainersResponse {
	return FetchJSON[models.TopGainersResponse](ctx, c, "/tokens/top-gainers")
}

// NewTokens fetches tokens created today.
func (c *Client) NewTokens(ctx context.Context) *models.NewTokensResponse {
	return FetchJSON[models.NewTokensResponse](ctx, c, "/tokens/new")
}

// Trends fetches the tokens that recurred in the top set over days.
func (c *Client) Trends(ctx context.Context, days int) *models.TrendsResponse {
	return FetchJSON[models.TrendsResponse](ctx, c, fmt.Sprintf("/trends?days=%d", days))
}

// TokenDetail fetches every stored snapshot of one token.
func (c *Client) TokenDetail(ctx context.Context, address string) *models.TokenDetail {
	return FetchJSON[models.TokenDetail](ctx, c, "/token/"+url.PathEscape(address))
}

// Collect asks the backend to run a collection now. Unlike the read
// endpoints, errors are returned so the caller can word the notification.
func (c *Client) Collect(ctx context.Context) (*models.CollectionResult, error) {
	var out models.CollectionResult
	err := c.doJSON(ctx, http.MethodPost, "/collect", &out)
	if errors.Is(err, errNull) {
		return nil, nil
	}
	if err != nil {
		c.log.Error("collection request failed", zap.Error(err))
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, out any) error {
	label := metricLabel(endpoint)
	start := time.Now()
	defer func() {
		infra.BackendRequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	body, err := c.execute(ctx, method, endpoint)
	if err != nil {
		infra.BackendRequests.WithLabelValues(label, outcome(err)).Inc()
		return err
	}

	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		infra.BackendRequests.WithLabelValues(label, infra.OutcomeOK).Inc()
		return errNull
	}
	if err := json.Unmarshal(body, out); err != nil {
		err = &errDecode{err: err}
		infra.BackendRequests.WithLabelValues(label, outcome(err)).Inc()
		return err
	}
	infra.BackendRequests.WithLabelValues(label, infra.OutcomeOK).Inc()
	return nil
}

// execute sends the request, through the breaker when one is configured.
func (c *Client) execute(ctx context.Context, method, endpoint string) ([]byte, error) {
	if c.breaker == nil {
		return c.send(ctx, method, endpoint)
	}
	res, err := c.breaker.Execute(func() (any, error) {
		return c.send(ctx, method, endpoint)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (c *Client) send(ctx context.Context, method, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.requestBase+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func outcome(err error) string {
	var httpErr *ErrHTTP
	var decodeErr *errDecode
	switch {
	case errors.As(err, &httpErr):
		return infra.OutcomeHTTP
	case errors.As(err, &decodeErr):
		return infra.OutcomeDecode
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return infra.OutcomeOpen
	default:
		return infra.OutcomeNetwork
	}
}

// metricLabel keeps label cardinality bounded.
func metricLabel(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	if strings.HasPrefix(endpoint, "/token/") {
		return "/token/{address}"
	}
	return endpoint
}
