package httpbackend

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

	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	HeaderSubject        = "X-Gateway-Subject"
	HeaderIdempotencyKey = "Idempotency-Key"
	maxErrorBody         = 4 << 10
)

// Config configures the HTTP system-of-record client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Circuit breaker
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	OpenTimeout  time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultConfig returns sensible breaker defaults for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      10 * time.Second,
		Name:         "backend",
		MaxRequests:  5,
		Interval:     time.Minute,
		OpenTimeout:  30 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  10,
	}
}

// Client talks JSON over HTTP to the system of record:
//
//	GET  {base}/{resource}/{action}[/{id}]?{params}   reads
//	POST {base}/{resource}/{action}[/{id}]            writes, JSON body, Idempotency-Key header
type Client struct {
	base    *url.URL
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *logrus.Logger
}

var _ ports.BackendClient = (*Client)(nil)

func New(cfg Config, httpClient *http.Client, logger *logrus.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	c := &Client{base: base, http: httpClient, timeout: cfg.Timeout, logger: logger}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Only trip if we have enough requests to make a decision
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("backend circuit breaker state changed")
		},
		// Business rejections prove the backend is up.
		IsSuccessful: func(err error) bool {
			return err == nil || !failure.IsRetryable(err)
		},
	})
	return c, nil
}

// State reports the breaker state, e.g. for health output.
func (c *Client) State() gobreaker.State { return c.cb.State() }

func (c *Client) Read(ctx context.Context, req ports.BackendRequest, out any) error {
	return c.do(ctx, http.MethodGet, c.endpoint(req), req, nil, out)
}

func (c *Client) Write(ctx context.Context, req ports.BackendRequest, out any) error {
	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return failure.InvalidRequest(fmt.Sprintf("encode body: %v", err))
		}
		body = b
	}
	return c.do(ctx, http.MethodPost, c.endpoint(req), req, body, out)
}

// Ping calls {base}/health.
func (c *Client) Ping(ctx context.Context) error {
	u := *c.base
	u.Path += "/health"
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("backend health returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(req ports.BackendRequest) *url.URL {
	u := *c.base
	u.Path += "/" + url.PathEscape(string(req.Resource)) + "/" + url.PathEscape(req.Action)
	if req.ID != "" {
		u.Path += "/" + url.PathEscape(req.ID)
	}
	if len(req.Params) > 0 {
		q := u.Query()
		for k, v := range req.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return &u
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, req ports.BackendRequest, body []byte, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, u, req, body, out)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return failure.Unavailable("backend circuit open", err)
	default:
		return err
	}
}

func (c *Client) roundTrip(ctx context.Context, method string, u *url.URL, req ports.BackendRequest, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return failure.InvalidRequest(err.Error())
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if req.Subject != "" {
		hreq.Header.Set(HeaderSubject, req.Subject)
	}
	if req.IdempotencyKey != "" {
		hreq.Header.Set(HeaderIdempotencyKey, req.IdempotencyKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(hreq.Header))

	resp, err := c.http.Do(hreq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return failure.Timeout("backend did not answer in time", err)
		}
		return failure.Unavailable("backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return failure.Timeout("backend response timed out", err)
			}
			return failure.Unavailable("malformed backend response", err)
		}
		return nil
	}

	msg := errorMessage(resp.Body)
	c.logger.WithFields(logrus.Fields{"status": resp.StatusCode, "resource": req.Resource, "action": req.Action}).Debug("backend returned error status")
	return StatusError(resp.StatusCode, msg)
}

// StatusError maps a non-2xx backend status to a failure.
func StatusError(status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusNotFound:
		return failure.NotFound(msg)
	case status == http.StatusConflict:
		return failure.Rejected(failure.CodeConflict, msg)
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return failure.Timeout(msg, nil)
	case status == http.StatusTooManyRequests || status >= 500:
		return failure.Unavailable(msg, fmt.Errorf("backend status %d", status))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// The gateway's own credentials were refused; callers cannot fix that.
		return failure.Unavailable(msg, fmt.Errorf("backend status %d", status))
	default:
		return failure.Rejected(failure.CodeInvalid, msg)
	}
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from a bounded body.
func errorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(b) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(b))
}
