// Package upstream performs outbound GETs against third-party APIs with a
// circuit breaker, an optional response cache and an opt-in retry policy.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/meteo-aggregation/internal/cache"
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 8 << 20

// RetryConfig controls exponential backoff. MaxRetries 0 means a single attempt.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	Retry      RetryConfig
	Cache      cache.Cache
	CacheTTL   time.Duration
	Header     http.Header
	Logger     *slog.Logger
}

var (
	ErrUpstreamStatus = errors.New("unexpected upstream status")
	ErrCircuitOpen    = errors.New("circuit breaker open")
	errNoHTTPClient   = errors.New("http client not configured")
	errInvalidConfig  = errors.New("invalid retry configuration")
)

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Source string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %v %d", e.Source, ErrUpstreamStatus, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUpstreamStatus
}

// Client talks to one upstream. Each upstream gets its own breaker so one
// failing API never trips another.
type Client struct {
	name    string
	opts    Options
	circuit *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// New creates a Client named after its upstream.
func New(name string, opts Options) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	if opts.Retry.InitialInterval <= 0 {
		opts.Retry.InitialInterval = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		name:    name,
		opts:    opts,
		circuit: cb,
		logger:  logger.With("component", "upstream", "upstream", name),
	}
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// Validator is implemented by decoded payloads that can be well-formed JSON
// yet still unusable. GetJSON rejects such payloads and does not cache them.
type Validator interface {
	Validate() error
}

// GetJSON fetches endpoint and decodes the body into out. The body is cached
// only once it decodes and, when out is a Validator, validates.
func (c *Client) GetJSON(ctx context.Context, endpoint string, out any) error {
	_, err := c.GetChecked(ctx, endpoint, nil, func(body []byte) error {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s: decode response: %w", c.name, err)
		}
		if v, ok := out.(Validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("%s: %w", c.name, err)
			}
		}
		return nil
	})
	return err
}

// Get returns the body of a successful GET, serving from cache when possible.
// header is merged over the client's default headers.
func (c *Client) Get(ctx context.Context, endpoint string, header http.Header) ([]byte, error) {
	return c.GetChecked(ctx, endpoint, header, nil)
}

// GetChecked is Get with an acceptance check run on the body before it is
// returned or cached. A body that fails check is never cached.
func (c *Client) GetChecked(ctx context.Context, endpoint string, header http.Header, check func([]byte) error) ([]byte, error) {
	caching := c.opts.Cache != nil && c.opts.CacheTTL > 0
	if caching {
		body, ok, err := c.opts.Cache.Get(ctx, endpoint)
		if err != nil {
			c.logger.Warn("cache read failed", "error", err)
		} else if ok {
			if check == nil || check(body) == nil {
				c.logger.Debug("cache hit", "url", endpoint)
				return body, nil
			}
			c.logger.Warn("cached body rejected, refetching", "url", endpoint)
		}
	}

	body, err := c.doRequestWithResilience(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range c.opts.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		for k, vs := range header {
			req.Header.Del(k)
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if check != nil {
		if err := check(body); err != nil {
			return nil, err
		}
	}

	if caching {
		if err := c.opts.Cache.Set(ctx, endpoint, body, c.opts.CacheTTL); err != nil {
			c.logger.Warn("cache write failed", "error", err)
		}
	}
	return body, nil
}

// doRequestWithResilience runs the request through the circuit breaker and
// retries with exponential backoff when a retry policy is configured.
func (c *Client) doRequestWithResilience(ctx context.Context, buildRequest func() (*http.Request, error)) ([]byte, error) {
	client := c.opts.HTTPClient
	if client == nil {
		return nil, errNoHTTPClient
	}
	backoff := c.opts.Retry
	if backoff.MaxRetries < 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, fmt.Errorf("%s: build request: %w", c.name, err)
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
				return nil, &StatusError{Source: c.name, Code: resp.StatusCode}
			}
			return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		})
		if err == nil {
			body, ok := result.([]byte)
			if !ok {
				return nil, fmt.Errorf("%s: unexpected result type from circuit breaker", c.name)
			}
			return body, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w: %v", c.name, ErrCircuitOpen, err)
		}

		if attempt >= backoff.MaxRetries || !retryable(err) {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}

		delay := backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > backoff.MaxInterval && backoff.MaxInterval > 0 {
			delay = backoff.MaxInterval
		}
		c.logger.Debug("retrying upstream request", "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

// retryable reports whether another attempt could help: transport errors,
// 429 and 5xx.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
