// Package backend is the HTTP client for the analytics/advisory
// collaborator. It owns retries, error mapping, response-shape
// normalization, and the advisory stream decoder; nothing above this
// package ever branches on wire shapes.
package backend

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/citypath/overlay/internal/config"
	"github.com/citypath/overlay/internal/logging"
	"github.com/citypath/overlay/internal/metrics"
	"github.com/citypath/overlay/pkg/errors"
)

const userAgent = "citypath-overlay/0.1.0"

// Client talks to the collaborator endpoints described in the backend
// contract: hotspots, stats, grid, recommend, layers, chat.
type Client struct {
	baseURL string
	// httpClient serves plain fetches and carries the configured timeout.
	httpClient *http.Client
	// streamClient serves the advisory stream and has no timeout: a hung
	// stream blocks only its own turn, never the rest of the engine.
	streamClient *http.Client

	log     logging.Logger
	metrics *metrics.Metrics

	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// New constructs a Client from cfg. The base URL must be http(s).
func New(cfg config.BackendConfig, log logging.Logger, m *metrics.Metrics) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "invalid backend base URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New(errors.CodeConfig, "backend base URL scheme must be http or https")
	}
	if log == nil {
		log = logging.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
		log:          log.Named("backend"),
		metrics:      m,
		retryMax:     cfg.RetryMax,
		retryWaitMin: cfg.RetryWaitMin,
		retryWaitMax: cfg.RetryWaitMax,
	}, nil
}

// getJSON performs a GET with retries and decodes the body into out.
// 404 maps to CodeNotFound, other HTTP and network failures to
// CodeTransport, and an undecodable body to CodeProtocol. The endpoint
// label feeds the fetch metrics.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	raw, err := c.getRaw(ctx, endpoint, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.metrics.FetchErrors.WithLabelValues(endpoint, errors.CodeProtocol.String()).Inc()
		return errors.Wrap(err, errors.CodeProtocol, "undecodable "+endpoint+" response")
	}
	return nil
}

// getRaw performs a GET with retries and returns the raw body bytes.
func (c *Client) getRaw(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.log.Debug("retrying fetch",
				logging.String("endpoint", endpoint),
				logging.Int("attempt", attempt),
				logging.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.CodeTransport, endpoint+" fetch canceled")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to build "+endpoint+" request")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("X-Request-ID", uuid.New().String())

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		c.metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			lastErr = errors.Wrap(err, errors.CodeTransport, endpoint+" fetch failed")
			c.metrics.FetchErrors.WithLabelValues(endpoint, errors.CodeTransport.String()).Inc()
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = errors.Wrap(readErr, errors.CodeTransport, endpoint+" body read failed")
			c.metrics.FetchErrors.WithLabelValues(endpoint, errors.CodeTransport.String()).Inc()
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			c.metrics.FetchErrors.WithLabelValues(endpoint, errors.CodeNotFound.String()).Inc()
			return nil, errors.NotFound(endpoint + " returned no result").WithDetail(fullURL)
		case resp.StatusCode >= 500:
			lastErr = errors.Newf(errors.CodeTransport, "%s returned HTTP %d", endpoint, resp.StatusCode)
			c.metrics.FetchErrors.WithLabelValues(endpoint, errors.CodeTransport.String()).Inc()
			continue
		case resp.StatusCode >= 400:
			c.metrics.FetchErrors.WithLabelValues(endpoint, errors.CodeTransport.String()).Inc()
			return nil, errors.Newf(errors.CodeTransport, "%s returned HTTP %d", endpoint, resp.StatusCode)
		}

		return body, nil
	}
	return nil, lastErr
}

// backoff is exponential from retryWaitMin, capped at retryWaitMax, with
// up to 25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryWaitMin << uint(attempt-1)
	if d > c.retryWaitMax || d <= 0 {
		d = c.retryWaitMax
	}
	if quarter := int64(d / 4); quarter > 0 {
		d += time.Duration(rand.Int63n(quarter))
	}
	return d
}
