// Package gateway is the client's single chokepoint for talking to the
// template server. Every call is one JSON round trip; failures come back as
// *apperr.Error values tagged at the source.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/prompted/internal/apperr"
)

// Config holds client settings.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	RetryGET bool // retry idempotent GETs once on a transient network failure
}

// Stats are request counters, kept for observability only.
type Stats struct {
	Total      int64
	Successful int64
	Failed     int64
}

// Client is the HTTP gateway.
type Client struct {
	baseURL  string
	http     *http.Client
	retryGET bool
	logger   *zap.Logger

	total      atomic.Int64
	successful atomic.Int64
	failed     atomic.Int64
}

// envelope is the response wrapper used by every API endpoint.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Count   int             `json:"count"`
}

// New creates a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		retryGET: cfg.RetryGET,
		logger:   logger.Named("gateway"),
	}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Stats returns a snapshot of the request counters.
func (c *Client) Stats() Stats {
	return Stats{
		Total:      c.total.Load(),
		Successful: c.successful.Load(),
		Failed:     c.failed.Load(),
	}
}

// Get fetches path and decodes the response data into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	err := c.do(ctx, http.MethodGet, path, nil, out)
	if err != nil && c.retryGET && isTransient(err) && ctx.Err() == nil {
		c.logger.Debug("retrying GET", zap.String("path", path), zap.Error(err))
		err = c.do(ctx, http.MethodGet, path, nil, out)
	}
	return err
}

// Post sends body to path. Never retried.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put sends body to path. Never retried.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Patch sends a partial body to path. Never retried.
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete removes the resource at path. Never retried.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	c.total.Add(1)
	err := c.roundTrip(ctx, method, path, body, out)
	if err != nil {
		c.failed.Add(1)
		return err
	}
	c.successful.Add(1)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperr.Validation(apperr.CodeInvalid, "body", fmt.Sprintf("encoding request body: %v", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Network(fmt.Errorf("creating request: %w", err))
	}
	reqID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err))
		return apperr.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Network(fmt.Errorf("reading response: %w", err))
	}

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", reqID),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var env envelope
		if json.Unmarshal(data, &env) == nil && env.Message != "" {
			msg = env.Message
		}
		return apperr.API(resp.StatusCode, msg).With("path", path).With("method", method)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return apperr.Decode(err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperr.Decode(err)
	}
	return nil
}

func isTransient(err error) bool {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == apperr.TypeNetwork
}
