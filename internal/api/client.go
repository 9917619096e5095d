// Package api is the HTTP client for the recipe service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/config"
	"github.com/hpungsan/chefai/internal/errors"
)

// RequestIDHeader carries the per-trigger token so service logs can be correlated.
const RequestIDHeader = "X-Request-ID"

// Credentials supplies the bearer credential attached to each request.
type Credentials interface {
	Credential() string
}

// Client talks to the recipe service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	logger     *zap.Logger
}

// NewClient creates a client for cfg.APIURL. creds may be nil for unauthenticated use.
func NewClient(cfg *config.Config, creds Credentials, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		creds:  creds,
		logger: logger,
	}
}

// envelope is the service response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type requestIDKey struct{}

// WithRequestID returns a context whose requests carry id in RequestIDHeader.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.creds != nil {
		if token := c.creds.Credential(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if id := requestID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}
	return req, nil
}

// do sends the request and returns status, content type and body.
// Transport failures become REQUEST_FAILED with failMsg.
func (c *Client) do(req *http.Request, failMsg string) (int, string, []byte, error) {
	c.logger.Debug("API request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.String("request_id", req.Header.Get(RequestIDHeader)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("API request failed", zap.String("url", req.URL.String()), zap.Error(err))
		return 0, "", nil, errors.NewRequestFailed(failMsg, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", nil, errors.NewRequestFailed(failMsg, fmt.Errorf("failed to read response: %w", err))
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), body, nil
}

// call performs a JSON request and returns the envelope data.
//
// HTTP 401 is UNAUTHORIZED. Any other status >= 400, success:false, or an
// unreadable envelope is REQUEST_FAILED carrying the service message when it
// sent one, else failMsg.
func (c *Client) call(ctx context.Context, method, path string, body any, failMsg string) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, errors.NewRequestFailed(failMsg, err)
	}

	status, _, respBody, err := c.do(req, failMsg)
	if err != nil {
		return nil, err
	}

	var env envelope
	decodeErr := json.Unmarshal(respBody, &env)

	if err := c.statusError(status, env.Message, respBody, failMsg); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, errors.NewRequestFailed(failMsg, fmt.Errorf("failed to unmarshal response: %w", decodeErr))
	}
	if !env.Success {
		return nil, errors.NewRequestFailed(firstNonEmpty(env.Message, failMsg), nil)
	}
	return env.Data, nil
}

func (c *Client) statusError(status int, message string, body []byte, failMsg string) error {
	if status == http.StatusUnauthorized {
		c.logger.Info("API rejected credential", zap.Int("status", status))
		return errors.NewUnauthorized(message)
	}
	if status >= 400 {
		c.logger.Error("API error response",
			zap.Int("status", status),
			zap.ByteString("body", truncate(body, 512)),
		)
		return errors.NewRequestFailed(firstNonEmpty(message, failMsg), fmt.Errorf("API error: status %d", status))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
