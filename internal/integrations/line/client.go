package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIBase     = "https://api.line.me/v2/bot"
	DefaultDataAPIBase = "https://api-data.line.me/v2/bot"

	requestIDHeader = "X-Line-Request-Id"
)

// HTTPStatusError captures non-2xx responses from the Messaging API.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
	RequestID  string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("line: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *HTTPStatusError) ResponseBody() string {
	return e.Body
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *HTTPStatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client is a bearer-token client for the LINE Messaging API endpoints used by
// the dispatcher and the menu deployer.
type Client struct {
	baseURL     string
	dataBaseURL string
	token       string
	httpClient  *http.Client
	logger      *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if s := strings.TrimSpace(baseURL); s != "" {
			c.baseURL = s
		}
	}
}

// WithDataBaseURL overrides the host used for content uploads.
func WithDataBaseURL(baseURL string) Option {
	return func(c *Client) {
		if s := strings.TrimSpace(baseURL); s != "" {
			c.dataBaseURL = s
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client that sends token on every request.
func NewClient(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("line: channel access token must not be empty")
	}
	c := &Client{
		baseURL:     DefaultAPIBase,
		dataBaseURL: DefaultDataAPIBase,
		token:       token,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) apiURL(path string) string {
	return joinURL(c.baseURL, path)
}

func (c *Client) dataURL(path string) string {
	return joinURL(c.dataBaseURL, path)
}

// doJSON sends in (if non-nil) as a JSON body and decodes the response into out
// (if non-nil). op names the call in logs.
func (c *Client) doJSON(ctx context.Context, op, method, url string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("line: %s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}

	raw, err := c.do(ctx, op, method, url, contentType, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("line: %s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, url, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("line: %s: create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("line: %s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	requestID := res.Header.Get(requestIDHeader)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
			RequestID:  requestID,
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("line: %s: read response body: %w", op, err)
	}
	if requestID == "" {
		requestID = "-"
	}
	c.log().InfoContext(ctx, op, "outcome", "OK", "request_id", requestID)
	return buf, nil
}

func pathID(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}
