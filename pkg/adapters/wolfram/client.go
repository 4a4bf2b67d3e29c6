// Package wolfram implements ports.SolverClient against the Wolfram|Alpha
// Full Results API.
package wolfram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aretw0/notasolver/internal/logging"
	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/ports"
)

// DefaultURL is the Full Results API query endpoint.
const DefaultURL = "https://api.wolframalpha.com/v2/query"

// Presentation hints sent with every query.
const (
	DefaultPodState = "Step-by-step solution"
	DefaultFormat   = "image"
	DefaultMag      = "2.0"
)

const maxResponseBytes = 16 << 20

// Client queries Wolfram|Alpha and returns the raw result document.
type Client struct {
	appID    string
	url      string
	podState string
	format   string
	mag      string
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.SolverClient = (*Client)(nil)

type Option func(*Client)

// WithURL overrides the endpoint.
func WithURL(u string) Option {
	return func(c *Client) {
		c.url = u
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// WithPresentation overrides the podstate, format and mag hints.
// Empty values keep the defaults.
func WithPresentation(podState, format, mag string) Option {
	return func(c *Client) {
		if podState != "" {
			c.podState = podState
		}
		if format != "" {
			c.format = format
		}
		if mag != "" {
			c.mag = mag
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client authenticating with appID.
func New(appID string, opts ...Option) *Client {
	c := &Client{
		appID:    appID,
		url:      DefaultURL,
		podState: DefaultPodState,
		format:   DefaultFormat,
		mag:      DefaultMag,
		http:     &http.Client{Timeout: 60 * time.Second},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryURL builds the GET URL for latex.
func (c *Client) QueryURL(latex string) (string, error) {
	if strings.TrimSpace(latex) == "" {
		return "", domain.Stagef(domain.KindSolveInputEncoding, "empty input")
	}
	if !utf8.ValidString(latex) {
		return "", domain.Stagef(domain.KindSolveInputEncoding, "input is not valid UTF-8")
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return "", domain.Stagef(domain.KindSolveTransport, "invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("appid", c.appID)
	q.Set("input", latex)
	q.Set("podstate", c.podState)
	q.Set("format", c.format)
	q.Set("mag", c.mag)
	q.Set("output", "json")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Solve implements ports.SolverClient.
//
// Wolfram wraps its document in a top-level "queryresult" object; when
// present it is unwrapped so the caller sees the success flags and pods
// directly.
func (c *Client) Solve(ctx context.Context, latex string) (map[string]any, error) {
	target, err := c.QueryURL(latex)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, domain.Stagef(domain.KindSolveTransport, "failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("solve request", "input", latex)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Stagef(domain.KindSolveTransport, "failed to send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.Stagef(domain.KindSolveTransport, "failed to read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, domain.Stagef(domain.KindSolveTransport, "API error: Status %d, Response: %s", res.StatusCode, truncate(body))
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, domain.Stagef(domain.KindSolveDecoding, "failed to decode response: %w", err)
	}
	if doc == nil {
		return nil, domain.Stagef(domain.KindSolveDecoding, "response is not a JSON object")
	}

	if inner, ok := doc["queryresult"].(map[string]any); ok {
		doc = inner
	}
	return doc, nil
}

func truncate(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
