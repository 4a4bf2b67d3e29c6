// Package mathpix implements ports.OcrClient against the Mathpix strokes API.
package mathpix

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/aretw0/notasolver/internal/logging"
	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/ports"
)

// DefaultURL is the Mathpix strokes endpoint.
const DefaultURL = "https://api.mathpix.com/v3/strokes"

const maxResponseBytes = 4 << 20

// Client sends stroke geometry to Mathpix and returns the recognized LaTeX.
type Client struct {
	appID  string
	appKey string
	url    string
	http   *http.Client
	logger *slog.Logger
}

var _ ports.OcrClient = (*Client)(nil)

type Option func(*Client)

// WithURL overrides the endpoint.
func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
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

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client authenticating with appID and appKey.
func New(appID, appKey string, opts ...Option) *Client {
	c := &Client{
		appID:  appID,
		appKey: appKey,
		url:    DefaultURL,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// strokesRequest is the body Mathpix expects: each sub-path as parallel
// x and y arrays of integers.
type strokesRequest struct {
	Strokes struct {
		Strokes struct {
			X [][]int `json:"x"`
			Y [][]int `json:"y"`
		} `json:"strokes"`
	} `json:"strokes"`
}

type strokesResponse struct {
	LatexStyled *string `json:"latex_styled"`
	Error       string  `json:"error"`
	RequestID   string  `json:"request_id"`
}

// NewRequestBody builds the JSON body for strokes, rounding every coordinate
// to the nearest integer.
func NewRequestBody(strokes domain.StrokeSet) ([]byte, error) {
	var body strokesRequest
	body.Strokes.Strokes.X = make([][]int, len(strokes))
	body.Strokes.Strokes.Y = make([][]int, len(strokes))
	for i, path := range strokes {
		xs := make([]int, len(path))
		ys := make([]int, len(path))
		for j, p := range path {
			xs[j] = int(math.Round(p.X))
			ys[j] = int(math.Round(p.Y))
		}
		body.Strokes.Strokes.X[i] = xs
		body.Strokes.Strokes.Y[i] = ys
	}
	return json.Marshal(body)
}

// Recognize implements ports.OcrClient.
func (c *Client) Recognize(ctx context.Context, strokes domain.StrokeSet) (string, error) {
	data, err := NewRequestBody(strokes)
	if err != nil {
		return "", domain.Stagef(domain.KindOcrTransport, "failed to encode strokes: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return "", domain.Stagef(domain.KindOcrTransport, "failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("app_id", c.appID)
	req.Header.Set("app_key", c.appKey)

	c.logger.Debug("ocr request", "url", c.url, "paths", len(strokes), "points", strokes.PointCount())

	res, err := c.http.Do(req)
	if err != nil {
		return "", domain.Stagef(domain.KindOcrTransport, "failed to send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return "", domain.Stagef(domain.KindOcrTransport, "failed to read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", domain.Stagef(domain.KindOcrTransport, "API error: Status %d, Response: %s", res.StatusCode, truncate(body))
	}

	var out strokesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", domain.Stagef(domain.KindOcrDecoding, "failed to decode response: %w", err)
	}
	if out.Error != "" {
		return "", domain.Stagef(domain.KindOcrDecoding, "API error: %s", out.Error)
	}
	if out.LatexStyled == nil || *out.LatexStyled == "" {
		return "", domain.Stagef(domain.KindOcrDecoding, "response has no latex_styled")
	}

	c.logger.Debug("ocr response", "request_id", out.RequestID, "latex", *out.LatexStyled)
	return *out.LatexStyled, nil
}

func truncate(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
