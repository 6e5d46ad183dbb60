// Package transport carries wire payloads to and from the tetrahedralization
// service over HTTP.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/notargets/tetraview/logging"
)

const (
	GenTetraPath = "/gen-tetra"
	DemoPath     = "/get-demo"
	HealthPath   = "/health"
	ContentType  = "application/octet-stream"
)

// TransportError wraps any failure of a request: dialing, a non-2xx status
// or a broken body. No request is ever retried.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int // zero when no response arrived
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to one service base address.
type Client struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.HTTPClient
		hc.Timeout = d
		c.HTTPClient = &hc
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.Logger = l }
}

// NewClient parses base, an absolute http(s) address.
func NewClient(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: need an absolute http or https address", base)
	}
	c := &Client{
		BaseURL:    u,
		HTTPClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Logger = logging.Or(c.Logger)
	return c, nil
}

func (c *Client) endpoint(path string) string {
	return c.BaseURL.String() + path
}

// Send posts an encoded mesh to the generation endpoint and returns the
// encoded response. onProgress, when set, receives the non-decreasing
// percentage of the request body written; completion is signaled by the
// return, not by a final 100.
func (c *Client) Send(ctx context.Context, payload []byte, onProgress func(float64)) ([]byte, error) {
	target := c.endpoint(GenTetraPath)
	body := newProgressReader(bytes.NewReader(payload), int64(len(payload)), onProgress)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, &TransportError{Op: "POST", URL: target, Err: err}
	}
	req.ContentLength = int64(len(payload))
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Accept", ContentType)

	start := time.Now()
	c.Logger.Debug("sending mesh", "url", target, "bytes", len(payload))
	out, err := c.do(req, nil)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("mesh returned", "url", target, "bytes", len(out), "elapsed", time.Since(start))
	return out, nil
}

// Demo fetches the pre-baked demo payload. onProgress follows the response
// body when the server announces its length.
func (c *Client) Demo(ctx context.Context, onProgress func(float64)) ([]byte, error) {
	target := c.endpoint(DemoPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{Op: "GET", URL: target, Err: err}
	}
	req.Header.Set("Accept", ContentType)
	return c.do(req, onProgress)
}

// Health checks that the service answers {"status":"ok"}.
func (c *Client) Health(ctx context.Context) error {
	target := c.endpoint(HealthPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &TransportError{Op: "GET", URL: target, Err: err}
	}
	out, err := c.do(req, nil)
	if err != nil {
		return err
	}
	var status struct {
		Status string `json:"status"`
	}
	if err = json.Unmarshal(out, &status); err != nil {
		return &TransportError{Op: "GET", URL: target, Err: fmt.Errorf("decoding health: %w", err)}
	}
	if status.Status != "ok" {
		return &TransportError{Op: "GET", URL: target, Err: fmt.Errorf("service reports %q", status.Status)}
	}
	return nil
}

func (c *Client) do(req *http.Request, onDownload func(float64)) ([]byte, error) {
	op, target := req.Method, req.URL.String()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &TransportError{
			Op:         op,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", http.StatusText(resp.StatusCode), strings.TrimSpace(string(msg))),
		}
	}

	var body io.Reader = resp.Body
	if onDownload != nil && resp.ContentLength > 0 {
		body = newProgressReader(resp.Body, resp.ContentLength, onDownload)
	}
	out, err := io.ReadAll(body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	return out, nil
}
