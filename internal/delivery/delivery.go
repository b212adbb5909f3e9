// Package delivery sends assembled bundles to a remote FHIR endpoint.
package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/bundlegrid/internal/codec"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/model"
)

// Mode selects how a bundle is sent.
type Mode string

const (
	// ModeTransaction POSTs the whole bundle to the endpoint base.
	ModeTransaction Mode = "transaction"
	// ModeIndividual PUTs each entry to <endpoint>/<Type>/<id>.
	ModeIndividual Mode = "individual"
)

// ParseMode validates a configured mode. The empty string selects
// ModeTransaction.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeTransaction:
		return ModeTransaction, nil
	case ModeIndividual:
		return ModeIndividual, nil
	default:
		return "", fmt.Errorf("unknown delivery mode %q", s)
	}
}

const (
	contentType = "application/fhir+json"
	// maxErrorBody caps how much of a failed response is kept.
	maxErrorBody = 4 << 10
	// DefaultTimeout bounds one request.
	DefaultTimeout = 60 * time.Second
)

// Error is returned when the endpoint answers with a non-2xx status.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s failed with status: %s", e.Method, e.URL, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client delivers bundles. It is safe for concurrent use.
type Client struct {
	endpoint string
	mode     Mode
	headers  map[string]string
	http     *http.Client
	json     codec.Codec
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithHeader adds a header to every request, e.g. Authorization.
func WithHeader(key, value string) Option {
	return func(cl *Client) { cl.headers[key] = value }
}

// New creates a Client for endpoint.
func New(endpoint string, mode Mode, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		mode:     mode,
		headers:  make(map[string]string),
		http:     &http.Client{Timeout: DefaultTimeout},
		json:     codec.JSON{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver sends the bundle according to the client's mode.
func (c *Client) Deliver(ctx context.Context, b *model.Bundle) error {
	logger := ctxlog.FromContext(ctx).With("bundle", b.ID, "mode", c.mode)

	if c.mode == ModeIndividual {
		for _, e := range b.Entries {
			if err := c.send(ctx, http.MethodPut, c.endpoint+"/"+e.RequestURL(), e.Resource); err != nil {
				return err
			}
		}
		logger.Debug("Delivered bundle entries individually.", "entries", len(b.Entries))
		return nil
	}

	if err := c.send(ctx, http.MethodPost, c.endpoint, b.Document()); err != nil {
		return err
	}
	logger.Debug("Delivered transaction bundle.", "entries", len(b.Entries))
	return nil
}

func (c *Client) send(ctx context.Context, method, url string, doc model.Document) error {
	body, err := c.json.Encode(doc)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
