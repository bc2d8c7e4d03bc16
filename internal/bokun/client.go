package bokun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/tour-availability/pkg/logging"
)

const (
	defaultBaseURL   = "https://api.bokun.io"
	defaultTimeout   = 15 * time.Second
	defaultLang      = "EN"
	defaultCurrency  = "ISK"
	defaultRetryWait = 250 * time.Millisecond
)

// ErrMissingCredentials is returned by NewClient when either key is empty.
var ErrMissingCredentials = errors.New("bokun: missing access or secret key")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bokun API returned %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client calls the Bokun REST API with signed requests. It is safe for
// concurrent use.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	signer         *Signer
	logger         *logging.Logger
	lang           string
	currency       string
	includeSoldOut bool
	maxAttempts    int
	retryWait      time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout for a single attempt. The client
// is copied first so a caller's shared *http.Client is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithLocale sets the lang and currency query parameters.
func WithLocale(lang, currency string) Option {
	return func(c *Client) {
		if strings.TrimSpace(lang) != "" {
			c.lang = lang
		}
		if strings.TrimSpace(currency) != "" {
			c.currency = currency
		}
	}
}

// WithIncludeSoldOut controls the includeSoldOut query parameter.
func WithIncludeSoldOut(include bool) Option {
	return func(c *Client) {
		c.includeSoldOut = include
	}
}

// WithMaxAttempts bounds attempts per call. 1 disables retries.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryWait sets the initial backoff between attempts.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryWait = d
		}
	}
}

// WithClock overrides the clock used for X-Bokun-Date.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.signer.now = now
		}
	}
}

// NewClient constructs a Bokun client. It fails only when credentials are
// incomplete.
func NewClient(creds Credentials, logger *logging.Logger, opts ...Option) (*Client, error) {
	if !creds.Valid() {
		return nil, ErrMissingCredentials
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient:     newHTTPClient(defaultTimeout),
		baseURL:        defaultBaseURL,
		signer:         NewSigner(creds),
		logger:         logger,
		lang:           defaultLang,
		currency:       defaultCurrency,
		includeSoldOut: true,
		maxAttempts:    1,
		retryWait:      defaultRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(tr)}
}

// AvailabilityPath returns the signed path for a product's availabilities.
func AvailabilityPath(productID string) string {
	return fmt.Sprintf("/activity.json/%s/availabilities", url.PathEscape(productID))
}

// availabilityQuery keeps Bokun's documented parameter order; the signature
// covers the literal query string.
func (c *Client) availabilityQuery(start, end string) string {
	var b strings.Builder
	b.WriteString("?start=")
	b.WriteString(url.QueryEscape(start))
	b.WriteString("&end=")
	b.WriteString(url.QueryEscape(end))
	b.WriteString("&lang=")
	b.WriteString(url.QueryEscape(c.lang))
	b.WriteString("&currency=")
	b.WriteString(url.QueryEscape(c.currency))
	b.WriteString("&includeSoldOut=")
	b.WriteString(strconv.FormatBool(c.includeSoldOut))
	return b.String()
}

// GetAvailabilities returns the raw slots for productID between start and
// end, both YYYY-MM-DD.
func (c *Client) GetAvailabilities(ctx context.Context, productID, start, end string) ([]RawSlot, error) {
	path := AvailabilityPath(productID)
	query := c.availabilityQuery(start, end)

	attempt := 0
	op := func() ([]RawSlot, error) {
		attempt++
		body, err := c.get(ctx, path, query)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.retryable() {
				return nil, backoff.Permanent(err)
			}
			if attempt < c.maxAttempts {
				c.logger.Debug("bokun request failed, retrying", "product_id", productID, "attempt", attempt, "error", err)
				trace.SpanFromContext(ctx).AddEvent("bokun.retry", trace.WithAttributes(
					attribute.Int("attempt", attempt),
					attribute.String("error", err.Error()),
				))
			}
			return nil, err
		}
		slots, err := decodeSlots(body)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("decode availabilities: %w", err))
		}
		return slots, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	b.MaxInterval = 4 * c.retryWait

	slots, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxAttempts)),
	)
	if err != nil {
		return nil, fmt.Errorf("get availabilities for %s: %w", productID, err)
	}
	return slots, nil
}

func (c *Client) get(ctx context.Context, path, query string) ([]byte, error) {
	endpoint := c.baseURL + path + query

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range c.signer.Headers(http.MethodGet, path, query) {
		req.Header[key] = values
	}
	c.logger.Debug("bokun request", "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("bokun API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}
	return respBody, nil
}

// decodeSlots accepts a bare JSON array or an object wrapping the array under
// "availabilities" or "data". Numbers are kept as json.Number so epoch
// milliseconds survive untouched.
func decodeSlots(body []byte) ([]RawSlot, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var slots []RawSlot
		if err := dec.Decode(&slots); err != nil {
			return nil, err
		}
		return slots, nil
	}

	var wrapped struct {
		Availabilities []RawSlot `json:"availabilities"`
		Data           []RawSlot `json:"data"`
	}
	if err := dec.Decode(&wrapped); err != nil {
		return nil, err
	}
	if len(wrapped.Availabilities) > 0 {
		return wrapped.Availabilities, nil
	}
	return wrapped.Data, nil
}
