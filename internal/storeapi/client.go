package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/five82/minicart/internal/obs"
)

// CartAPI is the remote cart surface the synchronizer depends on. It is
// implemented by *Client and can be faked in tests.
type CartAPI interface {
	FetchCart(ctx context.Context) (*Cart, error)
	UpdateItem(ctx context.Context, key string, quantity int) error
	RemoveItem(ctx context.Context, key string) error
	Token() string
	SetToken(token string)
}

// Ensure Client implements CartAPI at compile time.
var _ CartAPI = (*Client)(nil)

const (
	// APIPath is the Store API prefix below the shop URL.
	APIPath = "/wp-json/wc/store/v1"

	// NonceHeader carries the authorization token on responses and mutations.
	NonceHeader = "Nonce"
	// LegacyNonceHeader is sent by older WooCommerce releases.
	LegacyNonceHeader = "X-WC-Store-API-Nonce"
	// CartTokenHeader identifies the cart session when cookies are not used.
	CartTokenHeader = "Cart-Token"

	defaultUserAgent = "minicart/0.1"
	defaultTimeout   = 5 * time.Second
)

// Operation names used for errors, logs and metrics.
const (
	OpFetch  = "fetch_cart"
	OpUpdate = "update_item"
	OpRemove = "remove_item"
)

// Options configure a Client.
type Options struct {
	StoreURL   string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	Metrics    *obs.Metrics
}

// Client talks to the WooCommerce Store API cart endpoints. It owns the
// authorization token: every response may carry a fresh one and every mutation
// sends the latest.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	logger    zerolog.Logger
	metrics   *obs.Metrics

	mu        sync.RWMutex
	token     string
	cartToken string
}

// NewClient builds a Client for the shop at opts.StoreURL.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.StoreURL)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:   base,
		http:      httpClient,
		userAgent: userAgent,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}, nil
}

// Token returns the latest authorization token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken seeds the authorization token, typically from the local cache.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

// FetchCart retrieves the current cart.
func (c *Client) FetchCart(ctx context.Context) (*Cart, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	resp, status, err := c.do(ctx, OpFetch, http.MethodGet, "cart", nil)
	if err != nil {
		return nil, &NetworkError{Op: OpFetch, Status: status, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if status >= 300 {
		apiErr := readErrorBody(resp.Body)
		return nil, &NetworkError{Op: OpFetch, Status: status, Code: apiErr.Code, Message: apiErr.Message}
	}
	cart, err := DecodeCart(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: OpFetch, Status: status, Err: err}
	}
	return cart, nil
}

// UpdateItem sets the quantity of the line identified by key.
func (c *Client) UpdateItem(ctx context.Context, key string, quantity int) error {
	body := struct {
		Key      string `json:"key"`
		Quantity int    `json:"quantity"`
	}{Key: key, Quantity: quantity}
	return c.mutate(ctx, OpUpdate, "cart/update-item", key, body)
}

// RemoveItem deletes the line identified by key.
func (c *Client) RemoveItem(ctx context.Context, key string) error {
	body := struct {
		Key string `json:"key"`
	}{Key: key}
	return c.mutate(ctx, OpRemove, "cart/remove-item", key, body)
}

func (c *Client) mutate(ctx context.Context, op, path, key string, body any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	resp, status, err := c.do(ctx, op, http.MethodPost, path, body)
	if err != nil {
		return &MutationError{Op: op, Key: key, Status: status, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if status >= 300 {
		apiErr := readErrorBody(resp.Body)
		return &MutationError{Op: op, Key: key, Status: status, Code: apiErr.Code, Message: apiErr.Message}
	}
	// The updated cart in the body is ignored; the caller refreshes.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// do executes one request. On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (*http.Response, int, error) {
	reqURL := c.baseURL.JoinPath(APIPath, path)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token, cartToken := c.token, c.cartToken
	c.mu.RUnlock()
	if method != http.MethodGet && token != "" {
		req.Header.Set(NonceHeader, token)
	}
	if cartToken != "" {
		req.Header.Set(CartTokenHeader, cartToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(op, 0, elapsed)
		c.logger.Warn().Err(err).Str("op", op).Str("request_id", requestID).Msg("store_api_transport_error")
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	c.metrics.ObserveRequest(op, resp.StatusCode, elapsed)
	c.captureTokens(resp.Header)
	c.logger.Debug().
		Str("op", op).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Int64("duration_ms", elapsed.Milliseconds()).
		Msg("store_api_request")
	return resp, resp.StatusCode, nil
}

// captureTokens stores any token the response carried. Error responses carry
// them too, so a rejected nonce is replaced before the next mutation.
func (c *Client) captureTokens(h http.Header) {
	nonce := strings.TrimSpace(h.Get(NonceHeader))
	if nonce == "" {
		nonce = strings.TrimSpace(h.Get(LegacyNonceHeader))
	}
	cartToken := strings.TrimSpace(h.Get(CartTokenHeader))
	if nonce == "" && cartToken == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if nonce != "" {
		c.token = nonce
	}
	if cartToken != "" {
		c.cartToken = cartToken
	}
}

func readErrorBody(r io.Reader) ErrorResponse {
	var apiErr ErrorResponse
	data, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil || len(data) == 0 {
		return apiErr
	}
	_ = json.Unmarshal(data, &apiErr) // best effort
	return apiErr
}

func parseBaseURL(storeURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(storeURL)
	if trimmed == "" {
		return nil, fmt.Errorf("store url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse store url %q: %w", storeURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse store url %q: missing host", storeURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
