package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ProductAPI defines the remote product operations.
// This interface is implemented by *Client and can be used for testing.
type ProductAPI interface {
	FetchProducts(ctx context.Context) ([]Product, error)
	CreateProduct(ctx context.Context, draft Draft) (string, error)
	UpdateProduct(ctx context.Context, product Product) (string, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Ensure Client implements ProductAPI at compile time.
var _ ProductAPI = (*Client)(nil)

// Client talks to the products HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	breaker   *gobreaker.CircuitBreaker[[]byte]
	log       *zap.Logger
}

// Options tune a Client. The zero value uses the defaults below.
type Options struct {
	Timeout time.Duration
	// BreakerFailures is the number of consecutive failures that opens the
	// breaker. Zero uses the default; a negative value disables the breaker.
	BreakerFailures int
	BreakerTimeout  time.Duration
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

const (
	DefaultBaseURL = "http://localhost:3000/products"

	defaultUserAgent       = "stockroom/0.1"
	defaultRequestTimeout  = 5 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 10 * time.Second
	maxErrorBody           = 200
)

// NewClient builds a Client for the collection at baseURL, for example
// "http://localhost:3000/products". A bare host:port gets the /products path.
func NewClient(baseURL string, opts Options) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:   base,
		http:      httpClient,
		userAgent: defaultUserAgent,
		log:       logger,
	}
	if opts.BreakerFailures >= 0 {
		c.breaker = newBreaker(opts, logger)
	}
	return c, nil
}

// BaseURL returns the normalized collection URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchProducts retrieves the full product collection in server order.
func (c *Client) FetchProducts(ctx context.Context) ([]Product, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	body, err := c.do(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}
	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, &DecodeError{Err: err}
	}
	for i, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return nil, &DecodeError{Err: fmt.Errorf("product at position %d has no _id", i)}
		}
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// CreateProduct submits a new product and returns the server acknowledgment
// verbatim. The response carries no typed record; callers refetch to learn
// the assigned id.
func (c *Client) CreateProduct(ctx context.Context, draft Draft) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	body, err := c.do(ctx, http.MethodPost, "/create", draft)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// UpdateProduct replaces the name and price of an existing product.
func (c *Client) UpdateProduct(ctx context.Context, product Product) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(product.ID) == "" {
		return "", fmt.Errorf("product id required")
	}
	payload := updateRequest{ID: product.ID, Name: product.Name, Price: product.Price}
	body, err := c.do(ctx, http.MethodPut, "/"+url.PathEscape(product.ID), payload)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// DeleteProduct removes a product. The backend confirms with a non-empty
// body; an empty one yields ErrEmptyResponse.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("product id required")
	}
	body, err := c.do(ctx, http.MethodDelete, "/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return fmt.Errorf("delete product %s: %w", id, ErrEmptyResponse)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, rel string, payload any) ([]byte, error) {
	if c.breaker == nil {
		return c.roundTrip(ctx, method, rel, payload)
	}
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, rel, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{Method: method, URL: c.endpoint(rel), Err: err}
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, method, rel string, payload any) ([]byte, error) {
	endpoint := c.endpoint(rel)

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Error(err))
		return nil, &TransportError{Method: method, URL: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug("request completed",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: method,
			Path:   req.URL.Path,
			Code:   resp.StatusCode,
			Body:   truncateBody(body),
		}
	}
	return body, nil
}

func (c *Client) endpoint(rel string) string {
	return c.baseURL.String() + rel
}

func newBreaker(opts Options, logger *zap.Logger) *gobreaker.CircuitBreaker[[]byte] {
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	timeout := opts.BreakerTimeout
	if timeout <= 0 {
		timeout = defaultBreakerTimeout
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

func truncateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	runes := []rune(text)
	if len(runes) <= maxErrorBody {
		return text
	}
	return string(runes[:maxErrorBody]) + "..."
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	if u.Path == "" {
		u.Path = "/products"
	}
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
