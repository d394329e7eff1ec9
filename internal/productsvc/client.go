// Package productsvc talks to the external product catalog used to enrich inventory listings.
package productsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-cyclecount-ws/pkg/logger"
	"go-cyclecount-ws/pkg/metrics"
	"go-cyclecount-ws/pkg/redis"

	"github.com/google/uuid"
)

const (
	defaultTimeout          = 2 * time.Second
	responseBodyLimit int64 = 1 << 20
	correlationHeader       = "X-Correlation-ID"
)

var (
	ErrNotFound      = errors.New("product not found upstream")
	ErrUnavailable   = errors.New("product service unavailable")
	ErrNotConfigured = errors.New("product service not configured")
)

// Product is the catalog representation returned upstream.
type Product struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	SKU         string `json:"sku"`
}

// Cache is the small key/value surface used to memoize lookups.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      Cache
	cacheTTL   time.Duration
	metrics    *metrics.CycleCountMetrics
	log        *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithCache memoizes successful lookups for ttl.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

func WithMetrics(m *metrics.CycleCountMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient builds a client; an empty baseURL yields a client whose lookups always miss.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// ForRequest binds a correlation id for the lifetime of one inbound request.
func (c *Client) ForRequest(correlationID string) *Lookup {
	return &Lookup{client: c, correlationID: correlationID}
}

// Lookup is a request-scoped view of the client.
type Lookup struct {
	client        *Client
	correlationID string
}

// Product fetches a product by id. Each call records exactly one lookup outcome.
func (l *Lookup) Product(ctx context.Context, id uuid.UUID) (*Product, error) {
	c := l.client
	if !c.Enabled() {
		c.metrics.IncProductLookup("miss")
		return nil, ErrNotConfigured
	}

	key := redis.Key("product", id.String())
	if cached, ok := c.fromCache(ctx, key); ok {
		c.metrics.IncProductLookup("cache_hit")
		return cached, nil
	}

	product, err := l.fetch(ctx, id)
	switch {
	case err == nil:
		c.metrics.IncProductLookup("hit")
	case errors.Is(err, ErrNotFound):
		c.metrics.IncProductLookup("miss")
		return nil, err
	default:
		c.metrics.IncProductLookup("error")
		return nil, err
	}
	c.toCache(ctx, key, product)
	return product, nil
}

// LookupSKU resolves a product's SKU; any failure degrades to ok=false.
func (l *Lookup) LookupSKU(ctx context.Context, id uuid.UUID) (string, bool) {
	product, err := l.Product(ctx, id)
	switch {
	case err == nil:
		return product.SKU, true
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotConfigured):
	default:
		logCtx := l.client.log.WithFields(ctx, map[string]any{"product_id": id.String(), "correlation_id": l.correlationID})
		l.client.log.Warn(logCtx, "product lookup failed: "+err.Error())
	}
	return "", false
}

func (l *Lookup) fetch(ctx context.Context, id uuid.UUID) (*Product, error) {
	c := l.client
	endpoint := c.baseURL + "/products/" + url.PathEscape(id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build product request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if l.correlationID != "" {
		req.Header.Set(correlationHeader, l.correlationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var product Product
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyLimit)).Decode(&product); err != nil {
		return nil, fmt.Errorf("%w: decode product: %v", ErrUnavailable, err)
	}
	return &product, nil
}

func (c *Client) fromCache(ctx context.Context, key string) (*Product, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil, false
	}
	var product Product
	if err := json.Unmarshal([]byte(raw), &product); err != nil {
		return nil, false
	}
	return &product, true
}

func (c *Client) toCache(ctx context.Context, key string, product *Product) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, string(raw), c.cacheTTL); err != nil {
		c.log.Warn(c.log.WithField(ctx, "key", key), "product cache write failed")
	}
}
