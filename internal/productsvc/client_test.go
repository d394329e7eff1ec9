package productsvc

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go-cyclecount-ws/pkg/metrics"
	"go-cyclecount-ws/pkg/redis"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
	gets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.values[key]
	if !ok {
		return "", errors.New("miss")
	}
	return v, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	return nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestLookupSKUSendsCorrelationID(t *testing.T) {
	id := uuid.New()
	var capturedURL, capturedCorrelation string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedCorrelation = req.Header.Get("X-Correlation-ID")
		return jsonResponse(http.StatusOK, `{"id":"`+id.String()+`","description":"Widget","sku":"SKU-1"}`), nil
	})

	client := NewClient("http://catalog.test/api/", WithHTTPClient(&http.Client{Transport: rt}))
	sku, ok := client.ForRequest("req-42").LookupSKU(context.Background(), id)

	require.True(t, ok)
	assert.Equal(t, "SKU-1", sku)
	assert.Equal(t, "http://catalog.test/api/products/"+id.String(), capturedURL)
	assert.Equal(t, "req-42", capturedCorrelation)
}

func TestLookupSKUDegradesOnFailures(t *testing.T) {
	cases := map[string]roundTripFunc{
		"not found": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusNotFound, `{}`), nil
		},
		"server error": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, `oops`), nil
		},
		"transport error": func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
		"bad json": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"sku":`), nil
		},
	}
	for name, rt := range cases {
		t.Run(name, func(t *testing.T) {
			client := NewClient("http://catalog.test", WithHTTPClient(&http.Client{Transport: rt}))
			sku, ok := client.ForRequest("").LookupSKU(context.Background(), uuid.New())
			assert.False(t, ok)
			assert.Empty(t, sku)
		})
	}
}

func TestProductErrorsAreClassified(t *testing.T) {
	client := NewClient("http://catalog.test", WithHTTPClient(&http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})}))
	_, err := client.ForRequest("").Product(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	client = NewClient("http://catalog.test", WithHTTPClient(&http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, ``), nil
	})}))
	_, err = client.ForRequest("").Product(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUnconfiguredClientMisses(t *testing.T) {
	client := NewClient("  ")
	assert.False(t, client.Enabled())

	_, err := client.ForRequest("r").Product(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, ok := client.ForRequest("r").LookupSKU(context.Background(), uuid.New())
	assert.False(t, ok)
}

func TestLookupUsesCache(t *testing.T) {
	id := uuid.New()
	calls := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{"id":"`+id.String()+`","sku":"SKU-9"}`), nil
	})
	cache := newMemoryCache()
	client := NewClient("http://catalog.test", WithHTTPClient(&http.Client{Transport: rt}), WithCache(cache, time.Minute))

	for i := 0; i < 3; i++ {
		sku, ok := client.ForRequest("").LookupSKU(context.Background(), id)
		require.True(t, ok)
		assert.Equal(t, "SKU-9", sku)
	}
	assert.Equal(t, 1, calls)
	assert.Contains(t, cache.values, redis.Key("product", id.String()))
}

func TestLookupCountsEachOutcomeOnce(t *testing.T) {
	known, missing, broken := uuid.New(), uuid.New(), uuid.New()
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(req.URL.Path, known.String()):
			return jsonResponse(http.StatusOK, `{"sku":"SKU-1"}`), nil
		case strings.HasSuffix(req.URL.Path, missing.String()):
			return jsonResponse(http.StatusNotFound, `{}`), nil
		default:
			return jsonResponse(http.StatusBadGateway, `{}`), nil
		}
	})
	reg := prometheus.NewRegistry()
	client := NewClient("http://catalog.test",
		WithHTTPClient(&http.Client{Transport: rt}),
		WithCache(newMemoryCache(), time.Minute),
		WithMetrics(metrics.NewCycleCountMetrics(reg)),
	)
	lookup := client.ForRequest("req-1")

	for i := 0; i < 3; i++ {
		_, ok := lookup.LookupSKU(context.Background(), known)
		require.True(t, ok)
	}
	_, ok := lookup.LookupSKU(context.Background(), missing)
	assert.False(t, ok)
	_, ok = lookup.LookupSKU(context.Background(), broken)
	assert.False(t, ok)

	assert.Equal(t, map[string]float64{"hit": 1, "cache_hit": 2, "miss": 1, "error": 1}, lookupOutcomes(t, reg))
}

func lookupOutcomes(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "cyclecount_product_lookup_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" {
					out[label.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	return out
}

func TestTimeoutAgainstSlowServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"sku":"late"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithTimeout(20*time.Millisecond))
	_, err := client.ForRequest("").Product(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnavailable)
}
