package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/blob"
	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/metrics"
	"github.com/fjod/storefront/internal/publisher"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server  *httptest.Server
	client  *http.Client
	store   *repository.MemoryStore
	blobs   *blob.MemoryStorage
	carts   *service.CartService
	metrics *metrics.ServerMetrics
	redis   *miniredis.Miniredis
	cfg     RouterConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log, _ := test.NewNullLogger()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	env := &testEnv{
		store:   repository.NewMemoryStore(),
		blobs:   blob.NewMemoryStorage("http://cdn.test"),
		carts:   service.NewCartService(cache.NewRedisCache(rdb, time.Hour), log),
		metrics: metrics.NewServerMetrics(prometheus.NewRegistry()),
		redis:   mr,
	}

	env.cfg = RouterConfig{
		Carts:              env.carts,
		Store:              env.store,
		Blobs:              env.blobs,
		Submitter:          publisher.NewSimulatedSubmitter(time.Millisecond, log),
		Metrics:            env.metrics,
		Log:                log,
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		MaxUploadSize:      1 << 20,
	}
	env.server = httptest.NewServer(NewRouter(env.cfg))
	t.Cleanup(env.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{Jar: jar, Timeout: 10 * time.Second}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) createProduct(t *testing.T, name string, price float64) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/products", map[string]any{
		"name":      name,
		"category":  "home",
		"quantity":  10,
		"price":     price,
		"image_url": "http://cdn.test/blobs/" + name,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[CreatedResponseDTO](t, resp).ID
}

func decodeRecorder[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}
