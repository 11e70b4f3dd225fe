package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/always-cache/stalier/cache"
	"github.com/always-cache/stalier/internal/config"
	cachecontrol "github.com/always-cache/stalier/pkg/cache-control"
	cachekey "github.com/always-cache/stalier/pkg/cache-key"
	requestrules "github.com/always-cache/stalier/pkg/request-rules"
	serializer "github.com/always-cache/stalier/pkg/response-serializer"
)

type testProxy struct {
	proxy   *httptest.Server
	store   *cache.MemCache[serializer.Response]
	hits    atomic.Int32
	headers chan http.Header
}

func startTestProxy(t *testing.T, rules requestrules.Rules) *testProxy {
	t.Helper()
	tp := &testProxy{
		store:   cache.NewMemCache[serializer.Response](),
		headers: make(chan http.Header, 10),
	}
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := tp.hits.Add(1)
		tp.headers <- r.Header.Clone()
		fmt.Fprintf(w, "%s %s called %d times", r.Method, r.URL.Path, n)
	}))
	t.Cleanup(origin.Close)
	originURL, _ := url.Parse(origin.URL)

	cfg := &config.Config{Origin: origin.URL, Rules: rules}
	cfg.ApplyDefaults()
	tp.proxy = httptest.NewServer(newRouter(routerOptions{
		config:  cfg,
		store:   tp.store,
		log:     zerolog.Nop(),
		tracer:  tracenoop.NewTracerProvider().Tracer("test"),
		handler: newReverseProxy(originURL, ""),
	}))
	t.Cleanup(tp.proxy.Close)
	return tp
}

func (tp *testProxy) get(t *testing.T, path, policy string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, tp.proxy.URL+path, nil)
	if policy != "" {
		req.Header.Set(cachecontrol.HeaderName, policy)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	return res, string(body)
}

func TestProxyCaches(t *testing.T) {
	tp := startTestProxy(t, nil)

	res, body := tp.get(t, "/page", "s-maxage=60")
	assert.Equal(t, "MISS", res.Header.Get("X-Cache-Status"))
	assert.Equal(t, "GET /page called 1 times", body)

	// the policy header is not forwarded to the origin
	assert.Empty(t, (<-tp.headers).Get(cachecontrol.HeaderName))

	require.Eventually(t, func() bool { return tp.store.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	res, body = tp.get(t, "/page", "s-maxage=60")
	assert.Equal(t, "HIT", res.Header.Get("X-Cache-Status"))
	assert.Equal(t, "GET /page called 1 times", body)
	assert.Equal(t, int32(1), tp.hits.Load())
}

func TestProxyPassThrough(t *testing.T) {
	tp := startTestProxy(t, nil)

	for i := 1; i <= 2; i++ {
		res, body := tp.get(t, "/page", "")
		assert.Empty(t, res.Header.Get("X-Cache-Status"))
		assert.Equal(t, fmt.Sprintf("GET /page called %d times", i), body)
	}
}

func TestProxyRules(t *testing.T) {
	tp := startTestProxy(t, requestrules.Rules{
		{Prefix: "/api/", Default: "s-maxage=60"},
	})

	res, _ := tp.get(t, "/api/items", "")
	assert.Equal(t, "MISS", res.Header.Get("X-Cache-Status"))

	res, _ = tp.get(t, "/other", "")
	assert.Empty(t, res.Header.Get("X-Cache-Status"))
}

func TestAdminRouter(t *testing.T) {
	srv := httptest.NewServer(newAdminRouter(nil, cachekey.NewCacheKeyer("stalier")))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, strings.Contains(string(body), "stalier_warnings_total"))

	res = adminDelete(t, srv.URL+"/cache/get")
	assert.Equal(t, http.StatusNotImplemented, res.StatusCode)
}

func adminDelete(t *testing.T, url string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodDelete, url, nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestAdminPurge(t *testing.T) {
	tp := startTestProxy(t, nil)
	admin := httptest.NewServer(newAdminRouter(tp.store, cachekey.NewCacheKeyer("stalier")))
	defer admin.Close()

	for _, path := range []string{"/a", "/b"} {
		tp.get(t, path, "s-maxage=60")
		<-tp.headers
	}
	require.Eventually(t, func() bool { return tp.store.Len() == 2 }, 2*time.Second, 5*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, tp.store.Set(ctx, "other-GET-a", cache.Entry[serializer.Response]{}))

	res := adminDelete(t, admin.URL+"/cache/PUT")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = adminDelete(t, admin.URL+"/cache/get")
	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"purged":2}`, string(body))
	assert.Equal(t, 1, tp.store.Len())

	// purged responses are fetched from the origin again
	res, _ = tp.get(t, "/a", "s-maxage=60")
	<-tp.headers
	assert.Equal(t, "MISS", res.Header.Get("X-Cache-Status"))
}

func TestCreateDirector(t *testing.T) {
	director := createDirector("https", "10.0.0.1", "example.com")
	req := httptest.NewRequest(http.MethodGet, "http://localhost/page?x=1", nil)
	req.Header.Set(cachecontrol.HeaderName, "s-maxage=1")
	director(req)

	assert.Equal(t, "https://10.0.0.1/page?x=1", req.URL.String())
	assert.Equal(t, "example.com", req.Host)
	assert.Empty(t, req.Header.Get(cachecontrol.HeaderName))
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []config.StoreConfig{
		{Type: "memory"},
		{Type: "sqlite", SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "cache.db")}},
		{Type: "bigcache", BigCache: config.BigCacheConfig{LifeWindow: time.Minute}},
	} {
		t.Run(cfg.Type, func(t *testing.T) {
			store, purger, closeStore, err := newStore(ctx, cfg)
			require.NoError(t, err)
			defer closeStore()
			assert.Equal(t, cfg.Type != "bigcache", purger != nil)

			entry := cache.Entry[serializer.Response]{Value: serializer.Response{StatusCode: 200, Body: []byte("x")}, LastUpdated: 1}
			require.NoError(t, store.Set(ctx, "k", entry))
			got, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("x"), got.Value.Body)
		})
	}
}

func TestNewStoreErrors(t *testing.T) {
	ctx := context.Background()

	_, _, _, err := newStore(ctx, config.StoreConfig{Type: "memcached"})
	assert.Error(t, err)

	_, _, _, err = newStore(ctx, config.StoreConfig{Type: "redis", Redis: config.RedisConfig{URL: "not a url"}})
	assert.Error(t, err)
}

func setFlag[T any](t *testing.T, p *T, value T) {
	t.Helper()
	old := *p
	*p = value
	t.Cleanup(func() { *p = old })
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stalier.yaml")
	require.NoError(t, os.WriteFile(path, []byte("appName: shop\nport: 7000\nstore:\n  type: memory\n"), 0o644))
	setFlag(t, &configFlag, path)
	setFlag(t, &originFlag, "http://localhost:3000")
	setFlag(t, &portFlag, 7001)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.AppName)
	assert.Equal(t, "http://localhost:3000", cfg.Origin)
	assert.Equal(t, 7001, cfg.Port)
	assert.Equal(t, "memory", cfg.Store.Type)
}

func TestLoadConfigMissingOrigin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stalier.yaml")
	require.NoError(t, os.WriteFile(path, []byte("appName: shop\n"), 0o644))
	setFlag(t, &configFlag, path)
	setFlag(t, &originFlag, "")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestNewWarnLogger(t *testing.T) {
	logger, done, err := newWarnLogger("zerolog")
	require.NoError(t, err)
	assert.Nil(t, logger)
	done()

	logger, done, err = newWarnLogger("zap")
	require.NoError(t, err)
	assert.NotNil(t, logger)
	done()
}
