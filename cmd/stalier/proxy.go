package main

import (
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/always-cache/stalier"
	"github.com/always-cache/stalier/cache"
	"github.com/always-cache/stalier/internal/config"
	"github.com/always-cache/stalier/middleware"
	cachecontrol "github.com/always-cache/stalier/pkg/cache-control"
	cachekey "github.com/always-cache/stalier/pkg/cache-key"
)

// newReverseProxy creates the handler forwarding requests to the origin.
func newReverseProxy(originURL *url.URL, originHost string) *httputil.ReverseProxy {
	host := originURL.Host
	transport := http.DefaultTransport
	if originHost != "" {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				ServerName: originHost,
			},
		}
	}
	return &httputil.ReverseProxy{
		Director:  createDirector(originURL.Scheme, host, originHost),
		Transport: transport,
	}
}

func createDirector(scheme, host, hostHeader string) func(req *http.Request) {
	return func(req *http.Request) {
		req.URL.Scheme = scheme
		req.URL.Host = host
		if hostHeader != "" {
			req.Host = hostHeader
		} else {
			req.Host = host
		}
		// the policy is meant for this proxy only
		req.Header.Del(cachecontrol.HeaderName)
	}
}

type routerOptions struct {
	config  *config.Config
	store   responseStore
	log     zerolog.Logger
	warn    stalier.Logger
	tracer  trace.Tracer
	handler http.Handler
}

// newRouter returns the proxy router, i.e. the request rules and the cache in front of the origin.
func newRouter(opts routerOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(opts.config.Rules.Handler)
	keyGen := cachekey.NewCacheKeyer(opts.config.AppName).Key
	if opts.config.KeyBodyHash {
		keyGen = cachekey.WithBodyHash(keyGen)
	}
	r.Use(middleware.New(middleware.Config{
		AppName:     opts.config.AppName,
		KeyGen:      keyGen,
		Store:       opts.store,
		Log:         &opts.log,
		Logger:      opts.warn,
		Tracer:      opts.tracer,
		MaxBodySize: opts.config.MaxBodySize,
	}))
	r.Handle("/*", opts.handler)
	return r
}

// newAdminRouter serves metrics, the health check and cache purging.
// DELETE /cache/{method} removes all cached responses of the app for GET or POST requests.
// Purging is not available if purger is nil.
func newAdminRouter(purger cache.Purger, keyer cachekey.CacheKeyer) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Delete("/cache/{method}", func(w http.ResponseWriter, r *http.Request) {
		if purger == nil {
			writeJSON(w, http.StatusNotImplemented, map[string]any{"error": "store does not support purging"})
			return
		}
		method := strings.ToUpper(chi.URLParam(r, "method"))
		if method != http.MethodGet && method != http.MethodPost {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "method must be GET or POST"})
			return
		}
		prefix := keyer.MethodPrefix(method)
		purged, err := cache.PurgePrefix(r.Context(), purger, prefix)
		if err != nil {
			log.Error().Err(err).Str("prefix", prefix).Msg("Could not purge cache")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not purge cache", "purged": purged})
			return
		}
		log.Info().Str("prefix", prefix).Int("purged", purged).Msg("Purged cache")
		writeJSON(w, http.StatusOK, map[string]any{"purged": purged})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
