// Package middleware caches the responses of HTTP handlers with stale-while-revalidate.
//
// Clients opt in per request with the X-Stalier-Cache-Control header, e.g.
//
//	X-Stalier-Cache-Control: s-maxage=60, stale-while-revalidate=600
//
// Requests without the header are passed through untouched.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/always-cache/stalier"
	"github.com/always-cache/stalier/cache"
	cachecontrol "github.com/always-cache/stalier/pkg/cache-control"
	cachekey "github.com/always-cache/stalier/pkg/cache-key"
	"github.com/always-cache/stalier/pkg/metrics"
	serializer "github.com/always-cache/stalier/pkg/response-serializer"
	tee "github.com/always-cache/stalier/pkg/response-writer-tee"
	"github.com/always-cache/stalier/rfc9211"
)

const (
	StatusHeaderName      = "X-Cache-Status"
	CacheStatusHeaderName = "Cache-Status"
	// name used in the Cache-Status header
	cacheName = "Stalier"
	// DefaultMaxBodySize is the request body limit used if none is configured.
	DefaultMaxBodySize = 10 << 20
)

var (
	unexpectedErrorBody, _ = json.Marshal(map[string]string{
		"error": "unexpected error while processing cache",
	})
	bodyTooLargeBody, _ = json.Marshal(map[string]string{
		"error": "request body too large",
	})
)

type Config struct {
	// Name of the application, used as the key prefix.
	AppName string
	// Storage for the cached responses.
	Store cache.Store[serializer.Response]
	// Optional cache key generator.
	// Defaults to `<AppName>-<METHOD>-<uri>`, see cachekey.CacheKeyer.
	KeyGen cachekey.KeyGenFunc
	// Logger to use for requests. The global zerolog logger is used if nil.
	Log *zerolog.Logger
	// Logger for cache failures. Defaults to warnings on Log.
	Logger stalier.Logger
	// Optional tracer, spans are only recorded if set.
	Tracer trace.Tracer
	// Max size in bytes of request bodies buffered for cached requests.
	// Defaults to DefaultMaxBodySize.
	MaxBodySize int64
}

// HandlerError is returned by the producer when the handler did not respond with a success.
// Such responses are sent to the client as they are, but never cached.
type HandlerError struct {
	Response serializer.Response
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler responded with status %d", e.Response.StatusCode)
}

type stalierMiddleware struct {
	next        http.Handler
	store       cache.Store[serializer.Response]
	keyGen      cachekey.KeyGenFunc
	log         zerolog.Logger
	warn        stalier.Logger
	tracer      trace.Tracer
	maxBodySize int64
}

// New returns the caching middleware, usable e.g. with chi's `Router.Use`.
func New(config Config) func(http.Handler) http.Handler {
	logger := log.Logger
	if config.Log != nil {
		logger = *config.Log
	}
	logger = logger.With().Str("app", config.AppName).Logger()

	warn := config.Logger
	if warn == nil {
		warn = stalier.NewZerologLogger(logger)
	}
	keyGen := config.KeyGen
	if keyGen == nil {
		keyGen = cachekey.NewCacheKeyer(config.AppName).Key
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer("stalier")
	}
	maxBodySize := config.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return &stalierMiddleware{
			next:        next,
			store:       config.Store,
			keyGen:      keyGen,
			log:         logger,
			warn:        countingLogger{warn},
			tracer:      tracer,
			maxBodySize: maxBodySize,
		}
	}
}

// ServeHTTP implements the http.Handler interface.
func (m *stalierMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		m.next.ServeHTTP(w, r)
		return
	}
	policy, present, ok := cachecontrol.RequestPolicy(r)
	if !present {
		m.next.ServeHTTP(w, r)
		return
	}
	if !ok {
		m.log.Trace().Str("header", r.Header.Get(cachecontrol.HeaderName)).Msg("Could not parse cache policy")
		w.Header().Set(StatusHeaderName, string(stalier.StatusNoCache))
		metrics.RecordResult(string(stalier.StatusNoCache))
		m.next.ServeHTTP(w, r)
		return
	}
	m.serveCached(w, r, policy)
}

func (m *stalierMiddleware) serveCached(w http.ResponseWriter, r *http.Request, policy cachecontrol.Policy) {
	ctx, span := m.tracer.Start(r.Context(), "stalier.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.RequestURI()),
			attribute.Int("stalier.max_age", policy.MaxAge),
			attribute.Int("stalier.stale_while_revalidate", policy.StaleWhileRevalidate),
		))
	defer span.End()

	// the body may be needed again for revalidation
	body, err := readBody(w, r, m.maxBodySize)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		m.log.Debug().Int64("limit", tooLarge.Limit).Msg("Request body too large")
		m.sendErrorStatus(w, span, err, http.StatusRequestEntityTooLarge, bodyTooLargeBody)
		return
	}
	if err != nil {
		m.log.Error().Err(err).Msg("Could not read request body")
		m.sendError(w, span, err)
		return
	}
	// key generators may read the body as well
	r.Body = io.NopCloser(bytes.NewReader(body))
	// the original request must not be touched once the handler has returned
	base := r.Clone(context.Background())
	routeCtx := copyRouteContext(r.Context())

	key := stalier.KeyFunc(func() string {
		key := m.keyGen(r)
		span.SetAttributes(attribute.String("stalier.key", key))
		return key
	})
	producer := func(ctx context.Context) (serializer.Response, error) {
		if routeCtx != nil {
			ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
		}
		req := base.Clone(ctx)
		req.Body = io.NopCloser(bytes.NewReader(body))
		saver := tee.NewResponseSaver(nil)
		m.next.ServeHTTP(saver, req)
		res := saver.Response()
		if !res.Successful() {
			return res, &HandlerError{Response: res}
		}
		return res, nil
	}

	result, err := stalier.WithStaleWhileRevalidate(ctx, producer, stalier.Options[serializer.Response]{
		MaxAge:               policy.MaxAge,
		StaleWhileRevalidate: policy.StaleWhileRevalidate,
		Key:                  key,
		Store:                m.store,
		Logger:               m.warn,
	})

	var handlerErr *HandlerError
	switch {
	case errors.As(err, &handlerErr):
		span.SetAttributes(attribute.Int("http.status_code", handlerErr.Response.StatusCode))
		span.SetStatus(codes.Error, handlerErr.Error())
		m.send(w, r, span, handlerErr.Response, stalier.StatusNoCache)
	case err != nil:
		m.log.Error().Err(err).Msg("Could not process cache")
		m.sendError(w, span, err)
	default:
		span.SetAttributes(attribute.Int("http.status_code", result.Data.StatusCode))
		span.SetStatus(codes.Ok, "")
		m.send(w, r, span, result.Data, result.Status)
	}
}

func (m *stalierMiddleware) send(w http.ResponseWriter, r *http.Request, span trace.Span, res serializer.Response, status stalier.Status) {
	span.SetAttributes(attribute.String("stalier.status", string(status)))
	cs := cacheStatus(status)
	extra := http.Header{}
	extra.Set(StatusHeaderName, string(status))
	extra.Set(CacheStatusHeaderName, cs.String())
	if _, err := res.WriteTo(w, extra); err != nil {
		m.log.Warn().Err(err).Msg("Could not write response body to client")
	}
	metrics.RecordResult(string(status))
	m.log.Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("status", string(status)).
		Int("code", res.StatusCode).
		Msg("Sending response to client")
}

func (m *stalierMiddleware) sendError(w http.ResponseWriter, span trace.Span, err error) {
	m.sendErrorStatus(w, span, err, http.StatusInternalServerError, unexpectedErrorBody)
}

func (m *stalierMiddleware) sendErrorStatus(w http.ResponseWriter, span trace.Span, err error, code int, body []byte) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("stalier.status", string(stalier.StatusNoCache)))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(StatusHeaderName, string(stalier.StatusNoCache))
	w.WriteHeader(code)
	w.Write(body)
	metrics.RecordResult(string(stalier.StatusNoCache))
}

// cacheStatus maps the result status to the Cache-Status header.
func cacheStatus(status stalier.Status) rfc9211.CacheStatus {
	cs := rfc9211.CacheStatus{Cache: cacheName}
	switch status {
	case stalier.StatusHit:
		cs.Hit()
	case stalier.StatusStale:
		cs.Hit()
		cs.Detail = "stale"
	case stalier.StatusMiss:
		cs.Forward(rfc9211.FwdReasonMiss)
		// written to the store in the background
		cs.Stored = true
	default:
		cs.Forward(rfc9211.FwdReasonBypass)
	}
	return cs
}

// copyRouteContext snapshots the chi routing state of the request.
// chi recycles it once the request is done, but revalidation may run later.
func copyRouteContext(ctx context.Context) *chi.Context {
	rctx := chi.RouteContext(ctx)
	if rctx == nil {
		return nil
	}
	c := chi.NewRouteContext()
	c.Routes = rctx.Routes
	c.RoutePath = rctx.RoutePath
	c.RouteMethod = rctx.RouteMethod
	for i, key := range rctx.URLParams.Keys {
		c.URLParams.Add(key, rctx.URLParams.Values[i])
	}
	c.RoutePatterns = append(c.RoutePatterns, rctx.RoutePatterns...)
	return c
}

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()
	return io.ReadAll(body)
}

// countingLogger counts warnings before passing them on.
type countingLogger struct {
	next stalier.Logger
}

func (c countingLogger) Warn(message string) {
	metrics.RecordWarning()
	c.next.Warn(message)
}
