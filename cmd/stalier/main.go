package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/always-cache/stalier"
	"github.com/always-cache/stalier/internal/config"
	cachekey "github.com/always-cache/stalier/pkg/cache-key"
)

var (
	// CLI flags
	configFlag         string
	portFlag           int
	adminPortFlag      int
	originFlag         string
	hostFlag           string
	storeFlag          string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFlag, "config", "", "Config file (YAML)")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to proxy to (overrides config)")
	flag.StringVar(&hostFlag, "host", "", "Hostname of origin (overrides config)")
	flag.IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	flag.IntVar(&adminPortFlag, "admin-port", 9090, "Port for metrics and health check")
	flag.StringVar(&storeFlag, "store", "", "Store type: memory, sqlite, bigcache, redis or tiered (overrides config)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Stopped")
	}
}

// loadConfig reads the config file, if any, and applies the CLI flags on top.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if configFlag != "" {
		loaded, err := config.Load(configFlag)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if originFlag != "" {
		cfg.Origin = originFlag
	}
	if hostFlag != "" {
		cfg.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if storeFlag != "" {
		cfg.Store.Type = storeFlag
	}
	if logFilenameFlag != "" {
		cfg.LogFile = logFilenameFlag
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

func setupLogging(cfg *config.Config) {
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := []io.Writer{zerolog.ConsoleWriter{Out: os.Stdout}}
	if cfg.LogFile != "" {
		if logFileOutput, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()
}

func run(ctx context.Context, cfg *config.Config) error {
	originURL, err := url.Parse(cfg.Origin)
	if err != nil {
		return fmt.Errorf("could not parse origin url: %w", err)
	}

	store, purger, closeStore, err := newStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("could not create %s store: %w", cfg.Store.Type, err)
	}
	defer closeStore()

	tracer, shutdownTracing, err := newTracer(cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	warn, syncWarn, err := newWarnLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer syncWarn()

	proxy := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: newRouter(routerOptions{
			config:  cfg,
			store:   store,
			log:     log.Logger,
			warn:    warn,
			tracer:  tracer,
			handler: newReverseProxy(originURL, cfg.Host),
		}),
	}
	admin := &http.Server{
		Addr:    fmt.Sprintf(":%d", adminPortFlag),
		Handler: newAdminRouter(purger, cachekey.NewCacheKeyer(cfg.AppName)),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{proxy, admin} {
		srv := srv
		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(proxy.Shutdown(shutdownCtx), admin.Shutdown(shutdownCtx))
	})

	log.Info().Msgf("Proxying port %v to %s (with hostname '%s'), %s store", cfg.Port, originURL.String(), cfg.Host, cfg.Store.Type)
	return g.Wait()
}

// newTracer returns the tracer for the middleware spans.
// Spans are printed to stdout if enabled, otherwise nothing is recorded.
func newTracer(cfg config.TracingConfig) (trace.Tracer, func(), error) {
	if !cfg.Stdout {
		return tracenoop.NewTracerProvider().Tracer("stalier"), func() {}, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	if err != nil {
		return nil, nil, fmt.Errorf("could not create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Tracer("stalier"), func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Could not shut down tracing")
		}
	}, nil
}

// newWarnLogger returns the logger for cache failures.
// A nil logger means the request logger is used.
func newWarnLogger(name string) (stalier.Logger, func(), error) {
	if name != "zap" {
		return nil, func() {}, nil
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, fmt.Errorf("could not create zap logger: %w", err)
	}
	return stalier.NewZapLogger(logger), func() { _ = logger.Sync() }, nil
}
