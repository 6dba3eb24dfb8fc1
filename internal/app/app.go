package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/internal/profile"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/wishlist"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "storefront"

// Version is stamped at build time.
var Version = "0.1.0"

// App wires together all dependencies of the storefront client.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	Storage  storage.Storage
	Sessions *session.Store
	Gateway  *gateway.Gateway
	API      *api.Client
	Auth     *auth.Service
	Wishlist *wishlist.Loader
	Profile  *profile.Controller
	Health   *health.Handler

	pinger         *httpclient.Client
	producer       *pkgkafka.Producer
	metricsServer  *http.Server
	tracerShutdown func(context.Context) error
	stopBackground context.CancelFunc
}

// NewApp creates the application, restoring any persisted session.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, notify auth.Notifier, nav auth.Navigator) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.Setup(initCtx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	st, err := OpenStorage(initCtx, cfg)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}
	logger.Debug("client storage opened", slog.String("backend", string(cfg.Backend())))

	sessions := session.NewStore(st, session.WithTTL(cfg.SessionTTL), session.WithLogger(logger))
	if sess, ok := sessions.Restore(initCtx); ok {
		logger.Debug("session restored", slog.String("user_id", sess.User.ID))
	}

	gw := gateway.New(cfg.APIBaseURL, newDoer(cfg, logger), gateway.TokenFunc(sessions.Token),
		gateway.WithLogger(logger),
		gateway.WithTracer(tracing.Tracer("gateway")),
	)
	client := api.NewClient(gw)

	var (
		producer *pkgkafka.Producer
		recorder event.Recorder = event.Nop{}
	)
	if cfg.KafkaEnabled() {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		recorder = event.NewKafkaRecorder(producer, logger)
		logger.Debug("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		Storage:  st,
		Sessions: sessions,
		Gateway:  gw,
		API:      client,
		Auth: auth.NewService(client, sessions, notify, nav,
			auth.WithLogger(logger), auth.WithRecorder(recorder)),
		Wishlist: wishlist.NewLoader(client,
			wishlist.WithPageSize(cfg.WishlistPageSize),
			wishlist.WithLogger(logger),
			wishlist.WithRecorder(recorder)),
		Profile: profile.NewController(client, sessions,
			profile.WithExclusiveEdit(),
			profile.WithLogger(logger),
			profile.WithRecorder(recorder),
			profile.WithNotifier(notify)),
		Health:         health.NewHandler(),
		pinger:         httpclient.New(httpclient.Config{Timeout: cfg.HTTPTimeout}),
		producer:       producer,
		tracerShutdown: tracerShutdown,
	}
	a.registerChecks()

	// The wishlist follows the session: a new token drops the previous
	// user's items and loads the new user's first page.
	bgCtx, stop := context.WithCancel(ctx)
	a.stopBackground = stop
	a.Wishlist.BindSession(bgCtx, sessions)

	return a, nil
}

// newDoer builds the single-attempt HTTP client, behind a circuit breaker
// unless disabled.
func newDoer(cfg *config.Config, logger *slog.Logger) httpclient.Doer {
	base := httpclient.New(httpclient.Config{
		Timeout:         cfg.HTTPTimeout,
		MaxConnsPerHost: httpclient.DefaultConfig().MaxConnsPerHost,
		RateLimit:       cfg.RateLimitRPS,
		RateBurst:       cfg.RateLimitBurst,
	})
	if !cfg.BreakerEnabled {
		return base
	}
	return httpclient.NewCircuitBreakerClient(base, httpclient.CircuitBreakerConfig{
		Name:         "storefront-api",
		MaxRequests:  cfg.BreakerMaxRequests,
		Interval:     cfg.BreakerInterval,
		Timeout:      cfg.BreakerTimeout,
		FailureRatio: cfg.BreakerFailureRatio,
		MinRequests:  cfg.BreakerMinRequests,
	}, logger)
}

func (a *App) registerChecks() {
	a.Health.RegisterCritical("storage", a.Storage.Ping)
	a.Health.RegisterCritical("api", a.pingAPI)
	if a.producer != nil {
		a.Health.RegisterNonCritical("kafka", a.producer.Ping)
	}
}

// pingAPI succeeds when the API host answers at all; the status is not
// inspected since not every deployment exposes a health route.
func (a *App) pingAPI(ctx context.Context) error {
	resp, err := a.pinger.Get(ctx, a.Gateway.BaseURL()+"/health")
	if err != nil {
		return fmt.Errorf("api unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

// StartMetrics serves /metrics on METRICS_ADDR when configured.
func (a *App) StartMetrics() {
	if a.cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", a.Health.LivenessHandler())
	mux.HandleFunc("/health/ready", a.Health.ReadinessHandler())

	a.metricsServer = &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		a.logger.Info("starting metrics server", slog.String("addr", a.cfg.MetricsAddr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()
}

// Close stops all components in order:
// 1. wishlist loader (late answers ignored, background loads cancelled)
// 2. metrics server
// 3. tracer (flush pending spans)
// 4. Kafka producer
// 5. client storage
func (a *App) Close() error {
	var errs []error

	a.Wishlist.Close()
	a.stopBackground()
	a.Wishlist.Wait()

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka producer close: %w", err))
		}
	}

	if err := a.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage close: %w", err))
	}

	for _, err := range errs {
		a.logger.Error("shutdown error", slog.String("error", err.Error()))
	}
	return errors.Join(errs...)
}
