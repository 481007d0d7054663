package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinpanel/internal/aggregator"
	"coinpanel/internal/cache"
	"coinpanel/internal/config"
	"coinpanel/internal/db"
	"coinpanel/internal/handler"
	"coinpanel/internal/job"
	"coinpanel/internal/normalize"
	"coinpanel/internal/registry"
	"coinpanel/internal/repository"
	"coinpanel/internal/requestlog"
	"coinpanel/internal/retry"
	"coinpanel/internal/stream"
	"coinpanel/internal/transport"
	"coinpanel/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	dialRedisFunc          = cache.Dial
	initTracerFunc         = tracing.InitTracer
	newArticleRepoFunc     = repository.NewArticleRepository
	newStreamClientFunc    = stream.NewClient
	startPollerFunc        = func(p *job.Poller, ctx context.Context) { go p.Start(ctx) }
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Coinpanel API
// @version         1.0
// @description     Resilient multi-source crypto data aggregation service.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	initPostgresFunc(ctx)

	var store cache.Store
	if client := dialRedisFunc(ctx, cfg.RedisURL); client != nil {
		store = cache.NewRedis(client)
	} else {
		store = cache.NewMemory()
	}

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx, cfg.TracingEnabled, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// News archive, optional on DATABASE_URL
	var articleRepo *repository.ArticleRepository
	if db.Pool != nil {
		articleRepo = newArticleRepoFunc(db.Pool, tracer)
		if err := articleRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	// Source registry and transports
	reg := registry.New(registry.Options{
		BackendBaseURL:   cfg.BackendBaseURL,
		CryptoCompareKey: cfg.CryptoCompareKey,
		CoinMarketCapKey: cfg.CoinMarketCapKey,
		NewsDataKey:      cfg.NewsDataKey,
		CryptoPanicKey:   cfg.CryptoPanicKey,
	})
	direct := transport.NewDirect(time.Duration(cfg.RequestTimeoutMs) * time.Millisecond)
	relay := transport.NewRelay(cfg.RelayEndpoints, direct)

	// Aggregation service
	requests := requestlog.NewBuffer(requestlog.DefaultCapacity)
	agg := aggregator.New(
		tracer,
		reg,
		normalize.NewTable(),
		store,
		retry.New(cfg.MaxRetries),
		direct,
		relay,
		requests,
		aggregator.Options{
			CacheTTL:  time.Duration(cfg.CacheTTLMs) * time.Millisecond,
			NewsLimit: cfg.NewsLimit,
		},
	)

	var archive job.ArticleArchiver
	if articleRepo != nil {
		agg.SetArchive(articleRepo)
		archive = articleRepo
	}

	// Realtime stream, optional on STREAM_URL
	var streamClient *stream.Client
	var streamStatus handler.StreamStatus
	var updates job.UpdateSource
	if cfg.StreamURL != "" {
		streamClient = newStreamClientFunc(cfg.StreamURL)
		streamStatus = streamClient
		updates = streamClient
	}

	// Start background poller (stopped by ctx cancel)
	poller := job.NewPoller(tracer, agg, archive, updates, cfg.PollSecs, cfg.NewsLimit)
	startPollerFunc(poller, ctx)

	if streamClient != nil {
		streamClient.Connect(ctx)
	}

	// Create handlers and routes
	h := handler.New(tracer, agg, handler.NewRegistrySources(reg), streamStatus)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("coinpanel"))

	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	if streamClient != nil {
		streamClient.Disconnect()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
