package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/application"
	cartdomain "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	cartmessaging "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/infrastructure/messaging"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/infrastructure/persistence/memory"
	cartmysql "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/infrastructure/persistence/mysql"
	cartredis "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/infrastructure/persistence/redis"
	carthttp "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/interfaces/http"
	catalogapp "github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/application"
	cataloggateway "github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/infrastructure/gateway"
	cataloghttp "github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/interfaces/http"
	contactapp "github.com/deogratias228/espoir-medical-ecommerce/internal/contact/application"
	contactgateway "github.com/deogratias228/espoir-medical-ecommerce/internal/contact/infrastructure/gateway"
	contacthttp "github.com/deogratias228/espoir-medical-ecommerce/internal/contact/interfaces/http"
	orderapp "github.com/deogratias228/espoir-medical-ecommerce/internal/order/application"
	orderdomain "github.com/deogratias228/espoir-medical-ecommerce/internal/order/domain"
	ordermessaging "github.com/deogratias228/espoir-medical-ecommerce/internal/order/infrastructure/messaging"
	orderhttp "github.com/deogratias228/espoir-medical-ecommerce/internal/order/interfaces/http"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/cache"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/config"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/db"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/httpclient"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/metrics"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/middleware"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/mq"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/ratelimit"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/trace"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

var configPath = flag.String("config", "configs/storefront/config.toml", "config file path")

const shutdownTimeout = 15 * time.Second

// errShutdown 收到退出信号，用于结束 errgroup 中的其他任务
var errShutdown = errors.New("shutdown requested")

func main() {
	flag.Parse()
	ctx := context.Background()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	logger.Info(ctx, "Starting storefront", "version", cfg.Version, "environment", cfg.Environment)

	// 价格与总额以 JSON 数字输出
	decimal.MarshalJSONWithoutQuotes = true

	// 3. Tracing
	shutdownTracer := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		shutdownTracer, err = trace.InitTracer(cfg.ServiceName, cfg.Tracing.CollectorEndpoint, cfg.Tracing.SamplingRate)
		if err != nil {
			logger.Fatal(ctx, "Failed to init tracer", "error", err)
		}
	}

	// 4. Metrics
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(nil); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	collector := metrics.NewDefaultCollector(m)

	// 5. Infrastructure
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled() {
		redisCache, err = cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to connect redis", "error", err)
		}
	}

	var producer *mq.KafkaProducer
	if cfg.Kafka.Enabled() {
		producer, err = mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
			Async:        true,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to create kafka producer", "error", err)
		}
	}

	repo, database, err := snapshotRepository(ctx, cfg, redisCache)
	if err != nil {
		logger.Fatal(ctx, "Failed to init cart storage", "store", cfg.Cart.Store, "error", err)
	}

	// 6. Application
	links := orderapp.NewLinkBuilder(cfg.Order.WhatsAppNumber, cfg.Order.Currency)
	cartLinks := application.Links{Order: links, PublicBaseURL: cfg.Order.PublicBaseURL}

	var cartPublisher cartdomain.EventPublisher = cartmessaging.NewNoopPublisher()
	var orderPublisher orderdomain.EventPublisher
	if producer != nil {
		cartPublisher = cartmessaging.NewKafkaPublisher(producer)
		orderPublisher = ordermessaging.NewKafkaEventPublisher(producer)
	}

	registry, err := application.NewRegistry(cfg.Cart.MaxSessions, application.StoreOptions{
		Repo:           repo,
		Publisher:      cartPublisher,
		Topic:          cfg.Kafka.CartTopic,
		Links:          cartLinks,
		Metrics:        collector,
		PersistTimeout: cfg.Cart.PersistTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to create cart registry", "error", err)
	}

	remote := httpclient.NewClient(httpclient.ClientConfig{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
		Retries: cfg.Catalog.Retries,
	})
	catalogClient, err := cataloggateway.New(ctx, remote, cataloggateway.Config{
		CacheTTL:        cfg.Catalog.CacheTTL,
		BreakerFailures: cfg.Catalog.BreakerFailures,
		BreakerTimeout:  cfg.Catalog.BreakerTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to create catalog client", "error", err)
	}
	catalogQuery := catalogapp.NewCatalogQueryService(catalogClient, collector)
	search := catalogapp.NewSearchCoordinator(catalogQuery, catalogapp.SearchOptions{
		Debounce:  cfg.Search.Debounce,
		MinLength: cfg.Search.MinLength,
		Metrics:   collector,
	})
	contactService := contactapp.NewContactService(contactgateway.NewSender(remote), collector)
	handoff := orderapp.NewHandoffService(links, orderPublisher, cfg.Kafka.OrderTopic, collector)

	// 7. Interfaces
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(cfg.HTTP.AllowOrigins),
		middleware.MetricsMiddleware(collector),
	)
	if cfg.Tracing.Enabled {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(middleware.SessionMiddleware(cfg.Session))
	if cfg.RateLimit.Enabled && redisCache != nil {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		router.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit, "http"))
	}
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	carthttp.NewCartHandler(registry, cartLinks, links).RegisterRoutes(&router.RouterGroup)
	cataloghttp.NewCatalogHandler(catalogQuery, search, registry, links, cfg.Order.PublicBaseURL).RegisterRoutes(&router.RouterGroup)
	contacthttp.NewContactHandler(contactService).RegisterRoutes(&router.RouterGroup)
	orderhttp.NewOrderHandler(registry, handoff).RegisterRoutes(&router.RouterGroup)

	// 事件流等长连接在关闭时随 baseCtx 一起结束
	baseCtx, cancelBase := context.WithCancel(ctx)
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	healthSrv := health.NewServer()
	grpcSrv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			middleware.GRPCRecoveryInterceptor(),
			middleware.GRPCLoggingInterceptor(),
		),
	)
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)
	healthSrv.SetServingStatus(cfg.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewHTTPServer(fmt.Sprintf(":%d", cfg.Metrics.Port), cfg.Metrics.Path)
	}

	// 8. Start
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(ctx, "HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.GRPC.Enabled {
		g.Go(func() error {
			addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info(ctx, "gRPC server starting", "addr", addr)
			return grpcSrv.Serve(lis)
		})
	}

	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info(ctx, "Metrics server starting", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				collector.SetCartStores(registry.Len())
			}
		}
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			logger.Info(ctx, "Shutting down servers...", "signal", sig.String())
		case <-gctx.Done():
			logger.Info(ctx, "Context cancelled, shutting down...")
		}

		healthSrv.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		cancelBase()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
		grpcSrv.GracefulStop()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error(ctx, "Server exited with error", "error", err)
	}

	// 9. Cleanup：先写完所有购物车快照，再关闭存储
	cleanupCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := registry.Close(cleanupCtx); err != nil {
		logger.Error(ctx, "Failed to flush cart stores", "error", err)
	}
	if err := catalogClient.Close(); err != nil {
		logger.Warn(ctx, "Failed to close catalog cache", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn(ctx, "Failed to close kafka producer", "error", err)
		}
	}
	if redisCache != nil {
		_ = redisCache.Close()
	}
	if database != nil {
		_ = database.Close()
	}
	if err := shutdownTracer(cleanupCtx); err != nil {
		logger.Warn(ctx, "Failed to shutdown tracer", "error", err)
	}
	logger.Info(ctx, "Storefront stopped")
}

// snapshotRepository 按 cart.store 选择购物车快照存储
func snapshotRepository(ctx context.Context, cfg *config.Config, redisCache *cache.RedisCache) (cartdomain.SnapshotRepository, *db.DB, error) {
	switch cfg.Cart.Store {
	case "redis":
		if redisCache == nil {
			return nil, nil, errors.New("redis is not configured")
		}
		return cartredis.NewSnapshotRedisRepository(redisCache.GetClient(), cfg.Cart.TTL), nil, nil
	case "database":
		database, err := db.Init(db.Config{
			Driver:             cfg.Database.Driver,
			DSN:                cfg.Database.DSN,
			MaxOpenConns:       cfg.Database.MaxOpenConns,
			MaxIdleConns:       cfg.Database.MaxIdleConns,
			ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
			LogEnabled:         cfg.Database.LogEnabled,
			SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		})
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := cartmysql.AutoMigrate(database.DB); err != nil {
				_ = database.Close()
				return nil, nil, err
			}
			logger.Info(ctx, "Cart snapshot table migrated")
		}
		return cartmysql.NewSnapshotRepository(database.DB), database, nil
	default:
		return memory.NewSnapshotRepository(), nil, nil
	}
}
