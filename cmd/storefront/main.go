package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/blob"
	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/domain"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/metrics"
	"github.com/fjod/storefront/internal/poller"
	"github.com/fjod/storefront/internal/publisher"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/screen"
	"github.com/fjod/storefront/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const cartTTL = 24 * time.Hour

type submitter interface {
	screen.Submitter
	Close() error
}

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("storefront stopped")
	}
	log.Info("storefront exited")
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))
	if cfg.TracingEnabled {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
		otel.SetTracerProvider(tp)
		defer tp.Shutdown(context.Background())
		log.Info("tracing enabled")
	}

	// MongoDB: documents and images
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())
	log.WithField("database", cfg.MongoDBName).Info("connected to MongoDB")

	store := repository.NewMongoStore(mongoDB, log)
	if err := store.CreateIndexes(ctx, domain.PostsCollection, domain.UsersCollection, domain.ProductsCollection); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	blobs, err := blob.NewGridFS(mongoDB, cfg.PublicBaseURL, log)
	if err != nil {
		return fmt.Errorf("open image bucket: %w", err)
	}

	// Redis: carts
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	log.Info("redis ping succeeded")

	carts := service.NewCartService(cache.NewRedisCache(redisClient, cartTTL), log)

	g, ctx := errgroup.WithContext(ctx)

	var sub submitter
	if cfg.KafkaEnabled() {
		sub = publisher.NewKafkaSubmitter(cfg.KafkaBrokers, cfg.CheckoutTopic, log)

		p := poller.NewPoller(carts, log, cfg.CheckoutTopic, cfg.KafkaBrokers...)
		defer p.Close()
		g.Go(func() error {
			p.Run(ctx)
			return nil
		})
		log.WithField("brokers", cfg.KafkaBrokers).Info("publishing checkouts to Kafka")
	} else {
		sub = publisher.NewSimulatedSubmitter(cfg.CheckoutDelay, log)
		log.Warn("no Kafka brokers configured, checkouts are simulated")
	}
	defer sub.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg)

	ping := func(ctx context.Context) error {
		if err := mongoDB.Client().Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongodb: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.Handler = h.NewRouter(h.RouterConfig{
		Carts:              carts,
		Store:              store,
		Blobs:              blobs,
		Submitter:          sub,
		Metrics:            m,
		Log:                log,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		MaxUploadSize:      cfg.MaxUploadSize,
		Ping:               ping,
		StreamsDone:        h.StreamsDoneOnShutdown(srv),
	})

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPCPort, err)
	}

	g.Go(func() error {
		log.WithField("port", cfg.HTTPPort).Info("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.WithField("port", cfg.GRPCPort).Info("gRPC health server starting")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		reportHealth(ctx, healthServer, ping, log)
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		healthServer.Shutdown()
		grpcServer.GracefulStop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// reportHealth keeps the gRPC health status in line with the backing stores until ctx is done.
func reportHealth(ctx context.Context, hs *health.Server, ping func(context.Context) error, log logrus.FieldLogger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := ping(pingCtx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if ctx.Err() == nil {
				log.WithError(err).Warn("health check failed")
			}
		}
		cancel()
		if status != last {
			hs.SetServingStatus("", status)
			last = status
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
