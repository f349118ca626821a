package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/menuqr/tableside/internal/auth"
	"github.com/menuqr/tableside/internal/catalog"
	"github.com/menuqr/tableside/internal/messaging"
	"github.com/menuqr/tableside/internal/orders"
	"github.com/menuqr/tableside/internal/reports"
	"github.com/menuqr/tableside/internal/restaurants"
	"github.com/menuqr/tableside/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := telemetry.NewLogger()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "tableside-server", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("tableside-server", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		logger.Error("REDIS_ADDR environment variable is required")
		os.Exit(1)
	}

	sessions := auth.NewRedisSessionStore(redisAddr)
	defer func() { _ = sessions.Close() }()

	if err := sessions.Ping(ctx); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer = messaging.NewProducer(brokers, messaging.TopicOrderCreated)
		defer func() { _ = producer.Close() }()
	}

	accounts := auth.NewAccountRepository(db)
	resolver := auth.NewResolver(sessions, accounts)

	restaurantRepo := restaurants.NewRestaurantRepository(db)
	catalogRepo := catalog.NewCatalogRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	reportRepo := reports.NewReportRepository(db)

	var publisher orders.EventPublisher
	if producer != nil {
		publisher = producer
	}
	orderService := orders.NewService(orderRepo, catalogRepo, restaurantRepo, publisher, logger)

	authHandler := auth.NewHandler(sessions, accounts, logger)
	restaurantHandler := restaurants.NewHandler(restaurantRepo, resolver, logger)
	catalogHandler := catalog.NewHandler(catalogRepo, restaurantRepo, resolver, logger)
	orderHandler := orders.NewHandler(orderService, resolver, logger)
	reportHandler := reports.NewHandler(reportRepo, resolver, logger)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("POST /auth/login", telemetry.WithHTTPRoute(authHandler.HandleLogin))
	mux.HandleFunc("POST /auth/logout", telemetry.WithHTTPRoute(authHandler.HandleLogout))

	mux.HandleFunc("POST /restaurants", telemetry.WithHTTPRoute(restaurantHandler.HandleCreate))
	mux.HandleFunc("PATCH /restaurants/{id}/status", telemetry.WithHTTPRoute(restaurantHandler.HandleSetStatus))
	mux.HandleFunc("GET /restaurants/{slug}/menu", telemetry.WithHTTPRoute(catalogHandler.HandleMenu))

	mux.HandleFunc("POST /menu/items", telemetry.WithHTTPRoute(catalogHandler.HandleCreateItem))
	mux.HandleFunc("PATCH /menu/items/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleUpdateItem))

	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandleCreate))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))
	mux.HandleFunc("GET /track/{code}", telemetry.WithHTTPRoute(orderHandler.HandleTrack))

	mux.HandleFunc("GET /reports/sales/daily", telemetry.WithHTTPRoute(reportHandler.HandleDailySales))
	mux.HandleFunc("GET /reports/sales/monthly", telemetry.WithHTTPRoute(reportHandler.HandleMonthlySales))
	mux.HandleFunc("GET /reports/peaks", telemetry.WithHTTPRoute(reportHandler.HandlePeaks))
	mux.HandleFunc("GET /reports/top-items", telemetry.WithHTTPRoute(reportHandler.HandleTopItems))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "tableside-server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting tableside server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
