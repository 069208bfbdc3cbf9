package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/payrolldesk/internal/auth"
	"github.com/rpattn/payrolldesk/internal/config"
	"github.com/rpattn/payrolldesk/internal/db"
	"github.com/rpattn/payrolldesk/internal/employees"
	"github.com/rpattn/payrolldesk/internal/export"
	"github.com/rpattn/payrolldesk/internal/ingestion"
	"github.com/rpattn/payrolldesk/internal/logging"
	"github.com/rpattn/payrolldesk/internal/metrics"
	"github.com/rpattn/payrolldesk/internal/middleware"
	"github.com/rpattn/payrolldesk/internal/repository"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml and .env")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	logger.WithFields(logrus.Fields{"config": cfg.Source, "env_files": cfg.EnvFiles}).Info("configuration loaded")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database, logger); err != nil {
		logger.WithError(err).Fatal("failed to run migrations")
	}

	// Create repositories
	tenantRepo := repository.NewTenantRepository(conn.Pool)
	userRepo := repository.NewUserRepository(conn.Pool)
	employeeRepo := repository.NewEmployeeRepository(conn.Pool)
	attendanceRepo := repository.NewAttendanceRepository(conn.Pool)
	logRepo := repository.NewIngestionLogRepository(conn.Pool)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ingestionService := ingestion.NewService(
		employeeRepo,
		attendanceRepo,
		logRepo,
		conn,
		ingestion.WithBatchSize(cfg.Upload.BatchSize),
		ingestion.WithMetrics(metrics.NewUploads(registry)),
	)
	employeeService := employees.NewService(employeeRepo)
	exportService := export.NewService(employeeRepo)

	tenantScoped := func(h http.Handler) http.Handler {
		return middleware.Authenticate(userRepo)(
			middleware.RequireTenant(auth.NewResolver(tenantRepo))(h),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/upload/", tenantScoped(ingestion.NewHTTPHandler(ingestionService, cfg.Server.MaxUploadBytes)))
	mux.Handle("/api/employees", tenantScoped(employees.NewHTTPHandler(employeeService)))
	mux.Handle("/api/employees/export", tenantScoped(export.NewHTTPHandler(exportService)))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := conn.Pool.Ping(pingCtx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(middleware.LoggingMiddleware(logger)(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("starting payroll API")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("server forced to shutdown")
	}

	logger.Info("server exited")
}
