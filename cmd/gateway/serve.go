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

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"invoicing-system/config"
	"invoicing-system/internal/database"
	"invoicing-system/internal/events"
	"invoicing-system/internal/gateway/handlers"
	"invoicing-system/internal/health"
	"invoicing-system/internal/logger"
	"invoicing-system/internal/pdf"
	clienthandler "invoicing-system/internal/services/client/handler"
	invoicehandler "invoicing-system/internal/services/invoice/handler"
	quotationhandler "invoicing-system/internal/services/quotation/handler"
	settingshandler "invoicing-system/internal/services/settings/handler"
	userhandler "invoicing-system/internal/services/user/handler"
	sysutils "invoicing-system/internal/utils"
)

const (
	healthInterval  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newMigrateCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewConnection(cfg.DB.DSN)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			return runMigrate(db)
		},
	}
}

func runMigrate(db *gorm.DB) error {
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log := logger.WithComponent("migrate")
	log.Info().Msg("schema is up to date")
	return nil
}

func newServeCmd(cfg config.Config) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "migrate the schema before serving")
	return cmd
}

// buildRouterDeps wires services and HTTP handlers. redisClient may be nil.
func buildRouterDeps(cfg config.Config, db *gorm.DB, redisClient *redis.Client, checker handlers.HealthChecker) routerDeps {
	production := cfg.App.IsProduction()

	var publisher events.Publisher = events.NopPublisher{}
	if redisClient != nil {
		publisher = events.NewRedisPublisher(redisClient)
	}

	tokens := sysutils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	settings := settingshandler.NewSettingsHandler(db)
	quotations := quotationhandler.NewQuotationHandler(db, settings, publisher)
	invoices := invoicehandler.NewInvoiceHandler(db, settings, publisher)
	renderer := pdf.NewRenderer()

	return routerDeps{
		rateLimit:  cfg.App.RateLimit,
		tokens:     tokens,
		users:      handlers.NewUserHTTPHandler(userhandler.NewUserHandler(db, redisClient, tokens), production),
		clients:    handlers.NewClientHTTPHandler(clienthandler.NewClientHandler(db), production),
		settings:   handlers.NewSettingsHTTPHandler(settings, production),
		quotations: handlers.NewQuotationHTTPHandler(quotations, invoices, settings, renderer, production),
		invoices:   handlers.NewInvoiceHTTPHandler(invoices, settings, renderer, production),
		health:     handlers.NewHealthHTTPHandler(checker),
	}
}

func serve(ctx context.Context, cfg config.Config, migrate bool) error {
	log := logger.WithComponent("serve")
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if migrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	checks := []health.Check{{Name: "database", Probe: sqlDB.PingContext}}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, events and caching disabled")
		} else {
			defer redisClient.Close()
			checks = append(checks, health.Check{Name: "redis", Probe: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}})
		}
	}

	checker := health.NewChecker(checks...)
	router, err := newRouter(buildRouterDeps(cfg, db, redisClient, checker))
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", ":"+cfg.App.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	grpcServer := checker.NewGRPCServer()
	go func() {
		log.Info().Str("port", cfg.App.GRPCPort).Msg("gRPC health service listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC server stopped")
		}
	}()
	go checker.Watch(ctx, healthInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.App.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.HTTPPort).Str("env", cfg.App.Environment).Msg("HTTP gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			grpcServer.Stop()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	grpcServer.GracefulStop()
	return srv.Shutdown(shutdownCtx)
}
