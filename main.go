package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrops-br/product-catalog-api/internal/app/service"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/database"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/repository/memory"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/repository/relational"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "product-catalog-api",
	Short:         "Product catalog HTTP API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

// product-catalog-api serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

// product-catalog-api migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the products table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger := telemetry.NewLogger(os.Stdout, &cfg.OTLP, telemetry.ParseLevel(cfg.Log.Level))

		db, err := database.Connect(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close(db)

		logger.Info("Running migrations", slog.String("driver", cfg.Database.Driver))
		if err := relational.Migrate(cmd.Context(), db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("Migrations complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize OpenTelemetry
	var telem *telemetry.Telemetry
	if cfg.OTLP.Enabled {
		telem, err = telemetry.NewTelemetry(ctx, &cfg.OTLP, &cfg.Log)
	} else {
		telem, err = telemetry.NewNoOpTelemetry(&cfg.OTLP, &cfg.Log)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	// Ensure telemetry is shutdown on exit
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error shutting down telemetry: %v\n", err)
		}
	}()

	tracer := telem.TracerProvider.Tracer(telemetry.InstrumentationName)
	meter := telem.MeterProvider.Meter(telemetry.InstrumentationName)
	logger := telem.Logger

	logger.Info("Starting Product Catalog API",
		slog.String("repository", cfg.Database.Repository),
		slog.Bool("otel_enabled", cfg.OTLP.Enabled),
	)

	repo, closeRepo, err := buildRepository(ctx, cfg, tracer, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	productService := service.NewProductService(repo, tracer, meter, logger,
		service.WithLowStockThreshold(cfg.Catalog.LowStockThreshold),
	)
	productHandler := handler.NewProductHandler(productService, logger)
	server := http.NewServer(&cfg.Server, productHandler, logger, telem)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", slog.String("error", err.Error()))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// buildRepository selects the storage adapter. The returned func releases it.
func buildRepository(ctx context.Context, cfg *config.Config, tracer trace.Tracer, logger *slog.Logger) (domain.ProductRepository, func(), error) {
	switch cfg.Database.Repository {
	case config.RepositoryMemory:
		return memory.NewProductRepository(tracer, logger), func() {}, nil
	case config.RepositoryDatabase:
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := relational.Migrate(ctx, db); err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("Connected to database", slog.String("driver", cfg.Database.Driver))
		return relational.NewProductRepository(db, tracer, logger), closer(db, logger), nil
	default:
		return nil, nil, errors.New("unknown repository " + cfg.Database.Repository)
	}
}

func closer(db *gorm.DB, logger *slog.Logger) func() {
	return func() {
		if err := database.Close(db); err != nil {
			logger.Error("Error closing database", slog.String("error", err.Error()))
		}
	}
}
