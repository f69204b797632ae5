package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/middleware"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	config    *config.ServerConfig
	handler   *handler.ProductHandler
	logger    *slog.Logger
	telemetry *telemetry.Telemetry
	httpSrv   *http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.ServerConfig,
	handler *handler.ProductHandler,
	logger *slog.Logger,
	telem *telemetry.Telemetry,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		handler:   handler,
		logger:    logger,
		telemetry: telem,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// setupMiddleware configures the middleware chain that runs before routing
func (s *Server) setupMiddleware() {
	meter := s.telemetry.MeterProvider.Meter(telemetry.InstrumentationName)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(middleware.StructuredLogger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.ActiveRequestsMiddleware(meter))
	s.router.Use(middleware.DurationMillisecondsMiddleware(meter))
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// routes are registered flat on the group so its middleware sees the full pattern
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.HTTPRouteContext())
		r.Use(middleware.RouteTagger())

		r.Post("/products", s.handler.CreateProduct)
		r.Get("/products", s.handler.ListProducts)
		r.Get("/products/sku/{sku}", s.handler.GetProductBySKU)
		r.Get("/products/reports/low-stock", s.handler.LowStockReport)
		r.Get("/products/reports/out-of-stock", s.handler.OutOfStockReport)

		r.Get("/products/{id}", s.handler.GetProduct)
		r.Patch("/products/{id}", s.handler.UpdateProduct)
		r.Put("/products/{id}", s.handler.UpdateProduct)
		r.Delete("/products/{id}", s.handler.DeleteProduct)
		r.Patch("/products/{id}/stock", s.handler.UpdateStock)
		r.Post("/products/{id}/activate", s.handler.ActivateProduct)
		r.Post("/products/{id}/deactivate", s.handler.DeactivateProduct)
		r.Get("/products/{id}/availability", s.handler.CheckAvailability)

		r.Get("/categories/{categoryId}/products", s.handler.ListCategoryProducts)
		r.Get("/categories/{categoryId}/summary", s.handler.CategorySummary)
		r.Get("/categories/{categoryId}/sku-suggestion", s.handler.SuggestSKU)
		r.Post("/categories/{categoryId}/prices", s.handler.BulkUpdatePrices)
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus scrape endpoint backed by the OTel prometheus exporter
	s.router.Handle("/metrics", s.telemetry.MetricsHandler())
}

// Handler returns the router wrapped with otelhttp for request spans and metrics
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "http-server",
		otelhttp.WithTracerProvider(s.telemetry.TracerProvider),
		otelhttp.WithMeterProvider(s.telemetry.MeterProvider),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		slog.String("address", s.httpSrv.Addr),
	)

	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpSrv.Shutdown(ctx)
}
