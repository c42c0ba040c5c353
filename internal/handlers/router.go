package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/metrics"
	"github.com/shopforge/commerce-api/internal/middleware"
	"github.com/shopforge/commerce-api/internal/policy"
	"github.com/shopforge/commerce-api/internal/service"
	"github.com/shopforge/commerce-api/internal/telemetry"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	Catalog        *service.CatalogService
	Coupons        *service.CouponService
	Orders         *service.OrderService
	Tracker        *telemetry.Tracker
	Audit          *telemetry.AuditLogger
	Health         Pinger
	APIKeys        map[string]policy.Role
	CORSOrigins    []string
	RequestTimeout time.Duration
	Version        string
	Logger         logrus.FieldLogger
}

// NewRouter builds the chi router with middleware and every API route.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	healthHandler := NewHealthHandler(cfg.Health, cfg.Version, log)
	typeHandler := NewProductTypeHandler(cfg.Catalog, log)
	productHandler := NewProductHandler(cfg.Catalog, log)
	couponHandler := NewCouponHandler(cfg.Coupons, log)
	orderHandler := NewOrderHandler(cfg.Orders, log)
	telemetryHandler := NewTelemetryHandler(cfg.Tracker, cfg.Audit, log)

	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	r.Use(metrics.Middleware)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.APIKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	guard := middleware.Require

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKeys))

		r.Route("/product-types", func(r chi.Router) {
			r.With(guard(policy.ProductTypeList)).Get("/", typeHandler.List)
			r.With(guard(policy.ProductTypeCreate)).Post("/", typeHandler.Create)
			r.With(guard(policy.ProductTypeGetBySlug)).Get("/slug/{slug}", typeHandler.GetBySlug)
			r.With(guard(policy.ProductTypeGet)).Get("/{id}", typeHandler.Get)
			r.With(guard(policy.ProductTypeUpdate)).Put("/{id}", typeHandler.Update)
			r.With(guard(policy.ProductTypeDelete)).Delete("/{id}", typeHandler.Delete)
		})

		r.Route("/products", func(r chi.Router) {
			r.With(guard(policy.ProductList)).Get("/", productHandler.List)
			r.With(guard(policy.ProductCreate)).Post("/", productHandler.Create)
			r.With(guard(policy.ProductSearch)).Get("/search", productHandler.Search)
			r.With(guard(policy.ProductGetBySlug)).Get("/slug/{typeSlug}/{slug}", productHandler.GetBySlug)
			r.With(guard(policy.ProductGet)).Get("/{id}", productHandler.Get)
			r.With(guard(policy.ProductUpdate)).Put("/{id}", productHandler.Update)
			r.With(guard(policy.ProductDelete)).Delete("/{id}", productHandler.Delete)
			r.With(guard(policy.VariantList)).Get("/{id}/variants", productHandler.ListVariants)
			r.With(guard(policy.VariantCreate)).Post("/{id}/variants", productHandler.CreateVariant)
		})

		r.Route("/variants", func(r chi.Router) {
			r.With(guard(policy.VariantList)).Get("/{id}", productHandler.GetVariant)
			r.With(guard(policy.VariantUpdate)).Put("/{id}", productHandler.UpdateVariant)
		})

		r.Route("/coupons", func(r chi.Router) {
			r.With(guard(policy.CouponList)).Get("/", couponHandler.List)
			r.With(guard(policy.CouponCreate)).Post("/", couponHandler.Create)
			r.With(guard(policy.CouponValidate)).Post("/validate", couponHandler.Validate)
			r.With(guard(policy.CouponGetByCode)).Get("/code/{code}", couponHandler.GetByCode)
			r.With(guard(policy.CouponGet)).Get("/{id}", couponHandler.Get)
			r.With(guard(policy.CouponUpdate)).Put("/{id}", couponHandler.Update)
			r.With(guard(policy.CouponUpdate)).Patch("/{id}/toggle", couponHandler.Toggle)
			r.With(guard(policy.CouponDelete)).Delete("/{id}", couponHandler.Delete)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(guard(policy.OrderList)).Get("/", orderHandler.ListOrders)
			r.With(guard(policy.OrderCreate)).Post("/", orderHandler.CreateOrder)
			r.With(guard(policy.OrderCreateGuest)).Post("/guest", orderHandler.CreateGuestOrder)
			r.With(guard(policy.OrderListMine)).Get("/mine", orderHandler.ListMyOrders)
			r.With(guard(policy.OrderGetByNumber)).Get("/number/{number}", orderHandler.GetOrderByNumber)
			r.With(guard(policy.OrderGet)).Get("/{id}", orderHandler.GetOrder)
			r.With(guard(policy.OrderUpdateStatus)).Patch("/{id}/status", orderHandler.UpdateStatus)
		})

		r.With(guard(policy.AnalyticsTrack)).Post("/analytics/events", telemetryHandler.Track)
		r.With(guard(policy.AuditHistory)).Get("/audit/{entity}/{id}", telemetryHandler.History)
	})

	return r
}
