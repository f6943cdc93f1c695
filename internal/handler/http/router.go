package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teguh2522009-hub/Benihcandi/internal/badge"
	"github.com/teguh2522009-hub/Benihcandi/internal/service"
	"github.com/teguh2522009-hub/Benihcandi/internal/view"
	"github.com/teguh2522009-hub/Benihcandi/pkg/health"
	"github.com/teguh2522009-hub/Benihcandi/pkg/middleware"
)

// NewRouter creates a chi router with the JSON API, the server-rendered
// cart pages, and the operational endpoints registered.
func NewRouter(
	cartService *service.CartService,
	badges *badge.Hub,
	renderer *view.Renderer,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. The request timeout is applied per route group
	// below so the badge stream can stay open.
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("cart"))
	r.Use(middleware.Tracing("cart"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	cartHandler := NewCartHandler(cartService, badges, logger)
	pageHandler := NewPageHandler(cartService, renderer, logger)

	// JSON API
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		r.Use(ContentTypeJSON)
		r.Use(Session)

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)

		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{index}", cartHandler.UpdateQuantity)
		r.Delete("/items/{index}", cartHandler.RemoveItem)

		r.Post("/checkout", cartHandler.Checkout)
		r.Get("/badge", cartHandler.GetBadge)
	})

	// Server-rendered pages and their form posts
	r.Route("/cart", func(r chi.Router) {
		r.Use(Session)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))

			r.Get("/", pageHandler.CartPage)
			r.Post("/items", pageHandler.AddItemForm)
			r.Post("/items/{index}/quantity", pageHandler.UpdateQuantityForm)
			r.Post("/items/{index}/remove", pageHandler.RemoveItemForm)
			r.Post("/clear", pageHandler.ClearForm)
			r.Post("/checkout", pageHandler.CheckoutForm)
		})

		// Long-lived SSE connection, no request timeout.
		r.Get("/badge/stream", cartHandler.StreamBadge)
	})

	return r
}
