package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Cart       *CartHandler
	Checkout   *CheckoutHandler
	Orders     *OrdersHandler
	Products   *ProductHandler
	AdminToken string
}

// NewRouter assembles the storefront API surface.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", cfg.Products.ListProducts)
			r.Get("/{product_id}", cfg.Products.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cfg.Cart.GetCart)
				r.Delete("/", cfg.Cart.ClearCart)
				r.Post("/items", cfg.Cart.AddItem)
				r.Put("/items/{product_id}", cfg.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", cfg.Cart.RemoveItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", cfg.Checkout.PlaceOrder)
				r.Post("/{order_id}/confirm", cfg.Checkout.ConfirmPayment)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", cfg.Orders.ListOrders)
				r.Get("/{order_id}", cfg.Orders.GetOrder)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminMiddleware(cfg.AdminToken))
			r.Patch("/orders/{order_id}/status", cfg.Orders.UpdateStatus)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
