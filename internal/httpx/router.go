package httpx

import (
	"net/http"
	"time"

	"lokapasar-be/internal/cart"
	"lokapasar-be/internal/checkout"
	"lokapasar-be/internal/coupon"
	"lokapasar-be/internal/inventory"
	"lokapasar-be/internal/logger"
	"lokapasar-be/internal/middleware"
	"lokapasar-be/internal/order"
	"lokapasar-be/internal/payment/webhook"
	"lokapasar-be/internal/product"
	"lokapasar-be/internal/user"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Deps bundles every service the HTTP surface exposes.
type Deps struct {
	Users     user.Service
	Products  product.Service
	Carts     cart.Service
	Coupons   coupon.Service
	Inventory inventory.Service
	Orders    order.Service
	Checkout  checkout.Service
	Webhook   *webhook.Handler
}

func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.Auth)
	r.Use(middleware.RateLimitMiddleware)
	r.Use(chimiddleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	users := &UserHandler{Users: deps.Users}
	r.Post("/users/register", users.Register)
	r.Post("/users/login", users.Login)

	products := &ProductHandler{Products: deps.Products}
	r.Get("/products", products.List)
	r.Get("/products/{id}", products.Get)

	coupons := &CouponHandler{Coupons: deps.Coupons, Carts: deps.Carts, Products: deps.Products}
	r.Post("/coupons/validate", coupons.Validate)

	carts := &CartHandler{Carts: deps.Carts, Checkouts: deps.Checkout}
	r.Route("/cart", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", carts.Get)
		r.Post("/", carts.AddItem)
		r.Put("/", carts.UpdateQuantity)
		r.Delete("/items", carts.RemoveItem)
		r.Delete("/", carts.Clear)
		r.Post("/merge", carts.Merge)
		r.Post("/checkout", carts.Checkout)
	})

	orders := &OrderHandler{Orders: deps.Orders}
	r.Route("/orders", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", orders.List)
		r.Get("/{id}", orders.Get)
	})

	r.Post("/webhooks/payment", deps.Webhook.PaymentWebhook)

	inv := &InventoryHandler{Inventory: deps.Inventory}
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Post("/products", products.Create)
		r.Put("/products/{id}", products.Update)

		r.Get("/coupons", coupons.List)
		r.Post("/coupons", coupons.Create)
		r.Put("/coupons/{code}", coupons.Update)

		r.Get("/inventory/{productID}", inv.Get)
		r.Get("/inventory/{productID}/movements", inv.Movements)
		r.Post("/inventory/adjust", inv.Adjust)

		r.Put("/orders/{id}/status", orders.UpdateStatus)
	})

	return r
}
