package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"lokapasar-be/internal/payment/webhook"
	"lokapasar-be/internal/user"

	"github.com/stretchr/testify/assert"
)

func TestRouter(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")

	orders := new(MockOrderService)
	router := NewRouter(Deps{
		Users:     new(MockUserService),
		Carts:     new(MockCartService),
		Inventory: new(MockInventoryService),
		Orders:    orders,
		Checkout:  new(MockCheckoutService),
		Webhook:   webhook.NewHandler(orders, "webhook-secret"),
	})

	t.Run("Health endpoint is open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Cart requires authentication", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/cart", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Admin surface rejects plain users", func(t *testing.T) {
		token, err := user.GenerateJWT(7, "USER", "john@example.com")
		assert.NoError(t, err)

		req := httptest.NewRequest("POST", "/admin/inventory/adjust", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Unsigned webhook is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/webhooks/payment", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
