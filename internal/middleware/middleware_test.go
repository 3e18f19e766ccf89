package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"lokapasar-be/internal/user"
	"lokapasar-be/internal/utils"

	"github.com/stretchr/testify/assert"
)

func TestAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Valid token attaches user", func(t *testing.T) {
		token, err := user.GenerateJWT(42, "USER", "john@example.com")
		assert.NoError(t, err)

		var gotID uint
		var gotOK bool
		handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID, gotOK = utils.GetUserIDFromContext(r.Context())
		}))

		req := httptest.NewRequest("GET", "/cart", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.True(t, gotOK)
		assert.Equal(t, uint(42), gotID)
	})

	t.Run("Missing token passes through anonymously", func(t *testing.T) {
		var gotOK bool
		handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, gotOK = utils.GetUserIDFromContext(r.Context())
		}))

		req := httptest.NewRequest("GET", "/products", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.False(t, gotOK)
	})

	t.Run("Garbage token passes through anonymously", func(t *testing.T) {
		handler := Auth(nextHandler)

		req := httptest.NewRequest("GET", "/products", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Anonymous rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/cart", nil)
		rec := httptest.NewRecorder()
		RequireAuth(nextHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Authenticated allowed", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/cart", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), 1, "john@example.com", "USER"))
		rec := httptest.NewRecorder()
		RequireAuth(nextHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Plain user forbidden", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/admin/coupons", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), 1, "john@example.com", "USER"))
		rec := httptest.NewRecorder()
		RequireAdmin(nextHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Admin allowed", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/admin/coupons", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), 1, "admin@example.com", "ADMIN"))
		rec := httptest.NewRecorder()
		RequireAdmin(nextHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(nextHandler)

	t.Run("Burst then throttled", func(t *testing.T) {
		var lastCode int
		for i := 0; i < burstGeneral+5; i++ {
			req := httptest.NewRequest("GET", "/products", nil)
			req.RemoteAddr = "10.0.0.9:1234"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			lastCode = rec.Code
		}
		assert.Equal(t, http.StatusTooManyRequests, lastCode)
	})

	t.Run("Separate identities have separate buckets", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/products", nil)
		req.RemoteAddr = "10.0.0.10:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
