package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"lokapasar-be/internal/cart"
	"lokapasar-be/internal/coupon"
	"lokapasar-be/internal/product"
	"lokapasar-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CouponHandler struct {
	Coupons  coupon.Service
	Carts    cart.Service
	Products product.Service
}

type validateCouponRequest struct {
	Code         string          `json:"code"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
}

// Validate checks a coupon against the caller's current cart without
// consuming a usage slot.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	c, err := h.Carts.GetCart(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	lines := make([]coupon.CartLine, 0, len(c.Items))
	for _, item := range c.Items {
		line := coupon.CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		if p, err := h.Products.GetProduct(r.Context(), item.ProductID); err == nil {
			line.CategoryID = p.CategoryID
		}
		lines = append(lines, line)
	}

	result, err := h.Coupons.Validate(r.Context(), coupon.ValidateParams{
		Code:         req.Code,
		UserID:       userID,
		Lines:        lines,
		OrderTotal:   c.Subtotal,
		ShippingCost: req.ShippingCost,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to validate coupon")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Coupons.ListCoupons(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list coupons")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var c coupon.Coupon
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	created, err := h.Coupons.CreateCoupon(r.Context(), &c)
	if err != nil {
		if errors.Is(err, coupon.ErrInvalidCoupon) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create coupon")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	var c coupon.Coupon
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	c.Code = chi.URLParam(r, "code")

	updated, err := h.Coupons.UpdateCoupon(r.Context(), &c)
	if err != nil {
		switch {
		case errors.Is(err, coupon.ErrCouponNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, coupon.ErrInvalidCoupon):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update coupon")
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
