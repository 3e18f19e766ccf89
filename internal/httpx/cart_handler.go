package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"lokapasar-be/internal/cart"
	"lokapasar-be/internal/checkout"
	"lokapasar-be/internal/coupon"
	"lokapasar-be/internal/inventory"
	"lokapasar-be/internal/order"
	"lokapasar-be/internal/utils"
)

type CartHandler struct {
	Carts     cart.Service
	Checkouts checkout.Service
}

type addItemRequest struct {
	ProductID string  `json:"product_id"`
	Size      *string `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
}

type updateQuantityRequest struct {
	ProductID string  `json:"product_id"`
	Size      *string `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
}

type mergeRequest struct {
	SessionID string `json:"session_id"`
}

type checkoutRequest struct {
	ShippingAddress order.ShippingAddress `json:"shipping_address"`
	CouponCode      string                `json:"coupon_code,omitempty"`
}

type checkoutResponse struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Total       string `json:"total"`
	Status      string `json:"status"`
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	c, err := h.Carts.GetCart(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	item, err := h.Carts.AddItem(r.Context(), cart.AddItemParams{
		UserID:    userID,
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, cart.ErrProductNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to add item")
		}
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	err := h.Carts.UpdateQuantity(r.Context(), cart.UpdateQuantityParams{
		UserID:    userID,
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	if err != nil {
		if errors.Is(err, cart.ErrCartItemNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	err := h.Carts.RemoveItem(r.Context(), userID, req.ProductID, req.Size)
	if err != nil {
		if errors.Is(err, cart.ErrCartItemNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to remove item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	if err := h.Carts.Clear(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	c, err := h.Carts.MergeGuestCart(r.Context(), userID, req.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to merge guest cart")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Checkout runs the whole saga and maps each failure class to a response
// the cart screen can act on.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	o, err := h.Checkouts.Checkout(r.Context(), checkout.CheckoutParams{
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
		CouponCode:      req.CouponCode,
	})
	if err != nil {
		var stockErr *checkout.StockValidationError
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &stockErr):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":  stockErr.Error(),
				"issues": stockErr.Issues,
			})
		case errors.Is(err, inventory.ErrInsufficientStock):
			writeError(w, http.StatusConflict, err.Error())
		case coupon.IsValidationError(err):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "checkout failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Total:       o.Total.StringFixed(2),
		Status:      string(o.Status),
	})
}
