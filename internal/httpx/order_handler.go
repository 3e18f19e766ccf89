package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"lokapasar-be/internal/order"
	"lokapasar-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	Orders order.Service
}

type updateStatusRequest struct {
	Status   string  `json:"status"`
	Message  string  `json:"message,omitempty"`
	Location *string `json:"location,omitempty"`
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	list, err := h.Orders.ListOrders(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	o, err := h.Orders.GetUserOrder(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, order.ErrForbidden):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to load order")
		}
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UpdateStatus drives the order state machine from the admin surface. The
// acting admin's email becomes the tracking actor.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	actor := "admin"
	if email := utils.GetUserEmailFromContext(r.Context()); email != "" {
		actor = email
	}

	err := h.Orders.Transition(r.Context(), chi.URLParam(r, "id"), order.Status(req.Status), order.TrackingInfo{
		Message:  req.Message,
		Location: req.Location,
		Actor:    actor,
	})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, order.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, order.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update order status")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
