package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"lokapasar-be/internal/inventory"
	"lokapasar-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

const defaultLocationID = "main"

type InventoryHandler struct {
	Inventory inventory.Service
}

type adjustStockRequest struct {
	ProductID  string  `json:"product_id"`
	LocationID string  `json:"location_id,omitempty"`
	Delta      int     `json:"delta"`
	Type       string  `json:"type"`
	Reason     *string `json:"reason,omitempty"`
}

func locationFrom(r *http.Request) string {
	if loc := r.URL.Query().Get("location"); loc != "" {
		return loc
	}
	return defaultLocationID
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Inventory.GetInventory(r.Context(), chi.URLParam(r, "productID"), locationFrom(r))
	if err != nil {
		if errors.Is(err, inventory.ErrInventoryNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load inventory")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InventoryHandler) Movements(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	movements, err := h.Inventory.GetMovements(r.Context(), chi.URLParam(r, "productID"), locationFrom(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stock movements")
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.LocationID == "" {
		req.LocationID = defaultLocationID
	}

	actor := "admin"
	if email := utils.GetUserEmailFromContext(r.Context()); email != "" {
		actor = email
	}

	inv, err := h.Inventory.AdjustStock(r.Context(), inventory.AdjustStockParams{
		ProductID:  req.ProductID,
		LocationID: req.LocationID,
		Delta:      req.Delta,
		Type:       inventory.MovementType(req.Type),
		Actor:      actor,
		Reason:     req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrInvalidMovement), errors.Is(err, inventory.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, inventory.ErrInsufficientStock):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, inventory.ErrInventoryNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to adjust stock")
		}
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
