package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"lokapasar-be/internal/logger"
	"lokapasar-be/internal/order"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const signatureHeader = "X-Webhook-Signature"

// Payload is the status callback contract with the payment collaborator.
type Payload struct {
	OrderID       string          `json:"orderId"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
}

type Handler struct {
	orders order.Service
	secret string
}

func NewHandler(orders order.Service, secret string) *Handler {
	return &Handler{orders: orders, secret: secret}
}

// verify checks the hex HMAC-SHA256 of the raw body against the signature
// header.
func (h *Handler) verify(r *http.Request, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(r.Header.Get(signatureHeader)))
}

// PaymentWebhook receives the gateway's status callback and drives the
// order's payment status. Completed confirms a pending order; failed fails
// it.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.String("handler", "PaymentWebhook"))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !h.verify(r, body) {
		log.Warn("webhook signature mismatch")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if payload.OrderID == "" {
		http.Error(w, "orderId is required", http.StatusBadRequest)
		return
	}

	log = log.With(
		zap.String("order_id", payload.OrderID),
		zap.String("status", payload.Status),
	)

	switch payload.Status {
	case order.PaymentCompleted, order.PaymentFailed:
	default:
		// Unknown statuses are acknowledged and ignored so the gateway
		// stops retrying them.
		log.Info("ignoring webhook status")
		w.WriteHeader(http.StatusOK)
		return
	}

	update := order.PaymentUpdate{
		Status: payload.Status,
		Amount: &payload.Amount,
	}
	if payload.TransactionID != "" {
		update.TransactionID = &payload.TransactionID
	}

	if err := h.orders.UpdatePaymentStatus(ctx, payload.OrderID, update); err != nil {
		if err == order.ErrOrderNotFound {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		log.Error("failed to update payment status", zap.Error(err))
		http.Error(w, "failed to update order", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
