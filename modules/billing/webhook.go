package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/fieldvine/billing/pkg/payment"
)

// maxWebhookBody bounds webhook payloads. Paddle envelopes are small;
// anything near this limit is not a legitimate event.
const maxWebhookBody = 1 << 20

// handlePaddleWebhook receives gateway events. The raw body is read
// before any parsing because signature verification covers the exact
// bytes on the wire.
//
// Response codes follow the processor contract: 400 tells the gateway
// the delivery is permanently malformed, 500 asks it to redeliver, and
// 200 acknowledges. A handler-side failure after the event is ledgered
// still acknowledges; redelivery could not help, the ledger has the
// error and the event is already recorded as consumed.
func (m *Module) handlePaddleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respond(w, http.StatusBadRequest, jsonResponse{
			Code:  "bad_request",
			Error: &errorDetail{Code: "bad_request", Message: "failed to read request body"},
		})
		return
	}

	signature := r.Header.Get("Paddle-Signature")

	if err := m.deps.Processor.Process(r.Context(), body, signature); err != nil {
		if errors.Is(err, payment.ErrSignatureInvalid) {
			respondError(w, err)
			return
		}

		m.logger.Error("webhook processing failed", "error", err)
		respond(w, http.StatusInternalServerError, jsonResponse{
			Code:  "internal_error",
			Error: &errorDetail{Code: "internal_error", Message: "event processing failed"},
		})
		return
	}

	respondData(w, "ok", nil)
}
