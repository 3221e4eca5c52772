package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/conquestsam/MLM/lib/sl"
	"github.com/stripe/stripe-go/v76"
)

type Core interface {
	SettlementVerifySignature(payload []byte, header string, tolerance time.Duration) bool
	SettlementEvent(ctx context.Context, evt *stripe.Event) error
}

// Event receives settlement webhook deliveries. A failed distribution
// returns 500 so the sender redelivers; the ledger's idempotency key
// keeps the retry harmless.
func Event(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const tolerance = 5 * time.Minute
		log := logger.With(
			sl.Module("http.handlers.webhook"),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("read request body", sl.Err(err))
			http.Error(w, "read", http.StatusBadRequest)
			return
		}

		sig := r.Header.Get("Stripe-Signature")
		if !handler.SettlementVerifySignature(payload, sig, tolerance) {
			log.Error("invalid webhook signature")
			http.Error(w, "signature", http.StatusBadRequest)
			return
		}

		var evt stripe.Event
		if err = json.Unmarshal(payload, &evt); err != nil {
			log.Error("unmarshal event", sl.Err(err))
			http.Error(w, "json", http.StatusBadRequest)
			return
		}

		log = log.With(
			sl.Event(evt.ID),
			slog.Any("type", evt.Type),
		)

		if err = handler.SettlementEvent(r.Context(), &evt); err != nil {
			log.Error("handle settlement event", sl.Err(err))
			http.Error(w, "event", http.StatusInternalServerError)
			return
		}
		log.Debug("settlement event accepted")

		w.WriteHeader(http.StatusOK)
	}
}
