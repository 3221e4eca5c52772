package subscribe

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/conquestsam/MLM/internal/notify"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Core interface {
	Subscribe(memberId string, topics ...string) *notify.Subscription
}

const heartbeat = 25 * time.Second

// Stream serves the member's change feed as server-sent events. The
// feed is lossy under backpressure, so a client that sees a gap in
// sequence should re-fetch the read endpoints before resuming.
func Stream(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.subscribe"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Member(memberId),
		)

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		topics := r.URL.Query()["topic"]
		sub := handler.Subscribe(memberId, topics...)
		defer sub.Cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		log.With(slog.Any("topics", topics)).Debug("stream opened")

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				log.Debug("stream closed by client")
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case n, open := <-sub.C:
				if !open {
					log.Debug("stream closed by hub")
					return
				}
				data, err := json.Marshal(n)
				if err != nil {
					log.Error("marshal notification", sl.Err(err))
					continue
				}
				if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Kind, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
