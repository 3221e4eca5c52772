package event

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/api/response"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Distribute(ctx context.Context, evt *entity.QualifyingEvent) ([]entity.CommissionRecord, bool, error)
}

// Distribute is the push interface for qualifying events. A redelivered
// event id returns the original record set marked as a duplicate, with
// no balance movement: an explicit idempotent success, not a failure.
func Distribute(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.event"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var evt entity.QualifyingEvent
		if err := render.Bind(r, &evt); err != nil {
			log.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid request: "+err.Error()))
			return
		}
		log = log.With(
			sl.Event(evt.EventId),
			sl.Member(evt.ActingMemberId),
		)

		records, duplicate, err := handler.Distribute(r.Context(), &evt)
		if err != nil {
			log.Error("distribute", sl.Err(err))
			response.Fail(w, r, err)
			return
		}

		if duplicate {
			log.Debug("duplicate delivery replayed")
			render.JSON(w, r, response.Replayed(records))
			return
		}
		log.With(slog.Int("records", len(records))).Debug("event distributed")
		render.JSON(w, r, response.Ok(records))
	}
}
