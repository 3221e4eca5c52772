package commission

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/api/response"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Settle(ctx context.Context, recordId string, outcome entity.SettleOutcome) (*entity.CommissionRecord, error)
}

// Settle finalizes one pending record on behalf of the settlement
// collaborator. The stored amount is authoritative; the outcome only
// decides which way the pending balance moves.
func Settle(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.commission"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("record_id", recordId),
		)

		var req entity.SettleRequest
		if err := render.Bind(r, &req); err != nil {
			log.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid request: "+err.Error()))
			return
		}

		rec, err := handler.Settle(r.Context(), recordId, req.Outcome)
		if err != nil {
			log.Error("settle", sl.Err(err))
			response.Fail(w, r, err)
			return
		}
		log.With(slog.String("outcome", string(req.Outcome))).Debug("record settled")

		render.JSON(w, r, response.Ok(rec))
	}
}
