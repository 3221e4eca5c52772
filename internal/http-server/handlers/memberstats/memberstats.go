package memberstats

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/api/response"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	StatsFor(ctx context.Context, memberId string, asOf time.Time) (*entity.Stats, error)
	DailySeries(ctx context.Context, memberId string, windowDays int) ([]entity.SeriesPoint, error)
	MonthlySeries(ctx context.Context, memberId string) ([]entity.SeriesPoint, error)
	Commissions(ctx context.Context, memberId string, limit, offset int) ([]entity.CommissionRecord, error)
	Statement(ctx context.Context, memberId string) ([]byte, error)
	VerifyRollup(ctx context.Context, memberId string, month time.Time) error
}

const defaultWindowDays = 30

func Stats(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.memberstats"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Member(memberId),
		)

		var asOf time.Time
		if raw := r.URL.Query().Get("as_of"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				render.Status(r, 400)
				render.JSON(w, r, response.Error("Invalid as_of, want RFC3339"))
				return
			}
			asOf = t
		}

		stats, err := handler.StatsFor(r.Context(), memberId, asOf)
		if err != nil {
			log.Debug("stats lookup", sl.Err(err))
			response.Fail(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(stats))
	}
}

func Daily(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.memberstats"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Member(memberId),
		)

		days := defaultWindowDays
		if raw := r.URL.Query().Get("days"); raw != "" {
			d, err := strconv.Atoi(raw)
			if err != nil || d < 1 {
				render.Status(r, 400)
				render.JSON(w, r, response.Error("Invalid days window"))
				return
			}
			days = d
		}

		series, err := handler.DailySeries(r.Context(), memberId, days)
		if err != nil {
			log.Debug("daily series", sl.Err(err))
			response.Fail(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(series))
	}
}

func Monthly(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.memberstats"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Member(memberId),
		)

		series, err := handler.MonthlySeries(r.Context(), memberId)
		if err != nil {
			log.Debug("monthly series", sl.Err(err))
			response.Fail(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(series))
	}
}

func History(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.memberstats"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Member(memberId),
		)

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		records, err := handler.Commissions(r.Context(), memberId, limit, offset)
		if err != nil {
			log.Debug("history lookup", sl.Err(err))
			response.Fail(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(records))
	}
}

// VerifyRollup is the operational cross-check of the monthly rollup
// against a full ledger scan. Divergence comes back as an invariant
// failure and is logged at ERROR, which reaches the operator bot.
func VerifyRollup(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.memberstats"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Member(memberId),
		)

		month := time.Now().UTC()
		if raw := r.URL.Query().Get("month"); raw != "" {
			t, err := time.Parse("2006-01", raw)
			if err != nil {
				render.Status(r, 400)
				render.JSON(w, r, response.Error("Invalid month, want YYYY-MM"))
				return
			}
			month = t
		}

		if err := handler.VerifyRollup(r.Context(), memberId, month); err != nil {
			log.Error("rollup verification", sl.Err(err))
			response.Fail(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(nil))
	}
}

// Statement streams the member's ledger as an xlsx workbook.
func Statement(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.memberstats"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Member(memberId),
		)

		data, err := handler.Statement(r.Context(), memberId)
		if err != nil {
			log.Error("statement export", sl.Err(err))
			response.Fail(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="statement.xlsx"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if _, err = w.Write(data); err != nil {
			log.Error("write statement", sl.Err(err))
		}
	}
}
