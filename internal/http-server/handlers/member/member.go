package member

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/api/response"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Enroll(ctx context.Context, req *entity.EnrollRequest) (*entity.Member, error)
	MemberById(ctx context.Context, memberId string) (*entity.Member, error)
	AncestorsOf(ctx context.Context, memberId string) ([]entity.AncestorRef, error)
	DescendantsOf(ctx context.Context, memberId string, generation int) ([]entity.Member, error)
}

func Enroll(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.member"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.EnrollRequest
		if err := render.Bind(r, &req); err != nil {
			log.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid request: "+err.Error()))
			return
		}

		m, err := handler.Enroll(r.Context(), &req)
		if err != nil {
			log.Error("enroll", sl.Err(err))
			response.Fail(w, r, err)
			return
		}
		log.With(sl.Member(m.Id)).Debug("member enrolled")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(m))
	}
}

func Get(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.member"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Member(memberId),
		)

		m, err := handler.MemberById(r.Context(), memberId)
		if err != nil {
			log.Debug("member lookup", sl.Err(err))
			response.Fail(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(m))
	}
}

func Ancestors(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.member"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Member(memberId),
		)

		refs, err := handler.AncestorsOf(r.Context(), memberId)
		if err != nil {
			log.Debug("ancestors lookup", sl.Err(err))
			response.Fail(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(refs))
	}
}

func Descendants(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberId := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.member"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Member(memberId),
		)

		generation := 0
		if raw := r.URL.Query().Get("generation"); raw != "" {
			g, err := strconv.Atoi(raw)
			if err != nil || g < 0 {
				render.Status(r, 400)
				render.JSON(w, r, response.Error("Invalid generation filter"))
				return
			}
			generation = g
		}

		members, err := handler.DescendantsOf(r.Context(), memberId, generation)
		if err != nil {
			log.Debug("descendants lookup", sl.Err(err))
			response.Fail(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(members))
	}
}
