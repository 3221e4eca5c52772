package link

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
	CreateLink(ctx context.Context, req *entity.CreateLinkRequest) (*entity.ReferralLink, error)
	ClickLink(ctx context.Context, code string) (*entity.ReferralLink, error)
	LinkQR(ctx context.Context, code string) ([]byte, error)
}

func Create(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.link"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.CreateLinkRequest
		if err := render.Bind(r, &req); err != nil {
			log.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid request: "+err.Error()))
			return
		}

		l, err := handler.CreateLink(r.Context(), &req)
		if err != nil {
			log.Error("create link", sl.Err(err))
			response.Fail(w, r, err)
			return
		}
		log.With(sl.Member(l.OwnerId), slog.String("code", l.LinkCode)).Debug("link created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(l))
	}
}

func Click(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		log := logger.With(
			sl.Module("http.handlers.link"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("code", code),
		)

		l, err := handler.ClickLink(r.Context(), code)
		if err != nil {
			log.Debug("click", sl.Err(err))
			response.Fail(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(l))
	}
}

func QR(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		log := logger.With(
			sl.Module("http.handlers.link"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("code", code),
		)

		img, err := handler.LinkQR(r.Context(), code)
		if err != nil {
			log.Debug("qr render", sl.Err(err))
			response.Fail(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(img)))
		if _, err = w.Write(img); err != nil {
			log.Error("write qr image", sl.Err(err))
		}
	}
}
