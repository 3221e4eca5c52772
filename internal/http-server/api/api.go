package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/conquestsam/MLM/internal/config"
	"github.com/conquestsam/MLM/internal/http-server/handlers/commission"
	"github.com/conquestsam/MLM/internal/http-server/handlers/errors"
	"github.com/conquestsam/MLM/internal/http-server/handlers/event"
	"github.com/conquestsam/MLM/internal/http-server/handlers/link"
	"github.com/conquestsam/MLM/internal/http-server/handlers/member"
	"github.com/conquestsam/MLM/internal/http-server/handlers/memberstats"
	"github.com/conquestsam/MLM/internal/http-server/handlers/subscribe"
	"github.com/conquestsam/MLM/internal/http-server/handlers/webhook"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/conquestsam/MLM/internal/http-server/middleware/authenticate"
	"github.com/conquestsam/MLM/internal/http-server/middleware/timeout"
	"github.com/conquestsam/MLM/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	member.Core
	event.Core
	commission.Core
	memberstats.Core
	link.Core
	subscribe.Core
	webhook.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, handler))
		rootApi.Group(func(v1 chi.Router) {
			v1.Use(timeout.Timeout(5))
			v1.Use(render.SetContentType(render.ContentTypeJSON))
			v1.Route("/members", func(mb chi.Router) {
				mb.Post("/", member.Enroll(log, handler))
				mb.Get("/{id}", member.Get(log, handler))
				mb.Get("/{id}/ancestors", member.Ancestors(log, handler))
				mb.Get("/{id}/descendants", member.Descendants(log, handler))
				mb.Get("/{id}/stats", memberstats.Stats(log, handler))
				mb.Get("/{id}/series/daily", memberstats.Daily(log, handler))
				mb.Get("/{id}/series/monthly", memberstats.Monthly(log, handler))
				mb.Get("/{id}/commissions", memberstats.History(log, handler))
				mb.Get("/{id}/statement.xlsx", memberstats.Statement(log, handler))
				mb.Get("/{id}/rollup/verify", memberstats.VerifyRollup(log, handler))
			})
			v1.Post("/events", event.Distribute(log, handler))
			v1.Post("/commissions/{id}/settle", commission.Settle(log, handler))
			v1.Route("/links", func(lk chi.Router) {
				lk.Post("/", link.Create(log, handler))
				lk.Post("/{code}/click", link.Click(log, handler))
				lk.Get("/{code}/qr", link.QR(log, handler))
			})
		})
		// long-lived stream, kept outside the request timeout
		rootApi.Get("/members/{id}/subscribe", subscribe.Stream(log, handler))
	})
	router.Route("/webhook", func(rootWH chi.Router) {
		rootWH.Use(timeout.Timeout(5))
		rootWH.Post("/event", webhook.Event(log, handler))
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:     router,
		ErrorLog:    httpLog,
		ReadTimeout: 5 * time.Second,
		// no write timeout, the subscribe stream stays open indefinitely
		IdleTimeout: 60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
