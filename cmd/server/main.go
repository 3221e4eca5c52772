package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/conquestsam/MLM/bot"
	"github.com/conquestsam/MLM/impl/auth"
	"github.com/conquestsam/MLM/impl/core"
	"github.com/conquestsam/MLM/impl/engine"
	"github.com/conquestsam/MLM/impl/graph"
	"github.com/conquestsam/MLM/impl/links"
	"github.com/conquestsam/MLM/impl/stats"
	"github.com/conquestsam/MLM/internal/config"
	"github.com/conquestsam/MLM/internal/database"
	"github.com/conquestsam/MLM/internal/http-server/api"
	"github.com/conquestsam/MLM/internal/notify"
	"github.com/conquestsam/MLM/internal/settlement"
	"github.com/conquestsam/MLM/lib/logger"
	"github.com/conquestsam/MLM/lib/sl"
)

const logFileName = "referral.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting referral engine", slog.String("config", *configPath), slog.String("env", conf.Env))

	mongo := database.NewMongoClient(conf)
	if mongo == nil {
		log.Warn("mongo disabled, api authentication unavailable")
	}

	// the bot wraps the logger before any service is built, so ERROR
	// records from the services reach the operator chat
	var tgBot *bot.TgBot
	if conf.Telegram.Enabled && mongo != nil {
		b, err := bot.NewTgBot(conf.Telegram.ApiKey, mongo, log)
		if err != nil {
			log.Error("telegram bot init failed", sl.Err(err))
		} else {
			tgBot = b
			go func() {
				if err := tgBot.Start(); err != nil {
					log.Error("telegram bot stopped", sl.Err(err))
				}
			}()
			defer tgBot.Stop()
			log = slog.New(logger.NewTelegramHandler(log.Handler(), tgBot, slog.LevelError))
		}
	}

	mysql, err := database.NewSQLClient(conf, log)
	if err != nil {
		log.Error("mysql connection failed", sl.Err(err))
		os.Exit(1)
	}

	hub := notify.New(log, conf.Notify.QueueSize)
	hub.Start()
	defer hub.Stop()
	if tgBot != nil {
		tgBot.SetStatusSource(hub)
	}

	graphManager := graph.New(mysql, hub, log, conf.Network.MaxDepth, conf.Network.CodeLength)
	schedule := engine.NewSchedule(conf.Network.Rates)
	distributionEngine := engine.New(mysql, graphManager, hub, schedule, log)
	aggregator := stats.New(mysql, graphManager, log)
	linkService := links.New(mysql, graphManager, log, conf.Network.CodeLength, conf.Network.ShareBaseUrl)

	handler := core.New(graphManager, distributionEngine, aggregator, linkService, hub, log)
	handler.SetSettlement(settlement.New(conf, log))
	if mongo != nil {
		handler.SetAuthService(auth.New(mongo))
		handler.SetArchive(mongo)
	}

	if err = api.New(conf, log, handler); err != nil {
		log.Error("api server stopped", sl.Err(err))
		os.Exit(1)
	}
}
