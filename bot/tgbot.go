// Package bot implements a small Telegram bot for operator alerts.
// Admin users come from the Mongo registry; the bot pushes ERROR-level
// log records and ledger warnings to their chats and answers a couple
// of status commands.
package bot

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
)

// Database defines the storage operations the bot depends on.
// Implemented by internal/database/mongo.go.
type Database interface {
	GetAdminUsers() ([]*entity.User, error)
}

// StatusSource reports runtime counters for the /status command.
type StatusSource interface {
	Dropped() int64
}

type TgBot struct {
	log       *slog.Logger
	api       *tgbotapi.Bot
	db        Database
	status    StatusSource
	mu        sync.RWMutex // guards adminIds
	adminIds  []int64
	updater   *ext.Updater
	startedAt time.Time
}

func NewTgBot(apiKey string, db Database, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log: log.With(sl.Module("tgbot")),
		db:  db,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

// SetStatusSource wires the counters shown by /status; optional.
func (t *TgBot) SetStatusSource(s StatusSource) {
	t.status = s
}

func (t *TgBot) Start() error {
	t.startedAt = time.Now()
	t.loadAdmins()

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("status", t.statusCmd))
	dispatcher.AddHandler(handlers.NewCommand("reload", t.reload))

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

// loadAdmins refreshes the cached admin chat ids from the registry.
func (t *TgBot) loadAdmins() {
	if t.db == nil {
		return
	}
	users, err := t.db.GetAdminUsers()
	if err != nil {
		t.log.Error("loading admin users", sl.Err(err))
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.adminIds = nil
	for _, user := range users {
		t.adminIds = append(t.adminIds, user.TelegramId)
	}
	t.log.With(slog.Int("admins", len(t.adminIds))).Debug("loaded admin users")
}

func (t *TgBot) isAdmin(id int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, adminId := range t.adminIds {
		if adminId == id {
			return true
		}
	}
	return false
}

func (t *TgBot) start(b *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if !t.isAdmin(chatId) {
		t.plainResponse(chatId, "This bot serves registered operators only.")
		return nil
	}
	t.plainResponse(chatId, "Operator alerts enabled for this chat.")
	return nil
}

func (t *TgBot) statusCmd(b *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if !t.isAdmin(chatId) {
		return nil
	}
	msg := fmt.Sprintf("Up since %s", t.startedAt.Format(time.RFC822))
	if t.status != nil {
		msg += fmt.Sprintf("\nNotifications shed: %d", t.status.Dropped())
	}
	t.plainResponse(chatId, msg)
	return nil
}

func (t *TgBot) reload(b *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if !t.isAdmin(chatId) {
		return nil
	}
	t.loadAdmins()
	t.plainResponse(chatId, "Admin list reloaded.")
	return nil
}
