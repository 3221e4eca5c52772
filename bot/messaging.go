package bot

import (
	"log/slog"
	"strings"

	"github.com/conquestsam/MLM/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

func (t *TgBot) SendMessage(msg string) {
	t.SendMessageWithLevel(msg, slog.LevelInfo)
}

// SendMessageWithLevel forwards a message to every cached admin chat.
// Levels below ERROR are dropped; the bot exists for alerts, not chatter.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level < slog.LevelError {
		return
	}
	t.mu.RLock()
	ids := make([]int64, len(t.adminIds))
	copy(ids, t.adminIds)
	t.mu.RUnlock()

	for _, id := range ids {
		t.markdownResponse(id, msg)
	}
}

func (t *TgBot) plainResponse(chatId int64, text string) {
	_, err := t.api.SendMessage(chatId, text, nil)
	if err != nil {
		t.log.With(slog.Int64("chat_id", chatId)).Error("send message", sl.Err(err))
	}
}

func (t *TgBot) markdownResponse(chatId int64, text string) {
	opts := &tgbotapi.SendMessageOpts{ParseMode: "Markdown"}
	_, err := t.api.SendMessage(chatId, text, opts)
	if err != nil {
		// markdown can fail on unbalanced markup in payload values
		t.plainResponse(chatId, text)
	}
}

// Sanitize strips the Markdown control characters Telegram chokes on.
func Sanitize(text string) string {
	replacer := strings.NewReplacer("*", "", "_", "", "`", "", "[", "(", "]", ")")
	return replacer.Replace(text)
}
