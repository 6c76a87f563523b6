package notification

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var _ ProgressNotifier = (*TelegramNotifier)(nil)

// TelegramNotifier 通过 Telegram Bot API 发送通知
// 单次请求的超时由 bot 底层 http.Client 限定, 重试为线性退避
type TelegramNotifier struct {
	bot        *tgbotapi.BotAPI
	maxRetries int
	retryDelay time.Duration
}

func NewTelegramNotifier(bot *tgbotapi.BotAPI) *TelegramNotifier {
	return &TelegramNotifier{
		bot:        bot,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, chatID int64, text string) bool {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	var lastErr error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		if _, err := t.bot.Send(msg); err == nil {
			return true
		} else {
			lastErr = err
		}
		if attempt == t.maxRetries {
			break
		}
		select {
		case <-time.After(t.retryDelay * time.Duration(attempt)):
		case <-ctx.Done():
			slog.Info("telegram send cancelled", "chat", chatID)
			return false
		}
	}
	slog.Error("telegram send failed", "chat", chatID, "attempts", t.maxRetries, "error", lastErr)
	return false
}

func (t *TelegramNotifier) BeginProgress(_ context.Context, chatID int64, text string) (Progress, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := t.bot.Send(msg)
	if err != nil {
		return nil, err
	}
	return &telegramProgress{bot: t.bot, chatID: chatID, messageID: sent.MessageID}, nil
}

type telegramProgress struct {
	bot       *tgbotapi.BotAPI
	chatID    int64
	messageID int
	closeOnce sync.Once
}

func (p *telegramProgress) Update(_ context.Context, text string) error {
	edit := tgbotapi.NewEditMessageText(p.chatID, p.messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err := p.bot.Send(edit)
	return err
}

// Close 删除进度消息, 幂等; 删除失败只记日志
func (p *telegramProgress) Close(_ context.Context) {
	p.closeOnce.Do(func() {
		if _, err := p.bot.Request(tgbotapi.NewDeleteMessage(p.chatID, p.messageID)); err != nil {
			slog.Warn("failed to remove progress message", "chat", p.chatID, "error", err)
		}
	})
}

// EscapeMarkdown escapes Telegram legacy-Markdown control characters.
func EscapeMarkdown(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '`', '[':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
