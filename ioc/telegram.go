package ioc

import (
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/viper"
)

func InitTelegramBot() *tgbotapi.BotAPI {
	type Config struct {
		Token string `mapstructure:"token"`
		Debug bool   `mapstructure:"debug"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("telegram", &cfg); err != nil {
		panic(err)
	}

	// 默认client没有超时, API卡死会拖住发信号的worker
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint,
		&http.Client{Timeout: 10 * time.Second})
	if err != nil {
		panic(err)
	}
	bot.Debug = cfg.Debug
	return bot
}
