package ioc

import (
	"fmt"
	"strconv"

	"github.com/gaobi639-netizen/okx-monitor/internal/service/notification"
	"github.com/spf13/viper"
)

func InitTelegram() *notification.TelegramService {
	type Config struct {
		BotToken string `mapstructure:"bot_token"`
		ChatId   string `mapstructure:"chat_id"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("telegram", &cfg); err != nil {
		panic(err)
	}
	if cfg.BotToken == "" || cfg.ChatId == "" {
		panic("telegram.bot_token and telegram.chat_id are required")
	}

	chatId, err := strconv.ParseInt(cfg.ChatId, 10, 64)
	if err != nil {
		panic(fmt.Errorf("invalid telegram.chat_id: %w", err))
	}

	svc, err := notification.NewTelegramService(cfg.BotToken, chatId)
	if err != nil {
		panic(err)
	}
	return svc
}
