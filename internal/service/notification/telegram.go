package notification

import (
	"context"
	"fmt"

	"github.com/gaobi639-netizen/okx-monitor/internal/service/monitor"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	_ Service          = (*TelegramService)(nil)
	_ monitor.Notifier = (*TelegramService)(nil)
)

// TelegramService 通过 Telegram bot 推送提醒
type TelegramService struct {
	bot    *tgbotapi.BotAPI
	chatId int64
}

func NewTelegramService(botToken string, chatId int64) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("%w: init bot: %v", ErrDelivery, err)
	}
	return &TelegramService{
		bot:    bot,
		chatId: chatId,
	}, nil
}

func (s *TelegramService) SendText(ctx context.Context, text string) error {
	// bot api 客户端不支持 ctx, 超时依赖其内部 http client
	msg := tgbotapi.NewMessage(s.chatId, text)
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// Notify 实现 monitor.Notifier
func (s *TelegramService) Notify(ctx context.Context, event monitor.PositionEvent) error {
	return s.SendText(ctx, FormatEvent(event))
}

// TestConnection 验证 bot token, 返回 bot 用户名
func (s *TelegramService) TestConnection(ctx context.Context) (string, error) {
	me, err := s.bot.GetMe()
	if err != nil {
		return "", fmt.Errorf("%w: get me: %v", ErrDelivery, err)
	}
	return "@" + me.UserName, nil
}
