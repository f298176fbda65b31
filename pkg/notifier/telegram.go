// pkg/notifier/telegram.go
package notifier

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"StickerRadar/pkg/model"
)

// DeliveryError 通知通道投递失败
// 投递失败不重试本次转移，条件持续到下个周期才会重新触发
type DeliveryError struct {
	UserID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("向用户 %d 投递通知失败: %v", e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// TelegramNotifier 通过Telegram Bot投递通知
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramNotifier 创建Telegram通知器
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("初始化Telegram Bot失败: %w", err)
	}

	log.Printf("Telegram Bot已连接: @%s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot}, nil
}

// SendPriceAlert 发送格式化的价格提醒
// Markdown渲染失败时降级为纯文本重发一次
func (n *TelegramNotifier) SendPriceAlert(ctx context.Context, userID int64, alert model.PriceAlert) error {
	msg := tgbotapi.NewMessage(userID, FormatPriceAlert(alert))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("Markdown消息发送失败，尝试纯文本降级: %v", err)

		fallback := tgbotapi.NewMessage(userID, FormatPriceAlertPlain(alert))
		if _, err := n.bot.Send(fallback); err != nil {
			return &DeliveryError{UserID: userID, Err: err}
		}
	}

	return nil
}

// SendText 发送普通文本消息
func (n *TelegramNotifier) SendText(ctx context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return &DeliveryError{UserID: userID, Err: err}
	}
	return nil
}
