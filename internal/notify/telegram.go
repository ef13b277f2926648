package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TelegramChannel Telegram Bot 推送
type TelegramChannel struct {
	httpClient *resty.Client
	botToken   string
	chatID     string
	logger     *zap.Logger
}

// NewTelegramChannel 创建 Telegram 推送通道
// baseURL 默认 https://api.telegram.org（测试时指向 httptest 服务）
func NewTelegramChannel(baseURL, botToken, chatID string, timeout time.Duration, logger *zap.Logger) *TelegramChannel {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &TelegramChannel{
		httpClient: client,
		botToken:   botToken,
		chatID:     chatID,
		logger:     logger,
	}
}

// Name 通道名
func (c *TelegramChannel) Name() string {
	return "telegram"
}

// Send 发送消息（POST /bot{token}/sendMessage），2xx 视为成功
func (c *TelegramChannel) Send(ctx context.Context, message string) bool {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("token", c.botToken).
		SetFormData(map[string]string{
			"chat_id": c.chatID,
			"text":    message,
		}).
		Post("/bot{token}/sendMessage")
	if err != nil {
		c.logger.Error("Failed to send Telegram message", zap.Error(err))
		return false
	}
	if !resp.IsSuccess() {
		c.logger.Error("Telegram API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return false
	}

	c.logger.Debug("Telegram message sent")
	return true
}
