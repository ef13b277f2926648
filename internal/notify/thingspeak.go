package notify

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// thingSpeakFieldOrder ThingSpeak channel 的 field1..field8
var thingSpeakFieldOrder = []string{
	FieldTemperature,
	FieldHumidity,
	FieldSteps,
	FieldX,
	FieldY,
	FieldZ,
	FieldMagnitude,
	FieldFeeling,
}

// ThingSpeakChannel ThingSpeak 遥测上传
type ThingSpeakChannel struct {
	httpClient *resty.Client
	apiKey     string
	logger     *zap.Logger
}

// NewThingSpeakChannel 创建 ThingSpeak 上传通道
func NewThingSpeakChannel(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *ThingSpeakChannel {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &ThingSpeakChannel{
		httpClient: client,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Name 通道名
func (c *ThingSpeakChannel) Name() string {
	return "thingspeak"
}

// Upload GET /update?api_key=...&field1=...
// ThingSpeak 限流时返回 200 且 body 为 "0"，视为失败
func (c *ThingSpeakChannel) Upload(ctx context.Context, fields Fields) bool {
	params := map[string]string{"api_key": c.apiKey}
	for i, name := range thingSpeakFieldOrder {
		if v, ok := fields[name]; ok {
			params["field"+strconv.Itoa(i+1)] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/update")
	if err != nil {
		c.logger.Error("Failed to upload to ThingSpeak", zap.Error(err))
		return false
	}

	body := strings.TrimSpace(resp.String())
	if resp.StatusCode() != http.StatusOK || body == "0" {
		c.logger.Warn("ThingSpeak upload rejected",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", body),
		)
		return false
	}

	c.logger.Debug("Telemetry uploaded to ThingSpeak", zap.String("entry_id", body))
	return true
}
