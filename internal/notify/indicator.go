package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Indicator 本地声光提示（蜂鸣器 / LED）
type Indicator interface {
	Warning(d time.Duration)
	Emergency(d time.Duration)
	InactiveWarning(d time.Duration)
	Normal()
	Stop()
	Alerting() bool
}

// IndicatorMode 当前提示模式
type IndicatorMode string

const (
	IndicatorOff       IndicatorMode = "off"
	IndicatorNormal    IndicatorMode = "normal"
	IndicatorWarning   IndicatorMode = "warning"
	IndicatorEmergency IndicatorMode = "emergency"
	IndicatorInactive  IndicatorMode = "inactive_warning"
)

// LogIndicator 将提示模式变化写入日志（无蜂鸣器/LED 硬件时使用）
type LogIndicator struct {
	mu     sync.Mutex
	mode   IndicatorMode
	until  time.Time
	now    func() time.Time
	logger *zap.Logger
}

// NewLogIndicator 创建日志提示器
func NewLogIndicator(logger *zap.Logger) *LogIndicator {
	return &LogIndicator{
		mode:   IndicatorOff,
		now:    time.Now,
		logger: logger,
	}
}

// Warning 疑似跌倒提示
func (i *LogIndicator) Warning(d time.Duration) {
	i.set(IndicatorWarning, d)
}

// Emergency 确认跌倒紧急提示
func (i *LogIndicator) Emergency(d time.Duration) {
	i.set(IndicatorEmergency, d)
}

// InactiveWarning 静止提示
func (i *LogIndicator) InactiveWarning(d time.Duration) {
	i.set(IndicatorInactive, d)
}

// Normal 正常状态
func (i *LogIndicator) Normal() {
	i.set(IndicatorNormal, 0)
}

// Stop 停止所有提示
func (i *LogIndicator) Stop() {
	i.set(IndicatorOff, 0)
}

// Alerting 是否有未过期的报警提示
func (i *LogIndicator) Alerting() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.mode {
	case IndicatorWarning, IndicatorEmergency, IndicatorInactive:
		return i.now().Before(i.until)
	default:
		return false
	}
}

// Mode 当前模式
func (i *LogIndicator) Mode() IndicatorMode {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mode
}

func (i *LogIndicator) set(mode IndicatorMode, d time.Duration) {
	i.mu.Lock()
	changed := i.mode != mode
	i.mode = mode
	i.until = i.now().Add(d)
	i.mu.Unlock()

	if changed {
		i.logger.Info("Indicator pattern changed",
			zap.String("mode", string(mode)),
			zap.Duration("duration", d),
		)
	}
}
