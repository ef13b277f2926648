// Package sensor 传感器数据源
//
// Source 有两种实现，启动时按配置选择：
//   - SerialSource: 通过串口读取单片机（加速度计 / 超声波 / DHT11）输出的文本行
//   - SyntheticSource: 随机数据，用于无硬件的开发和测试环境
package sensor

import (
	"context"
	"errors"
	"fmt"

	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// ErrUnavailable 本周期没有可用读数
var ErrUnavailable = errors.New("sensor reading unavailable")

// 超声波有效量程
const (
	MinDistanceCM = 2.0
	MaxDistanceCM = 400.0
)

// 传感器模式
const (
	ModeSynthetic = "synthetic"
	ModeSerial    = "serial"
)

// Source 运动与距离数据源
type Source interface {
	ReadMotion(ctx context.Context) (models.Sample3D, error)
	ReadDistance(ctx context.Context) (float64, error)
	Close() error
}

// ClimateReader 温湿度读数（可选能力）
type ClimateReader interface {
	ReadClimate(ctx context.Context) (models.Climate, error)
}

// NewSource 按配置创建数据源
func NewSource(cfg *config.Config, logger *zap.Logger) (Source, error) {
	switch cfg.Sensor.Mode {
	case ModeSynthetic:
		logger.Info("Using synthetic sensor source", zap.Int64("seed", cfg.Sensor.Seed))
		return NewSyntheticSource(cfg.Sensor.Seed), nil
	case ModeSerial:
		src, err := NewSerialSource(cfg.Sensor.SerialPort, cfg.Sensor.BaudRate, cfg.Sensor.StaleAfter, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown sensor mode: %s", cfg.Sensor.Mode)
	}
}

func validDistance(cm float64) bool {
	return cm >= MinDistanceCM && cm <= MaxDistanceCM
}
