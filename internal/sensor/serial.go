package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"wisefido-guardian/internal/models"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// 单片机输出的行格式：
//
//	A,<x>,<y>,<z>     加速度（g）
//	D,<cm> 或 D,NA    超声波距离
//	T,<temp>,<hum>    DHT11 温湿度
const (
	kindAccel    = "A"
	kindDistance = "D"
	kindClimate  = "T"
)

type reading struct {
	kind     string
	sample   models.Sample3D
	distance float64
	valid    bool // 距离是否有效（D,NA 或超出量程时为 false）
	climate  models.Climate
}

// SerialSource 串口数据源
// 后台 goroutine 持续读取行并保存每类最新读数，超过 staleAfter 的读数视为不可用。
// 加速度样本只交付一次，两行之间的轮询返回 ErrUnavailable
type SerialSource struct {
	port       io.ReadCloser
	staleAfter time.Duration
	now        func() time.Time
	logger     *zap.Logger

	mu           sync.Mutex
	motion       models.Sample3D
	motionAt     time.Time
	motionUnread bool
	distance     float64
	distanceOK   bool
	distanceAt   time.Time
	climate      models.Climate
	climateAt    time.Time
	malformed    int
	readerClosed chan struct{}
}

// NewSerialSource 打开串口（8N1）
func NewSerialSource(path string, baudRate int, staleAfter time.Duration, logger *zap.Logger) (*SerialSource, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	logger.Info("Serial sensor source opened",
		zap.String("port", path),
		zap.Int("baud_rate", baudRate),
	)
	return newSerialSource(port, staleAfter, time.Now, logger), nil
}

func newSerialSource(port io.ReadCloser, staleAfter time.Duration, now func() time.Time, logger *zap.Logger) *SerialSource {
	s := &SerialSource{
		port:         port,
		staleAfter:   staleAfter,
		now:          now,
		logger:       logger,
		readerClosed: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *SerialSource) readLoop() {
	defer close(s.readerClosed)

	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		r, ok := parseLine(scanner.Text())
		if !ok {
			s.mu.Lock()
			s.malformed++
			n := s.malformed
			s.mu.Unlock()
			if n%100 == 1 {
				s.logger.Debug("Ignoring malformed serial line",
					zap.String("line", scanner.Text()),
					zap.Int("malformed_total", n),
				)
			}
			continue
		}
		s.store(r)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("Serial read failed", zap.Error(err))
	}
}

func (s *SerialSource) store(r reading) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.kind {
	case kindAccel:
		s.motion = r.sample
		s.motion.Timestamp = now
		s.motionAt = now
		s.motionUnread = true
	case kindDistance:
		s.distance = r.distance
		s.distanceOK = r.valid
		s.distanceAt = now
	case kindClimate:
		s.climate = r.climate
		s.climateAt = now
	}
}

// ReadMotion 最新且尚未读取过的加速度读数
func (s *SerialSource) ReadMotion(ctx context.Context) (models.Sample3D, error) {
	if err := ctx.Err(); err != nil {
		return models.Sample3D{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.motionUnread || !s.fresh(s.motionAt) {
		return models.Sample3D{}, ErrUnavailable
	}
	s.motionUnread = false
	return s.motion, nil
}

// ReadDistance 最新的距离读数
func (s *SerialSource) ReadDistance(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fresh(s.distanceAt) || !s.distanceOK {
		return 0, ErrUnavailable
	}
	return s.distance, nil
}

// ReadClimate 最新的温湿度读数
func (s *SerialSource) ReadClimate(ctx context.Context) (models.Climate, error) {
	if err := ctx.Err(); err != nil {
		return models.Climate{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fresh(s.climateAt) {
		return models.Climate{}, ErrUnavailable
	}
	return s.climate, nil
}

// Close 关闭串口并等待读取 goroutine 退出
func (s *SerialSource) Close() error {
	err := s.port.Close()
	<-s.readerClosed
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

func (s *SerialSource) fresh(at time.Time) bool {
	return !at.IsZero() && s.now().Sub(at) <= s.staleAfter
}

// parseLine 解析一行输出，格式错误返回 false
func parseLine(line string) (reading, bool) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) < 2 {
		return reading{}, false
	}

	switch parts[0] {
	case kindAccel:
		vals, ok := parseFloats(parts[1:], 3)
		if !ok {
			return reading{}, false
		}
		return reading{
			kind:   kindAccel,
			sample: models.Sample3D{X: vals[0], Y: vals[1], Z: vals[2]},
		}, true

	case kindDistance:
		if len(parts) != 2 {
			return reading{}, false
		}
		if strings.EqualFold(parts[1], "NA") {
			return reading{kind: kindDistance}, true
		}
		cm, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return reading{}, false
		}
		return reading{kind: kindDistance, distance: cm, valid: validDistance(cm)}, true

	case kindClimate:
		vals, ok := parseFloats(parts[1:], 2)
		if !ok {
			return reading{}, false
		}
		return reading{
			kind:    kindClimate,
			climate: models.Climate{Temperature: vals[0], Humidity: vals[1], Valid: true},
		}, true
	}

	return reading{}, false
}

func parseFloats(fields []string, n int) ([]float64, bool) {
	if len(fields) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
