package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// KeySource 按键输入
type KeySource interface {
	// NextKey 等待下一个按键，超时或 ctx 取消返回 false
	NextKey(ctx context.Context, timeout time.Duration) (int, bool)
}

// Subscriber MQTT 订阅接口（*mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
}

// KeyQueue 按键队列，多个输入（终端、MQTT 远程按键）写入同一个队列
type KeyQueue struct {
	keys   chan int
	logger *zap.Logger
}

// NewKeyQueue 创建按键队列
func NewKeyQueue(size int, logger *zap.Logger) *KeyQueue {
	return &KeyQueue{
		keys:   make(chan int, size),
		logger: logger,
	}
}

// Push 写入按键，队列满时丢弃
func (q *KeyQueue) Push(key int) bool {
	select {
	case q.keys <- key:
		return true
	default:
		q.logger.Warn("Key queue full, key dropped", zap.Int("key", key))
		return false
	}
}

// NextKey 实现 KeySource
func (q *KeyQueue) NextKey(ctx context.Context, timeout time.Duration) (int, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case k := <-q.keys:
		return k, true
	case <-timer.C:
		return 0, false
	case <-ctx.Done():
		return 0, false
	}
}

// ReadFrom 从 r 逐行读取按键（每行一个数字），直到 EOF；在独立 goroutine 中调用
func (q *KeyQueue) ReadFrom(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, err := ParseKey(scanner.Text())
		if err != nil {
			q.logger.Debug("Ignoring invalid key input", zap.String("input", scanner.Text()))
			continue
		}
		q.Push(key)
	}
	if err := scanner.Err(); err != nil {
		q.logger.Error("Key input read failed", zap.Error(err))
	}
}

// SubscribeRemote 订阅远程按键主题，消息体为单个数字
func (q *KeyQueue) SubscribeRemote(sub Subscriber, topic string, qos byte) error {
	err := sub.Subscribe(topic, qos, func(_ string, payload []byte) error {
		key, err := ParseKey(string(payload))
		if err != nil {
			return err
		}
		q.Push(key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe remote keys: %w", err)
	}
	q.logger.Info("Remote keypad subscribed", zap.String("topic", topic))
	return nil
}

// ParseKey 解析单个按键数字 0-9
func ParseKey(s string) (int, error) {
	s = strings.TrimSpace(s)
	key, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: %w", s, err)
	}
	if key < 0 || key > 9 {
		return 0, fmt.Errorf("invalid key %q: out of range", s)
	}
	return key, nil
}
