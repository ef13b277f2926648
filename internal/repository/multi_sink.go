package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wisefido-guardian/internal/models"

	"golang.org/x/sync/errgroup"
)

// RecordSink 记录持久化
type RecordSink interface {
	AppendRow(ctx context.Context, record models.Record) error
}

// MultiSink 并发写入所有 sink，单个失败或超时不影响其他 sink
type MultiSink struct {
	sinks   []RecordSink
	timeout time.Duration
}

// NewMultiSink 创建组合 sink，nil 会被忽略
// timeout > 0 时每次 AppendRow 最多阻塞 timeout，超时的 sink 记为失败
func NewMultiSink(timeout time.Duration, sinks ...RecordSink) *MultiSink {
	m := &MultiSink{timeout: timeout}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len 已配置的 sink 数量
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// AppendRow 实现 RecordSink，错误合并返回
func (m *MultiSink) AppendRow(ctx context.Context, record models.Record) error {
	if len(m.sinks) == 0 {
		return nil
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	errs := make([]error, len(m.sinks))
	var g errgroup.Group
	for i, s := range m.sinks {
		i, s := i, s
		g.Go(func() error {
			errs[i] = appendBounded(ctx, s, record)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// appendBounded 在 ctx 结束时立即返回，不等待忽略 ctx 的 sink
func appendBounded(ctx context.Context, s RecordSink, record models.Record) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("sink panicked on %s record: %v", record.Kind, r)
			}
		}()
		done <- s.AppendRow(ctx, record)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("failed to append %s record: %w", record.Kind, ctx.Err())
	}
}
