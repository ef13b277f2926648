// Package daily 每日统计：步数、吃饭/散步次数、感受评分、签到结果
//
// 每次访问都会先检查日期；跨日时把前一天的计数归档为 DailySummary 并重置。
// 步数以启动/跨日时的实时步数为偏移量，当天步数从 0 开始。
package daily

import (
	"context"
	"sync"
	"time"

	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// 活动类型
const (
	ActivityEaten  = "eaten"
	ActivityWalked = "walked"
)

// StepSource 实时步数（state.SharedState 实现）
type StepSource interface {
	Steps() int
}

// SummarySink 每日汇总持久化
type SummarySink interface {
	AppendRow(ctx context.Context, record models.Record) error
}

// Aggregator 每日统计，所有方法并发安全
// 锁只保护计数，归档写入在锁外进行
type Aggregator struct {
	mu       sync.Mutex
	deviceID string
	location *time.Location
	steps    StepSource
	sink     SummarySink
	logger   *zap.Logger

	counters models.DailyCounters
}

// NewAggregator 创建每日统计，日期按 location 计算
func NewAggregator(deviceID string, location *time.Location, steps StepSource, sink SummarySink, now time.Time, logger *zap.Logger) *Aggregator {
	if location == nil {
		location = time.Local
	}
	a := &Aggregator{
		deviceID: deviceID,
		location: location,
		steps:    steps,
		sink:     sink,
		logger:   logger,
	}
	a.counters = a.freshCounters(now)
	return a
}

// Ensure 检查日期，跨日时归档并重置；返回是否发生了归档
// 同一天内多次调用不做任何事
func (a *Aggregator) Ensure(ctx context.Context, now time.Time) bool {
	a.mu.Lock()
	summary, rolled := a.rolloverLocked(now)
	a.mu.Unlock()

	if rolled {
		a.archive(ctx, summary)
	}
	return rolled
}

// RecordActivity 记录一次吃饭/散步
func (a *Aggregator) RecordActivity(ctx context.Context, now time.Time, activity string) {
	a.update(ctx, now, func(c *models.DailyCounters) {
		switch activity {
		case ActivityEaten:
			c.EatenCount++
		case ActivityWalked:
			c.WalkedCount++
		}
	})
}

// AddFeeling 记录一次感受评分（1-9）
func (a *Aggregator) AddFeeling(ctx context.Context, now time.Time, rating int) {
	a.update(ctx, now, func(c *models.DailyCounters) {
		c.FeelingRatings = append(c.FeelingRatings, rating)
	})
}

// RecordCheckin 记录一次签到结果
func (a *Aggregator) RecordCheckin(ctx context.Context, now time.Time, completed bool) {
	a.update(ctx, now, func(c *models.DailyCounters) {
		if completed {
			c.CheckinsCompleted++
		} else {
			c.CheckinsMissed++
		}
	})
}

// Summary 当天的实时汇总
func (a *Aggregator) Summary(ctx context.Context, now time.Time) models.DailySummary {
	a.Ensure(ctx, now)

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summaryLocked(now)
}

// Counters 当天计数（副本）
func (a *Aggregator) Counters() models.DailyCounters {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.counters
	c.FeelingRatings = append([]int(nil), a.counters.FeelingRatings...)
	return c
}

// AverageFeeling 感受评分均值，空序列返回 0
func AverageFeeling(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	xs := make([]float64, len(ratings))
	for i, r := range ratings {
		xs[i] = float64(r)
	}
	return stat.Mean(xs, nil)
}

func (a *Aggregator) update(ctx context.Context, now time.Time, fn func(c *models.DailyCounters)) {
	a.mu.Lock()
	summary, rolled := a.rolloverLocked(now)
	fn(&a.counters)
	a.mu.Unlock()

	if rolled {
		a.archive(ctx, summary)
	}
}

func (a *Aggregator) rolloverLocked(now time.Time) (models.DailySummary, bool) {
	today := now.In(a.location).Format(models.DateLayout)
	if today == a.counters.Date {
		return models.DailySummary{}, false
	}

	summary := a.summaryLocked(now)
	a.logger.Info("New day detected, resetting daily data",
		zap.String("from", a.counters.Date),
		zap.String("to", today),
	)
	a.counters = a.freshCounters(now)
	return summary, true
}

func (a *Aggregator) summaryLocked(now time.Time) models.DailySummary {
	steps := a.steps.Steps() - a.counters.StepsStartOffset
	if steps < 0 {
		steps = 0
	}
	return models.DailySummary{
		DeviceID:          a.deviceID,
		Date:              a.counters.Date,
		Steps:             steps,
		EatenCount:        a.counters.EatenCount,
		WalkedCount:       a.counters.WalkedCount,
		AvgFeeling:        AverageFeeling(a.counters.FeelingRatings),
		CheckinsCompleted: a.counters.CheckinsCompleted,
		CheckinsMissed:    a.counters.CheckinsMissed,
		ArchivedAt:        now,
	}
}

func (a *Aggregator) freshCounters(now time.Time) models.DailyCounters {
	return models.DailyCounters{
		Date:             now.In(a.location).Format(models.DateLayout),
		StepsStartOffset: a.steps.Steps(),
		FeelingRatings:   []int{},
	}
}

func (a *Aggregator) archive(ctx context.Context, summary models.DailySummary) {
	if a.sink == nil {
		return
	}
	if err := a.sink.AppendRow(ctx, models.Record{Kind: models.RecordDailySummary, Summary: &summary}); err != nil {
		a.logger.Error("Failed to archive daily summary",
			zap.String("date", summary.Date),
			zap.Error(err),
		)
		return
	}
	a.logger.Info("Daily summary archived",
		zap.String("date", summary.Date),
		zap.Int("steps", summary.Steps),
		zap.Float64("avg_feeling", summary.AvgFeeling),
	)
}
