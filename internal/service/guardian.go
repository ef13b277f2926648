// Package service 监护服务：按配置组装各组件并运行所有循环
package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"wisefido-guardian/internal/cache"
	"wisefido-guardian/internal/checkin"
	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/consumer"
	"wisefido-guardian/internal/daily"
	"wisefido-guardian/internal/database"
	"wisefido-guardian/internal/evaluator"
	"wisefido-guardian/internal/fusion"
	"wisefido-guardian/internal/interaction"
	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/mqtt"
	"wisefido-guardian/internal/notify"
	"wisefido-guardian/internal/redis"
	"wisefido-guardian/internal/repository"
	"wisefido-guardian/internal/schedule"
	"wisefido-guardian/internal/sensor"
	"wisefido-guardian/internal/state"
	"wisefido-guardian/internal/ui"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 屏幕停留时间
const (
	screenHold   = 3 * time.Second
	greetingHold = 2 * time.Second
	keyQueueSize = 16
)

// GuardianService 监护服务（整合各层）
type GuardianService struct {
	config *config.Config
	logger *zap.Logger

	// 外部资源
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client
	source      sensor.Source
	keyInput    io.Reader

	// 各层组件
	shared      *state.SharedState
	indicator   *notify.LogIndicator
	dispatcher  *notify.Dispatcher
	sink        *repository.MultiSink
	daily       *daily.Aggregator
	fall        *evaluator.FallDetector
	keys        *ui.KeyQueue
	motion      *consumer.MotionConsumer
	presence    *consumer.PresenceConsumer
	checkin     *consumer.CheckinConsumer
	telemetry   *consumer.TelemetryConsumer
	interaction *interaction.Loop

	stopOnce sync.Once
}

// NewGuardianService 创建监护服务，按键从标准输入读取，屏幕输出到标准输出
func NewGuardianService(cfg *config.Config, logger *zap.Logger) (*GuardianService, error) {
	return newGuardianService(cfg, logger, os.Stdin, os.Stdout)
}

func newGuardianService(cfg *config.Config, logger *zap.Logger, keyInput io.Reader, screenOut io.Writer) (*GuardianService, error) {
	s := &GuardianService{
		config:   cfg,
		logger:   logger,
		keyInput: keyInput,
	}
	if err := s.build(screenOut); err != nil {
		s.closeResources()
		return nil, err
	}
	return s, nil
}

func (s *GuardianService) build(screenOut io.Writer) error {
	cfg := s.config
	deviceID := cfg.Device.ID
	ctx := context.Background()
	start := time.Now()

	// 1. 清醒时段
	wake, err := schedule.NewWakeWindow(cfg.Schedule.WakeStart, cfg.Schedule.WakeEnd, cfg.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("failed to create wake window: %w", err)
	}

	// 2. 传感器
	s.source, err = sensor.NewSource(cfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create sensor source: %w", err)
	}

	// 3. 持久化
	var sinks []repository.RecordSink
	if cfg.Storage.CSVEnabled {
		csvSink, err := repository.NewCSVSink(cfg.Storage.Dir, s.logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, csvSink)
	}
	if cfg.Storage.ReportPath != "" {
		sinks = append(sinks, repository.NewExcelReport(cfg.Storage.ReportPath, s.logger))
	}

	var pgSink *repository.PostgresSink
	if cfg.Database.Enabled {
		s.db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return err
		}
		if err := database.EnsureSchema(ctx, s.db); err != nil {
			return err
		}
		pgSink = repository.NewPostgresSink(s.db, s.logger)
		sinks = append(sinks, pgSink)
	}

	// 4. Redis：实时快照、报警事件流、跨重启状态
	var (
		stateStore *cache.StateStore
		timeStore  consumer.TimeStore
		snapCache  consumer.SnapshotCache
	)
	if cfg.Redis.Enabled {
		s.redisClient = redis.NewRedisClient(&cfg.Redis)
		if err := redis.Ping(ctx, s.redisClient); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		kv := cache.NewRedisKVStore(s.redisClient)
		stateStore = cache.NewStateStore(kv, deviceID, cache.DefaultStateTTL, s.logger)
		timeStore = stateStore
		snapCache = cache.NewStateCache(kv, cfg.Telemetry.SnapshotTTL, s.logger)
		sinks = append(sinks, cache.NewEventPublisher(s.redisClient, s.logger))
	}
	s.sink = repository.NewMultiSink(cfg.Dispatch.Timeout, sinks...)

	// 5. 推送通道
	var (
		alerts    []notify.AlertChannel
		telemetry []notify.TelemetryChannel
	)
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		alerts = append(alerts, notify.NewTelegramChannel(cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Dispatch.Timeout, s.logger))
	}
	if cfg.Telemetry.ThingSpeakKey != "" {
		telemetry = append(telemetry, notify.NewThingSpeakChannel(cfg.Telemetry.ThingSpeakURL, cfg.Telemetry.ThingSpeakKey, cfg.Dispatch.Timeout, s.logger))
	}
	if cfg.MQTT.Enabled {
		s.mqttClient, err = mqtt.NewClient(&cfg.MQTT, cfg.Dispatch.Timeout, s.logger)
		if err != nil {
			return err
		}
		ch := notify.NewMQTTChannel(s.mqttClient, deviceID,
			mqtt.Topic(cfg.MQTT.TopicPrefix, deviceID, "telemetry"),
			mqtt.Topic(cfg.MQTT.TopicPrefix, deviceID, "alerts"),
			cfg.MQTT.QoS, s.logger)
		alerts = append(alerts, ch)
		telemetry = append(telemetry, ch)
	}
	if len(alerts) == 0 {
		s.logger.Warn("No alert channel configured, alerts will only be logged")
	}
	s.dispatcher = notify.NewDispatcher(alerts, telemetry, cfg.Dispatch.Timeout, s.logger)

	// 6. 共享状态与每日统计
	s.shared = state.NewSharedState(deviceID)
	s.indicator = notify.NewLogIndicator(s.logger)
	s.daily = daily.NewAggregator(deviceID, wake.Location(), s.shared, s.sink, start, s.logger)

	// 7. 检测器
	classifier := fusion.NewMotionClassifier(cfg.Motion.StepThreshold)
	fall := evaluator.NewFallDetector(evaluator.FallConfig{
		ImpactThreshold:      cfg.Fall.ImpactThreshold,
		FreeFallThreshold:    cfg.Fall.FreeFallThreshold,
		TiltDeg:              cfg.Fall.TiltDeg,
		OrientationDeltaDeg:  cfg.Fall.OrientationDeltaDeg,
		ConfirmationWindow:   cfg.Fall.ConfirmationWindow,
		Cooldown:             cfg.Fall.Cooldown,
		EmergencyAlertLength: cfg.Fall.EmergencyAlertLength,
	}, deviceID, s.dispatcher, s.indicator, s.sink, s.logger)
	s.fall = fall
	inactivity := evaluator.NewInactivityMonitor(evaluator.InactivityConfig{
		Threshold:   cfg.Inactivity.Threshold,
		Duration:    cfg.Inactivity.Duration,
		WarningTime: cfg.Inactivity.WarningTime,
	}, deviceID, s.dispatcher, s.indicator, s.sink, s.logger)
	presence := evaluator.NewPresenceMonitor(evaluator.PresenceConfig{
		PresentThresholdCM: cfg.Presence.PresentThresholdCM,
		AbsentThresholdCM:  cfg.Presence.AbsentThresholdCM,
		ProlongedAbsence:   cfg.Presence.ProlongedAbsence,
		NoReadingLogEvery:  cfg.Presence.NoReadingLogEvery,
		StatusLogEvery:     cfg.Presence.StatusLogEveryReadings,
	}, deviceID, s.dispatcher, s.sink, start, s.logger)

	// 8. 屏幕与按键
	screen := ui.NewConsoleUI(screenOut)
	s.keys = ui.NewKeyQueue(keyQueueSize, s.logger)
	if s.mqttClient != nil {
		if err := s.keys.SubscribeRemote(s.mqttClient, mqtt.Topic(cfg.MQTT.TopicPrefix, deviceID, "keys"), cfg.MQTT.QoS); err != nil {
			s.logger.Warn("Remote keypad unavailable", zap.Error(err))
		}
	}

	scheduler := checkin.NewScheduler(checkin.Config{
		Interval: cfg.Checkin.Interval,
		Timeout:  cfg.Checkin.Timeout,
	}, deviceID, wake, screen, s.shared, s.dispatcher, s.daily, s.sink, start, s.logger)

	// 9. 恢复跌倒冷却与签到计时
	s.restore(ctx, stateStore, pgSink, fall, scheduler)

	// 10. 轮询循环
	s.motion = consumer.NewMotionConsumer(cfg.Motion.PollInterval, s.source, classifier, fall, inactivity, wake, s.shared, timeStore, s.logger)
	s.presence = consumer.NewPresenceConsumer(cfg.Presence.PollInterval, s.source, presence, wake, s.shared, s.logger)
	s.checkin = consumer.NewCheckinConsumer(cfg.Checkin.PollInterval, scheduler, s.shared, timeStore, s.logger)
	s.telemetry = consumer.NewTelemetryConsumer(cfg.Telemetry.Interval, cfg.Telemetry.DefaultFeeling, s.dispatcher, snapCache, s.daily, s.shared, s.logger)

	var climate interaction.ClimateReader
	if cr, ok := s.source.(sensor.ClimateReader); ok {
		climate = cr
	}
	s.interaction = interaction.NewLoop(interaction.Config{
		KeyPollTimeout:  cfg.Interaction.KeyPollTimeout,
		FeelingTimeout:  cfg.Interaction.FeelingTimeout,
		IdleRefreshPoll: cfg.Interaction.IdleRefreshPoll,
		ScreenHold:      screenHold,
		GreetingHold:    greetingHold,
	}, deviceID, s.keys, screen, s.shared, s.daily, s.dispatcher, s.dispatcher, s.sink, climate, s.logger)

	s.logger.Info("Guardian service created",
		zap.String("device_id", deviceID),
		zap.String("sensor_mode", cfg.Sensor.Mode),
		zap.Int("alert_channels", len(alerts)),
		zap.Int("telemetry_channels", len(telemetry)),
		zap.Int("record_sinks", s.sink.Len()),
	)
	return nil
}

// restore 从 Redis（优先）或 alarm_events 恢复跨重启的时间点
func (s *GuardianService) restore(ctx context.Context, store *cache.StateStore, pg *repository.PostgresSink, fall *evaluator.FallDetector, scheduler *checkin.Scheduler) {
	if store != nil {
		if t, ok, err := store.LoadTime(ctx, cache.FieldLastFallTime); err != nil {
			s.logger.Warn("Failed to restore fall cooldown", zap.Error(err))
		} else if ok {
			fall.RestoreLastConfirmed(t)
			s.logger.Info("Fall cooldown restored", zap.Time("last_fall_time", t))
		}
		if t, ok, err := store.LoadTime(ctx, cache.FieldLastCheckinTime); err != nil {
			s.logger.Warn("Failed to restore last check-in time", zap.Error(err))
		} else if ok {
			scheduler.RestoreLastCheckin(t)
			s.logger.Info("Check-in timer restored", zap.Time("last_checkin_time", t))
		}
		return
	}

	if pg != nil {
		t, ok, err := pg.LastTriggeredAt(ctx, s.config.Device.ID, models.EventTypeFall)
		if err != nil {
			s.logger.Warn("Failed to restore fall cooldown", zap.Error(err))
			return
		}
		if ok {
			fall.RestoreLastConfirmed(t)
			s.logger.Info("Fall cooldown restored", zap.Time("last_fall_time", t))
		}
	}
}

// Start 启动所有循环，阻塞到 ctx 取消或 Stop
func (s *GuardianService) Start(ctx context.Context) error {
	s.logger.Info("Starting guardian service", zap.String("device_id", s.config.Device.ID))

	if s.keyInput != nil {
		go s.keys.ReadFrom(s.keyInput)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.motion.Start(gctx) })
	g.Go(func() error { return s.presence.Start(gctx) })
	g.Go(func() error { return s.checkin.Start(gctx) })
	g.Go(func() error { return s.telemetry.Start(gctx) })
	g.Go(func() error { return s.interaction.Run(gctx) })

	// ctx 取消时让所有循环在一个周期内退出
	go func() {
		<-gctx.Done()
		s.shared.Stop()
	}()

	err := g.Wait()
	s.shared.Stop()
	if err != nil {
		s.logger.Error("Guardian service loop failed", zap.Error(err))
		return fmt.Errorf("guardian service stopped with error: %w", err)
	}
	s.logger.Info("Guardian service loops stopped")
	return nil
}

// Running 服务是否仍在运行
func (s *GuardianService) Running() bool {
	return s.shared.Running()
}

// Stop 停止服务并关闭外部资源，可重复调用
func (s *GuardianService) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping guardian service")
		if s.shared != nil {
			s.shared.Stop()
		}
		if s.indicator != nil {
			s.indicator.Stop()
		}
		s.closeResources()
	})
	return nil
}

func (s *GuardianService) closeResources() {
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			s.logger.Error("Failed to close sensor source", zap.Error(err))
		}
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redisClient != nil {
		if err := redis.Close(s.redisClient); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		}
	}
}
