package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	TopicPrefix string // 如 "guardian"，主题为 {prefix}/{device_id}/telemetry
}

// Config 监护设备配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	Device struct {
		ID string // 设备标识，写入报警事件和遥测
	}

	Sensor struct {
		Mode       string // "synthetic" 或 "serial"
		SerialPort string
		BaudRate   int
		StaleAfter time.Duration // 串口读数超过该时长视为不可用
		Seed       int64         // synthetic 模式随机种子（0 = 按时间）
	}

	Motion struct {
		PollInterval  time.Duration // 默认 100ms
		StepThreshold float64       // |Δz| 阈值，默认 0.0015g
	}

	Fall struct {
		ImpactThreshold      float64 // |Δmagnitude| 阈值，默认 0.15g
		FreeFallThreshold    float64 // magnitude 下限，默认 0.5g
		TiltDeg              float64 // 躺倒角度，默认 70°
		OrientationDeltaDeg  float64 // 单次采样角度变化，默认 45°
		ConfirmationWindow   time.Duration
		Cooldown             time.Duration
		EmergencyAlertLength time.Duration // 蜂鸣器/LED 紧急模式持续时间
	}

	Inactivity struct {
		Threshold   float64       // magnitude 低于该值视为静止，默认 0.02g
		Duration    time.Duration // 默认 300s
		WarningTime time.Duration // 本地静止提示，默认 180s
	}

	Presence struct {
		PollInterval           time.Duration // 默认 1s
		PresentThresholdCM     float64       // 默认 200cm
		AbsentThresholdCM      float64       // 默认 300cm
		ProlongedAbsence       time.Duration // 默认 1800s
		NoReadingLogEvery      int           // 连续无读数每 N 次记录一次，默认 5
		StatusLogEveryReadings int           // 每 N 次读数输出一次状态，默认 10
	}

	Schedule struct {
		WakeStart string // "06:00"
		WakeEnd   string // "22:00"
		Timezone  string // "Local" 或 IANA 名称，如 "Asia/Shanghai"
	}

	Checkin struct {
		PollInterval time.Duration // 默认 10s
		Interval     time.Duration // 默认 4h
		Timeout      time.Duration // 默认 300s
	}

	Interaction struct {
		KeyPollTimeout  time.Duration // 默认 500ms
		FeelingTimeout  time.Duration // 默认 10s
		IdleRefreshPoll int           // 空闲 N 次轮询刷新一次屏幕，默认 10
	}

	Telemetry struct {
		Interval       time.Duration // 默认 20s
		ThingSpeakURL  string
		ThingSpeakKey  string
		SnapshotTTL    time.Duration // Redis 实时快照 TTL，默认 30s
		DefaultFeeling int           // 无用户输入时上传的 feeling，默认 5
	}

	Telegram struct {
		BaseURL  string
		BotToken string
		ChatID   string
	}

	Dispatch struct {
		Timeout time.Duration // 外部调用超时，默认 5s
	}

	Storage struct {
		Dir        string // CSV 文件目录
		CSVEnabled bool
		ReportPath string // 每日汇总 xlsx 路径，空则不生成
	}

	Log struct {
		Level       string
		Format      string
		ServiceName string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	// .env 文件不存在时直接使用系统环境变量
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Database.Enabled = getEnvBool("DB_ENABLED", false)
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "guardian")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 4)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 2)

	cfg.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Enabled = getEnvBool("MQTT_ENABLED", false)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-guardian")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "guardian")

	cfg.Device.ID = getEnv("DEVICE_ID", "guardian-01")

	cfg.Sensor.Mode = getEnv("SENSOR_MODE", "synthetic")
	cfg.Sensor.SerialPort = getEnv("SENSOR_SERIAL_PORT", "/dev/ttyUSB0")
	cfg.Sensor.BaudRate = getEnvInt("SENSOR_BAUD_RATE", 115200)
	cfg.Sensor.StaleAfter = getEnvMillis("SENSOR_STALE_AFTER_MS", 2000)
	cfg.Sensor.Seed = int64(getEnvInt("SENSOR_SEED", 0))

	cfg.Motion.PollInterval = getEnvMillis("MOTION_POLL_MS", 100)
	cfg.Motion.StepThreshold = getEnvFloat("STEP_THRESHOLD", 0.0015)

	cfg.Fall.ImpactThreshold = getEnvFloat("FALL_IMPACT_THRESHOLD", 0.15)
	cfg.Fall.FreeFallThreshold = getEnvFloat("FALL_FREE_FALL_THRESHOLD", 0.5)
	cfg.Fall.TiltDeg = getEnvFloat("FALL_TILT_DEG", 70)
	cfg.Fall.OrientationDeltaDeg = getEnvFloat("FALL_ORIENTATION_DELTA_DEG", 45)
	cfg.Fall.ConfirmationWindow = getEnvSeconds("FALL_CONFIRMATION_SEC", 5)
	cfg.Fall.Cooldown = getEnvSeconds("FALL_COOLDOWN_SEC", 30)
	cfg.Fall.EmergencyAlertLength = getEnvSeconds("FALL_EMERGENCY_ALERT_SEC", 60)

	cfg.Inactivity.Threshold = getEnvFloat("INACTIVITY_THRESHOLD", 0.02)
	cfg.Inactivity.Duration = getEnvSeconds("INACTIVITY_DURATION_SEC", 300)
	cfg.Inactivity.WarningTime = getEnvSeconds("INACTIVITY_WARNING_SEC", 180)

	cfg.Presence.PollInterval = getEnvMillis("PRESENCE_POLL_MS", 1000)
	cfg.Presence.PresentThresholdCM = getEnvFloat("PRESENT_THRESHOLD_CM", 200)
	cfg.Presence.AbsentThresholdCM = getEnvFloat("ABSENT_THRESHOLD_CM", 300)
	cfg.Presence.ProlongedAbsence = getEnvSeconds("PROLONGED_ABSENCE_SEC", 1800)
	cfg.Presence.NoReadingLogEvery = getEnvInt("PRESENCE_NO_READING_LOG_EVERY", 5)
	cfg.Presence.StatusLogEveryReadings = getEnvInt("PRESENCE_STATUS_LOG_EVERY", 10)

	cfg.Schedule.WakeStart = getEnv("WAKE_START", "06:00")
	cfg.Schedule.WakeEnd = getEnv("WAKE_END", "22:00")
	cfg.Schedule.Timezone = getEnv("TIMEZONE", "Local")

	cfg.Checkin.PollInterval = getEnvSeconds("CHECKIN_POLL_SEC", 10)
	cfg.Checkin.Interval = getEnvSeconds("CHECKIN_INTERVAL_SEC", 4*3600)
	cfg.Checkin.Timeout = getEnvSeconds("CHECKIN_TIMEOUT_SEC", 300)

	cfg.Interaction.KeyPollTimeout = getEnvMillis("KEY_POLL_MS", 500)
	cfg.Interaction.FeelingTimeout = getEnvSeconds("FEELING_TIMEOUT_SEC", 10)
	cfg.Interaction.IdleRefreshPoll = getEnvInt("IDLE_REFRESH_POLLS", 10)

	cfg.Telemetry.Interval = getEnvSeconds("TELEMETRY_INTERVAL_SEC", 20)
	cfg.Telemetry.ThingSpeakURL = getEnv("THINGSPEAK_URL", "https://api.thingspeak.com")
	cfg.Telemetry.ThingSpeakKey = getEnv("THINGSPEAK_API_KEY", "")
	cfg.Telemetry.SnapshotTTL = getEnvSeconds("SNAPSHOT_TTL_SEC", 30)
	cfg.Telemetry.DefaultFeeling = getEnvInt("TELEMETRY_DEFAULT_FEELING", 5)

	cfg.Telegram.BaseURL = getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org")
	cfg.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.Telegram.ChatID = getEnv("TELEGRAM_CHAT_ID", "")

	cfg.Dispatch.Timeout = getEnvSeconds("DISPATCH_TIMEOUT_SEC", 5)

	cfg.Storage.Dir = getEnv("STORAGE_DIR", "data")
	cfg.Storage.CSVEnabled = getEnvBool("CSV_ENABLED", true)
	cfg.Storage.ReportPath = getEnv("DAILY_REPORT_PATH", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.ServiceName = getEnv("SERVICE_NAME", "wisefido-guardian")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置的一致性
func (c *Config) Validate() error {
	if c.Device.ID == "" {
		return fmt.Errorf("device id is required")
	}
	switch c.Sensor.Mode {
	case "synthetic", "serial":
	default:
		return fmt.Errorf("unknown sensor mode: %s", c.Sensor.Mode)
	}
	if c.Presence.AbsentThresholdCM <= c.Presence.PresentThresholdCM {
		return fmt.Errorf("absent threshold (%.1fcm) must exceed present threshold (%.1fcm)",
			c.Presence.AbsentThresholdCM, c.Presence.PresentThresholdCM)
	}

	durations := map[string]time.Duration{
		"MOTION_POLL_MS":          c.Motion.PollInterval,
		"PRESENCE_POLL_MS":        c.Presence.PollInterval,
		"CHECKIN_POLL_SEC":        c.Checkin.PollInterval,
		"CHECKIN_INTERVAL_SEC":    c.Checkin.Interval,
		"CHECKIN_TIMEOUT_SEC":     c.Checkin.Timeout,
		"FALL_CONFIRMATION_SEC":   c.Fall.ConfirmationWindow,
		"INACTIVITY_DURATION_SEC": c.Inactivity.Duration,
		"PROLONGED_ABSENCE_SEC":   c.Presence.ProlongedAbsence,
		"TELEMETRY_INTERVAL_SEC":  c.Telemetry.Interval,
		"DISPATCH_TIMEOUT_SEC":    c.Dispatch.Timeout,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	if c.Fall.Cooldown < 0 {
		return fmt.Errorf("FALL_COOLDOWN_SEC must not be negative")
	}
	if c.Motion.StepThreshold <= 0 {
		return fmt.Errorf("STEP_THRESHOLD must be positive")
	}
	if !isClock(c.Schedule.WakeStart) || !isClock(c.Schedule.WakeEnd) {
		return fmt.Errorf("invalid wake window: %s-%s", c.Schedule.WakeStart, c.Schedule.WakeEnd)
	}
	return nil
}

// isClock 检查 "HH:MM" 格式
func isClock(s string) bool {
	_, err := time.Parse("15:04", strings.TrimSpace(s))
	return err == nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Second
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}
