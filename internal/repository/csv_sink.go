// Package repository 记录持久化：CSV 文件、PostgreSQL、Excel 日报
package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// CSV 文件名
const (
	ActivityFile = "combined_monitoring_data.csv"
	FallFile     = "fall_events.csv"
	SummaryFile  = "daily_summaries.csv"
	AlarmFile    = "alarm_events.csv"
)

const csvTimeLayout = "2006-01-02 15:04:05"

var csvHeaders = map[models.RecordKind][]string{
	models.RecordActivity: {
		"Timestamp", "Temperature", "Humidity", "User_Status", "User_Feeling",
		"Steps", "X_Axis", "Y_Axis", "Z_Axis", "Magnitude", "Posture", "Distance_cm", "Person_Present",
	},
	models.RecordFall: {
		"Timestamp", "X_Axis", "Y_Axis", "Z_Axis", "Magnitude", "Pitch", "Roll", "Reason", "Detail",
	},
	models.RecordDailySummary: {
		"Date", "Steps_Taken", "Eaten_Count", "Walked_Count", "Avg_Feeling",
		"Checkins_Completed", "Checkins_Missed",
	},
	models.RecordAlarm: {
		"Event_ID", "Device_ID", "Event_Type", "Category", "Alarm_Level", "Alarm_Status",
		"Triggered_At", "Message", "Trigger_Data",
	},
}

var csvFiles = map[models.RecordKind]string{
	models.RecordActivity:     ActivityFile,
	models.RecordFall:         FallFile,
	models.RecordDailySummary: SummaryFile,
	models.RecordAlarm:        AlarmFile,
}

// CSVSink 按记录类型追加到不同的 CSV 文件，新文件先写表头
type CSVSink struct {
	dir    string
	logger *zap.Logger

	mu sync.Mutex
}

// NewCSVSink 创建 CSV 持久化，目录不存在时创建
func NewCSVSink(dir string, logger *zap.Logger) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return &CSVSink{dir: dir, logger: logger}, nil
}

// AppendRow 实现 RecordSink
func (s *CSVSink) AppendRow(ctx context.Context, record models.Record) error {
	row, err := csvRow(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, csvFiles[record.Kind])
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeaders[record.Kind]); err != nil {
			return fmt.Errorf("failed to write header to %s: %w", path, err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write row to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	s.logger.Debug("Record appended to CSV",
		zap.String("kind", string(record.Kind)),
		zap.String("file", path),
	)
	return nil
}

func csvRow(record models.Record) ([]string, error) {
	switch record.Kind {
	case models.RecordActivity:
		a := record.Activity
		if a == nil {
			return nil, fmt.Errorf("activity record is empty")
		}
		distance := ""
		if a.DistanceCM != nil {
			distance = formatFloat(*a.DistanceCM)
		}
		return []string{
			a.Timestamp.Format(csvTimeLayout),
			formatFloat(a.Temperature),
			formatFloat(a.Humidity),
			a.UserStatus,
			strconv.Itoa(a.Feeling),
			strconv.Itoa(a.Steps),
			formatFloat(a.X),
			formatFloat(a.Y),
			formatFloat(a.Z),
			formatFloat(a.Magnitude),
			string(a.Posture),
			distance,
			strconv.FormatBool(a.PersonPresent),
		}, nil

	case models.RecordFall:
		f := record.Fall
		if f == nil {
			return nil, fmt.Errorf("fall record is empty")
		}
		return []string{
			f.Timestamp.Format(csvTimeLayout),
			formatFloat(f.X),
			formatFloat(f.Y),
			formatFloat(f.Z),
			formatFloat(f.Magnitude),
			formatFloat(f.PitchDeg),
			formatFloat(f.RollDeg),
			string(f.Reason),
			f.Detail,
		}, nil

	case models.RecordDailySummary:
		d := record.Summary
		if d == nil {
			return nil, fmt.Errorf("daily summary record is empty")
		}
		return []string{
			d.Date,
			strconv.Itoa(d.Steps),
			strconv.Itoa(d.EatenCount),
			strconv.Itoa(d.WalkedCount),
			strconv.FormatFloat(d.AvgFeeling, 'f', 1, 64),
			strconv.Itoa(d.CheckinsCompleted),
			strconv.Itoa(d.CheckinsMissed),
		}, nil

	case models.RecordAlarm:
		e := record.Alarm
		if e == nil {
			return nil, fmt.Errorf("alarm record is empty")
		}
		return []string{
			e.EventID,
			e.DeviceID,
			e.EventType,
			e.Category,
			e.AlarmLevel,
			e.AlarmStatus,
			e.TriggeredAt.Format(csvTimeLayout),
			e.Message,
			e.TriggerData,
		}, nil
	}
	return nil, fmt.Errorf("unknown record kind: %s", record.Kind)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
