package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"wisefido-guardian/internal/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ReportSheet 日报工作表名
const ReportSheet = "Daily Summary"

// DailyReportHeader 日报表头
var DailyReportHeader = []string{
	"Date",
	"Steps",
	"Eaten Count",
	"Walked Count",
	"Avg Feeling",
	"Check-ins Completed",
	"Check-ins Missed",
	"Archived At",
}

// ExcelReport 每日汇总追加到 xlsx，只处理 daily_summary 记录
type ExcelReport struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

// NewExcelReport 创建 Excel 日报
func NewExcelReport(path string, logger *zap.Logger) *ExcelReport {
	return &ExcelReport{path: path, logger: logger}
}

// AppendRow 实现 RecordSink
func (r *ExcelReport) AppendRow(ctx context.Context, record models.Record) error {
	if record.Kind != models.RecordDailySummary || record.Summary == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(ReportSheet)
	if err != nil {
		return fmt.Errorf("failed to read report rows: %w", err)
	}

	s := record.Summary
	row := len(rows) + 1
	values := []interface{}{
		s.Date,
		s.Steps,
		s.EatenCount,
		s.WalkedCount,
		s.AvgFeeling,
		s.CheckinsCompleted,
		s.CheckinsMissed,
		s.ArchivedAt.Format(csvTimeLayout),
	}
	for col, v := range values {
		if err := setCellValue(f, ReportSheet, col+1, row, v); err != nil {
			return fmt.Errorf("failed to set cell (%d,%d): %w", col+1, row, err)
		}
	}

	if err := f.SaveAs(r.path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", r.path, err)
	}

	r.logger.Info("Daily report updated",
		zap.String("path", r.path),
		zap.String("date", s.Date),
		zap.Int("row", row),
	)
	return nil
}

// open 打开已有的日报，不存在时创建带表头的新文件
func (r *ExcelReport) open() (*excelize.File, error) {
	if _, err := os.Stat(r.path); err == nil {
		f, err := excelize.OpenFile(r.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open report %s: %w", r.path, err)
		}
		return f, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat report %s: %w", r.path, err)
	}

	f := excelize.NewFile()
	// 默认的 Sheet1 改名为日报工作表
	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range DailyReportHeader {
		if err := setCellValue(f, ReportSheet, col+1, 1, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell: %w", err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(DailyReportHeader), 1)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(ReportSheet, "A1", last, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(ReportSheet, "A", "H", 18); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	return f, nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
