package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DailySheet holds one row per (point, date) routed by report column.
const DailySheet = "Daily"

// Exporter is the downstream result sink: one value per point per day.
// Export is idempotent per (point_id, target_date).
type Exporter interface {
	Export(ctx context.Context, pointID string, value float64, targetDate time.Time, reportColumn string) error
}

// XLSXExporter writes the daily sheet next to the ledger.
type XLSXExporter struct {
	Path string
	Log  *slog.Logger

	mu sync.Mutex
}

var dailyHeader = []interface{}{"target_date", "point_id", "value", "report_column"}

// Export implements Exporter: an existing (point, date) row is overwritten
// in place, otherwise a row is appended.
func (x *XLSXExporter) Export(ctx context.Context, pointID string, value float64, targetDate time.Time, reportColumn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	f, fresh, err := openOrCreate(x.Path, DailySheet)
	if err != nil {
		return err
	}
	defer f.Close()

	if fresh {
		if err := setRow(f, DailySheet, 1, dailyHeader); err != nil {
			return err
		}
	}
	date := targetDate.Format("2006-01-02")
	rows, err := f.GetRows(DailySheet)
	if err != nil {
		return fmt.Errorf("export rows: %w", err)
	}
	target := len(rows) + 1
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) >= 2 && row[0] == date && row[1] == pointID {
			target = i + 1
			break
		}
	}
	if err := setRow(f, DailySheet, target, []interface{}{date, pointID, value, reportColumn}); err != nil {
		return err
	}
	if err := f.SaveAs(x.Path); err != nil {
		return fmt.Errorf("export save: %w", err)
	}
	if x.Log != nil {
		x.Log.Info("export row", "point", pointID, "date", date, "value", value)
	}
	return nil
}
