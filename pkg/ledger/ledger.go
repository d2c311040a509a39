// Package ledger appends validated readings to the shared workbook. The
// ledger is append-only; writes are serialized here, retry policy belongs
// to the caller.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReadingsSheet is the append-only sheet.
const ReadingsSheet = "Readings"

// Entry is one fully formed reading row. Immutable once handed over.
type Entry struct {
	Timestamp   time.Time
	PointID     string
	Kind        string
	Inspector   string
	ManualValue *float64
	AIValue     float64
	Status      string
	ImageRef    string
}

// Appender is the write side of the ledger.
type Appender interface {
	Append(ctx context.Context, e Entry) error
}

// XLSXLedger appends entries to a workbook on disk, creating it on first
// use. A mutex serializes writers within the process.
type XLSXLedger struct {
	Path string
	Log  *slog.Logger

	mu sync.Mutex
}

var header = []interface{}{
	"timestamp", "point_id", "kind", "inspector",
	"manual_value", "ai_value", "status", "image_ref",
}

// Append implements Appender.
func (l *XLSXLedger) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, fresh, err := openOrCreate(l.Path, ReadingsSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	if fresh {
		if err := setRow(f, ReadingsSheet, 1, header); err != nil {
			return err
		}
	}
	rows, err := f.GetRows(ReadingsSheet)
	if err != nil {
		return fmt.Errorf("ledger rows: %w", err)
	}
	manual := ""
	if e.ManualValue != nil {
		manual = fmt.Sprintf("%v", *e.ManualValue)
	}
	row := []interface{}{
		e.Timestamp.Format(time.RFC3339),
		e.PointID,
		e.Kind,
		e.Inspector,
		manual,
		e.AIValue,
		e.Status,
		e.ImageRef,
	}
	if err := setRow(f, ReadingsSheet, len(rows)+1, row); err != nil {
		return err
	}
	if err := f.SaveAs(l.Path); err != nil {
		return fmt.Errorf("ledger save: %w", err)
	}
	if l.Log != nil {
		l.Log.Info("ledger append", "point", e.PointID, "value", e.AIValue, "status", e.Status)
	}
	return nil
}

func openOrCreate(path, sheet string) (f *excelize.File, fresh bool, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("open ledger %s: %w", path, err)
		}
	} else {
		f = excelize.NewFile()
		fresh = true
	}
	if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, false, err
		}
		fresh = true
	}
	return f, fresh, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
