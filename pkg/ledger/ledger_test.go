package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func sheetRows(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("rows %s: %v", sheet, err)
	}
	return rows
}

func TestLedgerAppendCreatesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.xlsx")
	l := &XLSXLedger{Path: path}
	manual := 38.87

	err := l.Append(context.Background(), Entry{
		Timestamp:   time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC),
		PointID:     "VSD_PUMP_1",
		Kind:        "digital",
		Inspector:   "somchai",
		ManualValue: &manual,
		AIValue:     38.87,
		Status:      "VERIFIED",
		ImageRef:    "public/meters/abc.jpg",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	rows := sheetRows(t, path, ReadingsSheet)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[1][1] != "VSD_PUMP_1" || rows[1][6] != "VERIFIED" {
		t.Fatalf("row = %v", rows[1])
	}
}

func TestLedgerAppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.xlsx")
	l := &XLSXLedger{Path: path}
	ctx := context.Background()

	for i, point := range []string{"GT_BP_3_3", "GT_BP_3_3", "WT_MAIN_1"} {
		err := l.Append(ctx, Entry{
			Timestamp: time.Now(),
			PointID:   point,
			Kind:      "analog",
			AIValue:   float64(90 + i),
			Status:    "FLAGGED",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	rows := sheetRows(t, path, ReadingsSheet)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3 (no overwrites)", len(rows))
	}
	if rows[1][1] != "GT_BP_3_3" || rows[3][1] != "WT_MAIN_1" {
		t.Fatalf("order lost: %v", rows)
	}
}

func TestLedgerNoManualValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.xlsx")
	l := &XLSXLedger{Path: path}

	err := l.Append(context.Background(), Entry{
		Timestamp: time.Now(),
		PointID:   "WM_TOWER",
		Kind:      "analog",
		AIValue:   91,
		Status:    "FLAGGED",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	rows := sheetRows(t, path, ReadingsSheet)
	if len(rows[1]) > 4 && rows[1][4] != "" {
		t.Fatalf("manual cell should be empty, got %q", rows[1][4])
	}
}

func TestExportIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.xlsx")
	x := &XLSXExporter{Path: path}
	ctx := context.Background()
	day := time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)

	if err := x.Export(ctx, "GT_BP_3_3", 38870, day, "D"); err != nil {
		t.Fatalf("export: %v", err)
	}
	// Re-reading the same point on the same day replaces the row.
	if err := x.Export(ctx, "GT_BP_3_3", 38872, day, "D"); err != nil {
		t.Fatalf("export again: %v", err)
	}
	if err := x.Export(ctx, "VSD_PUMP_1", 38.87, day, "E"); err != nil {
		t.Fatalf("export other point: %v", err)
	}

	rows := sheetRows(t, path, DailySheet)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][1] != "GT_BP_3_3" || rows[1][2] != "38872" {
		t.Fatalf("upsert did not replace in place: %v", rows[1])
	}
	if rows[2][1] != "VSD_PUMP_1" {
		t.Fatalf("second point missing: %v", rows)
	}
}

func TestExportSeparateDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.xlsx")
	x := &XLSXExporter{Path: path}
	ctx := context.Background()

	d1 := time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	if err := x.Export(ctx, "GT_BP_3_3", 38870, d1, "D"); err != nil {
		t.Fatalf("export d1: %v", err)
	}
	if err := x.Export(ctx, "GT_BP_3_3", 38915, d2, "D"); err != nil {
		t.Fatalf("export d2: %v", err)
	}

	rows := sheetRows(t, path, DailySheet)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want one per date", len(rows))
	}
}
