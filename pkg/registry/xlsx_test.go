package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet(PointsSheet); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(PointsSheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "points.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestXLSXSourceLoadPoints(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"point_id", "kind", "decimals", "expected_digits", "keyword", "allow_negative", "ignore_red", "report_column"},
		{"GT_BP_3_3", "analog", "", "5", "", "", "yes", "D"},
		{"VSD_PUMP_1", "Digital", "2", "", "Previous day", "no", "", "E"},
		{"", "", "", "", "", "", "", ""},
	})

	src := &XLSXSource{Path: path}
	pts, err := src.LoadPoints(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("points = %d, want 2 (blank row skipped)", len(pts))
	}

	gt := pts[0]
	if gt.PointID != "GT_BP_3_3" || gt.ExpectedDigits != 5 || !gt.IgnoreRed {
		t.Fatalf("analog row parsed wrong: %+v", gt)
	}
	vsd := pts[1]
	if string(vsd.Kind) != "digital" {
		t.Fatalf("kind not lowercased: %q", vsd.Kind)
	}
	if vsd.Decimals != 2 || vsd.Keyword != "Previous day" || vsd.ReportColumn != "E" {
		t.Fatalf("digital row parsed wrong: %+v", vsd)
	}
}

func TestXLSXSourceMissingColumn(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"point_id", "decimals"},
		{"GT_BP_3_3", "0"},
	})
	src := &XLSXSource{Path: path}
	if _, err := src.LoadPoints(context.Background()); err == nil {
		t.Fatalf("expected missing-column error for kind")
	}
}

func TestXLSXSourceBadNumber(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"point_id", "kind", "decimals"},
		{"VSD_PUMP_1", "digital", "two"},
	})
	src := &XLSXSource{Path: path}
	if _, err := src.LoadPoints(context.Background()); err == nil {
		t.Fatalf("expected parse error for decimals")
	}
}

func TestXLSXSourceMissingFile(t *testing.T) {
	src := &XLSXSource{Path: filepath.Join(t.TempDir(), "absent.xlsx")}
	if _, err := src.LoadPoints(context.Background()); err == nil {
		t.Fatalf("expected open error")
	}
}
