package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rukztnp-boop/water-meter-app-sub000/pkg/meter"
)

// PointsSheet is the sheet name holding the point table.
const PointsSheet = "Points"

// XLSXSource reads the point registry from a shared workbook. Expected
// header row: point_id, kind, decimals, expected_digits, keyword,
// allow_negative, ignore_red, report_column (any order, extra columns
// ignored).
type XLSXSource struct {
	Path  string
	Sheet string
}

// LoadPoints implements Source.
func (s *XLSXSource) LoadPoints(ctx context.Context) ([]meter.PointConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", s.Path, err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheet = PointsSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("registry sheet %s has no data rows", sheet)
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"point_id", "kind"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("registry sheet %s missing column %q", sheet, required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var points []meter.PointConfig
	for n, row := range rows[1:] {
		id := cell(row, "point_id")
		if id == "" {
			continue // blank padding rows
		}
		p := meter.PointConfig{
			PointID:      id,
			Kind:         meter.Kind(strings.ToLower(cell(row, "kind"))),
			Keyword:      cell(row, "keyword"),
			ReportColumn: cell(row, "report_column"),
		}
		if v := cell(row, "decimals"); v != "" {
			p.Decimals, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("registry row %d: decimals %q: %w", n+2, v, err)
			}
		}
		if v := cell(row, "expected_digits"); v != "" {
			p.ExpectedDigits, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("registry row %d: expected_digits %q: %w", n+2, v, err)
			}
		}
		p.AllowNegative = parseBool(cell(row, "allow_negative"))
		p.IgnoreRed = parseBool(cell(row, "ignore_red"))
		points = append(points, p)
	}
	return points, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
