package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rukztnp-boop/water-meter-app-sub000/pkg/meter"
)

type fakeSource struct {
	points []meter.PointConfig
	err    error
	calls  int
}

func (f *fakeSource) LoadPoints(ctx context.Context) ([]meter.PointConfig, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

func testPoints() []meter.PointConfig {
	return []meter.PointConfig{
		{PointID: "GT_BP_3_3", Kind: meter.KindAnalog, ExpectedDigits: 5, IgnoreRed: true},
		{PointID: "VSD_PUMP_1", Kind: meter.KindDigital, Decimals: 2, Keyword: "Previous day"},
		{PointID: "WT_MAIN_1", Kind: meter.KindScada, Decimals: 2, Keyword: "Previous day"},
	}
}

func TestLoaderCachesSnapshot(t *testing.T) {
	src := &fakeSource{points: testPoints()}
	l := NewLoader(src, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Lookup(ctx, "GT_BP_3_3"); err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("source called %d times, want 1", src.calls)
	}
}

func TestLoaderInvalidate(t *testing.T) {
	src := &fakeSource{points: testPoints()}
	l := NewLoader(src, time.Minute, nil)
	ctx := context.Background()

	if _, err := l.Keys(ctx); err != nil {
		t.Fatalf("keys: %v", err)
	}
	l.Invalidate()
	if _, err := l.Keys(ctx); err != nil {
		t.Fatalf("keys after invalidate: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("source called %d times, want 2", src.calls)
	}
}

func TestLoaderTTL(t *testing.T) {
	src := &fakeSource{points: testPoints()}
	l := NewLoader(src, time.Millisecond, nil)
	ctx := context.Background()

	if _, err := l.Keys(ctx); err != nil {
		t.Fatalf("keys: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := l.Keys(ctx); err != nil {
		t.Fatalf("keys after ttl: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("source called %d times, want 2", src.calls)
	}
}

func TestLookupNormalizesID(t *testing.T) {
	l := NewLoader(&fakeSource{points: testPoints()}, time.Minute, nil)
	cfg, err := l.Lookup(context.Background(), "gt bp 3 3")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if cfg.PointID != "GT_BP_3_3" {
		t.Fatalf("point = %s", cfg.PointID)
	}
}

func TestLookupUnknown(t *testing.T) {
	l := NewLoader(&fakeSource{points: testPoints()}, time.Minute, nil)
	_, err := l.Lookup(context.Background(), "NO_SUCH_POINT")
	if !errors.Is(err, meter.ErrUnknownPoint) {
		t.Fatalf("expected ErrUnknownPoint, got %v", err)
	}
}

func TestSourceFailureWrapped(t *testing.T) {
	l := NewLoader(&fakeSource{err: fmt.Errorf("sheet is locked")}, time.Minute, nil)
	_, err := l.Keys(context.Background())
	if !errors.Is(err, meter.ErrRegistryUnavailable) {
		t.Fatalf("expected ErrRegistryUnavailable, got %v", err)
	}
}

func TestDuplicateAfterNormalization(t *testing.T) {
	src := &fakeSource{points: []meter.PointConfig{
		{PointID: "GT-BP-3", Kind: meter.KindDigital},
		{PointID: "GT BP 3", Kind: meter.KindDigital},
	}}
	l := NewLoader(src, time.Minute, nil)
	if _, err := l.Keys(context.Background()); err == nil {
		t.Fatalf("expected duplicate-id error")
	}
}

func TestInvalidPointRejected(t *testing.T) {
	// Analog points carry no decimals; the registry must refuse the row
	// rather than serve a config the engine would misuse.
	src := &fakeSource{points: []meter.PointConfig{
		{PointID: "WM_BAD", Kind: meter.KindAnalog, Decimals: 2, IgnoreRed: true},
	}}
	l := NewLoader(src, time.Minute, nil)
	if _, err := l.Keys(context.Background()); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestPointsSorted(t *testing.T) {
	l := NewLoader(&fakeSource{points: testPoints()}, time.Minute, nil)
	pts, err := l.Points(context.Background())
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if len(pts) != 3 {
		t.Fatalf("len = %d", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		if pts[i-1].PointID >= pts[i].PointID {
			t.Fatalf("points not sorted: %s before %s", pts[i-1].PointID, pts[i].PointID)
		}
	}
}

func TestKeysMapsNormalizedToCanonical(t *testing.T) {
	l := NewLoader(&fakeSource{points: testPoints()}, time.Minute, nil)
	keys, err := l.Keys(context.Background())
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if keys["VSD_PUMP_1"] != "VSD_PUMP_1" {
		t.Fatalf("keys = %v", keys)
	}
}
