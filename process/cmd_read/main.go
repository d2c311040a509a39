package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/rukztnp-boop/water-meter-app-sub000/pkg/meter"
	"github.com/rukztnp-boop/water-meter-app-sub000/pkg/registry"
)

func main() {
	file := flag.String("file", "", "meter photo to read")
	reg := flag.String("registry", "registry.xlsx", "registry workbook")
	point := flag.String("point", "", "skip resolution, use this point id")
	manual := flag.Float64("manual", -1, "operator value for cross-check (-1 = none)")
	flag.Parse()
	if *file == "" {
		log.Fatalf("-file required")
	}
	img, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}

	loader := registry.NewLoader(&registry.XLSXSource{Path: *reg}, 0, slog.Default())
	pl := meter.NewPipeline(meter.NewTesseractProvider(), loader)

	req := meter.Request{Image: img, PointID: *point}
	if *manual >= 0 {
		req.Manual = manual
	}
	res, rd, err := pl.Process(context.Background(), req)
	if err != nil {
		log.Fatalf("pipeline error: %v", err)
	}
	fmt.Printf("point=%s value=%v status=%s origin=%s score=%d low_confidence=%v\n",
		res.PointID, res.Value, res.Status, rd.Origin, rd.Score, rd.LowConfidence)
}
