package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rukztnp-boop/water-meter-app-sub000/pkg/ledger"
	"github.com/rukztnp-boop/water-meter-app-sub000/pkg/meter"
	"github.com/rukztnp-boop/water-meter-app-sub000/pkg/registry"
)

var (
	pipeline    *meter.Pipeline
	points      *registry.Loader
	readingsLog ledger.Appender
	exportSink  ledger.Exporter
)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()

	// Support a lightweight migrate command: `./meter_app migrate`
	// It runs AutoMigrate then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration completed")
		return
	}

	initDB()

	regPath := envOr("REGISTRY_PATH", "registry.xlsx")
	ttl := registry.DefaultTTL
	if v := os.Getenv("REGISTRY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("bad REGISTRY_TTL %q: %v", v, err)
		}
		ttl = d
	}
	points = registry.NewLoader(&registry.XLSXSource{Path: regPath}, ttl, slog.Default())
	if err := points.Watch(context.Background(), regPath); err != nil {
		slog.Warn("registry watch disabled", "err", err)
	}

	pipeline = meter.NewPipeline(meter.NewTesseractProvider(), points)
	readingsLog = &ledger.XLSXLedger{Path: envOr("LEDGER_PATH", "ledger.xlsx"), Log: slog.Default()}
	exportSink = &ledger.XLSXExporter{Path: envOr("EXPORT_PATH", "daily.xlsx"), Log: slog.Default()}

	r := gin.Default()

	setupRoutes(r)

	r.Run(envOr("LISTEN_ADDR", ":8081"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
