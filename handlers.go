package main

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/rukztnp-boop/water-meter-app-sub000/models"
	"github.com/rukztnp-boop/water-meter-app-sub000/pkg/ledger"
	"github.com/rukztnp-boop/water-meter-app-sub000/pkg/meter"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/readings", createReadingHandler)
	r.GET("/readings", listReadingsHandler)
	r.GET("/points", listPointsHandler)
	r.POST("/points/reload", reloadPointsHandler)
}

// errorKind maps pipeline failures to the wire-level taxonomy.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, meter.ErrOcrUnavailable), errors.Is(err, meter.ErrOcrQuota):
		return http.StatusBadGateway, "OcrUnavailable"
	case errors.Is(err, meter.ErrOcrEmpty):
		return http.StatusUnprocessableEntity, "OcrEmpty"
	case errors.Is(err, meter.ErrPointUnresolved):
		return http.StatusUnprocessableEntity, "PointIdUnresolved"
	case errors.Is(err, meter.ErrPointAmbiguous):
		return http.StatusUnprocessableEntity, "PointIdAmbiguous"
	case errors.Is(err, meter.ErrUnknownPoint):
		return http.StatusNotFound, "UnknownPoint"
	case errors.Is(err, meter.ErrRegistryUnavailable):
		return http.StatusServiceUnavailable, "RegistryUnavailable"
	case errors.Is(err, meter.ErrNoReading):
		return http.StatusUnprocessableEntity, "NoReading"
	case errors.Is(err, meter.ErrValidationFailed):
		return http.StatusUnprocessableEntity, "ValidationFailed"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}

// createReadingHandler runs the pipeline on an uploaded photo and persists
// the validated result to the ledger, the database mirror and the daily
// export sink.
func createReadingHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := meter.Request{Image: img, PointID: c.PostForm("point_id")}
	if mv := c.PostForm("manual_value"); mv != "" {
		v, err := strconv.ParseFloat(mv, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad manual_value"})
			return
		}
		req.Manual = &v
	}
	req.Confirmed = c.PostForm("confirmed") == "true"

	res, rd, err := pipeline.Process(c.Request.Context(), req)
	if err != nil {
		code, kind := errorKind(err)
		body := gin.H{"error": kind, "detail": err.Error()}
		if errors.Is(err, meter.ErrValidationFailed) {
			body["status"] = string(meter.StatusRejected)
			body["ai_value"] = rd.Value
		}
		c.JSON(code, body)
		return
	}

	cfg, err := points.Lookup(c.Request.Context(), res.PointID)
	if err != nil {
		code, kind := errorKind(err)
		c.JSON(code, gin.H{"error": kind, "detail": err.Error()})
		return
	}

	imageRef := saveUpload(fileHeader.Filename, img)
	entry := ledger.Entry{
		Timestamp:   res.Timestamp,
		PointID:     res.PointID,
		Kind:        string(cfg.Kind),
		Inspector:   c.PostForm("inspector"),
		ManualValue: req.Manual,
		AIValue:     res.Value,
		Status:      string(res.Status),
		ImageRef:    imageRef,
	}
	if err := readingsLog.Append(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "LedgerAppendFailed", "detail": err.Error()})
		return
	}
	if db != nil {
		row := models.Reading{
			PointID:     res.PointID,
			Kind:        string(cfg.Kind),
			Inspector:   entry.Inspector,
			ManualValue: req.Manual,
			AIValue:     res.Value,
			Status:      string(res.Status),
			ImageRef:    imageRef,
			Notes:       res.Notes,
		}
		if err := db.Create(&row).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "DbMirrorFailed", "detail": err.Error()})
			return
		}
	}

	targetDate := res.Timestamp
	if td := c.PostForm("target_date"); td != "" {
		d, err := time.Parse("2006-01-02", td)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad target_date"})
			return
		}
		targetDate = d
	}
	// The export key is the calendar day, not the capture instant.
	targetDate = time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, time.UTC)
	if err := exportSink.Export(c.Request.Context(), res.PointID, res.Value, targetDate, cfg.ReportColumn); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ExportFailed", "detail": err.Error()})
		return
	}
	if db != nil {
		exp := models.DailyExport{
			PointID:      res.PointID,
			TargetDate:   targetDate,
			Value:        res.Value,
			ReportColumn: cfg.ReportColumn,
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "point_id"}, {Name: "target_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&exp).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ExportMirrorFailed", "detail": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"point_id":       res.PointID,
		"value":          res.Value,
		"status":         res.Status,
		"notes":          res.Notes,
		"origin":         rd.Origin,
		"score":          rd.Score,
		"low_confidence": rd.LowConfidence,
		"image_ref":      imageRef,
	})
}

// saveUpload stores the photo for later review; an empty ref means the save
// failed, which is not fatal for the reading itself.
func saveUpload(original string, img []byte) string {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "public/meters"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	ext := filepath.Ext(original)
	if ext == "" {
		ext = ".jpg"
	}
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(dir, name), img, 0o644); err != nil {
		return ""
	}
	return filepath.Join(dir, name)
}

func listReadingsHandler(c *gin.Context) {
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database mirror disabled"})
		return
	}
	var rows []models.Reading
	q := db.Order("id desc").Limit(100)
	if p := c.Query("point_id"); p != "" {
		q = q.Where("point_id = ?", meter.NormalizeKey(p))
	}
	if err := q.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func listPointsHandler(c *gin.Context) {
	pts, err := points.Points(c.Request.Context())
	if err != nil {
		code, kind := errorKind(err)
		c.JSON(code, gin.H{"error": kind, "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pts)
}

func reloadPointsHandler(c *gin.Context) {
	points.Invalidate()
	if err := points.Refresh(c.Request.Context()); err != nil {
		code, kind := errorKind(err)
		c.JSON(code, gin.H{"error": kind, "detail": err.Error()})
		return
	}
	pts, _ := points.Points(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"reloaded": len(pts)})
}
