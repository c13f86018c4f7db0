package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anime-shed/brand-inspector-go/internal/analyzer"
	"github.com/anime-shed/brand-inspector-go/internal/config"
	apperrors "github.com/anime-shed/brand-inspector-go/internal/errors"
	"github.com/anime-shed/brand-inspector-go/internal/export"
	"github.com/anime-shed/brand-inspector-go/internal/logger"
	"github.com/anime-shed/brand-inspector-go/internal/observer"
	"github.com/anime-shed/brand-inspector-go/internal/service"
	"github.com/anime-shed/brand-inspector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const banner = "Smartphone Image App API is running!"

// Options carries the optional collaborators of the HTTP handler.
type Options struct {
	// StaticDir, when set, is served under /uploads.
	StaticDir string
	Metrics   *observer.MetricsObserver
	Pool      *analyzer.WorkerPool
}

// StatsResponse reports the event counters and worker pool state.
type StatsResponse struct {
	Events observer.MetricsSnapshot `json:"events"`
	Pool   analyzer.PoolStats       `json:"pool"`
}

func NewHandler(svc service.ImageService, cfg *config.Config, opts Options) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, banner) })
	r.GET("/health", healthCheck(svc))
	r.GET("/brands", listBrands(svc))
	r.GET("/stats", stats(opts))
	r.POST("/upload", uploadImage(svc, cfg))
	r.GET("/images", listImages(svc))
	r.GET("/images/:filename", getImage(svc))
	r.GET("/analyze/:type/:filename", analyzeImage(svc, cfg))
	r.GET("/compare", compareBrands(svc))
	r.GET("/compare/export.csv", exportComparison(svc))

	if opts.StaticDir != "" {
		r.Static("/uploads", opts.StaticDir)
	}

	return r
}

func uploadImage(svc service.ImageService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		fileHeader, err := c.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, http.StatusRequestEntityTooLarge, "upload too large", err)
				return
			}
			respondError(c, http.StatusBadRequest, "no image uploaded",
				apperrors.NewValidationError("multipart field 'image' is required", err))
			return
		}

		if fileHeader.Size > cfg.MaxUploadSize {
			respondError(c, http.StatusRequestEntityTooLarge, "upload too large",
				apperrors.NewValidationError(fmt.Sprintf("Uploaded file exceeds %d bytes", cfg.MaxUploadSize), nil))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to read upload", err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, cfg.MaxUploadSize+1))
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to read upload", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"filename": fileHeader.Filename,
			"brand":    c.PostForm("brand"),
			"bytes":    len(data),
			"ip":       c.ClientIP(),
		}).Info("Processing image upload")

		record, err := svc.UploadImage(ctx, models.UploadRequest{
			Brand:        c.PostForm("brand"),
			OriginalName: fileHeader.Filename,
			Data:         data,
		})
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "image processing failed", err)
			return
		}

		c.JSON(http.StatusOK, models.UploadResponse{
			Message: "Image uploaded & processed",
			Image:   *record,
		})
	}
}

func listImages(svc service.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		images, err := svc.ListImages(c.Request.Context(), c.Query("brand"))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to fetch images", err)
			return
		}
		c.JSON(http.StatusOK, images)
	}
}

func getImage(svc service.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		image, err := svc.GetImage(c.Request.Context(), c.Param("filename"))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to fetch image", err)
			return
		}
		c.JSON(http.StatusOK, image)
	}
}

func analyzeImage(svc service.ImageService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		variant, key := c.Param("type"), c.Param("filename")
		result, err := svc.AnalyzeImage(ctx, variant, key)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "image analysis failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"image":              result.Image,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
			"sharpness":          result.Metrics.Sharpness,
			"brightness":         result.Metrics.Brightness,
			"contrast":           result.Metrics.Contrast,
		}).Debug("Image analysis request completed")

		c.JSON(http.StatusOK, result)
	}
}

func compareBrands(svc service.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := svc.CompareBrands(c.Request.Context(), c.Query("brand"))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "brand comparison failed", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func exportComparison(svc service.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := svc.CompareBrands(c.Request.Context(), c.Query("brand"))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "brand comparison failed", err)
			return
		}

		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.CSVFilename))
		c.Status(http.StatusOK)
		if err := export.WriteCSV(c.Writer, result.Brands); err != nil {
			logger.WithError(err).Error("Failed to write CSV export")
		}
	}
}

// listBrands reports the configured brands and those with stored images.
func listBrands(svc service.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uploaded, err := svc.UploadedBrands(c.Request.Context())
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to fetch brands", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"brands":   svc.Brands(),
			"uploaded": uploaded,
		})
	}
}

func healthCheck(svc service.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "available", http.StatusOK
		if err := svc.Health(c.Request.Context()); err != nil {
			logger.WithError(err).Warn("Health check failed")
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": "1.0.0",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func stats(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var resp StatsResponse
		if opts.Metrics != nil {
			resp.Events = opts.Metrics.Snapshot()
		}
		if opts.Pool != nil {
			resp.Pool = opts.Pool.Stats()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		resp.Details = appErr.Details
	}
	c.AbortWithStatusJSON(code, resp)
}
