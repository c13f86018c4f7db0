package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anime-shed/brand-inspector-go/internal/analyzer"
	"github.com/anime-shed/brand-inspector-go/internal/config"
	apperrors "github.com/anime-shed/brand-inspector-go/internal/errors"
	"github.com/anime-shed/brand-inspector-go/internal/observer"
	"github.com/anime-shed/brand-inspector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService records its inputs and returns canned results
type fakeService struct {
	uploaded   models.UploadRequest
	uploadErr  error
	images     []models.ImageRecord
	listBrand  string
	analysis   *models.ImageAnalysis
	analyzeErr error
	comparison *models.ComparisonResponse
	compareErr error
	healthErr  error
}

func (f *fakeService) UploadImage(ctx context.Context, req models.UploadRequest) (*models.ImageRecord, error) {
	f.uploaded = req
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &models.ImageRecord{ID: "id-1", Filename: "processed-1-" + req.OriginalName, OriginalFilename: "original-1-" + req.OriginalName, Brand: req.Brand}, nil
}

func (f *fakeService) ListImages(ctx context.Context, brand string) ([]models.ImageRecord, error) {
	f.listBrand = brand
	if brand == "Nokia" {
		return nil, apperrors.NewValidationError("Brand not allowed", nil).WithDetails(brand)
	}
	return f.images, nil
}

func (f *fakeService) GetImage(ctx context.Context, filename string) (*models.ImageRecord, error) {
	for _, img := range f.images {
		if img.Filename == filename {
			return &img, nil
		}
	}
	return nil, apperrors.NewNotFoundError("image not found", nil).WithDetails(filename)
}

func (f *fakeService) AnalyzeImage(ctx context.Context, variant, key string) (*models.ImageAnalysis, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	a := *f.analysis
	a.Image = variant + "-" + key
	a.Type = variant
	return &a, nil
}

func (f *fakeService) CompareBrands(ctx context.Context, brand string) (*models.ComparisonResponse, error) {
	return f.comparison, f.compareErr
}

func (f *fakeService) Brands() []string { return []string{"iPhone", "Pixel"} }

func (f *fakeService) UploadedBrands(ctx context.Context) ([]string, error) {
	return []string{"Pixel"}, nil
}

func (f *fakeService) Health(ctx context.Context) error { return f.healthErr }

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		MaxUploadSize:      1 << 10,
	}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func multipartUpload(t *testing.T, brand, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if brand != "" {
		require.NoError(t, mw.WriteField("brand", brand))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRootAndHealth(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc, testConfig(), Options{})

	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")

	w = serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"available"`)

	svc.healthErr = errors.New("database is locked")
	w = serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestUpload(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc, testConfig(), Options{})

	w := serve(h, multipartUpload(t, "Pixel", "photo.jpg", []byte("jpeg bytes")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "processed-1-photo.jpg", resp.Image.Filename)
	assert.Equal(t, "Pixel", svc.uploaded.Brand)
	assert.Equal(t, "photo.jpg", svc.uploaded.OriginalName)
	assert.Equal(t, []byte("jpeg bytes"), svc.uploaded.Data)
}

func TestUpload_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		h := NewHandler(&fakeService{}, testConfig(), Options{})
		w := serve(h, multipartUpload(t, "Pixel", "", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("file too large", func(t *testing.T) {
		h := NewHandler(&fakeService{}, testConfig(), Options{})
		w := serve(h, multipartUpload(t, "Pixel", "big.jpg", make([]byte, 2<<10)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("service rejects upload", func(t *testing.T) {
		svc := &fakeService{uploadErr: apperrors.NewDecodeError("failed to decode image", errors.New("bad header"))}
		h := NewHandler(svc, testConfig(), Options{})
		w := serve(h, multipartUpload(t, "Pixel", "photo.jpg", []byte("x")))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeError(t, w).Message, "failed to decode image")
	})
}

func TestListAndGetImages(t *testing.T) {
	svc := &fakeService{images: []models.ImageRecord{{ID: "1", Filename: "processed-1-a.jpg", Brand: "Pixel"}}}
	h := NewHandler(svc, testConfig(), Options{})

	w := serve(h, httptest.NewRequest(http.MethodGet, "/images?brand=All", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "All", svc.listBrand)

	var images []models.ImageRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &images))
	assert.Len(t, images, 1)

	w = serve(h, httptest.NewRequest(http.MethodGet, "/images?brand=Nokia", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Nokia", decodeError(t, w).Details)

	w = serve(h, httptest.NewRequest(http.MethodGet, "/images/processed-1-a.jpg", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(h, httptest.NewRequest(http.MethodGet, "/images/processed-9-z.jpg", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyze(t *testing.T) {
	svc := &fakeService{analysis: &models.ImageAnalysis{Metrics: models.MetricRecord{Sharpness: 16256.25, Brightness: 127.5, Contrast: 2}}}
	h := NewHandler(svc, testConfig(), Options{})

	w := serve(h, httptest.NewRequest(http.MethodGet, "/analyze/processed/1-a.jpg", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ImageAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "processed-1-a.jpg", resp.Image)
	assert.Equal(t, "processed", resp.Type)
	assert.Equal(t, 127.5, resp.Metrics.Brightness)
}

func TestAnalyze_ErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperrors.NewValidationError("Type must be original or processed", nil), http.StatusBadRequest},
		{"invalid input", apperrors.NewInvalidInputError("empty pixel buffer", "processed-1-a.jpg"), http.StatusBadRequest},
		{"not found", apperrors.NewNotFoundError("image not found", nil), http.StatusNotFound},
		{"decode", apperrors.NewDecodeError("failed to decode image", nil), http.StatusUnprocessableEntity},
		{"network", apperrors.NewNetworkError("failed to fetch image", nil), http.StatusBadGateway},
		{"timeout", apperrors.NewTimeoutError("timed out fetching image", nil), http.StatusGatewayTimeout},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeService{analyzeErr: tt.err}, testConfig(), Options{})
			w := serve(h, httptest.NewRequest(http.MethodGet, "/analyze/processed/1-a.jpg", nil))
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, http.StatusText(tt.want), decodeError(t, w).Error)
		})
	}
}

func TestCompareAndExport(t *testing.T) {
	svc := &fakeService{comparison: &models.ComparisonResponse{
		Brands: []models.GroupSummary{
			{GroupKey: "iPhone", AverageSharpness: 20.5, AverageBrightness: 100, AverageContrast: 200.25},
			{GroupKey: "Pixel", AverageSharpness: 10, AverageBrightness: 90.1, AverageContrast: 180},
		},
		Analyzed: 3,
		Skipped:  1,
	}}
	h := NewHandler(svc, testConfig(), Options{})

	w := serve(h, httptest.NewRequest(http.MethodGet, "/compare", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(),
		`{"brands":[{"brand":"iPhone","averageSharpness":20.5,"averageBrightness":100,"averageContrast":200.25}`))

	w = serve(h, httptest.NewRequest(http.MethodGet, "/compare/export.csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sharpness-report.csv")
	assert.Equal(t,
		"brand,averageSharpness,averageBrightness,averageContrast\niPhone,20.50,100.00,200.25\nPixel,10.00,90.10,180.00\n",
		w.Body.String())

	svc.compareErr = apperrors.NewTimeoutError("brand comparison timed out", context.DeadlineExceeded)
	w = serve(h, httptest.NewRequest(http.MethodGet, "/compare/export.csv", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestStatsAndBrands(t *testing.T) {
	metrics := observer.NewMetricsObserver()
	metrics.OnEvent(context.Background(), observer.AnalysisEvent{EventType: observer.ImageStored})
	pool := analyzer.NewWorkerPool(3)
	defer pool.Close()

	h := NewHandler(&fakeService{}, testConfig(), Options{Metrics: metrics, Pool: pool})

	w := serve(h, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Events.StoredImages)
	assert.Equal(t, 3, resp.Pool.Workers)

	w = serve(h, httptest.NewRequest(http.MethodGet, "/brands", nil))
	assert.JSONEq(t, `{"brands":["iPhone","Pixel"],"uploaded":["Pixel"]}`, w.Body.String())
}

func TestStaticUploads(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "processed-1-a.jpg"), []byte("img"), 0o644))

	h := NewHandler(&fakeService{}, testConfig(), Options{StaticDir: dir})
	w := serve(h, httptest.NewRequest(http.MethodGet, "/uploads/processed-1-a.jpg", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "img", w.Body.String())
}

func TestDetermineStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, determineStatusCode(apperrors.NewNotFoundError("x", nil)))
	assert.Equal(t, http.StatusGatewayTimeout, determineStatusCode(context.DeadlineExceeded))
	assert.Equal(t, http.StatusRequestTimeout, determineStatusCode(context.Canceled))
	assert.Equal(t, http.StatusInternalServerError, determineStatusCode(errors.New("x")))
}
