package container

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/anime-shed/brand-inspector-go/internal/config"
	"github.com/anime-shed/brand-inspector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Host:               "127.0.0.1",
		Port:               "0",
		RequestTimeout:     5 * time.Second,
		ImageFetchTimeout:  time.Second,
		AnalysisTimeout:    5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		MaxUploadSize:      1 << 20,
		AnalysisWorkers:    2,
		ProcessedWidth:     16,
		Brands:             []string{"iPhone", "Pixel"},
		DatabasePath:       filepath.Join(dir, "images.db"),
		StorageBackend:     config.StorageLocal,
		UploadDir:          filepath.Join(dir, "uploads"),
	}
}

func pngBytes(t *testing.T, v uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestContainer_EndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	record, err := c.Service().UploadImage(ctx, models.UploadRequest{
		Brand:        "Pixel",
		OriginalName: "photo.png",
		Data:         pngBytes(t, 200),
	})
	require.NoError(t, err)

	// the processed variant is served from the upload directory
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/"+record.Filename, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	result, err := c.Service().CompareBrands(ctx, "")
	require.NoError(t, err)
	require.Len(t, result.Brands, 1)
	assert.Equal(t, "Pixel", result.Brands[0].GroupKey)
	assert.Equal(t, 1, result.Analyzed)
}

func TestContainer_UnsupportedBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageBackend = "ftp"
	_, err := NewContainer(cfg)
	assert.Error(t, err)
}
