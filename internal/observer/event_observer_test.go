package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event AnalysisEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                          { return "panicking" }

func TestMetricsObserver_Snapshot(t *testing.T) {
	metrics := NewMetricsObserver()
	publisher := NewEventPublisher()
	publisher.Subscribe(metrics)
	ctx := context.Background()

	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisStarted})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisCompleted, ProcessingTime: 10 * time.Millisecond, Success: true})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisStarted})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisCompleted, ProcessingTime: 30 * time.Millisecond, Success: true})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisStarted})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisFailed})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: ImageStored})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: ComparisonCompleted})

	snap := metrics.Snapshot()
	assert.Equal(t, int64(3), snap.TotalAnalyses)
	assert.Equal(t, int64(2), snap.SuccessfulAnalyses)
	assert.Equal(t, int64(1), snap.FailedAnalyses)
	assert.Equal(t, 20.0, snap.AvgProcessingTimeMs)
	assert.Equal(t, int64(1), snap.StoredImages)
	assert.Equal(t, int64(1), snap.Comparisons)
}

func TestLoggingObserver_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	obs := NewLoggingObserver(log)
	obs.OnEvent(context.Background(), AnalysisEvent{
		EventType:      AnalysisFailed,
		Filename:       "processed-1-a.jpg",
		Brand:          "Pixel",
		Variant:        "processed",
		ProcessingTime: 1500 * time.Millisecond,
		ErrorMessage:   "decode_error: failed to decode image",
		Metadata:       map[string]interface{}{"worker": 2},
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "Image analysis failed", entry["msg"])
	assert.Equal(t, "processed-1-a.jpg", entry["filename"])
	assert.Equal(t, "Pixel", entry["brand"])
	assert.Equal(t, float64(1500), entry["processing_time_ms"])
	assert.Equal(t, float64(2), entry["worker"])
	assert.True(t, strings.HasPrefix(entry["error"].(string), "decode_error"))
}

func TestEventPublisher_PanickingObserverIsIsolated(t *testing.T) {
	metrics := NewMetricsObserver()
	publisher := NewEventPublisher()
	publisher.Subscribe(panickingObserver{})
	publisher.Subscribe(metrics)

	assert.NotPanics(t, func() {
		publisher.NotifyObservers(context.Background(), AnalysisEvent{EventType: ImageStored})
	})
	assert.Equal(t, int64(1), metrics.Snapshot().StoredImages)
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	metrics := NewMetricsObserver()
	publisher := NewEventPublisher()
	publisher.Subscribe(metrics)
	publisher.Unsubscribe(metrics)

	publisher.NotifyObservers(context.Background(), AnalysisEvent{EventType: ImageStored})
	assert.Equal(t, int64(0), metrics.Snapshot().StoredImages)
}
