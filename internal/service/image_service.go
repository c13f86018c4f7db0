package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anime-shed/brand-inspector-go/internal/aggregator"
	"github.com/anime-shed/brand-inspector-go/internal/analyzer"
	apperrors "github.com/anime-shed/brand-inspector-go/internal/errors"
	"github.com/anime-shed/brand-inspector-go/internal/logger"
	"github.com/anime-shed/brand-inspector-go/internal/observer"
	"github.com/anime-shed/brand-inspector-go/internal/processor"
	"github.com/anime-shed/brand-inspector-go/internal/repository"
	"github.com/anime-shed/brand-inspector-go/internal/storage"
	"github.com/anime-shed/brand-inspector-go/pkg/models"
	"github.com/anime-shed/brand-inspector-go/pkg/validation"

	"github.com/sirupsen/logrus"
)

// ImageService defines the upload, listing and analysis operations
type ImageService interface {
	// UploadImage stores the original and processed variants and records the upload
	UploadImage(ctx context.Context, req models.UploadRequest) (*models.ImageRecord, error)

	// ListImages returns records newest first; "" or "All" lists every brand
	ListImages(ctx context.Context, brand string) ([]models.ImageRecord, error)

	// GetImage returns the record of a stored processed or original filename
	GetImage(ctx context.Context, filename string) (*models.ImageRecord, error)

	// AnalyzeImage computes the metrics of the stored image "<variant>-<key>"
	AnalyzeImage(ctx context.Context, variant, key string) (*models.ImageAnalysis, error)

	// CompareBrands analyzes the processed variant of every matching image
	// and aggregates the metrics per brand
	CompareBrands(ctx context.Context, brand string) (*models.ComparisonResponse, error)

	// Brands returns the configured brand list
	Brands() []string

	// UploadedBrands returns the brands that have at least one stored image
	UploadedBrands(ctx context.Context) ([]string, error)

	// Health reports whether the metadata store is reachable
	Health(ctx context.Context) error
}

// Dependencies groups the collaborators of the image service
type Dependencies struct {
	Store      storage.ImageStore
	Repository repository.ImageRepository
	Processor  processor.ImageProcessor
	Calculator analyzer.MetricsCalculator
	Decoder    analyzer.GrayscaleDecoder
	Pool       *analyzer.WorkerPool
	Validator  *validation.UploadValidator
	Events     observer.Subject

	// FetchTimeout bounds a single storage read.
	FetchTimeout time.Duration
	// AnalysisTimeout bounds a whole brand comparison.
	AnalysisTimeout time.Duration
}

const rollbackTimeout = 10 * time.Second

// imageService implements ImageService
type imageService struct {
	deps Dependencies
	now  func() time.Time
}

// NewImageService creates a new image service
func NewImageService(deps Dependencies) ImageService {
	if deps.Decoder == nil {
		deps.Decoder = analyzer.GrayscaleFunc(analyzer.ToGrayscale)
	}
	if deps.Calculator == nil {
		deps.Calculator = analyzer.NewMetricsCalculator()
	}
	if deps.Events == nil {
		deps.Events = observer.NewEventPublisher()
	}
	return &imageService{deps: deps, now: time.Now}
}

func (s *imageService) Brands() []string {
	return s.deps.Validator.Brands()
}

func (s *imageService) UploadedBrands(ctx context.Context) ([]string, error) {
	brands, err := s.deps.Repository.Brands(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to fetch brands", err)
	}
	return brands, nil
}

func (s *imageService) Health(ctx context.Context) error {
	return s.deps.Repository.Ping(ctx)
}

func (s *imageService) UploadImage(ctx context.Context, req models.UploadRequest) (*models.ImageRecord, error) {
	if err := s.deps.Validator.ValidateUpload(req); err != nil {
		return nil, err
	}

	start := time.Now()
	at := s.now().UTC()
	key := fmt.Sprintf("%d-%s", at.UnixMilli(), req.OriginalName)
	record := &models.ImageRecord{
		Filename:         models.VariantName(models.VariantProcessed, key),
		OriginalFilename: models.VariantName(models.VariantOriginal, key),
		Brand:            req.Brand,
		ProcessedAt:      at,
	}

	// Process first so an undecodable upload leaves nothing behind.
	processed, err := s.deps.Processor.Process(req.Data, req.OriginalName)
	if err != nil {
		s.publishStoreFailure(ctx, record, start, err)
		return nil, err
	}

	if err := s.reserve(ctx, record); err != nil {
		s.publishStoreFailure(ctx, record, start, err)
		return nil, err
	}

	variants := map[string][]byte{
		models.VariantOriginal:  req.Data,
		models.VariantProcessed: processed,
	}
	for _, variant := range []string{models.VariantOriginal, models.VariantProcessed} {
		if err := s.deps.Store.Save(ctx, record.StoredName(variant), variants[variant]); err != nil {
			s.rollback(record)
			s.publishStoreFailure(ctx, record, start, err)
			return nil, apperrors.NewInternalError(fmt.Sprintf("failed to store %s image", variant), err)
		}
	}

	s.deps.Events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.ImageStored,
		Filename:       record.Filename,
		Brand:          record.Brand,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"original_bytes":  len(req.Data),
			"processed_bytes": len(processed),
		},
	})
	return record, nil
}

// reserve claims the record's stored names before any bytes are written.
// Neither variant may exist in storage, and the repository insert fails
// when another upload already holds the key.
func (s *imageService) reserve(ctx context.Context, record *models.ImageRecord) error {
	for _, variant := range []string{models.VariantOriginal, models.VariantProcessed} {
		name := record.StoredName(variant)
		exists, err := s.deps.Store.Exists(ctx, name)
		if err != nil {
			return apperrors.NewInternalError("failed to check storage", err).WithDetails(name)
		}
		if exists {
			return apperrors.NewValidationError("image already uploaded", nil).WithDetails(name)
		}
	}

	if err := s.deps.Repository.Insert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateImage) {
			return apperrors.NewValidationError("image already uploaded", err).WithDetails(record.Filename)
		}
		return apperrors.NewInternalError("failed to save image metadata", err)
	}
	return nil
}

// rollback removes whatever a failed upload wrote. It runs on a fresh
// context so a cancelled request still cleans up.
func (s *imageService) rollback(record *models.ImageRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()

	for _, variant := range []string{models.VariantOriginal, models.VariantProcessed} {
		if err := s.deps.Store.Delete(ctx, record.StoredName(variant)); err != nil {
			logger.WithError(err).WithField("filename", record.StoredName(variant)).Error("Failed to remove image after failed upload")
		}
	}
	if err := s.deps.Repository.Delete(ctx, record.ID); err != nil {
		logger.WithError(err).WithField("id", record.ID).Error("Failed to remove image record after failed upload")
	}
}

func (s *imageService) publishStoreFailure(ctx context.Context, record *models.ImageRecord, start time.Time, err error) {
	s.deps.Events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.ImageStoreFailed,
		Filename:       record.Filename,
		Brand:          record.Brand,
		ProcessingTime: time.Since(start),
		ErrorMessage:   err.Error(),
	})
}

func (s *imageService) ListImages(ctx context.Context, brand string) ([]models.ImageRecord, error) {
	filter, err := s.deps.Validator.NormalizeBrandFilter(brand)
	if err != nil {
		return nil, err
	}

	records, err := s.deps.Repository.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to fetch images", err)
	}
	return records, nil
}

func (s *imageService) GetImage(ctx context.Context, filename string) (*models.ImageRecord, error) {
	record, err := s.deps.Repository.GetByFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return nil, apperrors.NewNotFoundError("image not found", err).WithDetails(filename)
		}
		return nil, apperrors.NewInternalError("failed to fetch image", err)
	}
	return record, nil
}

func (s *imageService) AnalyzeImage(ctx context.Context, variant, key string) (*models.ImageAnalysis, error) {
	if err := validation.ValidateAnalysisTarget(variant, key); err != nil {
		return nil, err
	}
	name := models.VariantName(variant, key)

	start := time.Now()
	s.deps.Events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		Filename:  name,
		Variant:   variant,
	})

	metrics, err := s.extract(ctx, name)
	if err != nil {
		s.deps.Events.NotifyObservers(ctx, observer.AnalysisEvent{
			EventType:      observer.AnalysisFailed,
			Filename:       name,
			Variant:        variant,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	s.deps.Events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		Filename:       name,
		Variant:        variant,
		ProcessingTime: time.Since(start),
		Success:        true,
	})

	return &models.ImageAnalysis{
		Image:   name,
		Type:    variant,
		Metrics: metrics,
	}, nil
}

// extract fetches, decodes and measures one stored image.
func (s *imageService) extract(ctx context.Context, name string) (models.MetricRecord, error) {
	fetchCtx := ctx
	if s.deps.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.deps.FetchTimeout)
		defer cancel()
	}

	raw, err := s.deps.Store.Fetch(fetchCtx, name)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrImageNotFound):
			return models.MetricRecord{}, apperrors.NewNotFoundError("image not found", err).WithDetails(name)
		case errors.Is(err, context.DeadlineExceeded):
			return models.MetricRecord{}, apperrors.NewTimeoutError("timed out fetching image", err).WithDetails(name)
		case errors.Is(err, storage.ErrInvalidName):
			return models.MetricRecord{}, apperrors.NewValidationError("invalid image name", err).WithDetails(name)
		default:
			return models.MetricRecord{}, apperrors.NewNetworkError("failed to fetch image", err).WithDetails(name)
		}
	}

	pixels, err := s.deps.Decoder.ToGrayscale(raw)
	if err != nil {
		return models.MetricRecord{}, withDetails(err, name)
	}

	return s.deps.Calculator.Extract(name, pixels)
}

// withDetails tags an AppError that has no details yet with the image name.
func withDetails(err error, name string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Details == "" {
		return appErr.WithDetails(name)
	}
	return err
}

func (s *imageService) CompareBrands(ctx context.Context, brand string) (*models.ComparisonResponse, error) {
	filter, err := s.deps.Validator.NormalizeBrandFilter(brand)
	if err != nil {
		return nil, err
	}

	if s.deps.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.AnalysisTimeout)
		defer cancel()
	}

	start := time.Now()
	records, err := s.deps.Repository.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to fetch images", err)
	}

	results, err := s.analyzeAll(ctx, records)
	if err != nil {
		return nil, err
	}

	entries := make([]models.GroupedRecord, 0, len(records))
	for i, metrics := range results {
		if metrics != nil {
			entries = append(entries, models.GroupedRecord{GroupKey: records[i].Brand, Record: *metrics})
		}
	}

	summaries, err := aggregator.Aggregate(entries)
	if err != nil {
		return nil, err
	}

	response := &models.ComparisonResponse{
		Brands:   summaries,
		Analyzed: len(entries),
		Skipped:  len(records) - len(entries),
	}

	s.deps.Events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.ComparisonCompleted,
		Brand:          filter,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"analyzed": response.Analyzed,
			"skipped":  response.Skipped,
			"brands":   len(summaries),
		},
	})
	return response, nil
}

// analyzeAll measures the processed variant of every record on the worker
// pool. results[i] is nil when records[i] could not be analyzed. The call
// returns only after every submitted job has finished; if ctx ends first no
// results are returned.
func (s *imageService) analyzeAll(ctx context.Context, records []models.ImageRecord) ([]*models.MetricRecord, error) {
	results := make([]*models.MetricRecord, len(records))

	var wg sync.WaitGroup
	var submitErr error
	for i := range records {
		if ctx.Err() != nil {
			break
		}

		rec := records[i]
		idx := i
		wg.Add(1)
		ok := s.deps.Pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			analysis, err := s.AnalyzeImage(ctx, models.VariantProcessed, rec.Key())
			if err != nil {
				logger.WithFields(logrus.Fields{
					"filename": rec.Filename,
					"brand":    rec.Brand,
					"error":    err.Error(),
				}).Warn("Skipping image in brand comparison")
				return
			}
			results[idx] = &analysis.Metrics
		})
		if !ok {
			wg.Done()
			submitErr = apperrors.NewInternalError("analysis worker pool is closed", nil)
			break
		}
	}
	wg.Wait()

	if submitErr != nil {
		return nil, submitErr
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("brand comparison timed out", err)
		}
		return nil, apperrors.NewInternalError("brand comparison cancelled", err)
	}
	return results, nil
}
