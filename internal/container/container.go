package container

import (
	"fmt"
	"net/http"

	"github.com/anime-shed/brand-inspector-go/internal/analyzer"
	"github.com/anime-shed/brand-inspector-go/internal/config"
	"github.com/anime-shed/brand-inspector-go/internal/factory"
	"github.com/anime-shed/brand-inspector-go/internal/logger"
	"github.com/anime-shed/brand-inspector-go/internal/observer"
	"github.com/anime-shed/brand-inspector-go/internal/repository"
	"github.com/anime-shed/brand-inspector-go/internal/service"
	"github.com/anime-shed/brand-inspector-go/internal/storage"
	"github.com/anime-shed/brand-inspector-go/internal/transport"
	"github.com/anime-shed/brand-inspector-go/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	config     *config.Config
	store      storage.ImageStore
	repository repository.ImageRepository
	pool       *analyzer.WorkerPool
	metrics    *observer.MetricsObserver
	service    service.ImageService
	handler    http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	store, err := components.StorageFactory.CreateStorage(factory.StorageType(cfg.StorageBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", cfg.StorageBackend, err)
	}

	repo, err := repository.NewSQLiteImageRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image repository: %w", err)
	}

	pool := analyzer.NewWorkerPool(cfg.AnalysisWorkers)
	pool.Start()

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	svc := service.NewImageService(service.Dependencies{
		Store:           store,
		Repository:      repo,
		Processor:       components.ProcessorFactory.CreateProcessor(),
		Calculator:      analyzer.NewMetricsCalculator(),
		Pool:            pool,
		Validator:       validation.NewUploadValidator(cfg.Brands, cfg.MaxUploadSize),
		Events:          events,
		FetchTimeout:    cfg.ImageFetchTimeout,
		AnalysisTimeout: cfg.AnalysisTimeout,
	})

	opts := transport.Options{Metrics: metrics, Pool: pool}
	if local, ok := store.(*storage.LocalStore); ok {
		opts.StaticDir = local.Dir()
	}

	logger.WithFields(logrus.Fields{
		"storage":  cfg.StorageBackend,
		"database": cfg.DatabasePath,
		"workers":  cfg.AnalysisWorkers,
		"brands":   cfg.Brands,
	}).Info("Container initialized")

	return &Container{
		config:     cfg,
		store:      store,
		repository: repo,
		pool:       pool,
		metrics:    metrics,
		service:    svc,
		handler:    transport.NewHandler(svc, cfg, opts),
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the image service
func (c *Container) Service() service.ImageService {
	return c.service
}

// Close drains the worker pool and closes the repository.
func (c *Container) Close() error {
	c.pool.Shutdown()
	return c.repository.Close()
}
