package factory

import (
	"fmt"

	"github.com/anime-shed/brand-inspector-go/internal/config"
	"github.com/anime-shed/brand-inspector-go/internal/processor"
	"github.com/anime-shed/brand-inspector-go/internal/storage"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// LocalStorage for the local file system
	LocalStorage StorageType = config.StorageLocal
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = config.StorageAzure
	// MinioStorage for S3 compatible object storage
	MinioStorage StorageType = config.StorageMinio
	// HTTPStorage for read-only HTTP image fetching
	HTTPStorage StorageType = config.StorageHTTP
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageStore, error)
}

// ProcessorFactory creates upload processors
type ProcessorFactory interface {
	CreateProcessor() processor.ImageProcessor
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a storage factory reading backend settings from cfg
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageStore, error) {
	cfg := f.cfg
	switch storageType {
	case LocalStorage:
		return storage.NewLocalStore(cfg.UploadDir)
	case AzureStorage:
		return storage.NewAzureStore(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainer)
	case MinioStorage:
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	case HTTPStorage:
		return storage.NewHTTPStore(cfg.HTTPStorageBaseURL, cfg.ImageFetchTimeout)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

type processorFactory struct {
	width int
}

// NewProcessorFactory creates a factory for processors resizing to width
func NewProcessorFactory(width int) ProcessorFactory {
	return &processorFactory{width: width}
}

func (f *processorFactory) CreateProcessor() processor.ImageProcessor {
	return processor.NewImagingProcessor(f.width)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory   StorageFactory
	ProcessorFactory ProcessorFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		StorageFactory:   NewStorageFactory(cfg),
		ProcessorFactory: NewProcessorFactory(cfg.ProcessedWidth),
	}
}
