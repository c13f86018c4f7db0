package repository

import (
	"context"

	"github.com/anime-shed/brand-inspector-go/pkg/models"
)

// ImageRepository defines the interface for image metadata operations
type ImageRepository interface {
	// Insert stores a new record, assigning an ID when it has none
	Insert(ctx context.Context, record *models.ImageRecord) error

	// GetByFilename retrieves the record whose processed or original
	// filename matches
	GetByFilename(ctx context.Context, filename string) (*models.ImageRecord, error)

	// List returns records newest first; an empty brand matches every brand
	List(ctx context.Context, brand string) ([]models.ImageRecord, error)

	// Delete removes the record with the given ID, reporting
	// ErrImageNotFound when there is none
	Delete(ctx context.Context, id string) error

	// Brands returns the distinct brands that have at least one record
	Brands(ctx context.Context) ([]string, error)

	// Ping reports ErrRepositoryUnavailable when the store cannot be reached
	Ping(ctx context.Context) error

	// Close releases the underlying connection
	Close() error
}
