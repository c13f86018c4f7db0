package repository

import "errors"

var (
	// ErrImageNotFound indicates the image was not found
	ErrImageNotFound = errors.New("image not found")

	// ErrDuplicateImage indicates a record with the same filename already exists
	ErrDuplicateImage = errors.New("image already recorded")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
