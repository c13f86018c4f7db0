package models

import (
	"strings"
	"time"
)

// Image variants kept in storage for every upload.
const (
	VariantOriginal  = "original"
	VariantProcessed = "processed"
)

// ImageRecord is the metadata persisted for every uploaded photograph.
// Filename names the processed variant, OriginalFilename the original.
type ImageRecord struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"originalFilename"`
	Brand            string    `json:"brand"`
	ProcessedAt      time.Time `json:"processedAt"`
}

// VariantName returns the storage key of a variant: "<variant>-<key>".
func VariantName(variant, key string) string {
	return variant + "-" + key
}

// Key returns the variant-independent part of the stored names,
// "<unix ms>-<uploaded name>".
func (r ImageRecord) Key() string {
	return strings.TrimPrefix(r.Filename, VariantProcessed+"-")
}

// StoredName returns the storage key of the requested variant.
func (r ImageRecord) StoredName(variant string) string {
	if variant == VariantOriginal {
		return r.OriginalFilename
	}
	return r.Filename
}

// ImageAnalysis is the result of analysing one stored image.
type ImageAnalysis struct {
	Image   string       `json:"image"`
	Type    string       `json:"type"`
	Metrics MetricRecord `json:"metrics"`
}

// UploadRequest carries a photograph submitted for processing.
type UploadRequest struct {
	Brand        string
	OriginalName string
	Data         []byte
}
