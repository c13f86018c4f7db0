package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	apperrors "github.com/anime-shed/brand-inspector-go/internal/errors"
	"github.com/anime-shed/brand-inspector-go/pkg/models"
)

// AllBrands is the brand filter value that selects every brand.
const AllBrands = "All"

var defaultExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff"}

// UploadValidator handles upload validation logic
type UploadValidator struct {
	allowedBrands     []string
	allowedExtensions []string
	maxSize           int64
}

// NewUploadValidator creates a validator for the given brands and size limit
func NewUploadValidator(brands []string, maxSize int64) *UploadValidator {
	return &UploadValidator{
		allowedBrands:     append([]string(nil), brands...),
		allowedExtensions: defaultExtensions,
		maxSize:           maxSize,
	}
}

// Brands returns the configured brand list in order
func (v *UploadValidator) Brands() []string {
	return append([]string(nil), v.allowedBrands...)
}

// ValidateUpload checks brand, filename and payload of an upload
func (v *UploadValidator) ValidateUpload(req models.UploadRequest) error {
	if err := v.ValidateBrand(req.Brand); err != nil {
		return err
	}
	if err := ValidateFilename(req.OriginalName, v.allowedExtensions); err != nil {
		return err
	}
	if len(req.Data) == 0 {
		return apperrors.NewValidationError("Uploaded file is empty", nil)
	}
	if v.maxSize > 0 && int64(len(req.Data)) > v.maxSize {
		return apperrors.NewValidationError(
			fmt.Sprintf("Uploaded file exceeds %d bytes", v.maxSize), nil)
	}
	return nil
}

// ValidateBrand checks that brand is one of the configured brands.
// Matching is case-sensitive.
func (v *UploadValidator) ValidateBrand(brand string) error {
	if strings.TrimSpace(brand) == "" {
		return apperrors.NewValidationError("Brand is required", nil)
	}
	if !contains(v.allowedBrands, brand) {
		return apperrors.NewValidationError("Brand not allowed", nil).WithDetails(brand)
	}
	return nil
}

// NormalizeBrandFilter maps the "All" filter to the empty filter and
// validates any other value.
func (v *UploadValidator) NormalizeBrandFilter(brand string) (string, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" || brand == AllBrands {
		return "", nil
	}
	if err := v.ValidateBrand(brand); err != nil {
		return "", err
	}
	return brand, nil
}

// ValidateFilename checks that name is a bare filename with an allowed
// image extension.
func ValidateFilename(name string, extensions []string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.NewValidationError("Filename is required", nil)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return apperrors.NewValidationError("Filename must not contain path elements", nil).WithDetails(name)
	}
	if !contains(extensions, strings.ToLower(filepath.Ext(name))) {
		return apperrors.NewValidationError("Unsupported image type", nil).WithDetails(name)
	}
	return nil
}

// ValidateAnalysisTarget checks the variant and stored-name key of an
// analysis request
func ValidateAnalysisTarget(variant, key string) error {
	if err := ValidateVariant(variant); err != nil {
		return err
	}
	return ValidateFilename(key, defaultExtensions)
}

// ValidateVariant checks that variant names a stored image variant
func ValidateVariant(variant string) error {
	if variant != models.VariantOriginal && variant != models.VariantProcessed {
		return apperrors.NewValidationError("Type must be original or processed", nil).WithDetails(variant)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, allowed := range values {
		if v == allowed {
			return true
		}
	}
	return false
}
