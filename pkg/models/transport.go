package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// UploadResponse is returned once an upload has been stored and processed.
type UploadResponse struct {
	Message string      `json:"message"`
	Image   ImageRecord `json:"image"`
}

// ComparisonResponse carries the brand ranking produced by a comparison run.
type ComparisonResponse struct {
	Brands   []GroupSummary `json:"brands"`
	Analyzed int            `json:"analyzed"`
	Skipped  int            `json:"skipped"`
}
