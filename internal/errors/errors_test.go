package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", NewValidationError("bad brand", nil), ErrorTypeValidation, http.StatusBadRequest},
		{"invalid input", NewInvalidInputError("empty pixel buffer", "img-1"), ErrorTypeInvalidInput, http.StatusBadRequest},
		{"decode", NewDecodeError("cannot decode", nil), ErrorTypeDecode, http.StatusUnprocessableEntity},
		{"not found", NewNotFoundError("missing", nil), ErrorTypeNotFound, http.StatusNotFound},
		{"network", NewNetworkError("fetch failed", nil), ErrorTypeNetwork, http.StatusBadGateway},
		{"timeout", NewTimeoutError("too slow", nil), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"internal", NewInternalError("boom", nil), ErrorTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, GetStatusCode(tt.err))
			assert.True(t, IsType(tt.err, tt.wantType))
		})
	}
}

func TestIsType_Wrapped(t *testing.T) {
	base := NewNotFoundError("image not found", nil)
	wrapped := fmt.Errorf("analyze processed-1.jpg: %w", base)

	assert.True(t, IsType(wrapped, ErrorTypeNotFound))
	assert.False(t, IsType(wrapped, ErrorTypeDecode))
	assert.Equal(t, http.StatusNotFound, GetStatusCode(wrapped))
}

func TestIsType_PlainError(t *testing.T) {
	err := fmt.Errorf("plain")
	assert.False(t, IsType(err, ErrorTypeInternal))
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(err))
}

func TestError_IncludesDetailsAndCause(t *testing.T) {
	err := NewInvalidInputError("empty pixel buffer", "processed-42.jpg")
	assert.Equal(t, "invalid_input: empty pixel buffer [processed-42.jpg]", err.Error())

	cause := fmt.Errorf("unexpected EOF")
	decodeErr := NewDecodeError("cannot decode image", cause)
	assert.Contains(t, decodeErr.Error(), "caused by: unexpected EOF")
	assert.ErrorIs(t, decodeErr, cause)
}

func TestWithDetails_DoesNotMutateOriginal(t *testing.T) {
	orig := NewDecodeError("cannot decode image", nil)
	detailed := orig.WithDetails("original-1.png")

	assert.Empty(t, orig.Details)
	assert.Equal(t, "original-1.png", detailed.Details)
	assert.Equal(t, orig.Type, detailed.Type)
}
