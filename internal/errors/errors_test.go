package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThaiError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	thaiErr := New(ErrCodeDictionaryIO, "dictionary file not found: custom.txt", originalErr)

	require.NotNil(t, thaiErr)
	assert.Equal(t, originalErr, errors.Unwrap(thaiErr))
	assert.True(t, errors.Is(thaiErr, originalErr))
}

func TestThaiError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "segmenter error",
			code:     ErrCodeSegmenterFailure,
			message:  "newmm backend returned an error",
			expected: "[ERR_203_SEGMENTER_FAILURE] newmm backend returned an error",
		},
		{
			name:     "network error",
			code:     ErrCodeSearchEngineTimeout,
			message:  "request timed out",
			expected: "[ERR_303_SEARCH_ENGINE_TIMEOUT] request timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestThaiError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeSegmenterFailure, "backend A failed", nil)
	err2 := New(ErrCodeSegmenterFailure, "backend B failed", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestThaiError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeSegmenterFailure, "segmenter failed", nil)
	err2 := New(ErrCodeConfigNotFound, "config not found", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestThaiError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeSegmenterFailure, "backend failed", nil)

	err = err.WithDetail("engine", "newmm")
	err = err.WithDetail("text_length", "42")

	assert.Equal(t, "newmm", err.Details["engine"])
	assert.Equal(t, "42", err.Details["text_length"])
}

func TestThaiError_WithSuggestion_AddsSuggestion(t *testing.T) {
	err := New(ErrCodeSearchEngineTimeout, "connection timed out", nil)

	err = err.WithSuggestion("Check the search engine host is reachable")

	assert.Equal(t, "Check the search engine host is reachable", err.Suggestion)
}

func TestThaiError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeSegmenterFailure, CategorySegmentation},
		{ErrCodeDictionaryIO, CategorySegmentation},
		{ErrCodeSearchEngineTransient, CategoryNetwork},
		{ErrCodeSearchEnginePermanent, CategoryNetwork},
		{ErrCodeInvalidInput, CategoryValidation},
		{ErrCodeSettingsValidation, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeBatchFailed, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestThaiError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeConfigNotFound, SeverityFatal},
		{ErrCodeDictionaryCorrupt, SeverityFatal},
		{ErrCodeSegmenterFailure, SeverityError},
		{ErrCodeSearchEngineTransient, SeverityWarning},
		{ErrCodeSearchEngineTimeout, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestThaiError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeSearchEngineTransient, true},
		{ErrCodeSearchEngineTimeout, true},
		{ErrCodeSegmenterTimeout, true},
		{ErrCodeSearchEnginePermanent, false},
		{ErrCodeConfigInvalid, false},
		{ErrCodeDictionaryCorrupt, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesThaiErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	thaiErr := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, thaiErr)
	assert.Equal(t, ErrCodeInternal, thaiErr.Code)
	assert.Equal(t, "something went wrong", thaiErr.Message)
	assert.Equal(t, originalErr, thaiErr.Cause)
}

func TestConfigError_CreatesConfigCategoryError(t *testing.T) {
	err := ConfigError("invalid yaml syntax", nil)

	assert.Equal(t, CategoryConfig, err.Category)
	assert.Contains(t, err.Code, "CONFIG")
}

func TestSegmenterError_CreatesSegmentationCategoryError(t *testing.T) {
	err := SegmenterError("cannot reach docker backend", nil)

	assert.Equal(t, CategorySegmentation, err.Category)
}

func TestSearchEngineTransientError_CreatesRetryableError(t *testing.T) {
	err := SearchEngineTransientError("connection refused", nil)

	assert.Equal(t, CategoryNetwork, err.Category)
	assert.True(t, err.Retryable)
}

func TestSearchEnginePermanentError_IsNotRetryable(t *testing.T) {
	err := SearchEnginePermanentError("index does not exist", nil)

	assert.Equal(t, CategoryNetwork, err.Category)
	assert.False(t, err.Retryable)
}

func TestValidationError_CreatesValidationCategoryError(t *testing.T) {
	err := ValidationError("query cannot be empty", nil)

	assert.Equal(t, CategoryValidation, err.Category)
}

func TestSettingsValidationError_CreatesValidationCategoryError(t *testing.T) {
	err := SettingsValidationError("ranking rule not in the allowed set", nil)

	assert.Equal(t, CategoryValidation, err.Category)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable ThaiError",
			err:      New(ErrCodeSearchEngineTransient, "timeout", nil),
			expected: true,
		},
		{
			name:     "non-retryable ThaiError",
			err:      New(ErrCodeSegmenterFailure, "failed", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeSearchEngineTransient, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "fatal error",
			err:      New(ErrCodeDictionaryCorrupt, "dictionary corrupt", nil),
			expected: true,
		},
		{
			name:     "config fatal error",
			err:      New(ErrCodeConfigNotFound, "no config file", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(ErrCodeSegmenterFailure, "failed", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}
