package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message. If debug is true,
// the error code is appended for support/triage purposes.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	te, ok := err.(*ThaiError)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(te.Message)
	sb.WriteString("\n")

	if te.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(te.Suggestion)
		sb.WriteString("\n")
	}

	if debug {
		sb.WriteString(fmt.Sprintf("\n[%s]", te.Code))
	}

	return sb.String()
}

// FormatForCLI formats an error for CLI output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	te, ok := err.(*ThaiError)
	if !ok {
		te = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", te.Message))

	if te.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", te.Suggestion))
	}

	sb.WriteString(fmt.Sprintf("  Code: %s\n", te.Code))

	return sb.String()
}

// EnvelopeError is the JSON shape of an error inside an API response.
type EnvelopeError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// ToEnvelope converts an error into its API envelope representation.
func ToEnvelope(err error) *EnvelopeError {
	if err == nil {
		return nil
	}

	te, ok := err.(*ThaiError)
	if !ok {
		te = Wrap(ErrCodeInternal, err)
	}

	ee := &EnvelopeError{
		Code:       te.Code,
		Message:    te.Message,
		Category:   string(te.Category),
		Severity:   string(te.Severity),
		Details:    te.Details,
		Suggestion: te.Suggestion,
		Retryable:  te.Retryable,
	}

	if te.Cause != nil {
		ee.Cause = te.Cause.Error()
	}

	return ee
}

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	return json.Marshal(ToEnvelope(err))
}

// FormatForLog formats an error as key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	te, ok := err.(*ThaiError)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": te.Code,
		"message":    te.Message,
		"category":   string(te.Category),
		"severity":   string(te.Severity),
		"retryable":  te.Retryable,
	}

	if te.Cause != nil {
		result["cause"] = te.Cause.Error()
	}

	if te.Suggestion != "" {
		result["suggestion"] = te.Suggestion
	}

	for k, v := range te.Details {
		result["detail_"+k] = v
	}

	return result
}
