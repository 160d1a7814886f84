// Package businessflow contains the core business logic of link provisioning, click tracking and reporting
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Link-related errors
	ErrUTMLinkNotFound    = errors.New("utm link not found")
	ErrTrackingIDRequired = errors.New("tracking id is required")
	ErrUnknownProgram     = errors.New("unknown program")
	ErrUnknownChannel     = errors.New("unknown channel")
	ErrUnknownPlatform    = errors.New("unknown platform")
	ErrUnknownPlacement   = errors.New("placement is not offered for platform")

	// Shortener errors
	ErrShortenerNotConfigured = errors.New("shortener API token not configured")

	// Bulk import errors
	ErrInvalidBulkPayload = errors.New("invalid data format, expected { links: Array }")
	ErrMissingBulkFields  = errors.New("Missing required fields")
	ErrSpreadsheetInvalid = errors.New("spreadsheet could not be read")

	// Identity errors
	ErrInvalidUserIDs = errors.New("invalid userIds provided")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsUTMLinkNotFound(err error) bool {
	return errors.Is(err, ErrUTMLinkNotFound)
}

func IsTrackingIDRequired(err error) bool {
	return errors.Is(err, ErrTrackingIDRequired)
}

// IsUnknownCatalogValue reports any of the builder selection errors
func IsUnknownCatalogValue(err error) bool {
	return errors.Is(err, ErrUnknownProgram) ||
		errors.Is(err, ErrUnknownChannel) ||
		errors.Is(err, ErrUnknownPlatform) ||
		errors.Is(err, ErrUnknownPlacement)
}

func IsShortenerNotConfigured(err error) bool {
	return errors.Is(err, ErrShortenerNotConfigured)
}

func IsInvalidBulkPayload(err error) bool {
	return errors.Is(err, ErrInvalidBulkPayload)
}

func IsSpreadsheetInvalid(err error) bool {
	return errors.Is(err, ErrSpreadsheetInvalid)
}

func IsInvalidUserIDs(err error) bool {
	return errors.Is(err, ErrInvalidUserIDs)
}

func IsInvalidPagination(err error) bool {
	return errors.Is(err, ErrInvalidPage) || errors.Is(err, ErrInvalidPageSize)
}
