package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthenticated = 1003

	// Image pipeline errors (2000-2999)
	ErrMissingFile          = 2000
	ErrUnsupportedMediaType = 2001
	ErrFileTooLarge         = 2002
	ErrTransformFailed      = 2003
	ErrUploadFailed         = 2004
	ErrMetadataWriteFailed  = 2005
	ErrImageNotFound        = 2006

	// Credits errors (3000-3999)
	ErrInsufficientCredits = 3000
	ErrCreditsNotFound     = 3001
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "An unexpected error occurred"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthenticated: {ErrUnauthenticated, http.StatusUnauthorized, "Missing or invalid authorization"},

	// Image pipeline errors
	ErrMissingFile:          {ErrMissingFile, http.StatusBadRequest, "No file uploaded"},
	ErrUnsupportedMediaType: {ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "Unsupported media type"},
	ErrFileTooLarge:         {ErrFileTooLarge, http.StatusBadRequest, "File size exceeds limit"},
	ErrTransformFailed:      {ErrTransformFailed, http.StatusInternalServerError, "Failed to transform image"},
	ErrUploadFailed:         {ErrUploadFailed, http.StatusInternalServerError, "Failed to upload image"},
	ErrMetadataWriteFailed:  {ErrMetadataWriteFailed, http.StatusInternalServerError, "Failed to save image metadata"},
	ErrImageNotFound:        {ErrImageNotFound, http.StatusNotFound, "Image not found"},

	// Credits errors
	ErrInsufficientCredits: {ErrInsufficientCredits, http.StatusPaymentRequired, "Insufficient credits"},
	ErrCreditsNotFound:     {ErrCreditsNotFound, http.StatusNotFound, "Credits account not found"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsClientError checks if the code represents a client error (4xx)
func IsClientError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}

// IsServerError checks if the code represents a server error (5xx)
func IsServerError(code int) bool {
	return GetHTTPStatus(code) >= 500
}

// FormatError formats an error message with optional details
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
