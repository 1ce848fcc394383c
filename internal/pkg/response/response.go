package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/shrinkray/image-optimizer-backend/internal/pkg/errors"
)

// ErrorBody is the JSON shape for failed requests.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// OK writes a 200 response with the given payload.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error writes an error response with the given status and message.
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorBody{Error: message})
}

// BadRequest writes a 400 error
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 error
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// NotFound writes a 404 error
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError writes a 500 error with a generic message and details
func InternalError(c *gin.Context, details string) {
	c.JSON(http.StatusInternalServerError, ErrorBody{
		Error:   apperrors.GetMessage(apperrors.ErrInternalServer),
		Details: details,
	})
}

// HandleError maps an AppError to the wire format: client errors carry
// the code's message, server errors carry a generic message plus details.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := apperrors.ExtractCode(err)
	status := apperrors.GetHTTPStatus(code)

	if apperrors.IsServerError(code) {
		details := apperrors.GetDetails(err)
		if details == "" {
			details = apperrors.GetMessage(code)
		}
		c.JSON(status, ErrorBody{
			Error:   apperrors.GetMessage(apperrors.ErrInternalServer),
			Details: details,
		})
		return
	}

	c.JSON(status, ErrorBody{Error: apperrors.FormatError(code, apperrors.GetDetails(err))})
}
