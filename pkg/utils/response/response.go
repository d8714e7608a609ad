// Package response defines the JSON envelope every bridge API endpoint
// replies with.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope wraps every API reply. Data is present on success only;
// ErrorType and Message on errors only.
type Envelope struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// SuccessResponse sends data wrapped in a success envelope
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse sends an error envelope with the given HTTP status.
// errorType is a coarse category ("InputException", "ServerException",
// "DataException"); message carries the detail.
func ErrorResponse(c echo.Context, httpStatus int, errorType, message string) error {
	return c.JSON(httpStatus, Envelope{
		Status:    "error",
		ErrorType: errorType,
		Message:   message,
	})
}
