package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	ErrCodeInternalServerError = http.StatusInternalServerError
	ErrCodeBadRequest          = http.StatusBadRequest
	ErrCodeNotFound            = http.StatusNotFound
)

// Response is the uniform JSON envelope every handler returns.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// APIError carries an HTTP status alongside a message for HandleError
// to render consistently.
type APIError struct {
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func NewBadRequestError(message string, err error) *APIError {
	return &APIError{Code: ErrCodeBadRequest, Message: message, Err: err}
}

func NewInternalServerError(err error) *APIError {
	return &APIError{Code: ErrCodeInternalServerError, Message: "internal server error", Err: err}
}

// HandleError logs err and writes the matching JSON response.
func HandleError(c echo.Context, err error) error {
	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Request().URL.Path,
		"method": c.Request().Method,
	}).Error("api error")

	if apiErr, ok := err.(*APIError); ok {
		return c.JSON(apiErr.Code, Response{Code: apiErr.Code, Message: apiErr.Message})
	}
	return c.JSON(http.StatusInternalServerError, Response{
		Code:    http.StatusInternalServerError,
		Message: "internal server error",
	})
}
