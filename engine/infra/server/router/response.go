package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ragserve/ragserve/pkg/logger"
)

// Error codes carried in standardized error responses.
const (
	ErrInternalCode       = "INTERNAL_ERROR"
	ErrBadRequestCode     = "BAD_REQUEST"
	ErrNotFoundCode       = "NOT_FOUND"
	ErrTooLargeCode       = "PAYLOAD_TOO_LARGE"
	ErrUnsupportedCode    = "UNSUPPORTED_MEDIA_TYPE"
	ErrUnprocessableCode  = "UNPROCESSABLE_ENTITY"
	ErrBadGatewayCode     = "BAD_GATEWAY"
	ErrUnavailableCode    = "SERVICE_UNAVAILABLE"
	ErrStreamInitFailCode = "STREAM_INIT_FAILED"
)

// Response is the standard envelope for all JSON endpoints.
type Response struct {
	Status  int        `json:"status"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo describes a request failure inside the response envelope.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// RequestError represents errors that can occur during request handling.
// Code, when set, overrides the status-derived error code.
type RequestError struct {
	Reason     string
	StatusCode int
	Code       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError.
func NewRequestError(statusCode int, reason string, err error) *RequestError {
	return &RequestError{StatusCode: statusCode, Reason: reason, Err: err}
}

// NewRequestErrorWithCode creates a RequestError carrying an explicit code.
func NewRequestErrorWithCode(statusCode int, code, reason string, err error) *RequestError {
	return &RequestError{StatusCode: statusCode, Code: code, Reason: reason, Err: err}
}

// GetErrorInfo extracts error information for the standardized response.
func (e *RequestError) GetErrorInfo() *ErrorInfo {
	var details string
	if e.Err != nil {
		details = e.Err.Error()
	}
	if e.Code != "" {
		return &ErrorInfo{Code: e.Code, Message: e.Reason, Details: details}
	}
	code := ErrInternalCode
	switch e.StatusCode {
	case http.StatusBadRequest:
		code = ErrBadRequestCode
	case http.StatusNotFound:
		code = ErrNotFoundCode
	case http.StatusRequestEntityTooLarge:
		code = ErrTooLargeCode
	case http.StatusUnsupportedMediaType:
		code = ErrUnsupportedCode
	case http.StatusUnprocessableEntity:
		code = ErrUnprocessableCode
	case http.StatusBadGateway:
		code = ErrBadGatewayCode
	case http.StatusServiceUnavailable:
		code = ErrUnavailableCode
	}
	return &ErrorInfo{Code: code, Message: e.Reason, Details: details}
}

// RespondOK writes a 200 response with the standard envelope.
func RespondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// RespondWithError writes an error response and aborts the request.
func RespondWithError(c *gin.Context, statusCode int, err error) {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		reqErr = NewRequestError(statusCode, http.StatusText(statusCode), err)
	}
	logRequestError(c, reqErr)
	c.AbortWithStatusJSON(reqErr.StatusCode, Response{
		Status: reqErr.StatusCode,
		Error:  reqErr.GetErrorInfo(),
	})
}

func logRequestError(c *gin.Context, reqErr *RequestError) {
	log := logger.FromContext(c.Request.Context())
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	fields := []any{
		"status", reqErr.StatusCode,
		"reason", reqErr.Reason,
		"route", route,
	}
	if reqErr.Err != nil {
		fields = append(fields, "error", reqErr.Err)
	}
	if reqErr.StatusCode >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
		return
	}
	log.Warn("request failed", fields...)
}
