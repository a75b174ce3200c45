package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Error codes of the failure envelope.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternal         = "INTERNAL"
)

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (em *ErrorMessage) UnmarshalJSON(bytes []byte) error {
	f := new(struct {
		Code    *string `json:"code"`
		Message *string `json:"message"`
		Details any     `json:"details,omitempty"`
	})
	if err := json.Unmarshal(bytes, f); err != nil {
		return err
	}
	if f.Code == nil {
		return fmt.Errorf(`required field missing: "code"`)
	}
	em.Code = *f.Code
	if f.Message == nil {
		return fmt.Errorf(`required field missing: "message"`)
	}
	em.Message = *f.Message
	em.Details = f.Details
	return nil
}

func (e ErrorMessage) String() string {
	lines := []string{e.Code + ": " + e.Message}
	if e.Cause != nil {
		lines = append(lines, " caused by: "+e.Cause.Error())
	}
	return strings.Join(lines, "\n")
}

func (e ErrorMessage) Error() string {
	return e.String()
}

func (e ErrorMessage) Unwrap() error {
	return e.Cause
}

type ErrorMessageOption func(in *ErrorMessage) *ErrorMessage

func WithDetail(details any) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if details != nil {
			in.Details = details
		}
		return in
	}
}

func WithError(err error) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if err != nil {
			in.Cause = err
		}
		return in
	}
}

func NewErrorMessage(status int, code string, message string, opts ...ErrorMessageOption) *echo.HTTPError {
	msg := ErrorMessage{Code: code, Message: message}
	for _, opt := range opts {
		msg = *opt(&msg)
	}
	return echo.NewHTTPError(status, msg).SetInternal(msg)
}

func NotFound() *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, CodeNotFound, "not found")
}

func Conflict(message string, opts ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(http.StatusConflict, CodeConflict, message, opts...)
}

func ValidationFailed(message string, opts ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(http.StatusUnprocessableEntity, CodeValidationFailed, message, opts...)
}

func BadRequest(message string, err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusBadRequest, CodeBadRequest, message, WithError(err))
}

func Unauthorized(message string) *echo.HTTPError {
	return NewErrorMessage(http.StatusUnauthorized, CodeUnauthorized, message)
}

func Internal(err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusInternalServerError, CodeInternal, "internal error",
		WithError(err),
	)
}

// Handler renders every error as the failure envelope
// {"error": {...}, "meta": {"timestamp", "requestId"}}.
// Register it as echo's HTTPErrorHandler.
func Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := ErrorMessage{Code: CodeInternal, Message: "internal error"}

	if herr, ok := err.(*echo.HTTPError); ok {
		status = herr.Code
		switch m := herr.Message.(type) {
		case ErrorMessage:
			message = m
		case string:
			message = ErrorMessage{Code: codeFor(status), Message: m}
		default:
			message = ErrorMessage{Code: codeFor(status), Message: fmt.Sprint(m)}
		}
	}

	if status >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}

	requestId := c.Response().Header().Get(echo.HeaderXRequestID)
	if err := c.JSON(status, map[string]any{
		"error": message,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": requestId,
		},
	}); err != nil {
		c.Logger().Error(err)
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusUnprocessableEntity:
		return CodeValidationFailed
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}
