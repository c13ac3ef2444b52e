package common

import "errors"

// Notice is a shopper-facing message attached to a failed checkout.
type Notice struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ErrorNotice builds a notice of type "error".
func ErrorNotice(message string) Notice {
	return Notice{Message: message, Type: "error"}
}

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Notices    []Notice
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithNotices appends shopper-facing notices and returns the same error.
func (e *AppError) WithNotices(messages ...string) *AppError {
	for _, msg := range messages {
		e.Notices = append(e.Notices, ErrorNotice(msg))
	}
	return e
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// AsAppError extracts an AppError from the chain when present.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
