package util

import (
	"errors"
	"fmt"
)

// Code classifies verification-flow failures.
type Code string

const (
	CodeNotConfigured       Code = "NOT_CONFIGURED"
	CodeDuplicateTicket     Code = "DUPLICATE_TICKET"
	CodeChannelCreateFailed Code = "CHANNEL_CREATE_FAILED"
	CodeNotAuthorized       Code = "NOT_AUTHORIZED"
	CodeAlreadyDecided      Code = "ALREADY_DECIDED"
	CodeWrongChannel        Code = "WRONG_CHANNEL"
	CodeInternal            Code = "INTERNAL"
)

// FlowError standardizes application errors.
type FlowError struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// NewFlowError constructs a FlowError.
func NewFlowError(code Code, message string, details map[string]any) *FlowError {
	return &FlowError{Code: code, Message: message, Details: details}
}

func NewNotConfigured(field string) error {
	return NewFlowError(CodeNotConfigured, fmt.Sprintf("%s is not configured", field), map[string]any{"field": field})
}

func NewDuplicateTicket(channelID string) error {
	return NewFlowError(CodeDuplicateTicket, "an open ticket already exists", map[string]any{"channel_id": channelID})
}

func NewChannelCreateFailed(err error) error {
	return &FlowError{Code: CodeChannelCreateFailed, Message: "could not create ticket channel", Err: err}
}

func NewNotAuthorized(message string) error {
	return NewFlowError(CodeNotAuthorized, message, nil)
}

func NewAlreadyDecided(channelID string) error {
	return NewFlowError(CodeAlreadyDecided, "this request has already been decided", map[string]any{"channel_id": channelID})
}

func NewWrongChannel() error {
	return NewFlowError(CodeWrongChannel, "not a verification ticket channel", nil)
}

func NewInternalError(err error) error {
	return &FlowError{Code: CodeInternal, Message: "internal error", Err: err}
}

// ToFlowError converts generic errors to FlowError.
func ToFlowError(err error) *FlowError {
	if err == nil {
		return nil
	}
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr
	}
	return &FlowError{Code: CodeInternal, Message: "internal error", Err: err}
}

// CodeOf extracts the failure code, defaulting to CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return ToFlowError(err).Code
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr.Code == code
	}
	return false
}

// Detail returns a string detail attached to the error, if present.
func Detail(err error, key string) string {
	var flowErr *FlowError
	if !errors.As(err, &flowErr) || flowErr.Details == nil {
		return ""
	}
	if v, ok := flowErr.Details[key].(string); ok {
		return v
	}
	return ""
}
