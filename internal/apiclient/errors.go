package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/target/kb-assistant-web/internal/errors"
)

// GenericFailureMessage is used when the backend gives no usable detail.
const GenericFailureMessage = "request failed"

// Error is returned when the backend answered with a non-2xx status or an unreadable body.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
	// Code is the backend's machine-readable code, when it sends one.
	Code string
}

func (e *Error) Error() string { return e.Message }

// ErrorCode classifies the failure by HTTP status.
func (e *Error) ErrorCode() apperrors.ErrorCode {
	switch e.Status {
	case http.StatusUnauthorized:
		return apperrors.ErrCodeUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrCodeForbidden
	case http.StatusNotFound:
		return apperrors.ErrCodeNotFound
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return apperrors.ErrCodeValidation
	default:
		return apperrors.ErrCodeUpstream
	}
}

// NetworkError is returned when the backend could not be reached or the exchange broke mid-way.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ErrorCode implements errors.Coder.
func (e *NetworkError) ErrorCode() apperrors.ErrorCode { return apperrors.ErrCodeNetwork }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if e, ok := asError(err); ok {
		return e.Status
	}
	return 0
}

// errorBody is the backend's failure envelope. detail is usually a string;
// validation failures send a list of {msg} objects instead.
type errorBody struct {
	Detail    json.RawMessage `json:"detail"`
	Code      string          `json:"code"`
	ErrorCode string          `json:"error_code"`
}

func newResponseError(method, path string, status int, body []byte) *Error {
	e := &Error{Method: method, Path: path, Status: status, Message: GenericFailureMessage}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return e
	}
	if msg := detailMessage(eb.Detail); msg != "" {
		e.Message = msg
	}
	e.Code = eb.Code
	if e.Code == "" {
		e.Code = eb.ErrorCode
	}
	return e
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
