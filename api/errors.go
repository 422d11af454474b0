package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code   int
	Method string
	Route  string
	Detail string // the backend's "detail" message when it sent one
}

func newStatusError(method, route string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Code:   resp.StatusCode,
		Method: method,
		Route:  route,
		Detail: parseDetail(body),
	}
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Route, e.Code, http.StatusText(e.Code))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is lets 401 responses match ErrUnauthenticated.
func (e *StatusError) Is(target error) bool {
	return e.Code == http.StatusUnauthorized && target == apperrors.ErrUnauthenticated
}

func (e *StatusError) IsServerError() bool {
	return e.Code/100 == 5
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a backend response.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

// Detail returns the backend's message carried by err, if any.
func Detail(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Detail
	}
	return ""
}

// parseDetail extracts {"detail": ...}. Validation failures carry a list of
// objects rather than a string; those are returned as compact JSON.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return strings.TrimSpace(string(body))
	}
	if len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		return string(envelope.Detail)
	}
	return envelope.Message
}
