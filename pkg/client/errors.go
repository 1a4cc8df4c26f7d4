package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/moogar0880/problems"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Problem    *problems.Problem // Set when the body is an RFC 7807 problem
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: status}

	var problem problems.Problem
	if err := json.Unmarshal(body, &problem); err == nil && (problem.Title != "" || problem.Type != "") {
		apiErr.Problem = &problem
		apiErr.Message = problem.Detail

		if apiErr.Message == "" {
			apiErr.Message = problem.Title
		}

		return apiErr
	}

	var generic errorBody
	if err := json.Unmarshal(body, &generic); err == nil {
		apiErr.Message = generic.Error
		if apiErr.Message == "" {
			apiErr.Message = generic.Message
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	code := StatusCode(err)

	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
