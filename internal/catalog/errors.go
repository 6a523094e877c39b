package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches an APIError with status 404.
	ErrNotFound = errors.New("section not found")

	// ErrMalformedPayload indicates a 2xx body that cannot drive a render.
	ErrMalformedPayload = errors.New("malformed catalog payload")
)

// ErrorClass classifies failed fetches for metrics and alerting.
type ErrorClass string

const (
	ErrorClassClient  ErrorClass = "client"
	ErrorClassServer  ErrorClass = "server"
	ErrorClassNetwork ErrorClass = "network"
	ErrorClassDecode  ErrorClass = "decode"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("catalog api %s error (status %d) %s: %s", e.Class, e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("catalog api %s error (status %d) %s", e.Class, e.StatusCode, e.URL)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

func classifyStatus(status int) ErrorClass {
	if status >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}

// Classify returns the class of any error produced by the client.
func Classify(err error) ErrorClass {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Class
	case errors.Is(err, ErrMalformedPayload):
		return ErrorClassDecode
	default:
		return ErrorClassNetwork
	}
}
