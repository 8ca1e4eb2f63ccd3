package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient returns the shared client for calls to sibling services.
// Resilience comes from the circuit breakers wrapping each call.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}
