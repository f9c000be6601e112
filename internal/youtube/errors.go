// Package youtube provides an HTTP client for the YouTube Data API resumable
// upload protocol, plus the handful of video management calls the CLI needs.
package youtube

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, youtube.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("youtube: bad request")
	ErrUnauthorized = errors.New("youtube: unauthorized")
	ErrForbidden    = errors.New("youtube: forbidden")
	ErrNotFound     = errors.New("youtube: not found")
	ErrConflict     = errors.New("youtube: conflict")
	ErrThrottled    = errors.New("youtube: throttled")
	ErrServerError  = errors.New("youtube: server error")
)

// ErrMissingToken means the account has neither a refresh token nor an
// access token. The user has to log in again.
var ErrMissingToken = errors.New("youtube: no usable token, re-authentication required")

// ErrNotLoggedIn is returned when no token file exists for the account.
var ErrNotLoggedIn = errors.New("youtube: not logged in")

// ErrInvalidPrivacy is returned for privacy values other than
// public, private or unlisted.
var ErrInvalidPrivacy = errors.New("youtube: privacy must be one of public, private, unlisted")

// APIError wraps a sentinel error with HTTP status code and the response
// body for debugging.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// SessionInitiationError reports a failed resumable session request: either
// a non-2xx response or a 2xx response without a Location header.
type SessionInitiationError struct {
	StatusCode      int
	Body            string
	MissingLocation bool
}

func (e *SessionInitiationError) Error() string {
	if e.MissingLocation {
		return fmt.Sprintf("youtube: upload session response (HTTP %d) has no Location header", e.StatusCode)
	}

	return fmt.Sprintf("youtube: creating upload session failed with HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *SessionInitiationError) Unwrap() error {
	return classifyStatus(e.StatusCode)
}

// ChunkUploadError reports a chunk response that was neither 308 nor
// 200/201. The session record still exists; the caller cleans it up.
type ChunkUploadError struct {
	StatusCode int
	Body       string
	Offset     int64
}

func (e *ChunkUploadError) Error() string {
	return fmt.Sprintf("youtube: chunk upload at offset %d failed with HTTP %d: %s", e.Offset, e.StatusCode, e.Body)
}

func (e *ChunkUploadError) Unwrap() error {
	return classifyStatus(e.StatusCode)
}

// StreamExhaustionError means the payload ended before the declared length.
type StreamExhaustionError struct {
	Offset   int64
	Declared int64
}

func (e *StreamExhaustionError) Error() string {
	return fmt.Sprintf("youtube: payload ended at byte %d, declared length is %d", e.Offset, e.Declared)
}

// RangeError means the server acknowledged a byte offset the engine cannot
// continue from: beyond the declared length, or behind the bytes a
// sequential payload still holds.
type RangeError struct {
	Offset int64
	Low    int64
	High   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("youtube: server resume offset %d outside [%d, %d]", e.Offset, e.Low, e.High)
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried
// by Do. Chunk uploads never consult this.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
