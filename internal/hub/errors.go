package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/everstacklabs/hfest/internal/estimate"
	"github.com/everstacklabs/hfest/internal/httpclient"
)

var (
	ErrMissingCredential = errors.New("no Hugging Face API key configured")
	ErrAuthentication    = errors.New("authentication error: invalid or expired API token")
	ErrAuthorization     = errors.New("authorization error: no access to this model repository")
	ErrNotFound          = errors.New("model not found")
	ErrRateLimited       = errors.New("rate limit exceeded, try again later")
	ErrUpstream          = errors.New("registry request failed")
)

// UpstreamError is any registry failure not covered by a more specific
// error. StatusCode is 0 when no response was received.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%v: %v", ErrUpstream, e.Err)
	}
	if e.Message == "" {
		return fmt.Sprintf("%v with status code %d", ErrUpstream, e.StatusCode)
	}
	return fmt.Sprintf("%v with status code %d: %s", ErrUpstream, e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream || target == estimate.ErrSourceUnavailable
}

// unavailableError tags a registry-wide failure with
// estimate.ErrSourceUnavailable without changing its message.
type unavailableError struct{ err error }

func (e unavailableError) Error() string { return e.err.Error() }

func (e unavailableError) Unwrap() []error {
	return []error{e.err, estimate.ErrSourceUnavailable}
}

// mapError converts a transport error into the registry error taxonomy.
func mapError(repoID string, err error) error {
	var se *httpclient.StatusError
	if !errors.As(err, &se) {
		return &UpstreamError{Err: err}
	}

	switch se.StatusCode {
	case http.StatusUnauthorized:
		return unavailableError{ErrAuthentication}
	case http.StatusForbidden:
		return unavailableError{ErrAuthorization}
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s doesn't exist on the Hugging Face Hub", ErrNotFound, repoID)
	case http.StatusTooManyRequests:
		return unavailableError{ErrRateLimited}
	}
	return &UpstreamError{StatusCode: se.StatusCode, Message: upstreamMessage(se.Body)}
}

// upstreamMessage extracts the "error" field of a JSON error body, falling
// back to the raw text.
func upstreamMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
