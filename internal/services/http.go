package services

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPDoer describes the HTTP client used by provider clients.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusMarker maps an HTTP status to the marker used for classification.
func StatusMarker(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrConfiguration
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return ErrTransient
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrExternalTool
	}
}

// CheckResponse returns a classified error for non-2xx responses, including a
// bounded snippet of the body.
func CheckResponse(resp *http.Response, stage, operation string) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("http %d", resp.StatusCode)
	if snippet := strings.TrimSpace(string(body)); snippet != "" {
		msg += ": " + snippet
	}
	return Wrap(StatusMarker(resp.StatusCode), stage, operation, msg, nil)
}
