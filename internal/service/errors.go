package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/maheshrc27/postflow/internal/models"
)

var (
	ErrAccountNotFound  = errors.New("social account not found")
	ErrMissingToken     = errors.New("social account has no usable access token")
	ErrNoAssets         = errors.New("post has no media assets")
	ErrPostNotClaimable = errors.New("post is no longer claimable")
)

// UnsupportedPlatformError is returned when no publisher can serve a post's platform.
type UnsupportedPlatformError struct {
	Platform models.Platform
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %q", e.Platform)
}

// PlatformError is a non-2xx answer from a publishing platform.
type PlatformError struct {
	Platform   models.Platform
	StatusCode int
	Message    string
}

func (e *PlatformError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Platform, msg, e.StatusCode)
}

// IsConfigurationError reports errors that retrying will not fix: a missing
// account or token, a post the platform cannot accept, or an unsupported platform.
func IsConfigurationError(err error) bool {
	var unsupported *UnsupportedPlatformError
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrNoAssets) ||
		errors.As(err, &unsupported)
}
