package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAssetNotFound is returned by the marketplace when a token does not exist
	ErrAssetNotFound = errors.New("asset not found")

	// ErrRunInProgress is returned when a fetch or export is already running
	ErrRunInProgress = errors.New("a fetch or export is already running")

	// ErrNoAssets means there is nothing to export
	ErrNoAssets = errors.New("no assets found for this collection")
)

// ConfigurationError reports a missing required input. Raised before any network call.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is required", e.Field)
}

// ResolutionError means the collection slug could not be resolved to a contract
type ResolutionError struct {
	Slug string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to get collection info for %q: %v", e.Slug, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// TokenError is a recoverable failure while fetching a single token
type TokenError struct {
	TokenID int
	Err     error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("error fetching asset %d: %v", e.TokenID, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// DownloadError is a recoverable failure while downloading one image
type DownloadError struct {
	URL  string
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s to %s: %v", e.URL, e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsResolutionError reports whether err is (or wraps) a ResolutionError
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
