package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors.
// These are returned by Config.Validate and can be matched with errors.Is.
var (
	// ErrNoWorkDir is returned when the working directory is empty.
	ErrNoWorkDir = errors.New("no working directory specified")

	// ErrInvalidTimeout is returned when a run or page timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrNoSites is returned when no forecast site is configured.
	ErrNoSites = errors.New("no sites configured")

	// ErrInvalidSite is returned when a site has no ID or invalid criteria.
	ErrInvalidSite = errors.New("invalid site")

	// ErrDuplicateSite is returned when the same site ID appears twice.
	ErrDuplicateSite = errors.New("duplicate site")

	// ErrInvalidConcurrency is returned when the fetch concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidDelay is returned when a settle delay or site pause is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrMissingCommand is returned when a command component has no command.
	ErrMissingCommand = errors.New("command component configured without a command")

	// ErrMissingTarget is returned when the dir publisher has no target.
	ErrMissingTarget = errors.New("dir publisher requires a target")

	// ErrUnknownFetcher is returned for an unsupported fetcher kind.
	ErrUnknownFetcher = errors.New("unknown fetcher kind")

	// ErrUnknownRenderer is returned for an unsupported renderer kind.
	ErrUnknownRenderer = errors.New("unknown renderer kind")

	// ErrUnknownPublisher is returned for an unsupported publisher kind.
	ErrUnknownPublisher = errors.New("unknown publisher kind")
)

func wrapSite(err error, id string) error {
	return fmt.Errorf("%w: %q", err, id)
}

func wrapKind(err error, kind string) error {
	return fmt.Errorf("%w: %q", err, kind)
}
