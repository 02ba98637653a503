package service

import "errors"

var (
	// ErrScanNotFound is returned when no scan has the requested ID.
	ErrScanNotFound = errors.New("scan not found")

	// ErrUnsupportedImage is returned for payloads that are not a decodable
	// jpeg, png, gif or webp image.
	ErrUnsupportedImage = errors.New("unsupported image format")

	// ErrExtractionFailed wraps failures of the vision model call.
	ErrExtractionFailed = errors.New("menu extraction failed")

	// ErrVisionUnavailable is returned when photo analysis is requested but no
	// vision model is configured.
	ErrVisionUnavailable = errors.New("vision model not configured")
)
