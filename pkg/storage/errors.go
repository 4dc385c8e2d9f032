package storage

import "errors"

var (
	ErrNoAccessToken      = errors.New("no access token available")
	ErrEmptyBaseURL       = errors.New("base URL is required")
	ErrEmptyAppSlug       = errors.New("application slug is required")
	ErrNilTokenSource     = errors.New("token source is required")
	ErrEmptyPath          = errors.New("file path is required")
	ErrInvalidPath        = errors.New("invalid file path")
	ErrObjectNotFound     = errors.New("object not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidS3Config    = errors.New("invalid S3 configuration")
	ErrFailedToLoadConfig = errors.New("failed to load AWS configuration")
)
