package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrNotConfigured       = errors.New("datastore not configured")
	ErrInsufficientFields  = errors.New("insufficient match fields")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)
