package tui

import "errors"

var (
	// ErrMissingQueryService is returned when the query service is not provided.
	ErrMissingQueryService = errors.New("tui: query service is required")

	// ErrMissingFileService is returned when the file service is not provided.
	ErrMissingFileService = errors.New("tui: file service is required")

	// ErrMissingOwner is returned when no owner id is configured.
	ErrMissingOwner = errors.New("tui: owner is required")

	// ErrInvalidPorts is returned when ports validation fails.
	ErrInvalidPorts = errors.New("tui: invalid ports configuration")
)
