package ldgraph

import "errors"

var (
	// ErrCollectionNotFound is returned when a collection file is missing.
	ErrCollectionNotFound = errors.New("ldgraph: collection not found")

	// ErrNoCollections is returned when the configuration names nothing to load.
	ErrNoCollections = errors.New("ldgraph: no collections configured")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("ldgraph: invalid configuration")
)
