package tierclient

import "errors"

// Configuration errors
var (
	ErrInvalidConfig = errors.New("invalid clustering configuration")
)

// Lifecycle errors
var (
	ErrNotClustered   = errors.New("cache manager has no clustering configuration")
	ErrNotInitialized = errors.New("clustered connection has not been initialized")
	ErrClientClosed   = errors.New("tier client has been shut down")
)
