package locator

import "errors"

var (
	ErrMissingURL        = errors.New("tier URL is required")
	ErrHandshakeRejected = errors.New("clustering tier rejected the handshake")
	ErrConnectionClosed  = errors.New("tier connection is closed")
)
