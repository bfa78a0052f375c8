package observability

import "errors"

// ErrNilConfig is returned when NewProvider receives no configuration.
var ErrNilConfig = errors.New("observability: config is nil")

// ErrInvalidProtocol is returned when the OTLP protocol is not "http" or "grpc".
var ErrInvalidProtocol = errors.New("observability: protocol must be either 'http' or 'grpc'")
