package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrProviderInit = errors.New("embedding provider failed to initialize")
	ErrNotReady     = errors.New("matcher not ready")
	ErrValidation   = errors.New("input text must not be empty")
	ErrEmbedding    = errors.New("embedding failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)
