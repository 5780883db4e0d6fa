package auth

import "errors"

// Sentinel errors returned by token validation.
var (
	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("invalid service token")

	// ErrExpiredToken marks a token past its expiry claim.
	ErrExpiredToken = errors.New("service token has expired")

	// ErrTokenNotYetValid marks a token whose nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("service token not yet valid")

	// ErrMissingToken marks a request that carried no token at all.
	ErrMissingToken = errors.New("service token is missing")
)
