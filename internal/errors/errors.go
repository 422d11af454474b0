package errors

import (
	"errors"
	"fmt"
)

// Common error kinds surfaced by the VetFlow client
var (
	// Authentication errors
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrMalformedAuthResponse  = errors.New("auth response did not contain an access token")
	ErrUnauthenticated        = errors.New("not authenticated")
	ErrSessionExpired         = errors.New("session expired")
	ErrMissingOAuthSessionID  = errors.New("no session_id found in redirect")
	ErrOAuthCallbackProcessed = errors.New("oauth callback already processed")

	// Transport errors
	ErrNetwork        = errors.New("network error")
	ErrUnexpectedBody = errors.New("unexpected response body")

	// Payment errors
	ErrPaymentCheck       = errors.New("payment status check failed")
	ErrMissingPaymentID   = errors.New("payment session id is required")
	ErrNoCheckoutRedirect = errors.New("url is not a checkout return")

	// Storage errors
	ErrStoreCorrupt = errors.New("session store is corrupt")
	ErrStoreSealed  = errors.New("session store value could not be opened")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
