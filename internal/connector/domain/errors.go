package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials reports an unconfigured app key/secret pair.
	// Fatal at startup, never per-request.
	ErrMissingCredentials = errors.New("marketplace credentials not configured")

	// ErrInvalidState reports an expired, tampered, or malformed redirect
	// state parameter. The user must restart the authorization flow.
	ErrInvalidState = errors.New("invalid or expired state")

	// ErrNotConnected reports that no token is on file for the user.
	ErrNotConnected = errors.New("marketplace account not connected")

	// ErrRefreshFailed reports an authoritative refresh rejection. The
	// stored token has been deleted; re-authorization is required.
	ErrRefreshFailed = errors.New("token refresh rejected")

	// ErrMalformedResponse reports a vendor success envelope missing the
	// fields it is documented to carry.
	ErrMalformedResponse = errors.New("malformed vendor response")
)

// UpstreamError is a non-success envelope from the vendor: the top-level
// response code was not the "0" success sentinel.
type UpstreamError struct {
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("vendor error %s", e.Code)
	}
	return fmt.Sprintf("vendor error %s: %s", e.Code, e.Message)
}

// TransportError wraps a network-level failure (connection refused, timeout,
// unreadable body). Retryable with backoff; the vendor never saw or never
// answered the request conclusively.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
