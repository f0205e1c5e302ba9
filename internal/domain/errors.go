package domain

import "fmt"

// ConfigError reports missing or invalid credentials or addressing,
// e.g. an account without a clientSecret or a direct send without a
// robotCode. Fatal during account start; degraded to a result object
// during outbound sends.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

// AuthError reports a rejected token exchange. Status and Body carry
// the raw platform response for diagnostics.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token exchange rejected: status %d: %s", e.Status, e.Body)
}

// DeliveryError reports a send call rejected by the platform.
type DeliveryError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("send to %s rejected: status %d: %s", e.Endpoint, e.Status, e.Body)
}

// TransportError reports a connection-level failure surfaced via
// lifecycle events. Logged only, never propagated to event handling.
type TransportError struct {
	AccountID string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport for account %s: %v", e.AccountID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
