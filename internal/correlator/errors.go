package correlator

import (
	"fmt"

	"walletlink/internal/deeplink"
)

// MismatchError is returned when the consumed response belongs to another
// request. The response is not put back.
type MismatchError struct {
	RequestID    string
	Kind         deeplink.Kind
	GotRequestID string
	GotKind      deeplink.Kind
}

// Error implements the error interface
func (e *MismatchError) Error() string {
	return fmt.Sprintf("unexpected wallet response: waiting for %s (%s), got %s (%s)",
		e.RequestID, e.Kind, e.GotRequestID, e.GotKind)
}

// WalletRejectedError is returned when the wallet reports a non-success status
type WalletRejectedError struct {
	RequestID string
	Status    deeplink.Status
}

// Error implements the error interface
func (e *WalletRejectedError) Error() string {
	return fmt.Sprintf("wallet rejected request %s: %s", e.RequestID, e.Status)
}
