package iap

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIAPUnavailable means the execution environment has no native
	// store layer. The UI shows "use a full build" for this one, so it
	// must stay distinct from real purchase failures.
	ErrIAPUnavailable = errors.New("in-app purchases are not available in this environment")

	// ErrPurchaseTimeout means neither an event nor a direct result
	// arrived within the purchase timeout. Retryable.
	ErrPurchaseTimeout = errors.New("purchase timed out waiting for the store")

	// ErrPurchaseInProgress is a caller error: a second purchase was
	// started while another one was still pending.
	ErrPurchaseInProgress = errors.New("another purchase is already in progress")
)

// PurchaseError carries the gateway's failure message for a purchase that
// was not classified as a user cancellation.
type PurchaseError struct {
	Code    string
	Message string
}

func (e *PurchaseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("purchase failed (%s): %s", e.Code, e.Message)
	}
	return "purchase failed: " + e.Message
}

// ValidationError is returned when the backend rejects a receipt. The
// transaction is deliberately left unfinished so a later restore can
// retry it.
type ValidationError struct {
	StatusCode int
	Status     string
	Detail     string
	Body       string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("receipt validation failed: %s", e.Status)
}

const storeErrUserCancelled = "E_USER_CANCELLED"

// isCancellation recognizes the store's "user cancelled" signal either by
// its error code or by a message containing "cancel".
func isCancellation(code, message string) bool {
	if strings.EqualFold(strings.TrimSpace(code), storeErrUserCancelled) {
		return true
	}
	return strings.Contains(strings.ToLower(message), "cancel")
}
