package models

import "encoding/json"

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// PurchaseRecord contains the fields the store gateway reports for a
// completed purchase. On iOS the proof of purchase is the transaction
// receipt; on Android it is the purchase token. TransactionID carries the
// Android order id as well.
type PurchaseRecord struct {
	Platform           string `json:"platform"`
	ProductID          string `json:"product_id"`
	TransactionID      string `json:"transaction_id"`
	TransactionReceipt string `json:"transaction_receipt,omitempty"`
	PurchaseToken      string `json:"purchase_token,omitempty"`
}

// ReceiptToken returns the platform-specific proof of purchase. A missing
// field comes back as an empty string; the backend is the authority on
// whether that is acceptable.
func (p PurchaseRecord) ReceiptToken() string {
	switch p.Platform {
	case PlatformIOS:
		return p.TransactionReceipt
	case PlatformAndroid:
		return p.PurchaseToken
	}
	return ""
}

// ValidationOutcome is the result of a backend receipt validation call.
// Response keeps the raw backend payload for the caller.
type ValidationOutcome struct {
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response,omitempty"`
}

// ProductCatalogEntry is a store product as presented to the paywall
// screen. Fetched fresh per screen load, never cached.
type ProductCatalogEntry struct {
	ProductID      string `json:"product_id"`
	Title          string `json:"title,omitempty"`
	LocalizedPrice string `json:"localized_price"`
	Currency       string `json:"currency,omitempty"`
}
