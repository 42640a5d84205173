package iap

import (
	"context"
	"fmt"

	"tarantuverse/internal/models"
)

// StoreError is the payload the gateway delivers on its purchase-error
// stream and from a rejected purchase request.
type StoreError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store error %s: %s", e.Code, e.Message)
	}
	return "store error: " + e.Message
}

// Subscription is the removable handle returned by a listener registration.
type Subscription interface {
	Remove()
}

type PurchaseUpdatedHandler func(models.PurchaseRecord)

type PurchaseErrorHandler func(StoreError)

// PurchaseRequest is the platform-specific request shape: iOS takes a
// single sku, Android takes a sku list.
type PurchaseRequest struct {
	SKU  string   `json:"sku,omitempty"`
	SKUs []string `json:"skus,omitempty"`
}

// ProductsRequest asks the store for catalog entries of the given type.
type ProductsRequest struct {
	SKUs []string `json:"skus"`
	Type string   `json:"type"`
}

// StoreGateway is the native store layer. Purchase results may arrive via
// the direct RequestPurchase return value, via the purchase-updated
// stream, or both; the two listener streams are not correlated with the
// request that triggered them.
type StoreGateway interface {
	InitConnection(ctx context.Context) error
	EndConnection(ctx context.Context) error
	FetchProducts(ctx context.Context, req ProductsRequest) ([]models.ProductCatalogEntry, error)
	// RequestPurchase may return (nil, nil): the result will then arrive
	// on the purchase-updated or purchase-error stream.
	RequestPurchase(ctx context.Context, req PurchaseRequest) (*models.PurchaseRecord, error)
	GetAvailablePurchases(ctx context.Context) ([]models.PurchaseRecord, error)
	FinishTransaction(ctx context.Context, purchase models.PurchaseRecord, isConsumable bool) error
	PurchaseUpdatedListener(h PurchaseUpdatedHandler) Subscription
	PurchaseErrorListener(h PurchaseErrorHandler) Subscription
}
