package iap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"tarantuverse/internal/models"
)

type ServiceConfig struct {
	Gateway  StoreGateway
	Platform string

	// ExecutionEnv is the static execution-environment flag the guard
	// decides availability from (see guard.go constants).
	ExecutionEnv string

	// BackendBaseURL of the receipt-validation backend.
	BackendBaseURL string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Service is the caller-facing purchase API, one instance per app
// session. Read paths degrade silently when the environment has no store
// layer; purchase and restore must not pretend to succeed and fail with
// ErrIAPUnavailable instead.
type Service struct {
	guard       *Guard
	coordinator *Coordinator
	validator   *ReceiptValidator
	restorer    *RestoreOrchestrator
	gateway     StoreGateway
	platform    string
	logger      *slog.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("iap: gateway is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	guard := NewGuard(cfg.ExecutionEnv)

	coordinator, err := NewCoordinator(CoordinatorConfig{
		Gateway:  cfg.Gateway,
		Guard:    guard,
		Platform: cfg.Platform,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	validator, err := NewReceiptValidator(ValidatorConfig{
		BaseURL: cfg.BackendBaseURL,
		Gateway: cfg.Gateway,
		Client:  cfg.HTTPClient,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	restorer, err := NewRestoreOrchestrator(coordinator, validator, logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		guard:       guard,
		coordinator: coordinator,
		validator:   validator,
		restorer:    restorer,
		gateway:     cfg.Gateway,
		platform:    cfg.Platform,
		logger:      logger,
	}, nil
}

// Available reports whether the native store layer exists at all.
func (s *Service) Available() bool {
	return s.guard.Available()
}

// Initialize opens the store connection and installs the purchase
// listeners. A connection failure propagates so the UI can show
// "purchases unavailable".
func (s *Service) Initialize(ctx context.Context) error {
	return s.coordinator.Initialize(ctx)
}

// End tears the store connection down. Never fails.
func (s *Service) End(ctx context.Context) {
	s.coordinator.Teardown(ctx)
}

// SubscriptionProducts fetches the subscription catalog for the paywall.
// Returns an empty list in environments without a store layer.
func (s *Service) SubscriptionProducts(ctx context.Context) ([]models.ProductCatalogEntry, error) {
	if !s.guard.Available() {
		return []models.ProductCatalogEntry{}, nil
	}
	products, err := s.gateway.FetchProducts(ctx, ProductsRequest{
		SKUs: models.SubscriptionSKUs(s.platform),
		Type: "subs",
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// PurchaseSubscription runs one purchase attempt. A nil record with a nil
// error means the user cancelled; callers must check for nil before
// treating the purchase as completed.
func (s *Service) PurchaseSubscription(ctx context.Context, productID string) (*models.PurchaseRecord, error) {
	return s.coordinator.Purchase(ctx, productID)
}

// ValidateReceipt sends a completed purchase to the backend and finishes
// the transaction on success.
func (s *Service) ValidateReceipt(ctx context.Context, record models.PurchaseRecord, authToken string) (models.ValidationOutcome, error) {
	return s.validator.Validate(ctx, record, authToken)
}

// Restore re-validates the user's historical purchases. True means at
// least the store reported purchases and all matching ones were
// attempted.
func (s *Service) Restore(ctx context.Context, authToken string) (bool, error) {
	return s.restorer.RestoreAndReconcile(ctx, authToken)
}

// SubscriptionStatus reports whether the store holds any premium
// purchase for this user. Used for UI gating only, so an unavailable
// environment answers false rather than failing.
func (s *Service) SubscriptionStatus(ctx context.Context) (bool, error) {
	if !s.guard.Available() {
		return false, nil
	}
	records, err := s.gateway.GetAvailablePurchases(ctx)
	if err != nil {
		return false, err
	}
	for _, record := range records {
		if models.IsPremiumSKU(s.platform, record.ProductID) {
			return true, nil
		}
	}
	return false, nil
}
