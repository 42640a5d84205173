package iap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tarantuverse/internal/models"
)

// RestoreOrchestrator replays the validation phase for purchases the
// store still reports as available (unfinished or restorable).
type RestoreOrchestrator struct {
	coordinator *Coordinator
	validator   *ReceiptValidator
	logger      *slog.Logger
}

func NewRestoreOrchestrator(coordinator *Coordinator, validator *ReceiptValidator, logger *slog.Logger) (*RestoreOrchestrator, error) {
	if coordinator == nil || validator == nil {
		return nil, errors.New("iap: coordinator and validator are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RestoreOrchestrator{coordinator: coordinator, validator: validator, logger: logger}, nil
}

// RestoreAndReconcile enumerates the user's historical purchases and
// validates every one that matches a configured subscription SKU. It
// returns true once all matching records were attempted, false when the
// store reported no purchases at all. Records are processed one at a
// time, in store order: the backend endpoint is not guaranteed safe under
// concurrent calls for the same user, and interleaving would hide which
// finishTransaction belongs to which in-flight request. The first
// validation failure aborts the remainder and propagates.
func (r *RestoreOrchestrator) RestoreAndReconcile(ctx context.Context, authToken string) (bool, error) {
	records, err := r.coordinator.RestorePurchases(ctx)
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		r.logger.Info("iap: restore found no purchases")
		return false, nil
	}

	platform := r.coordinator.Platform()
	matched := 0
	for _, record := range records {
		if !models.IsSubscriptionSKU(platform, record.ProductID) {
			r.logger.Info("iap: restore skipping unrecognized product", "product_id", record.ProductID)
			continue
		}
		matched++
		if _, err := r.validator.Validate(ctx, record, authToken); err != nil {
			return false, fmt.Errorf("restore %s: %w", record.ProductID, err)
		}
	}
	r.logger.Info("iap: restore finished", "found", len(records), "validated", matched)
	return true, nil
}
