package iap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tarantuverse/internal/models"
)

// purchaseTimeout bounds a single purchase attempt. The store normally
// answers within seconds; two minutes covers slow payment sheets.
const purchaseTimeout = 120 * time.Second

type CoordinatorConfig struct {
	Gateway  StoreGateway
	Guard    *Guard
	Platform string // models.PlatformIOS or models.PlatformAndroid

	// Timeout overrides the purchase timeout. Tests only.
	Timeout time.Duration
	Logger  *slog.Logger
}

// purchaseResult is the one-shot settlement of a purchase attempt.
// A nil record with a nil error means the user cancelled.
type purchaseResult struct {
	record *models.PurchaseRecord
	err    error
}

// pendingPurchase is the single in-flight slot. It exists only between
// Purchase() starting and the first settlement; every later settlement
// path finds the slot cleared and becomes a no-op.
type pendingPurchase struct {
	productID string
	done      chan purchaseResult
	timer     *time.Timer
}

// Coordinator bridges the gateway's uncorrelated event streams to one
// awaited result per purchase attempt. One instance lives for the app
// session; one purchase may be in flight at a time.
type Coordinator struct {
	gateway  StoreGateway
	guard    *Guard
	platform string
	timeout  time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	pending     *pendingPurchase
	updatedSub  Subscription
	errorSub    Subscription
	initialized bool
}

func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("iap: gateway is required")
	}
	if cfg.Guard == nil {
		return nil, errors.New("iap: guard is required")
	}
	if cfg.Platform != models.PlatformIOS && cfg.Platform != models.PlatformAndroid {
		return nil, fmt.Errorf("iap: unsupported platform %q", cfg.Platform)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = purchaseTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		gateway:  cfg.Gateway,
		guard:    cfg.Guard,
		platform: cfg.Platform,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Initialize opens the gateway connection and installs both listeners.
// Calling it again removes the previous subscriptions before
// re-installing, so double calls do not double-deliver events. Connection
// errors propagate; the caller surfaces them as "purchases unavailable".
func (c *Coordinator) Initialize(ctx context.Context) error {
	if !c.guard.Available() {
		c.logger.Info("iap: store gateway unavailable, skipping init")
		return nil
	}

	c.mu.Lock()
	if c.initialized {
		c.removeSubscriptionsLocked()
	}
	c.mu.Unlock()

	if err := c.gateway.InitConnection(ctx); err != nil {
		return fmt.Errorf("init store connection: %w", err)
	}

	c.mu.Lock()
	c.updatedSub = c.gateway.PurchaseUpdatedListener(c.onPurchaseUpdated)
	c.errorSub = c.gateway.PurchaseErrorListener(c.onPurchaseError)
	c.initialized = true
	c.mu.Unlock()
	return nil
}

// Teardown removes the listeners and closes the connection. Safe to call
// at any point; gateway errors are logged, never returned, so shutdown
// and navigation are never blocked.
func (c *Coordinator) Teardown(ctx context.Context) {
	c.mu.Lock()
	c.removeSubscriptionsLocked()
	wasInitialized := c.initialized
	c.initialized = false
	c.mu.Unlock()

	if !wasInitialized {
		return
	}
	if err := c.gateway.EndConnection(ctx); err != nil {
		c.logger.Warn("iap: end connection", "error", err)
	}
}

func (c *Coordinator) removeSubscriptionsLocked() {
	if c.updatedSub != nil {
		c.updatedSub.Remove()
		c.updatedSub = nil
	}
	if c.errorSub != nil {
		c.errorSub.Remove()
		c.errorSub = nil
	}
}

// Purchase runs one purchase attempt end to end. It returns the purchase
// record, or (nil, nil) when the user cancelled. Exactly one of the
// settlement paths — updated event, error event, direct result, timeout,
// caller context — delivers the outcome; the rest become no-ops.
func (c *Coordinator) Purchase(ctx context.Context, productID string) (*models.PurchaseRecord, error) {
	if !c.guard.Available() {
		return nil, ErrIAPUnavailable
	}
	if !models.IsPremiumSKU(c.platform, productID) {
		return nil, fmt.Errorf("unknown product id: %s", productID)
	}

	slot := &pendingPurchase{
		productID: productID,
		done:      make(chan purchaseResult, 1),
	}

	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return nil, ErrPurchaseInProgress
	}
	c.pending = slot
	slot.timer = time.AfterFunc(c.timeout, func() {
		c.settle(slot, purchaseResult{err: ErrPurchaseTimeout})
	})
	c.mu.Unlock()

	go c.request(ctx, slot)

	var res purchaseResult
	select {
	case res = <-slot.done:
	case <-ctx.Done():
		c.settle(slot, purchaseResult{err: ctx.Err()})
		res = <-slot.done
	}
	return res.record, res.err
}

// request issues the native purchase call. Some platforms hand the result
// back directly instead of (or in addition to) the event stream; both are
// treated as equally authoritative first-to-arrive signals.
func (c *Coordinator) request(ctx context.Context, slot *pendingPurchase) {
	record, err := c.gateway.RequestPurchase(ctx, c.requestFor(slot.productID))
	if err != nil {
		var storeErr *StoreError
		if errors.As(err, &storeErr) {
			if isCancellation(storeErr.Code, storeErr.Message) {
				c.settle(slot, purchaseResult{})
				return
			}
			c.settle(slot, purchaseResult{err: &PurchaseError{Code: storeErr.Code, Message: storeErr.Message}})
			return
		}
		if isCancellation("", err.Error()) {
			c.settle(slot, purchaseResult{})
			return
		}
		c.settle(slot, purchaseResult{err: &PurchaseError{Message: err.Error()}})
		return
	}
	if record != nil {
		c.settle(slot, purchaseResult{record: record})
	}
	// nil record, nil error: the result arrives via the event stream.
}

func (c *Coordinator) requestFor(productID string) PurchaseRequest {
	if c.platform == models.PlatformAndroid {
		return PurchaseRequest{SKUs: []string{productID}}
	}
	return PurchaseRequest{SKU: productID}
}

// settle clears the slot and delivers the result. The timer is stopped
// and the slot is detached before the caller's continuation can run, so a
// continuation starting a new purchase cannot corrupt this attempt.
func (c *Coordinator) settle(slot *pendingPurchase, res purchaseResult) {
	c.mu.Lock()
	if c.pending != slot {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	if slot.timer != nil {
		slot.timer.Stop()
	}
	c.mu.Unlock()

	slot.done <- res
}

func (c *Coordinator) onPurchaseUpdated(record models.PurchaseRecord) {
	c.mu.Lock()
	slot := c.pending
	c.mu.Unlock()
	if slot == nil {
		c.logger.Info("iap: purchase update with no pending purchase, ignoring",
			"product_id", record.ProductID, "transaction_id", record.TransactionID)
		return
	}
	if record.Platform == "" {
		record.Platform = c.platform
	}
	c.settle(slot, purchaseResult{record: &record})
}

func (c *Coordinator) onPurchaseError(storeErr StoreError) {
	c.mu.Lock()
	slot := c.pending
	c.mu.Unlock()
	if slot == nil {
		c.logger.Info("iap: purchase error with no pending purchase, ignoring",
			"code", storeErr.Code, "message", storeErr.Message)
		return
	}
	if isCancellation(storeErr.Code, storeErr.Message) {
		c.settle(slot, purchaseResult{})
		return
	}
	c.settle(slot, purchaseResult{err: &PurchaseError{Code: storeErr.Code, Message: storeErr.Message}})
}

// RestorePurchases enumerates previously completed purchases from the
// store. Zero purchases is an empty slice, not an error.
func (c *Coordinator) RestorePurchases(ctx context.Context) ([]models.PurchaseRecord, error) {
	if !c.guard.Available() {
		return nil, ErrIAPUnavailable
	}
	records, err := c.gateway.GetAvailablePurchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("get available purchases: %w", err)
	}
	return records, nil
}

// Platform returns the platform this coordinator issues requests for.
func (c *Coordinator) Platform() string {
	return c.platform
}
