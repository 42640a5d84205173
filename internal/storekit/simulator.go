// Package storekit is a development stand-in for the native store layer.
// Preview builds and the sandbox harness use it to drive the purchase
// coordinator without a real App Store / Play Billing connection.
package storekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"

	"tarantuverse/internal/iap"
	"tarantuverse/internal/models"
)

// Settlement modes: how the simulator answers a purchase request.
const (
	// ModeApprove returns the record directly from RequestPurchase and
	// additionally replays it on the purchase-updated stream, the way
	// some platforms deliver both signals for one purchase.
	ModeApprove = "approve"
	// ModeDeferred returns nothing from the direct call; the record
	// arrives on the purchase-updated stream after Latency.
	ModeDeferred = "deferred"
	// ModeDecline emits a failure on the purchase-error stream.
	ModeDecline = "decline"
	// ModeCancel rejects the direct call with the user-cancelled code.
	ModeCancel = "cancel"
	// ModeSilent never answers, which exercises the purchase timeout.
	ModeSilent = "silent"
)

const (
	topicPurchaseUpdated = "storekit.purchase.updated"
	topicPurchaseError   = "storekit.purchase.error"
)

type Config struct {
	Platform string
	Mode     string
	Latency  time.Duration
	Catalog  []models.ProductCatalogEntry
	Logger   *slog.Logger
}

// Simulator implements iap.StoreGateway in memory. Purchases stay in the
// available list until they are finished, so unacknowledged transactions
// re-appear on restore just like with the real stores.
type Simulator struct {
	platform string
	latency  time.Duration
	bus      EventBus.Bus
	logger   *slog.Logger

	mu        sync.Mutex
	mode      string
	connected bool
	catalog   map[string]models.ProductCatalogEntry
	available []models.PurchaseRecord
}

func New(cfg Config) *Simulator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeDeferred
	}
	catalog := make(map[string]models.ProductCatalogEntry, len(cfg.Catalog))
	for _, entry := range cfg.Catalog {
		catalog[entry.ProductID] = entry
	}
	return &Simulator{
		platform: cfg.Platform,
		latency:  cfg.Latency,
		bus:      EventBus.New(),
		logger:   logger,
		mode:     mode,
		catalog:  catalog,
	}
}

// SetMode switches the settlement behavior for subsequent requests.
func (s *Simulator) SetMode(mode string) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// SeedPurchase places an unfinished purchase into the available list, as
// if it had completed in an earlier session and was never acknowledged.
func (s *Simulator) SeedPurchase(productID string) models.PurchaseRecord {
	record := s.newRecord(productID)
	s.mu.Lock()
	s.available = append(s.available, record)
	s.mu.Unlock()
	return record
}

func (s *Simulator) InitConnection(ctx context.Context) error {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

func (s *Simulator) EndConnection(ctx context.Context) error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *Simulator) FetchProducts(ctx context.Context, req iap.ProductsRequest) ([]models.ProductCatalogEntry, error) {
	if err := s.requireConnection(); err != nil {
		return nil, err
	}
	// Unknown skus are silently skipped, as the real stores do.
	entries := make([]models.ProductCatalogEntry, 0, len(req.SKUs))
	s.mu.Lock()
	for _, sku := range req.SKUs {
		if entry, ok := s.catalog[sku]; ok {
			entries = append(entries, entry)
		}
	}
	s.mu.Unlock()
	return entries, nil
}

func (s *Simulator) RequestPurchase(ctx context.Context, req iap.PurchaseRequest) (*models.PurchaseRecord, error) {
	if err := s.requireConnection(); err != nil {
		return nil, err
	}
	sku := req.SKU
	if sku == "" && len(req.SKUs) > 0 {
		sku = req.SKUs[0]
	}
	if sku == "" {
		return nil, &iap.StoreError{Code: "E_DEVELOPER_ERROR", Message: "purchase request without sku"}
	}

	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	switch mode {
	case ModeCancel:
		return nil, &iap.StoreError{Code: "E_USER_CANCELLED", Message: "payment sheet dismissed by user"}
	case ModeDecline:
		s.after(func() {
			s.bus.Publish(topicPurchaseError, iap.StoreError{Code: "E_SERVICE_ERROR", Message: "card declined by the store"})
		})
		return nil, nil
	case ModeSilent:
		return nil, nil
	case ModeApprove:
		record := s.complete(sku)
		s.after(func() {
			s.bus.Publish(topicPurchaseUpdated, record)
		})
		return &record, nil
	default: // ModeDeferred
		record := s.complete(sku)
		s.after(func() {
			s.bus.Publish(topicPurchaseUpdated, record)
		})
		return nil, nil
	}
}

func (s *Simulator) GetAvailablePurchases(ctx context.Context) ([]models.PurchaseRecord, error) {
	if err := s.requireConnection(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	records := append([]models.PurchaseRecord(nil), s.available...)
	s.mu.Unlock()
	return records, nil
}

func (s *Simulator) FinishTransaction(ctx context.Context, purchase models.PurchaseRecord, isConsumable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, record := range s.available {
		if record.TransactionID == purchase.TransactionID {
			s.available = append(s.available[:i], s.available[i+1:]...)
			s.logger.Info("storekit: transaction finished",
				"transaction_id", purchase.TransactionID, "consumable", isConsumable)
			return nil
		}
	}
	return fmt.Errorf("finish transaction: unknown transaction %s", purchase.TransactionID)
}

func (s *Simulator) PurchaseUpdatedListener(h iap.PurchaseUpdatedHandler) iap.Subscription {
	handler := func(record models.PurchaseRecord) { h(record) }
	if err := s.bus.Subscribe(topicPurchaseUpdated, handler); err != nil {
		s.logger.Warn("storekit: subscribe purchase updated", "error", err)
	}
	return &subscription{bus: s.bus, topic: topicPurchaseUpdated, handler: handler}
}

func (s *Simulator) PurchaseErrorListener(h iap.PurchaseErrorHandler) iap.Subscription {
	handler := func(storeErr iap.StoreError) { h(storeErr) }
	if err := s.bus.Subscribe(topicPurchaseError, handler); err != nil {
		s.logger.Warn("storekit: subscribe purchase error", "error", err)
	}
	return &subscription{bus: s.bus, topic: topicPurchaseError, handler: handler}
}

func (s *Simulator) requireConnection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errors.New("storekit: connection not initialized")
	}
	return nil
}

// complete records a successful purchase in the available list and
// returns it. The purchase stays there until FinishTransaction.
func (s *Simulator) complete(sku string) models.PurchaseRecord {
	record := s.newRecord(sku)
	s.mu.Lock()
	s.available = append(s.available, record)
	s.mu.Unlock()
	return record
}

func (s *Simulator) newRecord(sku string) models.PurchaseRecord {
	record := models.PurchaseRecord{
		Platform:      s.platform,
		ProductID:     sku,
		TransactionID: uuid.NewString(),
	}
	if s.platform == models.PlatformAndroid {
		record.PurchaseToken = "sim-token-" + uuid.NewString()
	} else {
		record.TransactionReceipt = "sim-receipt-" + uuid.NewString()
	}
	return record
}

// after runs fn once the configured latency elapsed, off the caller's
// goroutine like the native event streams.
func (s *Simulator) after(fn func()) {
	delay := s.latency
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		fn()
	}()
}

type subscription struct {
	bus     EventBus.Bus
	topic   string
	handler interface{}

	once sync.Once
}

func (s *subscription) Remove() {
	s.once.Do(func() {
		_ = s.bus.Unsubscribe(s.topic, s.handler)
	})
}
