package iap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"tarantuverse/internal/models"
)

func newRestoreFixture(t *testing.T, gw *fakeGateway, backend http.HandlerFunc) *RestoreOrchestrator {
	t.Helper()
	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	c, err := NewCoordinator(CoordinatorConfig{
		Gateway:  gw,
		Guard:    NewGuard(ExecutionStandalone),
		Platform: models.PlatformIOS,
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	v, err := NewReceiptValidator(ValidatorConfig{BaseURL: ts.URL, Gateway: gw})
	if err != nil {
		t.Fatalf("NewReceiptValidator: %v", err)
	}
	r, err := NewRestoreOrchestrator(c, v, nil)
	if err != nil {
		t.Fatalf("NewRestoreOrchestrator: %v", err)
	}
	return r
}

func TestRestoreWithNoPurchasesReturnsFalse(t *testing.T) {
	r := newRestoreFixture(t, &fakeGateway{}, func(w http.ResponseWriter, req *http.Request) {
		t.Error("backend must not be called when there is nothing to restore")
	})

	found, err := r.RestoreAndReconcile(context.Background(), "token")
	if err != nil {
		t.Fatalf("RestoreAndReconcile: %v", err)
	}
	if found {
		t.Fatal("zero purchases must report false, not an error")
	}
}

func TestRestoreValidatesOnlyConfiguredSKUs(t *testing.T) {
	gw := &fakeGateway{
		available: []models.PurchaseRecord{
			{Platform: models.PlatformIOS, ProductID: testMonthlySKU, TransactionID: "txn-a", TransactionReceipt: "r-a"},
			{Platform: models.PlatformIOS, ProductID: "com.other.app.coins", TransactionID: "txn-b", TransactionReceipt: "r-b"},
		},
	}
	var mu sync.Mutex
	var validated []string
	r := newRestoreFixture(t, gw, func(w http.ResponseWriter, req *http.Request) {
		var body validateReceiptRequest
		_ = jsonDecode(req, &body)
		mu.Lock()
		validated = append(validated, body.ProductID)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	found, err := r.RestoreAndReconcile(context.Background(), "token")
	if err != nil {
		t.Fatalf("RestoreAndReconcile: %v", err)
	}
	if !found {
		t.Fatal("expected true when purchases were found")
	}
	if len(validated) != 1 || validated[0] != testMonthlySKU {
		t.Fatalf("only the configured SKU may be validated, got %v", validated)
	}
	if len(gw.finishCalls) != 1 || gw.finishCalls[0].TransactionID != "txn-a" {
		t.Fatalf("expected exactly the matching purchase finished, got %+v", gw.finishCalls)
	}
}

func TestRestoreAbortsOnFirstValidationFailure(t *testing.T) {
	gw := &fakeGateway{
		available: []models.PurchaseRecord{
			{Platform: models.PlatformIOS, ProductID: testMonthlySKU, TransactionID: "txn-a", TransactionReceipt: "r-a"},
			{Platform: models.PlatformIOS, ProductID: "com.tarantuverse.premium.annual.v2", TransactionID: "txn-b", TransactionReceipt: "r-b"},
		},
	}
	calls := 0
	r := newRestoreFixture(t, gw, func(w http.ResponseWriter, req *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail":"store unreachable"}`))
	})

	_, err := r.RestoreAndReconcile(context.Background(), "token")
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("restore must abort after the first failure, backend calls: %d", calls)
	}
	if len(gw.finishCalls) != 0 {
		t.Fatal("nothing may be finished when validation failed")
	}
}

func TestRestoreUnavailableEnvironment(t *testing.T) {
	gw := &fakeGateway{}
	c, err := NewCoordinator(CoordinatorConfig{
		Gateway:  gw,
		Guard:    NewGuard(ExecutionPreview),
		Platform: models.PlatformIOS,
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	v, err := NewReceiptValidator(ValidatorConfig{BaseURL: "http://127.0.0.1:0", Gateway: gw})
	if err != nil {
		t.Fatalf("NewReceiptValidator: %v", err)
	}
	r, err := NewRestoreOrchestrator(c, v, nil)
	if err != nil {
		t.Fatalf("NewRestoreOrchestrator: %v", err)
	}

	if _, err := r.RestoreAndReconcile(context.Background(), "token"); !errors.Is(err, ErrIAPUnavailable) {
		t.Fatalf("expected ErrIAPUnavailable, got %v", err)
	}
}

func jsonDecode(req *http.Request, v any) error {
	defer req.Body.Close()
	return json.NewDecoder(req.Body).Decode(v)
}
