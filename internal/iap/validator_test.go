package iap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tarantuverse/internal/models"
)

func TestValidateSuccessFinishesTransaction(t *testing.T) {
	var gotBody validateReceiptRequest
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/api/v1/subscriptions/validate-receipt" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"status":"ok","entitlement":"premium"}`))
	}))
	defer ts.Close()

	gw := &fakeGateway{}
	v, err := NewReceiptValidator(ValidatorConfig{BaseURL: ts.URL, Gateway: gw})
	if err != nil {
		t.Fatalf("NewReceiptValidator: %v", err)
	}

	record := models.PurchaseRecord{
		Platform:           models.PlatformIOS,
		ProductID:          testMonthlySKU,
		TransactionID:      "txn-9",
		TransactionReceipt: "receipt-9",
	}
	outcome, err := v.Validate(context.Background(), record, "token-abc")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !outcome.Success {
		t.Fatal("expected success outcome")
	}
	if len(outcome.Response) == 0 {
		t.Fatal("expected raw backend payload in outcome")
	}
	if gotAuth != "Bearer token-abc" {
		t.Fatalf("bearer auth missing: %q", gotAuth)
	}
	if gotBody.Platform != models.PlatformIOS || gotBody.Receipt != "receipt-9" ||
		gotBody.ProductID != testMonthlySKU || gotBody.TransactionID != "txn-9" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if len(gw.finishCalls) != 1 || gw.finishCalls[0].TransactionID != "txn-9" {
		t.Fatalf("expected one finish call for txn-9, got %+v", gw.finishCalls)
	}
}

func TestValidateRejectionLeavesTransactionUnfinished(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"detail":"expired card"}`))
	}))
	defer ts.Close()

	gw := &fakeGateway{}
	v, err := NewReceiptValidator(ValidatorConfig{BaseURL: ts.URL, Gateway: gw})
	if err != nil {
		t.Fatalf("NewReceiptValidator: %v", err)
	}

	record := models.PurchaseRecord{
		Platform:           models.PlatformIOS,
		ProductID:          testMonthlySKU,
		TransactionID:      "txn-10",
		TransactionReceipt: "receipt-10",
	}
	_, err = v.Validate(context.Background(), record, "token-abc")

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if valErr.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("unexpected status code %d", valErr.StatusCode)
	}
	if valErr.Detail != "expired card" || valErr.Error() != "expired card" {
		t.Fatalf("backend detail lost: %+v", valErr)
	}
	// The transaction must stay unfinished so restore can retry it.
	if len(gw.finishCalls) != 0 {
		t.Fatalf("finish must never be called on rejection, got %d calls", len(gw.finishCalls))
	}
}

func TestValidateMissingReceiptSentAsEmptyString(t *testing.T) {
	var gotBody validateReceiptRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	v, err := NewReceiptValidator(ValidatorConfig{BaseURL: ts.URL, Gateway: &fakeGateway{}})
	if err != nil {
		t.Fatalf("NewReceiptValidator: %v", err)
	}

	// An iOS record missing its receipt: the backend decides validity.
	record := models.PurchaseRecord{Platform: models.PlatformIOS, ProductID: testMonthlySKU, TransactionID: "txn-11"}
	if _, err := v.Validate(context.Background(), record, "token"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if gotBody.Receipt != "" {
		t.Fatalf("expected empty receipt passthrough, got %q", gotBody.Receipt)
	}
}

func TestValidateUsesPurchaseTokenOnAndroid(t *testing.T) {
	var gotBody validateReceiptRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	v, err := NewReceiptValidator(ValidatorConfig{BaseURL: ts.URL, Gateway: &fakeGateway{}})
	if err != nil {
		t.Fatalf("NewReceiptValidator: %v", err)
	}

	record := models.PurchaseRecord{
		Platform:      models.PlatformAndroid,
		ProductID:     "tarantuverse.premium.monthly.v2",
		TransactionID: "gpa.2",
		PurchaseToken: "play-token",
	}
	if _, err := v.Validate(context.Background(), record, "token"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if gotBody.Receipt != "play-token" {
		t.Fatalf("expected android purchase token, got %q", gotBody.Receipt)
	}
}
