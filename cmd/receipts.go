package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tarantuverse/internal/models"
)

// Sandbox stand-in for the production validate-receipt endpoint. It only
// checks shape: real store-side verification belongs to the backend
// service, which is out of reach from a sandbox run.
func (app *application) validateReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Platform      string `json:"platform"`
		Receipt       string `json:"receipt"`
		ProductID     string `json:"product_id"`
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.clientError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	if req.Platform != models.PlatformIOS && req.Platform != models.PlatformAndroid {
		app.clientError(w, http.StatusBadRequest, "unknown platform: "+req.Platform)
		return
	}
	if !models.IsPremiumSKU(req.Platform, req.ProductID) {
		app.clientError(w, http.StatusBadRequest, "unknown product id: "+req.ProductID)
		return
	}
	if strings.TrimSpace(req.Receipt) == "" {
		app.clientError(w, http.StatusPaymentRequired, "empty receipt")
		return
	}
	// Receipts marked rejected simulate a store-side decline, e.g. an
	// expired card on a renewal.
	if strings.Contains(req.Receipt, "rejected") {
		app.clientError(w, http.StatusPaymentRequired, "expired card")
		return
	}

	keeperID, _ := r.Context().Value("keeper_id").(string)
	resp := map[string]any{
		"status":         "ok",
		"keeper_id":      keeperID,
		"product_id":     req.ProductID,
		"transaction_id": req.TransactionID,
		"entitlement":    "premium",
		"validated_at":   time.Now().UTC().Format(time.RFC3339),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (app *application) health(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (app *application) clientError(w http.ResponseWriter, status int, detail string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
