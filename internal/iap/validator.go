package iap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"tarantuverse/internal/models"
)

const validateReceiptPath = "/api/v1/subscriptions/validate-receipt"

type ValidatorConfig struct {
	// BaseURL of the backend, e.g. https://api.tarantuverse.com
	BaseURL string

	Gateway StoreGateway
	Client  *http.Client
	Logger  *slog.Logger
}

// ReceiptValidator sends a completed purchase to the backend and, only
// after the backend confirms it, acknowledges the transaction to the
// store. A transaction must never be finished before the backend has
// durably recorded it: the store will not re-deliver a finished
// transaction, so finishing early could lose the entitlement for good.
type ReceiptValidator struct {
	baseURL    *url.URL
	gateway    StoreGateway
	httpClient *http.Client
	logger     *slog.Logger
}

func NewReceiptValidator(cfg ValidatorConfig) (*ReceiptValidator, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("iap: backend base url is required")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("iap: gateway is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptValidator{
		baseURL:    u,
		gateway:    cfg.Gateway,
		httpClient: client,
		logger:     logger,
	}, nil
}

type validateReceiptRequest struct {
	Platform      string `json:"platform"`
	Receipt       string `json:"receipt"`
	ProductID     string `json:"product_id"`
	TransactionID string `json:"transaction_id"`
}

// Validate posts the purchase's receipt to the backend. On a 2xx answer
// it finishes the transaction (non-consumable) and returns the backend
// payload. On any other answer it returns *ValidationError and leaves the
// transaction unfinished, so the store re-delivers it and a later restore
// can retry — that is the sole recovery path for rejected receipts.
func (v *ReceiptValidator) Validate(ctx context.Context, record models.PurchaseRecord, authToken string) (models.ValidationOutcome, error) {
	endpoint := *v.baseURL
	endpoint.Path = path.Join(endpoint.Path, validateReceiptPath)

	body, err := json.Marshal(validateReceiptRequest{
		Platform:      record.Platform,
		Receipt:       record.ReceiptToken(),
		ProductID:     record.ProductID,
		TransactionID: record.TransactionID,
	})
	if err != nil {
		return models.ValidationOutcome{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return models.ValidationOutcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return models.ValidationOutcome{}, fmt.Errorf("validate receipt: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(payload, &errBody)
		v.logger.Warn("iap: backend rejected receipt",
			"status", resp.Status,
			"product_id", record.ProductID,
			"transaction_id", record.TransactionID,
		)
		return models.ValidationOutcome{}, &ValidationError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Detail:     errBody.Detail,
			Body:       strings.TrimSpace(string(payload)),
		}
	}

	// Finishing is only attempted after backend confirmation.
	if err := v.gateway.FinishTransaction(ctx, record, false); err != nil {
		return models.ValidationOutcome{}, fmt.Errorf("finish transaction: %w", err)
	}

	v.logger.Info("iap: receipt validated",
		"product_id", record.ProductID,
		"transaction_id", record.TransactionID,
	)
	return models.ValidationOutcome{Success: true, Response: payload}, nil
}
