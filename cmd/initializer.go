package main

import (
	"context"
	"log"
	"time"

	"tarantuverse/internal/config"
	"tarantuverse/internal/iap"
	"tarantuverse/internal/models"
	"tarantuverse/internal/storekit"
	"tarantuverse/utils"
)

type application struct {
	cfg      config.Config
	errorLog *log.Logger
	infoLog  *log.Logger

	tokens     *utils.Manager
	store      *storekit.Simulator
	iapService *iap.Service
}

func initializeApp(cfg config.Config, errorLog, infoLog *log.Logger) *application {
	tokens, err := utils.NewManager(cfg.Auth.SigningKey)
	if err != nil {
		errorLog.Fatal(err)
	}

	platform := cfg.IAP.Platform
	if platform == "" {
		platform = models.PlatformIOS
	}

	store := storekit.New(storekit.Config{
		Platform: platform,
		Mode:     cfg.IAP.SimulatorMode,
		Latency:  time.Duration(cfg.IAP.SimulatorLatencyMS) * time.Millisecond,
		Catalog:  sandboxCatalog(platform),
	})

	iapService, err := iap.NewService(iap.ServiceConfig{
		Gateway:        store,
		Platform:       platform,
		ExecutionEnv:   cfg.IAP.ExecutionEnvironment,
		BackendBaseURL: cfg.Backend.BaseURL,
	})
	if err != nil {
		errorLog.Fatal(err)
	}

	return &application{
		cfg:        cfg,
		errorLog:   errorLog,
		infoLog:    infoLog,
		tokens:     tokens,
		store:      store,
		iapService: iapService,
	}
}

func sandboxCatalog(platform string) []models.ProductCatalogEntry {
	subs := models.SubscriptionSKUs(platform)
	lifetime := models.LifetimeSKUs(platform)

	catalog := make([]models.ProductCatalogEntry, 0, len(subs)+len(lifetime))
	prices := []string{"$2.99", "$19.99"}
	for i, sku := range subs {
		price := "$2.99"
		if i < len(prices) {
			price = prices[i]
		}
		catalog = append(catalog, models.ProductCatalogEntry{
			ProductID:      sku,
			Title:          "Tarantuverse Premium",
			LocalizedPrice: price,
			Currency:       "USD",
		})
	}
	for _, sku := range lifetime {
		catalog = append(catalog, models.ProductCatalogEntry{
			ProductID:      sku,
			Title:          "Tarantuverse Premium (Lifetime)",
			LocalizedPrice: "$49.99",
			Currency:       "USD",
		})
	}
	return catalog
}

// runSandboxFlow drives the coordinator end to end against the simulated
// store and the local stub backend: init, catalog, purchase, receipt
// validation, status check, restore, teardown.
func (app *application) runSandboxFlow(ctx context.Context) error {
	svc := app.iapService

	app.infoLog.Printf("iap available: %v", svc.Available())
	if err := svc.Initialize(ctx); err != nil {
		return err
	}
	defer svc.End(ctx)

	token, err := app.tokens.NewJWT("keeper-1", time.Hour)
	if err != nil {
		return err
	}

	products, err := svc.SubscriptionProducts(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		app.infoLog.Printf("product %s %s", p.ProductID, p.LocalizedPrice)
	}
	if len(products) == 0 {
		app.infoLog.Printf("no products; nothing to purchase")
		return nil
	}

	record, err := svc.PurchaseSubscription(ctx, products[0].ProductID)
	if err != nil {
		return err
	}
	if record == nil {
		app.infoLog.Printf("purchase cancelled by user")
		return nil
	}
	app.infoLog.Printf("purchased %s txn=%s", record.ProductID, record.TransactionID)

	outcome, err := svc.ValidateReceipt(ctx, *record, token)
	if err != nil {
		return err
	}
	app.infoLog.Printf("receipt validated: success=%v", outcome.Success)

	active, err := svc.SubscriptionStatus(ctx)
	if err != nil {
		return err
	}
	app.infoLog.Printf("subscription active: %v", active)

	// Leave an unacknowledged purchase behind and reconcile it the way a
	// fresh install would.
	seeded := app.store.SeedPurchase(products[0].ProductID)
	app.infoLog.Printf("seeded unfinished purchase txn=%s", seeded.TransactionID)

	restored, err := svc.Restore(ctx, token)
	if err != nil {
		return err
	}
	app.infoLog.Printf("restore processed purchases: %v", restored)
	return nil
}
