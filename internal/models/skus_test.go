package models

import "testing"

func TestSubscriptionSKUMembership(t *testing.T) {
	if !IsSubscriptionSKU(PlatformIOS, "com.tarantuverse.premium.monthly.v2") {
		t.Fatal("monthly v2 must be a subscription SKU on iOS")
	}
	if IsSubscriptionSKU(PlatformIOS, "com.tarantuverse.premium.lifetime") {
		t.Fatal("lifetime unlock is not a subscription")
	}
	if IsSubscriptionSKU(PlatformAndroid, "com.tarantuverse.premium.monthly.v2") {
		t.Fatal("iOS SKU must not match the android set")
	}
	if !IsPremiumSKU(PlatformAndroid, "tarantuverse.premium.lifetime") {
		t.Fatal("lifetime unlock grants premium")
	}
	if IsPremiumSKU(PlatformIOS, "com.other.app.coins") {
		t.Fatal("foreign SKU must not grant premium")
	}
}

func TestSKUListsAreCopies(t *testing.T) {
	skus := SubscriptionSKUs(PlatformIOS)
	if len(skus) == 0 {
		t.Fatal("expected configured SKUs")
	}
	skus[0] = "mutated"
	if !IsSubscriptionSKU(PlatformIOS, "com.tarantuverse.premium.monthly.v2") {
		t.Fatal("mutating the returned slice must not touch the catalog")
	}
}

func TestReceiptTokenExtraction(t *testing.T) {
	ios := PurchaseRecord{Platform: PlatformIOS, TransactionReceipt: "r", PurchaseToken: "t"}
	if ios.ReceiptToken() != "r" {
		t.Fatalf("iOS must use the transaction receipt, got %q", ios.ReceiptToken())
	}
	android := PurchaseRecord{Platform: PlatformAndroid, TransactionReceipt: "r", PurchaseToken: "t"}
	if android.ReceiptToken() != "t" {
		t.Fatalf("android must use the purchase token, got %q", android.ReceiptToken())
	}
	missing := PurchaseRecord{Platform: PlatformIOS}
	if missing.ReceiptToken() != "" {
		t.Fatal("missing receipt must come back as empty string")
	}
	unknown := PurchaseRecord{Platform: "web"}
	if unknown.ReceiptToken() != "" {
		t.Fatal("unknown platform must yield empty receipt")
	}
}
