package models

// Per-platform SKU sets are compiled-in constants. Membership is used both
// to filter restore results and to validate purchasable product ids.
var (
	subscriptionSKUs = map[string][]string{
		PlatformIOS: {
			"com.tarantuverse.premium.monthly.v2",
			"com.tarantuverse.premium.annual.v2",
		},
		PlatformAndroid: {
			"tarantuverse.premium.monthly.v2",
			"tarantuverse.premium.annual.v2",
		},
	}

	lifetimeSKUs = map[string][]string{
		PlatformIOS:     {"com.tarantuverse.premium.lifetime"},
		PlatformAndroid: {"tarantuverse.premium.lifetime"},
	}
)

// SubscriptionSKUs returns the subscription product ids for a platform.
func SubscriptionSKUs(platform string) []string {
	return append([]string(nil), subscriptionSKUs[platform]...)
}

// LifetimeSKUs returns the one-time premium product ids for a platform.
func LifetimeSKUs(platform string) []string {
	return append([]string(nil), lifetimeSKUs[platform]...)
}

// IsSubscriptionSKU reports whether productID is a configured subscription
// product for the platform.
func IsSubscriptionSKU(platform, productID string) bool {
	return contains(subscriptionSKUs[platform], productID)
}

// IsPremiumSKU reports whether productID grants premium at all, either as
// a subscription or as the lifetime unlock.
func IsPremiumSKU(platform, productID string) bool {
	return contains(subscriptionSKUs[platform], productID) || contains(lifetimeSKUs[platform], productID)
}

func contains(skus []string, id string) bool {
	for _, sku := range skus {
		if sku == id {
			return true
		}
	}
	return false
}
