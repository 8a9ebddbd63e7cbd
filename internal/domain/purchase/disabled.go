package purchase

import (
	"context"

	"shellbridge/internal/platform/logging"
)

// disabledEngine satisfies the full contract with well-formed failure
// results. No platform API is ever touched.
type disabledEngine struct {
	logger *logging.Logger
}

func newDisabled(logger *logging.Logger) Engine {
	return &disabledEngine{logger: logger}
}

func (e *disabledEngine) Initialize(context.Context, string) InitResult {
	e.logger.DebugTag(logTag, "initialize skipped, purchases disabled")
	return InitResult{Success: false, Error: ErrCodeDisabled}
}

func (e *disabledEngine) AvailableProducts(context.Context) ProductsResult {
	return ProductsResult{Success: false, Products: []Product{}, Error: ErrCodeDisabled}
}

func (e *disabledEngine) PurchaseProduct(context.Context, string) PurchaseResult {
	return PurchaseResult{Success: false, Error: ErrCodeDisabled}
}

func (e *disabledEngine) RestorePurchases(context.Context) RestoreResult {
	return RestoreResult{Success: false, Error: ErrCodeDisabled}
}

func (e *disabledEngine) Status(context.Context) SubscriptionStatus {
	return SubscriptionStatus{Entitlements: map[string]Entitlement{}}
}

func (e *disabledEngine) CachedStatus(context.Context) SubscriptionStatus {
	return SubscriptionStatus{Entitlements: map[string]Entitlement{}}
}

func (e *disabledEngine) HasEntitlement(context.Context, string) bool {
	return false
}

func (e *disabledEngine) SyncWithBackend(context.Context, *CustomerInfo) SyncResult {
	return SyncResult{Success: false, Error: ErrCodeDisabled}
}

func (e *disabledEngine) Close() {}
