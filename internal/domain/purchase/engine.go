package purchase

import (
	"context"

	"shellbridge/internal/domain/eventbus"
	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
	"shellbridge/internal/platform/securestore"
)

const logTag = "IAP"

// Engine is the purchase capability. Both operating modes implement the
// same contract so call sites never branch on whether purchases are
// enabled; disabled-mode operations return structurally valid failure
// results without touching any collaborator.
type Engine interface {
	Initialize(ctx context.Context, userID string) InitResult
	AvailableProducts(ctx context.Context) ProductsResult
	PurchaseProduct(ctx context.Context, productID string) PurchaseResult
	RestorePurchases(ctx context.Context) RestoreResult
	Status(ctx context.Context) SubscriptionStatus
	CachedStatus(ctx context.Context) SubscriptionStatus
	HasEntitlement(ctx context.Context, entitlementID string) bool
	SyncWithBackend(ctx context.Context, info *CustomerInfo) SyncResult
	Close()
}

// SessionReader exposes the credentials backend sync needs without
// pulling in the full session manager.
type SessionReader interface {
	Credentials(ctx context.Context) (userID, userToken string, ok bool)
}

// Dependencies carries the collaborators an enabled engine wires up.
type Dependencies struct {
	SDK     SDK
	Store   securestore.Store
	Session SessionReader
	Bus     *eventbus.Bus
	Logger  *logging.Logger
}

// New selects the operating mode once at startup. When the feature flag
// is off the returned engine never touches the SDK, storage, or network.
func New(cfg *config.Config, deps Dependencies) Engine {
	if !cfg.Features.InAppPurchases {
		return newDisabled(deps.Logger)
	}
	return newEnabled(cfg, deps)
}
