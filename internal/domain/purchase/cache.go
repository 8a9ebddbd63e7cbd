package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"

	apperrors "shellbridge/internal/platform/errors"
	"shellbridge/internal/platform/securestore"
)

// Secure storage keys owned by the purchase cache.
const (
	keySubscriptionStatus = "iap_subscription_status"
	keyCustomerInfo       = "iap_customer_info"
	keyActiveEntitlements = "iap_active_entitlements"
	keyLastSync           = "iap_last_sync"
)

// Cache persists the last-known entitlement state so a status query can
// be answered offline, independent of the live SDK.
type Cache struct {
	store securestore.Store
}

// NewCache creates a purchase cache over the given secure storage.
func NewCache(store securestore.Store) *Cache {
	return &Cache{store: store}
}

// SaveSnapshot persists a customer-info snapshot: the full info, the
// active entitlement id list, the subscribed flag, and a sync stamp.
func (c *Cache) SaveSnapshot(ctx context.Context, info CustomerInfo) error {
	entries := map[string]interface{}{
		keyCustomerInfo:       info,
		keyActiveEntitlements: info.EntitlementIDs(),
		keySubscriptionStatus: len(info.ActiveEntitlements) > 0,
		keyLastSync:           time.Now().UTC().Format(time.RFC3339),
	}
	for key, value := range entries {
		raw, err := sonic.Marshal(value)
		if err != nil {
			return apperrors.Wrap(apperrors.KindStorage, "purchase.SaveSnapshot", "encode "+key, err)
		}
		if err := c.store.Set(ctx, key, raw); err != nil {
			return apperrors.Wrap(apperrors.KindStorage, "purchase.SaveSnapshot", "write "+key, err)
		}
	}
	return nil
}

// CachedStatus derives a subscription status from the persisted
// entitlement id list without touching the SDK. A cold cache yields an
// empty, unsubscribed status.
func (c *Cache) CachedStatus(ctx context.Context) (SubscriptionStatus, error) {
	raw, err := c.store.Get(ctx, keyActiveEntitlements)
	if errors.Is(err, securestore.ErrNotFound) {
		return SubscriptionStatus{Entitlements: map[string]Entitlement{}}, nil
	}
	if err != nil {
		return SubscriptionStatus{}, apperrors.Wrap(apperrors.KindStorage, "purchase.CachedStatus", "read entitlements", err)
	}

	var ids []string
	if err := sonic.Unmarshal(raw, &ids); err != nil {
		return SubscriptionStatus{}, apperrors.Wrap(apperrors.KindStorage, "purchase.CachedStatus", "decode entitlements", err)
	}

	entitlements := make(map[string]Entitlement, len(ids))
	for _, id := range ids {
		entitlements[id] = Entitlement{Identifier: id}
	}
	return SubscriptionStatus{
		IsSubscribed: len(entitlements) > 0,
		Entitlements: entitlements,
	}, nil
}

// CachedCustomerInfo returns the persisted snapshot, or found=false on
// a cold cache.
func (c *Cache) CachedCustomerInfo(ctx context.Context) (CustomerInfo, bool, error) {
	raw, err := c.store.Get(ctx, keyCustomerInfo)
	if errors.Is(err, securestore.ErrNotFound) {
		return CustomerInfo{}, false, nil
	}
	if err != nil {
		return CustomerInfo{}, false, apperrors.Wrap(apperrors.KindStorage, "purchase.CachedCustomerInfo", "read customer info", err)
	}
	var info CustomerInfo
	if err := sonic.Unmarshal(raw, &info); err != nil {
		return CustomerInfo{}, false, apperrors.Wrap(apperrors.KindStorage, "purchase.CachedCustomerInfo", "decode customer info", err)
	}
	return info, true, nil
}

// LastSync returns the stamp of the most recent snapshot write.
func (c *Cache) LastSync(ctx context.Context) (time.Time, bool) {
	raw, err := c.store.Get(ctx, keyLastSync)
	if err != nil {
		return time.Time{}, false
	}
	var stamp string
	if err := sonic.Unmarshal(raw, &stamp); err != nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Clear removes every cached purchase key.
func (c *Cache) Clear(ctx context.Context) error {
	for _, key := range []string{keySubscriptionStatus, keyCustomerInfo, keyActiveEntitlements, keyLastSync} {
		if err := c.store.Delete(ctx, key); err != nil {
			return apperrors.Wrap(apperrors.KindStorage, "purchase.Clear", "delete "+key, err)
		}
	}
	return nil
}
