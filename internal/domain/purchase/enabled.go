package purchase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"shellbridge/internal/domain/eventbus"
	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
)

type enabledEngine struct {
	cfg     *config.Config
	sdk     SDK
	cache   *Cache
	session SessionReader
	bus     *eventbus.Bus
	logger  *logging.Logger
	client  *http.Client

	mu          sync.Mutex
	initialized bool
	listener    ListenerHandle
}

func newEnabled(cfg *config.Config, deps Dependencies) Engine {
	return &enabledEngine{
		cfg:     cfg,
		sdk:     deps.SDK,
		cache:   NewCache(deps.Store),
		session: deps.Session,
		bus:     deps.Bus,
		logger:  deps.Logger,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Initialize configures the SDK with the platform API key, optionally
// binds a stable external user id, and hooks the customer-info listener
// so every update lands in the cache and on the event bus.
func (e *enabledEngine) Initialize(ctx context.Context, userID string) InitResult {
	key := e.apiKey()
	if key == "" {
		e.logger.ErrorTag(logTag, "no purchase SDK API key configured")
		return InitResult{Success: false, Error: "missing API key"}
	}

	boundID := ""
	if e.cfg.IAP.UserIDMode != "anonymous" {
		boundID = userID
	}
	if err := e.sdk.Configure(ctx, key, boundID); err != nil {
		e.logger.ErrorTag(logTag, "SDK configure failed: %v", err)
		return InitResult{Success: false, Error: err.Error()}
	}

	e.mu.Lock()
	if e.listener == nil {
		e.listener = e.sdk.AddCustomerInfoListener(e.onCustomerInfo)
	}
	e.initialized = true
	e.mu.Unlock()

	e.logger.InfoTag(logTag, "purchase SDK initialized for user %q", userID)
	return InitResult{Success: true}
}

func (e *enabledEngine) AvailableProducts(ctx context.Context) ProductsResult {
	if !e.ready() {
		return ProductsResult{Success: false, Products: []Product{}, Error: ErrCodeNotReady}
	}

	offerings, err := e.sdk.Offerings(ctx)
	if err != nil {
		e.logger.WarnTag(logTag, "fetch offerings: %v", err)
		return ProductsResult{Success: false, Products: []Product{}, Error: err.Error()}
	}

	offering, ok := e.currentOffering(offerings)
	if !ok {
		return ProductsResult{Success: true, Products: []Product{}}
	}
	return ProductsResult{Success: true, Products: offering.Packages}
}

// PurchaseProduct locates the package by product id, runs the native
// purchase flow, and on success caches the snapshot and pushes the new
// entitlement set to the backend when auto-sync is on. A user-initiated
// cancellation maps to the distinguished "cancelled" code.
func (e *enabledEngine) PurchaseProduct(ctx context.Context, productID string) PurchaseResult {
	if !e.ready() {
		return PurchaseResult{Success: false, Error: ErrCodeNotReady}
	}

	if !e.productExists(ctx, productID) {
		e.logger.WarnTag(logTag, "purchase requested for unknown product %q", productID)
		return PurchaseResult{Success: false, Error: ErrCodeNotFound}
	}

	info, err := e.sdk.Purchase(ctx, productID)
	if errors.Is(err, ErrCancelled) {
		return PurchaseResult{
			Success: false,
			Error:   ErrCodeCancelled,
			Message: e.cfg.IAP.Messages.PurchaseCancelled,
		}
	}
	if err != nil {
		e.logger.WarnTag(logTag, "purchase %q failed: %v", productID, err)
		return PurchaseResult{
			Success: false,
			Error:   err.Error(),
			Message: e.cfg.IAP.Messages.PurchaseFailed,
		}
	}

	if cerr := e.cache.SaveSnapshot(ctx, info); cerr != nil {
		e.logger.WarnTag(logTag, "cache snapshot after purchase: %v", cerr)
	}
	if e.cfg.IAP.AutoSyncBackend {
		if res := e.SyncWithBackend(ctx, &info); !res.Success {
			e.logger.WarnTag(logTag, "backend sync after purchase: %s", res.Error)
		}
	}

	return PurchaseResult{
		Success:           true,
		CustomerInfo:      &info,
		ProductIdentifier: productID,
	}
}

func (e *enabledEngine) RestorePurchases(ctx context.Context) RestoreResult {
	if !e.ready() {
		return RestoreResult{Success: false, Error: ErrCodeNotReady}
	}

	info, err := e.sdk.Restore(ctx)
	if err != nil {
		e.logger.WarnTag(logTag, "restore failed: %v", err)
		return RestoreResult{Success: false, Error: err.Error()}
	}

	if cerr := e.cache.SaveSnapshot(ctx, info); cerr != nil {
		e.logger.WarnTag(logTag, "cache snapshot after restore: %v", cerr)
	}
	if e.cfg.IAP.AutoSyncBackend {
		if res := e.SyncWithBackend(ctx, &info); !res.Success {
			e.logger.WarnTag(logTag, "backend sync after restore: %s", res.Error)
		}
	}

	return RestoreResult{Success: true, CustomerInfo: &info}
}

// Status queries the live snapshot and recomputes the derived status.
// The expiration date comes from the configured premium entitlement
// specifically, not an arbitrary one.
func (e *enabledEngine) Status(ctx context.Context) SubscriptionStatus {
	if !e.ready() {
		return SubscriptionStatus{Entitlements: map[string]Entitlement{}}
	}

	info, err := e.sdk.CustomerInfo(ctx)
	if err != nil {
		e.logger.WarnTag(logTag, "fetch customer info: %v", err)
		return SubscriptionStatus{Entitlements: map[string]Entitlement{}}
	}
	return e.statusFrom(info)
}

func (e *enabledEngine) CachedStatus(ctx context.Context) SubscriptionStatus {
	status, err := e.cache.CachedStatus(ctx)
	if err != nil {
		e.logger.WarnTag(logTag, "read cached status: %v", err)
		return SubscriptionStatus{Entitlements: map[string]Entitlement{}}
	}
	return status
}

func (e *enabledEngine) HasEntitlement(ctx context.Context, entitlementID string) bool {
	if entitlementID == "" {
		entitlementID = e.cfg.IAP.Entitlements.Premium
	}
	status := e.Status(ctx)
	_, ok := status.Entitlements[entitlementID]
	return ok
}

// SyncWithBackend POSTs the entitlement set to the per-user endpoint,
// bearer-authenticated with the session token. Missing backend URL or
// unauthenticated session reports failure without attempting the call.
func (e *enabledEngine) SyncWithBackend(ctx context.Context, info *CustomerInfo) SyncResult {
	baseURL := e.cfg.IAP.Backend.BaseURL
	if baseURL == "" {
		return SyncResult{Success: false, Error: ErrCodeSyncSkipped}
	}
	userID, userToken, ok := e.session.Credentials(ctx)
	if !ok {
		return SyncResult{Success: false, Error: ErrCodeSyncSkipped}
	}

	if info == nil {
		live, err := e.sdk.CustomerInfo(ctx)
		if err != nil {
			return SyncResult{Success: false, Error: err.Error()}
		}
		info = &live
	}

	payload := struct {
		CustomerID         string   `json:"customerId"`
		ActiveEntitlements []string `json:"activeEntitlements"`
		Subscriptions      []string `json:"subscriptions"`
	}{
		CustomerID:         info.OriginalAppUserID,
		ActiveEntitlements: info.EntitlementIDs(),
		Subscriptions:      info.ActiveSubscriptions,
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return SyncResult{Success: false, Error: err.Error()}
	}

	endpoint := strings.Replace(e.cfg.IAP.Backend.SyncEndpoint, ":userId", userID, 1)
	url := strings.TrimRight(baseURL, "/") + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SyncResult{Success: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+userToken)

	resp, err := e.client.Do(req)
	if err != nil {
		return SyncResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SyncResult{Success: false, Error: fmt.Sprintf("backend returned %d", resp.StatusCode)}
	}
	return SyncResult{Success: true}
}

func (e *enabledEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener != nil {
		e.listener.Remove()
		e.listener = nil
	}
	e.initialized = false
}

// onCustomerInfo caches every listener-driven snapshot and republishes
// it on the event bus so the dispatcher can push unsolicited updates.
func (e *enabledEngine) onCustomerInfo(info CustomerInfo) {
	ctx := context.Background()
	if err := e.cache.SaveSnapshot(ctx, info); err != nil {
		e.logger.WarnTag(logTag, "cache listener snapshot: %v", err)
	}
	e.bus.Publish(eventbus.EventCustomerInfoUpdated, eventbus.CustomerInfoEventData{
		UserID:       info.OriginalAppUserID,
		IsSubscribed: len(info.ActiveEntitlements) > 0,
		Entitlements: info.EntitlementIDs(),
	})
}

func (e *enabledEngine) ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

func (e *enabledEngine) apiKey() string {
	if e.cfg.IAP.APIKeyIOS != "" {
		return e.cfg.IAP.APIKeyIOS
	}
	return e.cfg.IAP.APIKeyAndroid
}

func (e *enabledEngine) currentOffering(offerings Offerings) (Offering, bool) {
	name := e.cfg.IAP.DefaultOffering
	if name == "" {
		name = offerings.Current
	}
	offering, ok := offerings.All[name]
	if !ok && offerings.Current != "" {
		offering, ok = offerings.All[offerings.Current]
	}
	return offering, ok
}

func (e *enabledEngine) productExists(ctx context.Context, productID string) bool {
	offerings, err := e.sdk.Offerings(ctx)
	if err != nil {
		return false
	}
	offering, ok := e.currentOffering(offerings)
	if !ok {
		return false
	}
	for _, product := range offering.Packages {
		if product.Identifier == productID {
			return true
		}
	}
	return false
}

func (e *enabledEngine) statusFrom(info CustomerInfo) SubscriptionStatus {
	entitlements := info.ActiveEntitlements
	if entitlements == nil {
		entitlements = map[string]Entitlement{}
	}

	var expiration *time.Time
	if premium, ok := entitlements[e.cfg.IAP.Entitlements.Premium]; ok {
		expiration = premium.ExpirationDate
	}

	return SubscriptionStatus{
		IsSubscribed:   len(entitlements) > 0,
		Entitlements:   entitlements,
		ExpirationDate: expiration,
		CustomerInfo:   &info,
	}
}
