package subscription

import (
	"context"
	"sync"

	"shellbridge/internal/domain/purchase"
	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
)

const logTag = "SUBS"

// State is the shared cache of the purchase engine's last-known
// entitlement state. Its lifecycle is bound to the authenticated
// session: Initialize runs whenever the active user id changes.
// Reads never trigger network calls; mutating wrappers refresh the
// cached status after success.
type State struct {
	engine purchase.Engine
	cfg    *config.Config
	logger *logging.Logger

	mu       sync.RWMutex
	loading  bool
	userID   string
	status   purchase.SubscriptionStatus
	products []purchase.Product
}

// NewState creates an empty, not-yet-initialized cache.
func NewState(cfg *config.Config, engine purchase.Engine, logger *logging.Logger) *State {
	return &State{
		engine: engine,
		cfg:    cfg,
		logger: logger,
		status: purchase.SubscriptionStatus{Entitlements: map[string]purchase.Entitlement{}},
	}
}

// Initialize binds the cache to a user and runs the startup sequence:
// engine init, status refresh, product load. Loading stays true until
// the sequence completes or fails.
func (s *State) Initialize(ctx context.Context, userID string) {
	s.mu.Lock()
	s.loading = true
	s.userID = userID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if init := s.engine.Initialize(ctx, userID); !init.Success {
		s.logger.WarnTag(logTag, "engine initialization failed: %s", init.Error)
		return
	}

	s.refreshStatus(ctx)
	s.loadProducts(ctx)
}

// Loading reports whether the startup sequence is still running.
func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Status returns the last-refreshed subscription status.
func (s *State) Status() purchase.SubscriptionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Products returns the last-loaded product list.
func (s *State) Products() []purchase.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products
}

// HasEntitlement reads the cached status; it never calls the network.
// An empty id checks the configured premium entitlement.
func (s *State) HasEntitlement(entitlementID string) bool {
	if entitlementID == "" {
		entitlementID = s.cfg.IAP.Entitlements.Premium
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.status.Entitlements[entitlementID]
	return ok
}

// PurchaseProduct runs a purchase and refreshes the shared status when
// it succeeds.
func (s *State) PurchaseProduct(ctx context.Context, productID string) purchase.PurchaseResult {
	result := s.engine.PurchaseProduct(ctx, productID)
	if result.Success {
		s.refreshStatus(ctx)
	}
	return result
}

// RestorePurchases runs a restore and refreshes the shared status when
// it succeeds.
func (s *State) RestorePurchases(ctx context.Context) purchase.RestoreResult {
	result := s.engine.RestorePurchases(ctx)
	if result.Success {
		s.refreshStatus(ctx)
	}
	return result
}

// Refresh re-reads the live status into the cache on demand.
func (s *State) Refresh(ctx context.Context) purchase.SubscriptionStatus {
	s.refreshStatus(ctx)
	return s.Status()
}

// RefreshProducts fetches the current offering live and, on success,
// replaces the cached product list wholesale.
func (s *State) RefreshProducts(ctx context.Context) purchase.ProductsResult {
	result := s.engine.AvailableProducts(ctx)
	if result.Success {
		s.mu.Lock()
		s.products = result.Products
		s.mu.Unlock()
	}
	return result
}

func (s *State) refreshStatus(ctx context.Context) {
	status := s.engine.Status(ctx)
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *State) loadProducts(ctx context.Context) {
	if result := s.RefreshProducts(ctx); !result.Success {
		s.logger.WarnTag(logTag, "load products failed: %s", result.Error)
	}
}
