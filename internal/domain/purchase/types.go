package purchase

import "time"

// Product is a read-only projection of a purchase-SDK package. Never
// mutated locally; refreshed wholesale on each fetch.
type Product struct {
	Identifier   string  `json:"identifier"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	PriceString  string  `json:"priceString"`
	CurrencyCode string  `json:"currencyCode"`
	PackageType  string  `json:"packageType"`
}

// Entitlement is one active access grant in a customer-info snapshot.
type Entitlement struct {
	Identifier        string     `json:"identifier"`
	ProductIdentifier string     `json:"productIdentifier"`
	ExpirationDate    *time.Time `json:"expirationDate,omitempty"`
	WillRenew         bool       `json:"willRenew"`
}

// CustomerInfo is the SDK's canonical snapshot of a user's entitlements
// and purchase history.
type CustomerInfo struct {
	OriginalAppUserID   string                 `json:"originalAppUserId"`
	ActiveEntitlements  map[string]Entitlement `json:"activeEntitlements"`
	ActiveSubscriptions []string               `json:"activeSubscriptions"`
}

// EntitlementIDs returns the sorted-by-insertion id list of active
// entitlements. Callers must not rely on ordering.
func (c CustomerInfo) EntitlementIDs() []string {
	ids := make([]string, 0, len(c.ActiveEntitlements))
	for id := range c.ActiveEntitlements {
		ids = append(ids, id)
	}
	return ids
}

// SubscriptionStatus is recomputed from a customer-info snapshot, never
// incrementally patched. IsSubscribed is true iff Entitlements is
// non-empty.
type SubscriptionStatus struct {
	IsSubscribed   bool                   `json:"isSubscribed"`
	Entitlements   map[string]Entitlement `json:"entitlements"`
	ExpirationDate *time.Time             `json:"expirationDate,omitempty"`
	CustomerInfo   *CustomerInfo          `json:"customerInfo,omitempty"`
}

// EntitlementIDs lists the active entitlement ids for the outbound
// message shape, which reduces the mapping to its keys.
func (s SubscriptionStatus) EntitlementIDs() []string {
	ids := make([]string, 0, len(s.Entitlements))
	for id := range s.Entitlements {
		ids = append(ids, id)
	}
	return ids
}

// InitResult reports purchase-SDK initialization.
type InitResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ProductsResult carries the current default offering's packages.
type ProductsResult struct {
	Success  bool      `json:"success"`
	Products []Product `json:"products"`
	Error    string    `json:"error,omitempty"`
}

// PurchaseResult reports one purchase attempt. Error "cancelled" marks
// a user-initiated cancellation, distinct from any other failure.
type PurchaseResult struct {
	Success           bool          `json:"success"`
	CustomerInfo      *CustomerInfo `json:"customerInfo,omitempty"`
	ProductIdentifier string        `json:"productIdentifier,omitempty"`
	Error             string        `json:"error,omitempty"`
	Message           string        `json:"message,omitempty"`
}

// RestoreResult reports a purchase-history restore.
type RestoreResult struct {
	Success      bool          `json:"success"`
	CustomerInfo *CustomerInfo `json:"customerInfo,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// SyncResult reports a backend entitlement sync.
type SyncResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Distinguished error codes surfaced in result values.
const (
	ErrCodeDisabled    = "IAP is disabled"
	ErrCodeCancelled   = "cancelled"
	ErrCodeNotFound    = "product not found"
	ErrCodeNotReady    = "not initialized"
	ErrCodeSyncSkipped = "sync unavailable"
)
