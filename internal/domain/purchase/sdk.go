package purchase

import (
	"context"
	"errors"
)

// ErrCancelled is returned by an SDK when the user abandons the native
// purchase sheet. It is an intentional outcome, not a failure.
var ErrCancelled = errors.New("purchase cancelled by user")

// Offering is a backend-configured bundle of purchasable packages.
type Offering struct {
	Identifier string    `json:"identifier"`
	Packages   []Product `json:"packages"`
}

// Offerings groups the configured offerings with the current default.
type Offerings struct {
	Current string              `json:"current"`
	All     map[string]Offering `json:"all"`
}

// ListenerHandle detaches a customer-info listener.
type ListenerHandle interface {
	Remove()
}

// SDK is the platform purchase collaborator. Receipt validation and
// store communication happen behind it; this package treats it as a
// black box with a fixed surface.
type SDK interface {
	// Configure binds the platform API key and, when userID is
	// non-empty, a stable external user id.
	Configure(ctx context.Context, apiKey, userID string) error

	// Offerings returns the configured offerings.
	Offerings(ctx context.Context) (Offerings, error)

	// Purchase executes the native purchase flow for one product.
	// Returns ErrCancelled when the user backs out.
	Purchase(ctx context.Context, productID string) (CustomerInfo, error)

	// Restore re-derives entitlements from the purchase history.
	Restore(ctx context.Context) (CustomerInfo, error)

	// CustomerInfo returns the live entitlement snapshot.
	CustomerInfo(ctx context.Context) (CustomerInfo, error)

	// AddCustomerInfoListener registers a callback for every snapshot
	// update the SDK observes.
	AddCustomerInfoListener(fn func(CustomerInfo)) ListenerHandle
}
