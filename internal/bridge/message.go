package bridge

import (
	"time"

	"github.com/bytedance/sonic"

	"shellbridge/internal/domain/purchase"
)

// Inbound action vocabulary (web content -> native).
const (
	ActionLoginSuccess     = "loginSuccess"
	ActionLogout           = "logout"
	ActionShare            = "share"
	ActionGetProducts      = "getProducts"
	ActionGetSubStatus     = "getSubscriptionStatus"
	ActionPurchase         = "purchase"
	ActionRestorePurchases = "restorePurchases"
	ActionGetDeviceInfo    = "getDeviceInfo"
)

// Outbound action vocabulary (native -> web content).
const (
	ActionAvailableProducts  = "availableProducts"
	ActionSubscriptionStatus = "subscriptionStatus"
	ActionSubscriptionUpdate = "subscriptionUpdated"
	ActionPurchaseFailed     = "purchaseFailed"
	ActionPurchasesRestored  = "purchasesRestored"
	ActionRestoreFailed      = "restoreFailed"
	ActionConnectionChanged  = "connectionChanged"
	ActionDeviceInfo         = "deviceInfo"
	ActionNavigate           = "navigate"
)

// InboundMessage is the tagged union arriving from the web content.
// Action is the discriminant; the remaining fields are per-action.
type InboundMessage struct {
	Action            string `json:"action"`
	UserID            string `json:"userId,omitempty"`
	UserToken         string `json:"userToken,omitempty"`
	PushTokenEndpoint string `json:"pushTokenEndpoint,omitempty"`
	ProductID         string `json:"productId,omitempty"`
	URL               string `json:"url,omitempty"`
	Text              string `json:"text,omitempty"`
	Title             string `json:"title,omitempty"`
	Message           string `json:"message,omitempty"`
}

// DecodeInbound parses a raw frame. The caller decides what to do with
// a malformed frame; the dispatcher logs and drops it.
func DecodeInbound(raw []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return InboundMessage{}, err
	}
	return msg, nil
}

// Outbound message shapes. Each carries its own action tag so the
// frame is self-describing.

type AvailableProductsMessage struct {
	Action   string             `json:"action"`
	Products []purchase.Product `json:"products"`
}

type SubscriptionStatusMessage struct {
	Action         string     `json:"action"`
	IsSubscribed   bool       `json:"isSubscribed"`
	Entitlements   []string   `json:"entitlements"`
	ExpirationDate *time.Time `json:"expirationDate"`
}

type SubscriptionUpdatedMessage struct {
	Action       string `json:"action"`
	IsSubscribed bool   `json:"isSubscribed"`
	ProductID    string `json:"productId"`
}

type PurchaseFailedMessage struct {
	Action  string `json:"action"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type PurchasesRestoredMessage struct {
	Action         string     `json:"action"`
	IsSubscribed   bool       `json:"isSubscribed"`
	Entitlements   []string   `json:"entitlements"`
	ExpirationDate *time.Time `json:"expirationDate"`
}

type RestoreFailedMessage struct {
	Action  string `json:"action"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type ConnectionChangedMessage struct {
	Action   string `json:"action"`
	IsOnline bool   `json:"isOnline"`
}

type DeviceInfoMessage struct {
	Action string                 `json:"action"`
	Data   map[string]interface{} `json:"data"`
}

type NavigateMessage struct {
	Action string `json:"action"`
	Path   string `json:"path"`
}

func subscriptionStatusMessage(status purchase.SubscriptionStatus) SubscriptionStatusMessage {
	return SubscriptionStatusMessage{
		Action:         ActionSubscriptionStatus,
		IsSubscribed:   status.IsSubscribed,
		Entitlements:   status.EntitlementIDs(),
		ExpirationDate: status.ExpirationDate,
	}
}

func purchasesRestoredMessage(status purchase.SubscriptionStatus) PurchasesRestoredMessage {
	return PurchasesRestoredMessage{
		Action:         ActionPurchasesRestored,
		IsSubscribed:   status.IsSubscribed,
		Entitlements:   status.EntitlementIDs(),
		ExpirationDate: status.ExpirationDate,
	}
}
