package eventbus

// Topic names published across the app shell.
const (
	// Purchase / subscription events
	EventCustomerInfoUpdated = "purchase:customer_info_updated"
	EventSubscriptionChanged = "subscription:changed"

	// Connectivity events
	EventConnectivityChanged = "network:connectivity_changed"

	// Push notification events
	EventPushReceived = "push:received"
	EventPushTapped   = "push:tapped"

	// Deep link events
	EventDeepLinkOpened = "deeplink:opened"

	// Share events
	EventShareRequested = "share:requested"

	// Device events
	EventScreenChanged = "device:screen_changed"

	// Session events
	EventSessionLoggedIn  = "session:logged_in"
	EventSessionLoggedOut = "session:logged_out"
)

// CustomerInfoEventData carries the latest entitlement snapshot.
type CustomerInfoEventData struct {
	UserID       string   `json:"user_id,omitempty"`
	IsSubscribed bool     `json:"is_subscribed"`
	Entitlements []string `json:"entitlements"`
	ProductID    string   `json:"product_id,omitempty"`
}

// ConnectivityEventData carries the derived online/offline state.
type ConnectivityEventData struct {
	IsOnline          bool   `json:"is_online"`
	ConnectionType    string `json:"connection_type,omitempty"`
	InternetReachable *bool  `json:"internet_reachable,omitempty"`
	PreviouslyOnline  bool   `json:"previously_online"`
}

// ShareEventData carries a share-sheet request for the platform layer.
type ShareEventData struct {
	URL     string `json:"url,omitempty"`
	Text    string `json:"text,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// PushEventData carries a received or tapped notification payload.
type PushEventData struct {
	Title string                 `json:"title,omitempty"`
	Body  string                 `json:"body,omitempty"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// DeepLinkEventData carries a resolved deep link.
type DeepLinkEventData struct {
	URL       string `json:"url"`
	Path      string `json:"path"`
	ColdStart bool   `json:"cold_start"`
}

// SessionEventData carries session transitions.
type SessionEventData struct {
	UserID string `json:"user_id,omitempty"`
}
