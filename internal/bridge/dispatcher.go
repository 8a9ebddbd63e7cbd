package bridge

import (
	"context"

	"shellbridge/internal/domain/device"
	"shellbridge/internal/domain/purchase"
	"shellbridge/internal/domain/session"
	"shellbridge/internal/domain/subscription"
	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
)

const logTag = "BRIDGE"

// SendFunc delivers one outbound message to the embedded view. It is
// supplied externally and may become unavailable at any time; emission
// is at-most-once, best-effort: no queueing, no retries.
type SendFunc func(message interface{}) error

// ShareRequest carries the share-sheet payload from the web content.
type ShareRequest struct {
	URL     string
	Text    string
	Title   string
	Message string
}

// Sharer invokes the platform share sheet. A false return covers both
// user cancellation and failure; neither produces an outbound message.
type Sharer interface {
	Share(ctx context.Context, req ShareRequest) bool
}

// Dispatcher is the protocol core. It validates inbound messages,
// routes them by action through the feature gates, and emits outbound
// messages through the bound send capability. No handler ever
// propagates an error to the web boundary.
type Dispatcher struct {
	cfg      *config.Config
	sessions *session.Manager
	subs     *subscription.State
	device   *device.Collector
	sharer   Sharer
	logger   *logging.Logger
	send     SendFunc
}

// NewDispatcher binds a dispatcher to one embedded view's send
// capability. sharer and collector may be nil when their features are
// disabled.
func NewDispatcher(
	cfg *config.Config,
	sessions *session.Manager,
	subs *subscription.State,
	collector *device.Collector,
	sharer Sharer,
	logger *logging.Logger,
	send SendFunc,
) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		sessions: sessions,
		subs:     subs,
		device:   collector,
		sharer:   sharer,
		logger:   logger,
		send:     send,
	}
}

// Handle processes one raw inbound frame. Malformed frames and unknown
// actions log and no-op; they never crash the dispatcher.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) {
	msg, err := DecodeInbound(raw)
	if err != nil {
		d.logger.WarnTag(logTag, "dropping malformed message: %v", err)
		return
	}
	d.HandleMessage(ctx, msg)
}

// HandleMessage routes one decoded inbound message.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg InboundMessage) {
	if msg.Action == "" {
		d.logger.WarnTag(logTag, "dropping message without action")
		return
	}

	switch msg.Action {
	case ActionLoginSuccess:
		d.handleLoginSuccess(ctx, msg)
	case ActionLogout:
		d.handleLogout(ctx, msg)
	case ActionShare:
		d.handleShare(ctx, msg)
	case ActionGetProducts:
		d.handleGetProducts(ctx)
	case ActionGetSubStatus:
		d.handleGetSubscriptionStatus(ctx)
	case ActionPurchase:
		d.handlePurchase(ctx, msg)
	case ActionRestorePurchases:
		d.handleRestorePurchases(ctx)
	case ActionGetDeviceInfo:
		d.handleGetDeviceInfo(ctx)
	default:
		d.logger.WarnTag(logTag, "unknown action %q", msg.Action)
	}
}

func (d *Dispatcher) handleLoginSuccess(ctx context.Context, msg InboundMessage) {
	if msg.UserID == "" || msg.UserToken == "" {
		d.logger.WarnTag(logTag, "loginSuccess missing credentials, ignoring")
		return
	}
	if err := d.sessions.LoginSuccess(ctx, msg.UserID, msg.UserToken, msg.PushTokenEndpoint); err != nil {
		d.logger.ErrorTag(logTag, "login failed: %v", err)
		return
	}
	if d.cfg.Features.InAppPurchases {
		d.subs.Initialize(ctx, msg.UserID)
	}
}

func (d *Dispatcher) handleLogout(ctx context.Context, msg InboundMessage) {
	if err := d.sessions.Logout(ctx, msg.PushTokenEndpoint); err != nil {
		d.logger.ErrorTag(logTag, "logout failed: %v", err)
	}
}

func (d *Dispatcher) handleShare(ctx context.Context, msg InboundMessage) {
	if !d.cfg.Features.Sharing {
		d.logger.DebugTag(logTag, "share blocked: feature disabled")
		return
	}
	sess, err := d.sessions.Current(ctx)
	if err != nil || !sess.IsLoggedIn {
		d.logger.DebugTag(logTag, "share blocked: not logged in")
		return
	}
	if d.sharer == nil {
		d.logger.DebugTag(logTag, "share blocked: no share capability")
		return
	}

	shared := d.sharer.Share(ctx, ShareRequest{
		URL:     msg.URL,
		Text:    msg.Text,
		Title:   msg.Title,
		Message: msg.Message,
	})
	if !shared {
		d.logger.DebugTag(logTag, "share dismissed or failed")
	}
}

func (d *Dispatcher) handleGetProducts(ctx context.Context) {
	if !d.cfg.Features.InAppPurchases {
		d.logger.DebugTag(logTag, "getProducts blocked: purchases disabled")
		return
	}
	// Products are refreshed wholesale on every fetch; the shared cache
	// only serves read-side consumers between fetches.
	result := d.subs.RefreshProducts(ctx)
	if !result.Success {
		d.logger.WarnTag(logTag, "product fetch failed: %s", result.Error)
		return
	}
	d.emit(AvailableProductsMessage{
		Action:   ActionAvailableProducts,
		Products: result.Products,
	})
}

func (d *Dispatcher) handleGetSubscriptionStatus(ctx context.Context) {
	if !d.cfg.Features.InAppPurchases {
		d.logger.DebugTag(logTag, "getSubscriptionStatus blocked: purchases disabled")
		return
	}
	status := d.subs.Refresh(ctx)
	d.emit(subscriptionStatusMessage(status))
}

func (d *Dispatcher) handlePurchase(ctx context.Context, msg InboundMessage) {
	if !d.cfg.Features.InAppPurchases {
		d.logger.DebugTag(logTag, "purchase blocked: purchases disabled")
		return
	}
	if msg.ProductID == "" {
		d.logger.ErrorTag(logTag, "purchase message missing productId")
		return
	}

	result := d.subs.PurchaseProduct(ctx, msg.ProductID)
	if !result.Success {
		d.emit(PurchaseFailedMessage{
			Action:  ActionPurchaseFailed,
			Error:   result.Error,
			Message: result.Message,
		})
		return
	}

	status := d.subs.Status()
	d.emit(SubscriptionUpdatedMessage{
		Action:       ActionSubscriptionUpdate,
		IsSubscribed: status.IsSubscribed,
		ProductID:    msg.ProductID,
	})
	d.emit(subscriptionStatusMessage(status))
}

func (d *Dispatcher) handleRestorePurchases(ctx context.Context) {
	if !d.cfg.Features.InAppPurchases {
		d.logger.DebugTag(logTag, "restore blocked: purchases disabled")
		return
	}
	if !d.cfg.IAP.AllowRestore {
		d.logger.DebugTag(logTag, "restore blocked: restore not allowed")
		return
	}

	result := d.subs.RestorePurchases(ctx)
	if !result.Success {
		d.emit(RestoreFailedMessage{
			Action:  ActionRestoreFailed,
			Error:   result.Error,
			Message: d.cfg.IAP.Messages.RestoreFailed,
		})
		return
	}
	d.emit(purchasesRestoredMessage(d.subs.Status()))
}

func (d *Dispatcher) handleGetDeviceInfo(ctx context.Context) {
	if !d.cfg.Features.DeviceInfo || d.device == nil {
		d.logger.DebugTag(logTag, "getDeviceInfo blocked: feature disabled")
		return
	}
	d.emit(DeviceInfoMessage{
		Action: ActionDeviceInfo,
		Data:   d.device.Collect(ctx),
	})
}

// EmitConnectionChanged pushes an unsolicited connectivity update.
func (d *Dispatcher) EmitConnectionChanged(isOnline bool) {
	d.emit(ConnectionChangedMessage{
		Action:   ActionConnectionChanged,
		IsOnline: isOnline,
	})
}

// EmitSubscriptionStatus pushes an unsolicited status update, used when
// the purchase SDK's listener observes a new snapshot.
func (d *Dispatcher) EmitSubscriptionStatus(status purchase.SubscriptionStatus) {
	d.emit(subscriptionStatusMessage(status))
}

// EmitNavigate delivers a deep-link navigation instruction.
func (d *Dispatcher) EmitNavigate(path string) {
	d.emit(NavigateMessage{
		Action: ActionNavigate,
		Path:   path,
	})
}

// EmitDeviceInfo re-sends the device snapshot, used after rotation.
func (d *Dispatcher) EmitDeviceInfo(ctx context.Context) {
	d.handleGetDeviceInfo(ctx)
}

// emit delivers one outbound message. A missing or failing send
// capability drops the message; delivery is at-most-once by design.
func (d *Dispatcher) emit(message interface{}) {
	if d.send == nil {
		d.logger.DebugTag(logTag, "no send capability, dropping outbound message")
		return
	}
	if err := d.send(message); err != nil {
		d.logger.DebugTag(logTag, "outbound send failed, dropping: %v", err)
	}
}
