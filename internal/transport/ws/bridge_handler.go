package ws

import (
	"context"
	"net/http"

	"shellbridge/internal/bridge"
	"shellbridge/internal/domain/device"
	"shellbridge/internal/domain/eventbus"
	"shellbridge/internal/domain/purchase"
	"shellbridge/internal/domain/session"
	"shellbridge/internal/domain/subscription"
	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
)

// BridgeDeps carries the shared components every web-view session
// dispatches into.
type BridgeDeps struct {
	Cfg      *config.Config
	Sessions *session.Manager
	Subs     *subscription.State
	Device   *device.Collector
	Sharer   bridge.Sharer
	Bus      *eventbus.Bus
	Logger   *logging.Logger
}

// NewBridgeHandlerBuilder returns the HandlerBuilder that binds one
// dispatcher per upgraded connection. The dispatcher's send capability
// is the connection itself; once the connection closes, emissions fail
// and are dropped.
func NewBridgeHandlerBuilder(deps BridgeDeps) HandlerBuilder {
	return func(conn *Connection, _ *http.Request) (SessionHandler, error) {
		return newBridgeHandler(deps, conn), nil
	}
}

// bridgeHandler runs the message protocol for one embedded web view:
// inbound frames feed the dispatcher, native events arriving on the
// event bus are pushed out as unsolicited messages.
type bridgeHandler struct {
	deps       BridgeDeps
	conn       *Connection
	dispatcher *bridge.Dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	subscriptions []*eventbus.Subscription
}

func newBridgeHandler(deps BridgeDeps, conn *Connection) *bridgeHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &bridgeHandler{
		deps:   deps,
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}
	h.dispatcher = bridge.NewDispatcher(
		deps.Cfg,
		deps.Sessions,
		deps.Subs,
		deps.Device,
		deps.Sharer,
		deps.Logger,
		conn.SendJSON,
	)
	return h
}

func (h *bridgeHandler) SessionID() string {
	return h.conn.ID()
}

// Handle subscribes to native events and drains inbound frames until
// the connection ends.
func (h *bridgeHandler) Handle() {
	h.subscribeNativeEvents()

	for {
		_, payload, err := h.conn.ReadMessage()
		if err != nil {
			return
		}
		h.dispatcher.Handle(h.ctx, payload)
	}
}

// Close tears down the event-bus subscriptions. The session owns the
// connection close.
func (h *bridgeHandler) Close() {
	h.cancel()
	for _, sub := range h.subscriptions {
		sub.Unsubscribe()
	}
	h.subscriptions = nil
}

func (h *bridgeHandler) subscribeNativeEvents() {
	h.subscribe(eventbus.EventConnectivityChanged, func(data eventbus.ConnectivityEventData) {
		h.dispatcher.EmitConnectionChanged(data.IsOnline)
	})
	h.subscribe(eventbus.EventCustomerInfoUpdated, func(data eventbus.CustomerInfoEventData) {
		entitlements := make(map[string]purchase.Entitlement, len(data.Entitlements))
		for _, id := range data.Entitlements {
			entitlements[id] = purchase.Entitlement{Identifier: id, ProductIdentifier: data.ProductID}
		}
		h.dispatcher.EmitSubscriptionStatus(purchase.SubscriptionStatus{
			IsSubscribed: data.IsSubscribed,
			Entitlements: entitlements,
		})
	})
	h.subscribe(eventbus.EventScreenChanged, func(device.Screen) {
		h.dispatcher.EmitDeviceInfo(h.ctx)
	})
	h.subscribe(eventbus.EventDeepLinkOpened, func(data eventbus.DeepLinkEventData) {
		h.dispatcher.EmitNavigate(data.Path)
	})
}

func (h *bridgeHandler) subscribe(topic string, fn interface{}) {
	sub, err := h.deps.Bus.SubscribeAsync(topic, fn)
	if err != nil {
		h.deps.Logger.WarnTag(logTag, "subscribe %s failed: %v", topic, err)
		return
	}
	h.subscriptions = append(h.subscriptions, sub)
}
