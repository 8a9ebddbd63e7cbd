package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"shellbridge/internal/domain/device"
	"shellbridge/internal/domain/eventbus"
	"shellbridge/internal/domain/purchase"
	"shellbridge/internal/domain/session"
	"shellbridge/internal/domain/subscription"
	"shellbridge/internal/platform/securestore"
	apptest "shellbridge/internal/platform/testing"
)

type stubEngine struct {
	status purchase.SubscriptionStatus
}

func (s *stubEngine) Initialize(context.Context, string) purchase.InitResult {
	return purchase.InitResult{Success: true}
}

func (s *stubEngine) AvailableProducts(context.Context) purchase.ProductsResult {
	return purchase.ProductsResult{Success: true, Products: []purchase.Product{{Identifier: "monthly_premium"}}}
}

func (s *stubEngine) PurchaseProduct(context.Context, string) purchase.PurchaseResult {
	return purchase.PurchaseResult{Success: true, ProductIdentifier: "monthly_premium"}
}

func (s *stubEngine) RestorePurchases(context.Context) purchase.RestoreResult {
	return purchase.RestoreResult{Success: true}
}

func (s *stubEngine) Status(context.Context) purchase.SubscriptionStatus {
	return s.status
}

func (s *stubEngine) CachedStatus(context.Context) purchase.SubscriptionStatus {
	return s.status
}

func (s *stubEngine) HasEntitlement(context.Context, string) bool { return s.status.IsSubscribed }

func (s *stubEngine) SyncWithBackend(context.Context, *purchase.CustomerInfo) purchase.SyncResult {
	return purchase.SyncResult{Success: true}
}

func (s *stubEngine) Close() {}

type nopRegistrar struct{}

func (nopRegistrar) Register(context.Context, string) bool   { return true }
func (nopRegistrar) Unregister(context.Context, string) bool { return true }

func newTestTransport(t *testing.T) (*httptest.Server, *eventbus.Bus) {
	t.Helper()

	cfg := apptest.SetupTestConfig(t)
	logger := apptest.SetupTestLogger(t)
	bus := eventbus.New()
	secure := securestore.NewMemory(securestore.Config{})

	engine := &stubEngine{status: purchase.SubscriptionStatus{
		IsSubscribed: true,
		Entitlements: map[string]purchase.Entitlement{
			"premium": {Identifier: "premium"},
		},
	}}

	deps := BridgeDeps{
		Cfg:      cfg,
		Sessions: session.NewManager(session.NewStore(secure), nopRegistrar{}, bus, logger, true),
		Subs:     subscription.NewState(cfg, engine, logger),
		Device:   device.NewCollector(cfg.DeviceInfo, secure, bus, logger),
		Bus:      bus,
		Logger:   logger,
	}

	hub := NewHub(logger)
	router := NewRouter(hub, logger, RouterOptions{})
	router.SetHandlerBuilder(NewBridgeHandlerBuilder(deps))

	srv := httptest.NewServer(http.HandlerFunc(router.Handle))
	t.Cleanup(func() {
		hub.CloseAll(ErrSessionShutdown)
		srv.Close()
	})
	return srv, bus
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readAction(t *testing.T, conn *websocket.Conn) (string, map[string]interface{}) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded map[string]interface{}
	if err := sonic.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode outbound frame: %v", err)
	}
	action, _ := decoded["action"].(string)
	return action, decoded
}

func TestStatusRoundTrip(t *testing.T) {
	srv, _ := newTestTransport(t)
	conn := dial(t, srv)

	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"getSubscriptionStatus"}`))
	apptest.AssertNoError(t, err)

	action, decoded := readAction(t, conn)
	apptest.AssertEqual(t, "subscriptionStatus", action)
	apptest.AssertEqual(t, true, decoded["isSubscribed"])
}

func TestMalformedFrameDoesNotKillSession(t *testing.T) {
	srv, _ := newTestTransport(t)
	conn := dial(t, srv)

	apptest.AssertNoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{broken`)))
	apptest.AssertNoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"getSubscriptionStatus"}`)))

	action, _ := readAction(t, conn)
	apptest.AssertEqual(t, "subscriptionStatus", action)
}

func TestConnectivityEventPushedToWebView(t *testing.T) {
	srv, bus := newTestTransport(t)
	conn := dial(t, srv)

	// Let the session attach its bus subscriptions first.
	apptest.AssertNoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"getSubscriptionStatus"}`)))
	action, _ := readAction(t, conn)
	apptest.AssertEqual(t, "subscriptionStatus", action)

	bus.Publish(eventbus.EventConnectivityChanged, eventbus.ConnectivityEventData{IsOnline: false})
	bus.WaitAsync()

	action, decoded := readAction(t, conn)
	apptest.AssertEqual(t, "connectionChanged", action)
	apptest.AssertEqual(t, false, decoded["isOnline"])
}
