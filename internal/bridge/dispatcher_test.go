package bridge

import (
	"context"
	"testing"

	"shellbridge/internal/domain/device"
	"shellbridge/internal/domain/eventbus"
	"shellbridge/internal/domain/purchase"
	"shellbridge/internal/domain/session"
	"shellbridge/internal/domain/subscription"
	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/securestore"
	apptest "shellbridge/internal/platform/testing"
)

type fakeEngine struct {
	initResult     purchase.InitResult
	status         purchase.SubscriptionStatus
	products       purchase.ProductsResult
	purchaseResult purchase.PurchaseResult
	restoreResult  purchase.RestoreResult
}

func (f *fakeEngine) Initialize(context.Context, string) purchase.InitResult {
	return f.initResult
}

func (f *fakeEngine) AvailableProducts(context.Context) purchase.ProductsResult {
	return f.products
}

func (f *fakeEngine) PurchaseProduct(context.Context, string) purchase.PurchaseResult {
	return f.purchaseResult
}

func (f *fakeEngine) RestorePurchases(context.Context) purchase.RestoreResult {
	return f.restoreResult
}

func (f *fakeEngine) Status(context.Context) purchase.SubscriptionStatus {
	return f.status
}

func (f *fakeEngine) CachedStatus(context.Context) purchase.SubscriptionStatus {
	return f.status
}

func (f *fakeEngine) HasEntitlement(_ context.Context, id string) bool {
	_, ok := f.status.Entitlements[id]
	return ok
}

func (f *fakeEngine) SyncWithBackend(context.Context, *purchase.CustomerInfo) purchase.SyncResult {
	return purchase.SyncResult{Success: true}
}

func (f *fakeEngine) Close() {}

type fakeRegistrar struct {
	registerOK   bool
	unregisterOK bool
	registered   []string
	unregistered []string
}

func (f *fakeRegistrar) Register(_ context.Context, endpoint string) bool {
	f.registered = append(f.registered, endpoint)
	return f.registerOK
}

func (f *fakeRegistrar) Unregister(_ context.Context, endpoint string) bool {
	f.unregistered = append(f.unregistered, endpoint)
	return f.unregisterOK
}

type fakeSharer struct {
	calls []ShareRequest
	ok    bool
}

func (f *fakeSharer) Share(_ context.Context, req ShareRequest) bool {
	f.calls = append(f.calls, req)
	return f.ok
}

type harness struct {
	dispatcher *Dispatcher
	store      *session.Store
	registrar  *fakeRegistrar
	sharer     *fakeSharer
	engine     *fakeEngine
	sent       []interface{}
	cfg        *config.Config
}

func newHarness(t *testing.T, engine *fakeEngine) *harness {
	t.Helper()

	cfg := apptest.SetupTestConfig(t)
	logger := apptest.SetupTestLogger(t)
	bus := eventbus.New()
	secure := securestore.NewMemory(securestore.Config{})

	h := &harness{
		registrar: &fakeRegistrar{registerOK: true, unregisterOK: true},
		sharer:    &fakeSharer{ok: true},
		engine:    engine,
		cfg:       cfg,
	}
	h.store = session.NewStore(secure)
	sessions := session.NewManager(h.store, h.registrar, bus, logger, true)
	subs := subscription.NewState(cfg, engine, logger)
	collector := device.NewCollector(cfg.DeviceInfo, secure, bus, logger)

	h.dispatcher = NewDispatcher(cfg, sessions, subs, collector, h.sharer, logger, func(message interface{}) error {
		h.sent = append(h.sent, message)
		return nil
	})
	return h
}

func subscribedStatus() purchase.SubscriptionStatus {
	return purchase.SubscriptionStatus{
		IsSubscribed: true,
		Entitlements: map[string]purchase.Entitlement{
			"premium": {Identifier: "premium", ProductIdentifier: "monthly_premium"},
		},
	}
}

func readyEngine() *fakeEngine {
	return &fakeEngine{
		initResult: purchase.InitResult{Success: true},
		status:     subscribedStatus(),
		products: purchase.ProductsResult{
			Success:  true,
			Products: []purchase.Product{{Identifier: "monthly_premium"}},
		},
		purchaseResult: purchase.PurchaseResult{Success: true, ProductIdentifier: "monthly_premium"},
		restoreResult:  purchase.RestoreResult{Success: true},
	}
}

func login(t *testing.T, h *harness) {
	t.Helper()
	h.dispatcher.HandleMessage(context.Background(), InboundMessage{
		Action:    ActionLoginSuccess,
		UserID:    "u1",
		UserToken: "t1",
	})
}

func TestMissingActionIsDropped(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.Handle(context.Background(), []byte(`{"userId":"u1"}`))

	if len(h.sent) != 0 {
		t.Fatalf("expected no outbound messages, got %v", h.sent)
	}
	sess, err := h.store.Load(context.Background())
	apptest.AssertNoError(t, err)
	if !sess.Empty() {
		t.Fatalf("state mutated by actionless message: %+v", sess)
	}
}

func TestMalformedFrameIsDropped(t *testing.T) {
	h := newHarness(t, readyEngine())
	h.dispatcher.Handle(context.Background(), []byte(`{not json`))
	if len(h.sent) != 0 {
		t.Fatalf("expected no outbound messages, got %v", h.sent)
	}
}

func TestUnknownActionIsDropped(t *testing.T) {
	h := newHarness(t, readyEngine())
	h.dispatcher.Handle(context.Background(), []byte(`{"action":"fly"}`))
	if len(h.sent) != 0 {
		t.Fatalf("expected no outbound messages, got %v", h.sent)
	}
}

func TestLoginSuccessPersistsAndRegistersPush(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.Handle(context.Background(),
		[]byte(`{"action":"loginSuccess","userId":"u1","userToken":"t1","pushTokenEndpoint":"https://x/ep"}`))

	sess, err := h.store.Load(context.Background())
	apptest.AssertNoError(t, err)
	apptest.AssertEqual(t, "u1", sess.UserID)
	apptest.AssertEqual(t, "t1", sess.UserToken)
	apptest.AssertEqual(t, true, sess.IsLoggedIn)

	if len(h.registrar.registered) != 1 || h.registrar.registered[0] != "https://x/ep" {
		t.Fatalf("expected push registration against https://x/ep, got %v", h.registrar.registered)
	}
}

func TestLoginSuccessMissingFieldsNoStateChange(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{
		Action: ActionLoginSuccess,
		UserID: "u1",
	})

	sess, err := h.store.Load(context.Background())
	apptest.AssertNoError(t, err)
	if !sess.Empty() {
		t.Fatalf("session mutated by invalid login: %+v", sess)
	}
	apptest.AssertEqual(t, 0, len(h.registrar.registered))
}

func TestLogoutClearsSessionDespiteUnregisterFailure(t *testing.T) {
	h := newHarness(t, readyEngine())
	h.registrar.unregisterOK = false

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{
		Action:            ActionLoginSuccess,
		UserID:            "u1",
		UserToken:         "t1",
		PushTokenEndpoint: "https://x/ep",
	})
	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionLogout})

	apptest.AssertEqual(t, 1, len(h.registrar.unregistered))
	sess, err := h.store.Load(context.Background())
	apptest.AssertNoError(t, err)
	if !sess.Empty() {
		t.Fatalf("expected empty session after logout, got %+v", sess)
	}
}

func TestShareBlockedWhenLoggedOut(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{
		Action: ActionShare,
		URL:    "https://x",
	})

	apptest.AssertEqual(t, 0, len(h.sharer.calls))
}

func TestShareInvokedWhenLoggedIn(t *testing.T) {
	h := newHarness(t, readyEngine())
	login(t, h)

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{
		Action: ActionShare,
		URL:    "https://x",
		Title:  "Check this out",
	})

	if len(h.sharer.calls) != 1 {
		t.Fatalf("expected one share invocation, got %d", len(h.sharer.calls))
	}
	apptest.AssertEqual(t, "https://x", h.sharer.calls[0].URL)
}

func TestShareBlockedWhenFeatureDisabled(t *testing.T) {
	h := newHarness(t, readyEngine())
	h.cfg.Features.Sharing = false
	login(t, h)

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionShare, URL: "https://x"})
	apptest.AssertEqual(t, 0, len(h.sharer.calls))
}

func TestGetProductsEmitsAvailableProducts(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionGetProducts})

	if len(h.sent) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(h.sent))
	}
	msg, ok := h.sent[0].(AvailableProductsMessage)
	if !ok {
		t.Fatalf("unexpected message type %T", h.sent[0])
	}
	apptest.AssertEqual(t, ActionAvailableProducts, msg.Action)
	apptest.AssertEqual(t, 1, len(msg.Products))
}

func TestGetProductsRefetchesAfterOfferingChange(t *testing.T) {
	h := newHarness(t, readyEngine())
	login(t, h)

	h.engine.products = purchase.ProductsResult{
		Success:  true,
		Products: []purchase.Product{{Identifier: "yearly_premium"}},
	}
	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionGetProducts})

	if len(h.sent) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(h.sent))
	}
	msg := h.sent[0].(AvailableProductsMessage)
	if len(msg.Products) != 1 || msg.Products[0].Identifier != "yearly_premium" {
		t.Fatalf("expected freshly fetched offering, got %v", msg.Products)
	}
}

func TestGetProductsFailureEmitsNothing(t *testing.T) {
	engine := readyEngine()
	engine.products = purchase.ProductsResult{Success: false, Error: "offerings unavailable"}
	h := newHarness(t, engine)

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionGetProducts})
	apptest.AssertEqual(t, 0, len(h.sent))
}

func TestGetSubscriptionStatusEmitsReducedEntitlements(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionGetSubStatus})

	if len(h.sent) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(h.sent))
	}
	msg := h.sent[0].(SubscriptionStatusMessage)
	apptest.AssertEqual(t, ActionSubscriptionStatus, msg.Action)
	apptest.AssertEqual(t, true, msg.IsSubscribed)
	if len(msg.Entitlements) != 1 || msg.Entitlements[0] != "premium" {
		t.Fatalf("expected entitlement id list [premium], got %v", msg.Entitlements)
	}
}

func TestPurchaseSuccessEmitsUpdateThenStatus(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{
		Action:    ActionPurchase,
		ProductID: "monthly_premium",
	})

	if len(h.sent) != 2 {
		t.Fatalf("expected exactly 2 outbound messages, got %d: %v", len(h.sent), h.sent)
	}
	updated, ok := h.sent[0].(SubscriptionUpdatedMessage)
	if !ok {
		t.Fatalf("first message must be subscriptionUpdated, got %T", h.sent[0])
	}
	apptest.AssertEqual(t, true, updated.IsSubscribed)
	apptest.AssertEqual(t, "monthly_premium", updated.ProductID)

	status, ok := h.sent[1].(SubscriptionStatusMessage)
	if !ok {
		t.Fatalf("second message must be subscriptionStatus, got %T", h.sent[1])
	}
	apptest.AssertEqual(t, ActionSubscriptionStatus, status.Action)
}

func TestPurchaseMissingProductIDEmitsNothing(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionPurchase})
	apptest.AssertEqual(t, 0, len(h.sent))
}

func TestPurchaseFailureEmitsPurchaseFailed(t *testing.T) {
	engine := readyEngine()
	engine.purchaseResult = purchase.PurchaseResult{
		Success: false,
		Error:   purchase.ErrCodeCancelled,
		Message: "Purchase was cancelled",
	}
	h := newHarness(t, engine)

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{
		Action:    ActionPurchase,
		ProductID: "monthly_premium",
	})

	if len(h.sent) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(h.sent))
	}
	msg := h.sent[0].(PurchaseFailedMessage)
	apptest.AssertEqual(t, purchase.ErrCodeCancelled, msg.Error)
}

func TestRestoreSuccessEmitsPurchasesRestored(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionRestorePurchases})

	if len(h.sent) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(h.sent))
	}
	msg := h.sent[0].(PurchasesRestoredMessage)
	apptest.AssertEqual(t, ActionPurchasesRestored, msg.Action)
	apptest.AssertEqual(t, true, msg.IsSubscribed)
}

func TestRestoreFailureEmitsRestoreFailed(t *testing.T) {
	engine := readyEngine()
	engine.restoreResult = purchase.RestoreResult{Success: false, Error: "nothing to restore"}
	h := newHarness(t, engine)

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionRestorePurchases})

	msg := h.sent[0].(RestoreFailedMessage)
	apptest.AssertEqual(t, "nothing to restore", msg.Error)
	apptest.AssertEqual(t, h.cfg.IAP.Messages.RestoreFailed, msg.Message)
}

func TestRestoreBlockedWhenNotAllowed(t *testing.T) {
	h := newHarness(t, readyEngine())
	h.cfg.IAP.AllowRestore = false

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionRestorePurchases})
	apptest.AssertEqual(t, 0, len(h.sent))
}

func TestIAPActionsBlockedWhenDisabled(t *testing.T) {
	h := newHarness(t, readyEngine())
	h.cfg.Features.InAppPurchases = false

	for _, action := range []string{ActionGetProducts, ActionGetSubStatus, ActionPurchase, ActionRestorePurchases} {
		h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: action, ProductID: "monthly_premium"})
	}
	apptest.AssertEqual(t, 0, len(h.sent))
}

func TestGetDeviceInfoEmitsSnapshot(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionGetDeviceInfo})

	if len(h.sent) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(h.sent))
	}
	msg := h.sent[0].(DeviceInfoMessage)
	apptest.AssertEqual(t, ActionDeviceInfo, msg.Action)
	apptest.AssertEqual(t, "1.0.0", msg.Data["appVersion"])
}

func TestEmitSkippedWithoutSendCapability(t *testing.T) {
	h := newHarness(t, readyEngine())
	h.dispatcher.send = nil

	// Must not panic; emission is silently skipped.
	h.dispatcher.HandleMessage(context.Background(), InboundMessage{Action: ActionGetSubStatus})
	h.dispatcher.EmitConnectionChanged(true)
}

func TestEmitConnectionChanged(t *testing.T) {
	h := newHarness(t, readyEngine())

	h.dispatcher.EmitConnectionChanged(false)

	msg := h.sent[0].(ConnectionChangedMessage)
	apptest.AssertEqual(t, ActionConnectionChanged, msg.Action)
	apptest.AssertEqual(t, false, msg.IsOnline)
}
