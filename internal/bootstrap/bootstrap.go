package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shellbridge/internal/bridge"
	"shellbridge/internal/domain/deeplink"
	"shellbridge/internal/domain/device"
	"shellbridge/internal/domain/eventbus"
	"shellbridge/internal/domain/network"
	"shellbridge/internal/domain/purchase"
	"shellbridge/internal/domain/push"
	"shellbridge/internal/domain/session"
	"shellbridge/internal/domain/subscription"
	platformconfig "shellbridge/internal/platform/config"
	platformerrors "shellbridge/internal/platform/errors"
	platformlogging "shellbridge/internal/platform/logging"
	"shellbridge/internal/platform/securestore"
	httptransport "shellbridge/internal/transport/http"
	"shellbridge/internal/transport/ws"
)

const logTag = "BOOT"

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger

	sqliteDB *gorm.DB
	secure   securestore.Store
	bus      *eventbus.Bus

	sessionStore *session.Store
	sessions     *session.Manager
	registrar    *push.Registrar
	engine       purchase.Engine
	subs         *subscription.State
	collector    *device.Collector
	deepLinks    *deeplink.Router
	monitor      *network.Monitor
}

// Run drives the full service lifecycle: configuration, dependency
// initialization, transport startup, and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}

	cfg := state.config
	logger := state.logger
	if cfg == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	defer logger.Close()

	logger.InfoTag(logTag, "shell bridge configured from %s", state.configPath)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(signalCtx)
	defer cancel()
	g, groupCtx := errgroup.WithContext(runCtx)

	if err := startServices(state, g, groupCtx); err != nil {
		cancel()
		return err
	}

	// groupCtx ends on a signal or on the first failing service.
	return waitForShutdown(groupCtx, cancel, logger, g, state)
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph declares the ordered initialization steps.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:init-secure",
			Title:     "Initialise secure storage",
			DependsOn: []string{"config:load", "logging:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   initSecureStoreStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Initialise event bus",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "session:init",
			Title:     "Initialise session manager",
			DependsOn: []string{"storage:init-secure", "eventbus:init"},
			Kind:      platformerrors.KindSession,
			Execute:   initSessionStep,
		},
		{
			ID:        "purchase:init",
			Title:     "Initialise purchase engine",
			DependsOn: []string{"storage:init-secure", "eventbus:init", "session:init"},
			Kind:      platformerrors.KindPurchase,
			Execute:   initPurchaseStep,
		},
		{
			ID:        "shell:init",
			Title:     "Initialise shell components",
			DependsOn: []string{"purchase:init", "eventbus:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initShellStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return err
	}
	state.logger = logger
	return nil
}

func initSecureStoreStep(_ context.Context, state *appState) error {
	cfg := state.config.Store

	storeCfg := securestore.Config{
		Driver:    cfg.Driver,
		Namespace: cfg.Namespace,
	}
	if cfg.Redis.Addr != "" {
		storeCfg.Redis = &securestore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}
	}

	deps := securestore.Dependencies{}
	if cfg.Driver == securestore.DriverSQLite {
		dsn := cfg.SQLite.DSN
		if dsn == "" {
			dsn = "data/shellbridge.db"
		}
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("open sqlite database: %w", err)
		}
		state.sqliteDB = db
		deps.SQLiteDB = db
	}

	store, err := securestore.New(storeCfg, deps)
	if err != nil {
		return err
	}
	state.secure = store
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	state.bus = eventbus.New()
	return nil
}

func initSessionStep(_ context.Context, state *appState) error {
	cfg := state.config

	token := cfg.Push.Token
	source := push.TokenSourceFunc(func(context.Context) (string, error) {
		if token == "" {
			return "", fmt.Errorf("platform push token not configured")
		}
		return token, nil
	})
	state.registrar = push.NewRegistrar(cfg.Push, source, state.logger)

	state.sessionStore = session.NewStore(state.secure)
	state.sessions = session.NewManager(
		state.sessionStore,
		state.registrar,
		state.bus,
		state.logger,
		cfg.Features.PushNotifications,
	)
	return nil
}

func initPurchaseStep(_ context.Context, state *appState) error {
	cfg := state.config

	state.engine = purchase.New(cfg, purchase.Dependencies{
		SDK:     purchase.NewRemoteSDK(cfg.IAP.SDKBaseURL),
		Store:   state.secure,
		Session: sessionCredentials{store: state.sessionStore},
		Bus:     state.bus,
		Logger:  state.logger,
	})
	state.subs = subscription.NewState(cfg, state.engine, state.logger)
	return nil
}

func initShellStep(_ context.Context, state *appState) error {
	cfg := state.config

	state.collector = device.NewCollector(cfg.DeviceInfo, state.secure, state.bus, state.logger)
	state.deepLinks = deeplink.NewRouter(cfg.DeepLink, state.bus, state.logger)
	state.monitor = network.NewMonitor(
		cfg.Network,
		network.NewHTTPProber(cfg.Network),
		state.bus,
		state.logger,
	)

	// A tapped notification carrying a url behaves like an opened deep link.
	_, err := state.bus.SubscribeAsync(eventbus.EventPushTapped, func(data eventbus.PushEventData) {
		rawURL, _ := data.Data["url"].(string)
		if rawURL == "" {
			return
		}
		state.deepLinks.Resolve(rawURL, func(string) {})
	})
	return err
}

// busSharer hands share requests to the platform layer over the event
// bus; presenting the share sheet is the platform's job.
type busSharer struct {
	bus    *eventbus.Bus
	logger *platformlogging.Logger
}

func (s busSharer) Share(_ context.Context, req bridge.ShareRequest) bool {
	s.logger.InfoTag(logTag, "share sheet requested for %q", req.URL)
	s.bus.Publish(eventbus.EventShareRequested, eventbus.ShareEventData{
		URL:     req.URL,
		Text:    req.Text,
		Title:   req.Title,
		Message: req.Message,
	})
	return true
}

// sessionCredentials adapts the session store to the purchase engine's
// read-only credential view.
type sessionCredentials struct {
	store *session.Store
}

func (s sessionCredentials) Credentials(ctx context.Context) (string, string, bool) {
	sess, err := s.store.Load(ctx)
	if err != nil || !sess.IsLoggedIn {
		return "", "", false
	}
	return sess.UserID, sess.UserToken, true
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	cfg := state.config
	logger := state.logger

	hub := ws.NewHub(logger)
	wsRouter := ws.NewRouter(hub, logger, ws.RouterOptions{})
	wsRouter.SetHandlerBuilder(ws.NewBridgeHandlerBuilder(ws.BridgeDeps{
		Cfg:      cfg,
		Sessions: state.sessions,
		Subs:     state.subs,
		Device:   state.collector,
		Sharer:   busSharer{bus: state.bus, logger: logger},
		Bus:      state.bus,
		Logger:   logger,
	}))

	router, err := httptransport.Build(httptransport.Options{
		Config:   cfg,
		Logger:   logger,
		WSRouter: wsRouter,
		Hub:      hub,
	})
	if err != nil {
		return fmt.Errorf("build http router: %w", err)
	}
	registerPlatformRoutes(groupCtx, router.API, state)

	if cfg.Features.OfflineMode {
		state.monitor.Start(groupCtx)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router.Engine,
	}

	g.Go(func() error {
		logger.InfoTag(logTag, "listening on %s (ws path %s)", addr, cfg.Server.WebsocketPath)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			return serveErr
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.CloseAll(ws.ErrSessionShutdown)
		return httpServer.Shutdown(shutdownCtx)
	})
	return nil
}

// registerPlatformRoutes exposes the endpoints through which platform
// collaborators hand native events to the shell: deep links, screen
// rotation, and the explicit connectivity re-check.
func registerPlatformRoutes(ctx context.Context, api *gin.RouterGroup, state *appState) {
	api.POST("/deeplink", func(c *gin.Context) {
		var body struct {
			URL       string `json:"url"`
			ColdStart bool   `json:"coldStart"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
			return
		}
		navigate := func(string) {}
		if body.ColdStart {
			go state.deepLinks.ResolveInitial(ctx, body.URL, navigate)
		} else {
			state.deepLinks.Resolve(body.URL, navigate)
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	})

	api.POST("/screen", func(c *gin.Context) {
		var screen device.Screen
		if err := c.ShouldBindJSON(&screen); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid screen payload"})
			return
		}
		state.collector.UpdateScreen(screen)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.POST("/network/recheck", func(c *gin.Context) {
		online := state.monitor.ForceCheck(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"isOnline": online})
	})

	api.POST("/push/event", func(c *gin.Context) {
		var body struct {
			Type  string                 `json:"type"`
			Title string                 `json:"title"`
			Body  string                 `json:"body"`
			Data  map[string]interface{} `json:"data"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid push payload"})
			return
		}
		event := eventbus.PushEventData{Title: body.Title, Body: body.Body, Data: body.Data}
		switch body.Type {
		case "tapped":
			state.bus.Publish(eventbus.EventPushTapped, event)
		default:
			state.bus.Publish(eventbus.EventPushReceived, event)
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	})
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
	state *appState,
) error {
	<-ctx.Done()
	logger.InfoTag(logTag, "shutdown signal received, cleaning up")

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	var err error
	select {
	case err = <-done:
		if err != nil {
			logger.ErrorTag(logTag, "error during shutdown: %v", err)
		} else {
			logger.InfoTag(logTag, "all services stopped")
		}
	case <-time.After(15 * time.Second):
		err = errors.New("shutdown timed out")
		logger.ErrorTag(logTag, "shutdown timed out, forcing exit")
	}

	if state.config.Features.OfflineMode {
		state.monitor.Stop()
	}
	state.engine.Close()
	if state.secure != nil {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if cerr := state.secure.Close(closeCtx); cerr != nil {
			logger.WarnTag(logTag, "secure store close failed: %v", cerr)
		}
	}
	return err
}
