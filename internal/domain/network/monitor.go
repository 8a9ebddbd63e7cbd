package network

import (
	"context"
	"net/http"
	"sync"
	"time"

	"shellbridge/internal/domain/eventbus"
	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
)

const logTag = "NET"

// State is the platform connectivity snapshot, replaced wholesale on
// each event. Reachability may be unknown (nil).
type State struct {
	IsConnected         bool                   `json:"isConnected"`
	IsInternetReachable *bool                  `json:"isInternetReachable"`
	Type                string                 `json:"type,omitempty"`
	Details             map[string]interface{} `json:"details,omitempty"`
}

// Online derives the application-level connectivity: connected with
// unknown reachability counts as online; only an explicit false does
// not.
func (s State) Online() bool {
	return s.IsConnected && (s.IsInternetReachable == nil || *s.IsInternetReachable)
}

// Prober performs a non-cached connectivity check.
type Prober interface {
	Check(ctx context.Context) State
}

// HTTPProber checks connectivity against a lightweight probe URL.
type HTTPProber struct {
	url    string
	client *http.Client
}

// NewHTTPProber builds a prober for the configured probe URL.
func NewHTTPProber(cfg config.NetworkConfig) *HTTPProber {
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProber{
		url:    cfg.ProbeURL,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProber) Check(ctx context.Context) State {
	reachable := false
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err == nil {
		resp, derr := p.client.Do(req)
		if derr == nil {
			resp.Body.Close()
			reachable = resp.StatusCode < 500
		}
	}
	return State{
		IsConnected:         reachable,
		IsInternetReachable: &reachable,
	}
}

// Monitor tracks connectivity transitions. The initial state is fetched
// once at start; platform events arrive through Apply; ForceCheck runs
// an explicit non-cached re-check for the user-triggered retry path.
// Transitions are published on the event bus.
type Monitor struct {
	cfg    config.NetworkConfig
	prober Prober
	bus    *eventbus.Bus
	logger *logging.Logger

	mu      sync.RWMutex
	current State
	primed  bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewMonitor creates a monitor over the given prober.
func NewMonitor(cfg config.NetworkConfig, prober Prober, bus *eventbus.Bus, logger *logging.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		prober: prober,
		bus:    bus,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start fetches the initial state and, when an interval is configured,
// begins periodic probing until Stop or context cancellation.
func (m *Monitor) Start(ctx context.Context) {
	m.Apply(m.prober.Check(ctx))

	if m.cfg.ProbeInterval <= 0 {
		close(m.done)
		return
	}

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.ProbeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.Apply(m.prober.Check(ctx))
			}
		}
	}()
}

// Stop ends periodic probing. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

// Apply ingests a connectivity snapshot, recomputes the derived online
// state, and publishes the transition when it changed. The first
// snapshot always publishes so subscribers learn the initial state.
func (m *Monitor) Apply(state State) {
	m.mu.Lock()
	previous := m.current
	wasPrimed := m.primed
	m.current = state
	m.primed = true
	m.mu.Unlock()

	previouslyOnline := previous.Online()
	online := state.Online()
	if wasPrimed && online == previouslyOnline {
		return
	}

	m.logger.InfoTag(logTag, "connectivity changed: online=%v type=%s", online, state.Type)
	m.bus.Publish(eventbus.EventConnectivityChanged, eventbus.ConnectivityEventData{
		IsOnline:          online,
		ConnectionType:    state.Type,
		InternetReachable: state.IsInternetReachable,
		PreviouslyOnline:  previouslyOnline,
	})
}

// Online returns the current derived connectivity.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Online()
}

// ForceCheck bypasses any cached state and probes immediately. Used by
// the explicit "Try Again" path on the offline screen.
func (m *Monitor) ForceCheck(ctx context.Context) bool {
	state := m.prober.Check(ctx)
	m.Apply(state)
	return state.Online()
}
