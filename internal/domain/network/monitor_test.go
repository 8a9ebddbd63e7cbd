package network

import (
	"context"
	"sync"
	"testing"

	"shellbridge/internal/domain/eventbus"
	"shellbridge/internal/platform/config"
	apptest "shellbridge/internal/platform/testing"
)

func boolPtr(b bool) *bool { return &b }

func TestOnlineDerivation(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"connected and reachable", State{IsConnected: true, IsInternetReachable: boolPtr(true)}, true},
		{"connected but unreachable", State{IsConnected: true, IsInternetReachable: boolPtr(false)}, false},
		{"connected with unknown reachability", State{IsConnected: true, IsInternetReachable: nil}, true},
		{"disconnected", State{IsConnected: false, IsInternetReachable: boolPtr(true)}, false},
		{"zero value", State{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apptest.AssertEqual(t, tt.want, tt.state.Online())
		})
	}
}

type scriptedProber struct {
	mu     sync.Mutex
	states []State
	calls  int
}

func (p *scriptedProber) Check(context.Context) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.states[0]
	if len(p.states) > 1 {
		p.states = p.states[1:]
	}
	p.calls++
	return state
}

func newTestMonitor(t *testing.T, prober Prober, bus *eventbus.Bus) *Monitor {
	t.Helper()
	return NewMonitor(config.NetworkConfig{}, prober, bus, apptest.SetupTestLogger(t))
}

func TestApplyPublishesTransitions(t *testing.T) {
	bus := eventbus.New()
	var events []eventbus.ConnectivityEventData
	sub, err := bus.Subscribe(eventbus.EventConnectivityChanged, func(data eventbus.ConnectivityEventData) {
		events = append(events, data)
	})
	apptest.AssertNoError(t, err)
	defer sub.Unsubscribe()

	monitor := newTestMonitor(t, &scriptedProber{states: []State{{}}}, bus)

	monitor.Apply(State{IsConnected: true})
	monitor.Apply(State{IsConnected: true, Type: "wifi"}) // no transition
	monitor.Apply(State{IsConnected: false})

	if len(events) != 2 {
		t.Fatalf("expected 2 transition events, got %d", len(events))
	}
	apptest.AssertEqual(t, true, events[0].IsOnline)
	apptest.AssertEqual(t, false, events[1].IsOnline)
	apptest.AssertEqual(t, true, events[1].PreviouslyOnline)
}

func TestFirstApplyAlwaysPublishes(t *testing.T) {
	bus := eventbus.New()
	var events []eventbus.ConnectivityEventData
	sub, err := bus.Subscribe(eventbus.EventConnectivityChanged, func(data eventbus.ConnectivityEventData) {
		events = append(events, data)
	})
	apptest.AssertNoError(t, err)
	defer sub.Unsubscribe()

	monitor := newTestMonitor(t, &scriptedProber{states: []State{{}}}, bus)
	monitor.Apply(State{IsConnected: false})

	if len(events) != 1 {
		t.Fatalf("expected initial state to publish, got %d events", len(events))
	}
	apptest.AssertEqual(t, false, events[0].IsOnline)
}

func TestForceCheckProbesImmediately(t *testing.T) {
	prober := &scriptedProber{states: []State{
		{IsConnected: false},
		{IsConnected: true, IsInternetReachable: boolPtr(true)},
	}}
	monitor := newTestMonitor(t, prober, eventbus.New())

	monitor.Apply(prober.Check(context.Background()))
	apptest.AssertEqual(t, false, monitor.Online())

	apptest.AssertEqual(t, true, monitor.ForceCheck(context.Background()))
	apptest.AssertEqual(t, true, monitor.Online())
}

func TestStartFetchesInitialState(t *testing.T) {
	prober := &scriptedProber{states: []State{
		{IsConnected: true, IsInternetReachable: boolPtr(true)},
	}}
	monitor := newTestMonitor(t, prober, eventbus.New())

	monitor.Start(context.Background())
	defer monitor.Stop()

	apptest.AssertEqual(t, true, monitor.Online())
	if prober.calls == 0 {
		t.Fatal("expected an initial probe")
	}
}
