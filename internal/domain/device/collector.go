package device

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"

	"shellbridge/internal/domain/eventbus"
	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
	"shellbridge/internal/platform/securestore"
)

const logTag = "DEVICE"

const keyInstallationID = "installation_id"

// Screen is the embedded view's current display geometry, reported by
// the platform and re-sent on rotation.
type Screen struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"`
}

// Collector assembles the device-info snapshot. Every field is
// independently gated by configuration; host facts are collected once
// and reused.
type Collector struct {
	cfg    config.DeviceInfoConfig
	store  securestore.Store
	bus    *eventbus.Bus
	logger *logging.Logger

	mu     sync.RWMutex
	screen Screen

	hostOnce sync.Once
	hostInfo *host.InfoStat
}

// NewCollector creates a device-info collector.
func NewCollector(cfg config.DeviceInfoConfig, store securestore.Store, bus *eventbus.Bus, logger *logging.Logger) *Collector {
	return &Collector{cfg: cfg, store: store, bus: bus, logger: logger}
}

// UpdateScreen records new display geometry and announces the rotation
// so the snapshot can be re-sent.
func (c *Collector) UpdateScreen(screen Screen) {
	c.mu.Lock()
	c.screen = screen
	c.mu.Unlock()
	c.bus.Publish(eventbus.EventScreenChanged, screen)
}

// Collect builds the gated snapshot.
func (c *Collector) Collect(ctx context.Context) map[string]interface{} {
	include := c.cfg.Include
	data := map[string]interface{}{}

	if include.AppVersion {
		data["appVersion"] = c.cfg.AppVersion
	}
	if include.BuildNumber {
		data["buildNumber"] = c.cfg.BuildNumber
	}
	if include.BundleID {
		data["bundleId"] = c.bundleID()
	}

	info := c.host(ctx)
	if include.Platform {
		data["platform"] = runtime.GOOS
		data["isDevice"] = true
		if info != nil {
			data["platform"] = info.OS
		}
	}
	if include.OSVersion && info != nil {
		data["osVersion"] = info.PlatformVersion
	}
	if include.DeviceModel && info != nil {
		data["deviceModel"] = info.KernelArch
		data["deviceBrand"] = info.Platform
		// No year-class fact is available off-device; reported as null.
		data["deviceYearClass"] = nil
	}
	if include.DeviceID {
		if info != nil {
			data["deviceId"] = info.HostID
		}
		if id, err := c.installationID(ctx); err == nil {
			data["installationId"] = id
		} else {
			c.logger.WarnTag(logTag, "installation id unavailable: %v", err)
		}
	}
	if include.ScreenSize {
		c.mu.RLock()
		screen := c.screen
		c.mu.RUnlock()
		data["screenWidth"] = screen.Width
		data["screenHeight"] = screen.Height
		data["screenScale"] = screen.Scale
	}

	return data
}

// installationID returns the stable per-install identifier, minting and
// persisting one on first use.
func (c *Collector) installationID(ctx context.Context) (string, error) {
	raw, err := c.store.Get(ctx, keyInstallationID)
	if err == nil {
		var id string
		if uerr := sonic.Unmarshal(raw, &id); uerr == nil && id != "" {
			return id, nil
		}
	} else if !errors.Is(err, securestore.ErrNotFound) {
		return "", err
	}

	id := uuid.NewString()
	encoded, err := sonic.Marshal(id)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, keyInstallationID, encoded); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Collector) bundleID() string {
	if c.cfg.BundleIDIOS != "" {
		return c.cfg.BundleIDIOS
	}
	return c.cfg.BundleIDAndroid
}

func (c *Collector) host(ctx context.Context) *host.InfoStat {
	c.hostOnce.Do(func() {
		info, err := host.InfoWithContext(ctx)
		if err != nil {
			c.logger.WarnTag(logTag, "host info unavailable: %v", err)
			return
		}
		c.hostInfo = info
	})
	return c.hostInfo
}
