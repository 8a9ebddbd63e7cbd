package config

import "time"

// DefaultConfig returns the baseline configuration for a new shell build.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:            "0.0.0.0",
			Port:          8084,
			WebsocketPath: "/bridge",
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "shellbridge.log",
		},
		Web: WebConfig{
			URL:      "https://example.com",
			AppTitle: "Base App",
			AppSlug:  "app-base",
		},
		Features: FeatureConfig{
			PushNotifications: true,
			Sharing:           true,
			DeepLinking:       true,
			InAppPurchases:    false,
			OfflineMode:       true,
			DeviceInfo:        true,
		},
		Store: StoreConfig{
			Driver:    "memory",
			Namespace: "shellbridge",
		},
		Push: PushConfig{
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Timeout:      10 * time.Second,
		},
		IAP: IAPConfig{
			UserIDMode:      "custom",
			DefaultOffering: "default",
			Entitlements: EntitlementConfig{
				Premium: "premium",
			},
			Backend: IAPBackendConfig{
				SyncEndpoint: "/api/users/:userId/subscription/sync",
			},
			AutoSyncBackend: true,
			AllowRestore:    true,
			Messages: IAPMessageConfig{
				PurchaseCancelled: "Purchase was cancelled.",
				PurchaseFailed:    "Purchase failed. Please try again.",
				RestoreFailed:     "Failed to restore purchases. Please try again.",
			},
		},
		DeepLink: DeepLinkConfig{
			Scheme:      "baseapp",
			SettleDelay: time.Second,
		},
		DeviceInfo: DeviceInfoConfig{
			AppVersion:      "1.0.0",
			BuildNumber:     "1",
			BundleIDIOS:     "com.example.baseapp",
			BundleIDAndroid: "com.example.baseapp",
			Include: DeviceInfoInclude{
				AppVersion:  true,
				BuildNumber: true,
				BundleID:    true,
				Platform:    true,
				OSVersion:   true,
				DeviceModel: true,
				DeviceID:    true,
				ScreenSize:  true,
			},
		},
		Network: NetworkConfig{
			ProbeURL:      "https://clients3.google.com/generate_204",
			ProbeInterval: 15 * time.Second,
			ProbeTimeout:  5 * time.Second,
		},
	}
}
