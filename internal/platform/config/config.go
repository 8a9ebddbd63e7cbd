package config

import (
	"time"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Web        WebConfig        `yaml:"web"`
	Features   FeatureConfig    `yaml:"features"`
	Store      StoreConfig      `yaml:"store"`
	Push       PushConfig       `yaml:"push"`
	IAP        IAPConfig        `yaml:"iap"`
	DeepLink   DeepLinkConfig   `yaml:"deep_link"`
	DeviceInfo DeviceInfoConfig `yaml:"device_info"`
	Network    NetworkConfig    `yaml:"network"`
}

type ServerConfig struct {
	IP            string `yaml:"ip"`
	Port          int    `yaml:"port"`
	WebsocketPath string `yaml:"websocket_path"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// WebConfig describes the embedded web content surface.
type WebConfig struct {
	// URL is the remotely hosted web application rendered by the shell.
	URL string `yaml:"url"`
	// StaticDir optionally serves local web content during development.
	StaticDir string `yaml:"static_dir"`
	AppTitle  string `yaml:"app_title"`
	AppSlug   string `yaml:"app_slug"`
}

// FeatureConfig gates the native capabilities exposed to the web content.
type FeatureConfig struct {
	PushNotifications bool `yaml:"push_notifications"`
	Sharing           bool `yaml:"sharing"`
	DeepLinking       bool `yaml:"deep_linking"`
	InAppPurchases    bool `yaml:"in_app_purchases"`
	OfflineMode       bool `yaml:"offline_mode"`
	DeviceInfo        bool `yaml:"device_info"`
}

// StoreConfig selects the secure persistence driver.
type StoreConfig struct {
	Driver    string            `yaml:"driver"`
	Namespace string            `yaml:"namespace"`
	Redis     RedisStoreConfig  `yaml:"redis,omitempty"`
	SQLite    SQLiteStoreConfig `yaml:"sqlite,omitempty"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SQLiteStoreConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// PushConfig tunes push token registration retries.
type PushConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Timeout      time.Duration `yaml:"timeout"`
	// Token is the platform push token handed to the shell by the
	// notification service.
	Token string `yaml:"token,omitempty"`
}

type IAPConfig struct {
	// SDKBaseURL locates the purchase-service collaborator.
	SDKBaseURL      string            `yaml:"sdk_base_url"`
	APIKeyIOS       string            `yaml:"api_key_ios"`
	APIKeyAndroid   string            `yaml:"api_key_android"`
	UserIDMode      string            `yaml:"user_id_mode"`
	DefaultOffering string            `yaml:"default_offering"`
	Entitlements    EntitlementConfig `yaml:"entitlements"`
	Backend         IAPBackendConfig  `yaml:"backend"`
	AutoSyncBackend bool              `yaml:"auto_sync_backend"`
	AllowRestore    bool              `yaml:"allow_restore"`
	Messages        IAPMessageConfig  `yaml:"messages"`
}

type EntitlementConfig struct {
	Premium string `yaml:"premium"`
}

type IAPBackendConfig struct {
	BaseURL      string `yaml:"base_url"`
	SyncEndpoint string `yaml:"sync_endpoint"`
}

type IAPMessageConfig struct {
	PurchaseCancelled string `yaml:"purchase_cancelled"`
	PurchaseFailed    string `yaml:"purchase_failed"`
	RestoreFailed     string `yaml:"restore_failed"`
}

type DeepLinkConfig struct {
	Scheme            string        `yaml:"scheme"`
	AssociatedDomains []string      `yaml:"associated_domains"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
}

type DeviceInfoConfig struct {
	AppVersion      string            `yaml:"app_version"`
	BuildNumber     string            `yaml:"build_number"`
	BundleIDIOS     string            `yaml:"bundle_id_ios"`
	BundleIDAndroid string            `yaml:"bundle_id_android"`
	Include         DeviceInfoInclude `yaml:"include"`
}

type DeviceInfoInclude struct {
	AppVersion  bool `yaml:"app_version"`
	BuildNumber bool `yaml:"build_number"`
	BundleID    bool `yaml:"bundle_id"`
	Platform    bool `yaml:"platform"`
	OSVersion   bool `yaml:"os_version"`
	DeviceModel bool `yaml:"device_model"`
	DeviceID    bool `yaml:"device_id"`
	ScreenSize  bool `yaml:"screen_size"`
}

type NetworkConfig struct {
	ProbeURL      string        `yaml:"probe_url"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}
