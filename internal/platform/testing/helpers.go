package testing

import (
	"testing"

	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
)

func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Server.Port = 8084
	cfg.Log.Level = "DEBUG"
	cfg.Log.Dir = ""
	cfg.Web.URL = "http://127.0.0.1:3000"
	cfg.Features.InAppPurchases = true
	cfg.Features.PushNotifications = true
	cfg.Features.Sharing = true
	cfg.Features.DeepLinking = true
	cfg.Features.DeviceInfo = true

	return cfg
}

func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	logger, err := logging.New(logging.Config{
		Level: "DEBUG",
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() {
		_ = logger.Close()
	})

	return logger
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}
