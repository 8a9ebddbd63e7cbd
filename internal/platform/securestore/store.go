package securestore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("securestore: key not found")

// Store persists small JSON payloads keyed by name. It stands in for the
// platform secure storage the shell would use on device: session
// credentials and the IAP cache both live here.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver    string
	Namespace string
	Redis     *RedisConfig
	SQLite    *SQLiteConfig
}

// SQLiteConfig provides the database dependency.
type SQLiteConfig struct {
	DSN string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
