// Package storage holds durable client-side key/value backends used to
// remember the last authenticated identity across restarts.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Durable is a small string key/value store that survives process restarts.
type Durable interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Supported drivers.
const (
	DriverFile   = "file"
	DriverPebble = "pebble"
	DriverRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver   string `json:"driver"`
	Path     string `json:"path,omitempty"`
	RedisURL string `json:"redis_url,omitempty"`
}

// Open builds the backend named by opts.Driver. An empty driver means file.
func Open(ctx context.Context, opts Options) (Durable, error) {
	switch opts.Driver {
	case "", DriverFile:
		return NewFileStore(opts.Path)
	case DriverPebble:
		return OpenPebble(opts.Path)
	case DriverRedis:
		return NewRedisStore(ctx, opts.RedisURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// DefaultPath returns the per-user location for durable state.
func DefaultPath(name string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "campus-chat", name), nil
}
