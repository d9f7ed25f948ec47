package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/VinMeld/campus-chat/internal/popup"
	"github.com/VinMeld/campus-chat/internal/storage"
	"github.com/VinMeld/campus-chat/internal/transcript"
	"github.com/VinMeld/campus-chat/internal/transport"
)

type PopupConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Screen size the login window is centered on.
	ScreenWidth  int    `json:"screen_width,omitempty"`
	ScreenHeight int    `json:"screen_height,omitempty"`
	ChromePath   string `json:"chrome_path,omitempty"`
	Headless     bool   `json:"headless,omitempty"`
}

type Config struct {
	ServerURL        string          `json:"server_url"`
	Storage          storage.Options `json:"storage"`
	RevealIntervalMS int             `json:"reveal_interval_ms"`
	LogLevel         string          `json:"log_level"`
	Popup            PopupConfig     `json:"popup"`
}

func defaultConfig() *Config {
	return &Config{
		ServerURL:        transport.DefaultServerURL,
		Storage:          storage.Options{Driver: storage.DriverFile},
		RevealIntervalMS: int(transcript.DefaultInterval / time.Millisecond),
		LogLevel:         "warn",
		Popup:            PopupConfig{Width: popup.DefaultWidth, Height: popup.DefaultHeight},
	}
}

// PopupGeometry centers the configured login window on the screen.
func (c *Config) PopupGeometry() popup.Geometry {
	w, h := c.Popup.Width, c.Popup.Height
	if w <= 0 || h <= 0 {
		w, h = popup.DefaultWidth, popup.DefaultHeight
	}
	screen := popup.DefaultScreen
	if c.Popup.ScreenWidth > 0 && c.Popup.ScreenHeight > 0 {
		screen = popup.Geometry{Width: c.Popup.ScreenWidth, Height: c.Popup.ScreenHeight}
	}
	return popup.Centered(screen, w, h)
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "campus-chat", "config.json"), nil
}

// loadEnv reads a .env file from the working directory if there is one.
func loadEnv() {
	_ = godotenv.Load()
}

// EffectiveServerURL is the backend URL after the environment override.
// It is never written back to the config file.
func (c *Config) EffectiveServerURL() string {
	if v := strings.TrimSpace(os.Getenv(transport.BackendURLEnv)); v != "" {
		return v
	}
	return c.ServerURL
}

// RevealInterval is the configured per-character reveal delay.
func (c *Config) RevealInterval() time.Duration {
	if c.RevealIntervalMS <= 0 {
		return transcript.DefaultInterval
	}
	return time.Duration(c.RevealIntervalMS) * time.Millisecond
}

// StorageOptions fills in the default on-disk location for the durable
// session store.
func (c *Config) StorageOptions() (storage.Options, error) {
	opts := c.Storage
	if opts.Path != "" || opts.Driver == storage.DriverRedis {
		return opts, nil
	}
	name := "session.json"
	if opts.Driver == storage.DriverPebble {
		name = "session.pebble"
	}
	path, err := storage.DefaultPath(name)
	if err != nil {
		return opts, err
	}
	opts.Path = path
	return opts, nil
}
