package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/skobkin/debugpanel/internal/transport"
)

const (
	DefaultHost             = "127.0.0.1"
	DefaultPort             = 5000
	DefaultConnectTimeoutMS = 3000
	DefaultReadTimeoutMS    = 250
	DefaultWriteTimeoutMS   = 3000
	DefaultTickIntervalMS   = 10
	DefaultMaxItems         = 500
)

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level"`
	LogToFile bool   `json:"log_to_file"`
}

// ConnectionConfig holds the last used debugger endpoint and socket tuning.
type ConnectionConfig struct {
	Host             string `json:"host"`
	Port             int    `json:"port"`
	ConnectTimeoutMS int    `json:"connect_timeout_ms"`
	ReadTimeoutMS    int    `json:"read_timeout_ms"`
	WriteTimeoutMS   int    `json:"write_timeout_ms"`
	TickIntervalMS   int    `json:"tick_interval_ms"`
	Framing          string `json:"framing"`
}

func (c ConnectionConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

func (c ConnectionConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

func (c ConnectionConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

func (c ConnectionConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// UIConfig stores persistent panel preferences.
type UIConfig struct {
	PanelVisible  bool               `json:"panel_visible"`
	MaxItems      int                `json:"max_items"`
	Notifications NotificationConfig `json:"notifications"`
}

// NotificationConfig stores desktop notification toggles.
type NotificationConfig struct {
	ConnectionStatus  bool `json:"connection_status"`
	NotifyWhenFocused bool `json:"notify_when_focused"`
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Connection ConnectionConfig `json:"connection"`
	Logging    LoggingConfig    `json:"logging"`
	UI         UIConfig         `json:"ui"`
}

func Default() AppConfig {
	return AppConfig{
		Connection: ConnectionConfig{
			Host:             DefaultHost,
			Port:             DefaultPort,
			ConnectTimeoutMS: DefaultConnectTimeoutMS,
			ReadTimeoutMS:    DefaultReadTimeoutMS,
			WriteTimeoutMS:   DefaultWriteTimeoutMS,
			TickIntervalMS:   DefaultTickIntervalMS,
			Framing:          string(transport.FramingRaw),
		},
		Logging: LoggingConfig{
			Level:     "info",
			LogToFile: false,
		},
		UI: UIConfig{
			PanelVisible: true,
			MaxItems:     DefaultMaxItems,
			Notifications: NotificationConfig{
				ConnectionStatus: true,
			},
		},
	}
}

// Load reads the config file, tolerating comments and trailing commas.
// A missing file yields defaults.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(raw), &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	if strings.TrimSpace(c.Connection.Host) == "" {
		c.Connection.Host = DefaultHost
	}
	if c.Connection.Port <= 0 {
		c.Connection.Port = DefaultPort
	}
	if c.Connection.ConnectTimeoutMS <= 0 {
		c.Connection.ConnectTimeoutMS = DefaultConnectTimeoutMS
	}
	if c.Connection.ReadTimeoutMS <= 0 {
		c.Connection.ReadTimeoutMS = DefaultReadTimeoutMS
	}
	if c.Connection.WriteTimeoutMS <= 0 {
		c.Connection.WriteTimeoutMS = DefaultWriteTimeoutMS
	}
	if c.Connection.TickIntervalMS <= 0 {
		c.Connection.TickIntervalMS = DefaultTickIntervalMS
	}
	if strings.TrimSpace(c.Connection.Framing) == "" {
		c.Connection.Framing = string(transport.FramingRaw)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.UI.MaxItems <= 0 {
		c.UI.MaxItems = DefaultMaxItems
	}
}

func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.Connection.Host) == "" {
		return errors.New("debugger host is required")
	}
	if c.Connection.Port < 1 || c.Connection.Port > 65535 {
		return fmt.Errorf("debugger port out of range: %d", c.Connection.Port)
	}
	if _, err := transport.ParseFraming(c.Connection.Framing); err != nil {
		return err
	}
	if c.Connection.ReadTimeoutMS <= 0 || c.Connection.ConnectTimeoutMS <= 0 || c.Connection.WriteTimeoutMS <= 0 {
		return errors.New("socket timeouts must be positive")
	}
	if c.Connection.TickIntervalMS <= 0 {
		return errors.New("tick interval must be positive")
	}

	return nil
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
