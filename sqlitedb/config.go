package sqlitedb

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-mizu/rowmap"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config describes how to open a connection.
type Config struct {
	Path     string `json:"path"`
	ReadOnly bool   `json:"read_only"`

	// JournalMode is applied to writable file databases. Defaults to WAL.
	JournalMode JournalMode `json:"journal_mode"`

	BusyTimeout       time.Duration `json:"-"`
	BusyTimeoutString string        `json:"busy_timeout"`

	// Defaults copied to every statement the connection prepares.
	ArrayStrategy rowmap.ArrayStrategy `json:"array_strategy"`
	DateStrategy  rowmap.DateStrategy  `json:"date_strategy"`

	Logger *slog.Logger `json:"-"`
}

// InMemory reports whether the configuration names an in-memory database.
func (c Config) InMemory() bool {
	p := strings.TrimSpace(c.Path)
	return p == "" || p == MemoryPath ||
		strings.HasPrefix(p, "file::memory:") || strings.Contains(p, "mode=memory")
}

// Overlay holds settings that were given explicitly, by the environment or
// by command-line flags. A nil field leaves the underlying value alone, so
// an overlay can also restore a zero value such as read_only=false.
type Overlay struct {
	Path          *string
	ReadOnly      *bool
	JournalMode   *JournalMode
	BusyTimeout   *time.Duration
	ArrayStrategy *rowmap.ArrayStrategy
	DateStrategy  *rowmap.DateStrategy
}

// Merge returns c with every field present in o replacing its own.
func (c Config) Merge(o Overlay) Config {
	result := c
	if o.Path != nil {
		result.Path = strings.TrimSpace(*o.Path)
	}
	if o.ReadOnly != nil {
		result.ReadOnly = *o.ReadOnly
	}
	if o.JournalMode != nil {
		result.JournalMode = *o.JournalMode
	}
	if o.BusyTimeout != nil {
		result.BusyTimeout = *o.BusyTimeout
		result.BusyTimeoutString = o.BusyTimeout.String()
	}
	if o.ArrayStrategy != nil {
		result.ArrayStrategy = *o.ArrayStrategy
	}
	if o.DateStrategy != nil {
		result.DateStrategy = *o.DateStrategy
	}
	return result
}

// LoadConfig reads an optional JSON file (path may be empty), overlays the
// ROWMAP_* environment variables and then each of overlays in order.
// The variables are ROWMAP_PATH, ROWMAP_READ_ONLY, ROWMAP_JOURNAL_MODE,
// ROWMAP_BUSY_TIMEOUT, ROWMAP_ARRAY_STRATEGY and ROWMAP_DATE_STRATEGY.
// Defaults are applied last, so they follow the final path.
func LoadConfig(path string, overlays ...Overlay) (Config, error) {
	cfg := Config{}
	if path = strings.TrimSpace(path); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}
	env, err := loadConfigEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(env)
	for _, o := range overlays {
		cfg = cfg.Merge(o)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Path) == "" {
		c.Path = MemoryPath
	}
	if c.JournalMode == "" {
		if c.InMemory() {
			c.JournalMode = JournalMemory
		} else {
			c.JournalMode = JournalWAL
		}
	}
	if c.BusyTimeout <= 0 {
		if c.BusyTimeoutString != "" {
			if parsed, err := time.ParseDuration(c.BusyTimeoutString); err == nil {
				c.BusyTimeout = parsed
			}
		}
		if c.BusyTimeout <= 0 {
			c.BusyTimeout = 5 * time.Second
		}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Validate reports configuration values that cannot be applied.
func (c Config) Validate() error {
	if c.JournalMode != "" {
		if _, err := ParseJournalMode(string(c.JournalMode)); err != nil {
			return err
		}
	}
	if c.BusyTimeoutString != "" {
		if _, err := time.ParseDuration(c.BusyTimeoutString); err != nil {
			return fmt.Errorf("sqlitedb: parse busy_timeout: %w", err)
		}
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlitedb: negative busy timeout %s", c.BusyTimeout)
	}
	return nil
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read sqlitedb config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse sqlitedb config: %w", err)
	}
	return cfg, nil
}

// lookupEnv returns the trimmed value of key and whether it is non-empty.
func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func loadConfigEnv() (Overlay, error) {
	var o Overlay
	if path, ok := lookupEnv("ROWMAP_PATH"); ok {
		o.Path = &path
	}
	if ro, ok := lookupEnv("ROWMAP_READ_ONLY"); ok {
		value, err := strconv.ParseBool(ro)
		if err != nil {
			return Overlay{}, fmt.Errorf("parse ROWMAP_READ_ONLY: %w", err)
		}
		o.ReadOnly = &value
	}
	if mode, ok := lookupEnv("ROWMAP_JOURNAL_MODE"); ok {
		m, err := ParseJournalMode(mode)
		if err != nil {
			return Overlay{}, fmt.Errorf("parse ROWMAP_JOURNAL_MODE: %w", err)
		}
		o.JournalMode = &m
	}
	if busy, ok := lookupEnv("ROWMAP_BUSY_TIMEOUT"); ok {
		d, err := time.ParseDuration(busy)
		if err != nil {
			return Overlay{}, fmt.Errorf("parse ROWMAP_BUSY_TIMEOUT: %w", err)
		}
		o.BusyTimeout = &d
	}
	if s, ok := lookupEnv("ROWMAP_ARRAY_STRATEGY"); ok {
		v, err := rowmap.ParseArrayStrategy(s)
		if err != nil {
			return Overlay{}, fmt.Errorf("parse ROWMAP_ARRAY_STRATEGY: %w", err)
		}
		o.ArrayStrategy = &v
	}
	if s, ok := lookupEnv("ROWMAP_DATE_STRATEGY"); ok {
		v, err := rowmap.ParseDateStrategy(s)
		if err != nil {
			return Overlay{}, fmt.Errorf("parse ROWMAP_DATE_STRATEGY: %w", err)
		}
		o.DateStrategy = &v
	}
	return o, nil
}
