package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ICSConfig binds a calendar identifier to an ICS holiday feed.
type ICSConfig struct {
	// ID is the calendar identifier served by this feed (e.g. "US-NY").
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the calendar list.
	Name string `yaml:"name" json:"name"`
	// URL is an http(s) endpoint or a local file path.
	URL string `yaml:"url" json:"url"`
}

// HolidaysConfig controls the holiday data providers.
type HolidaysConfig struct {
	// Builtin enables the compiled-in national calendars.
	Builtin bool `yaml:"builtin" json:"builtin"`

	// CacheSize is the number of (identifier, years) provider results kept
	// in memory. Zero disables caching.
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// CacheTTL bounds how long a cached provider result is reused.
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`

	// ICSCacheDir stores ETag/Last-Modified metadata and bodies of ICS feeds.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	// ICS is the list of identifier-bound ICS feeds.
	ICS []ICSConfig `yaml:"ics" json:"ics"`
}

// OverridesConfig describes where custom calendar overrides live.
type OverridesConfig struct {
	// Driver is "file" (JSON or YAML by extension) or "sqlite".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the rules file or the SQLite database path.
	Path string `yaml:"path" json:"path"`
	// Reload is a cron-style schedule (e.g. "@every 5m") for re-reading
	// overrides. Empty disables periodic reloads.
	Reload string `yaml:"reload" json:"reload"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	Log       LogConfig       `yaml:"log" json:"log"`
	Overrides OverridesConfig `yaml:"overrides" json:"overrides"`
	Holidays  HolidaysConfig  `yaml:"holidays" json:"holidays"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen        = "127.0.0.1:8080"
	defaultOverridesPath = "custom_rules.json"
	defaultReload        = "@every 5m"
	defaultCacheSize     = 256
	defaultCacheTTL      = time.Hour
	defaultICSCacheDir   = "./cache/ics"
)

// DefaultICSFeeds are the public holiday feeds written into a fresh config
// for countries the built-in tables do not cover.
func DefaultICSFeeds() []ICSConfig {
	return []ICSConfig{
		{
			ID:   "CN",
			Name: "China (public holidays feed)",
			URL:  "https://calendar.google.com/calendar/ical/en.china%23holiday%40group.v.calendar.google.com/public/basic.ics",
		},
		{
			ID:   "IN",
			Name: "India (public holidays feed)",
			URL:  "https://calendar.google.com/calendar/ical/en.indian%23holiday%40group.v.calendar.google.com/public/basic.ics",
		},
	}
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Listen: defaultListen,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Overrides: OverridesConfig{
			Driver: "file",
			Path:   defaultOverridesPath,
			Reload: defaultReload,
		},
		Holidays: HolidaysConfig{
			Builtin:     true,
			CacheSize:   defaultCacheSize,
			CacheTTL:    defaultCacheTTL,
			ICSCacheDir: defaultICSCacheDir,
			ICS:         DefaultICSFeeds(),
		},
		BasicAuth: nil,
	}
}

// Normalize replaces zero or unknown values with defaults.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	switch strings.ToLower(c.Overrides.Driver) {
	case "file", "sqlite":
		c.Overrides.Driver = strings.ToLower(c.Overrides.Driver)
	default:
		// Unknown or empty driver; fall back to the rules file.
		c.Overrides.Driver = "file"
	}
	if c.Overrides.Path == "" {
		if c.Overrides.Driver == "sqlite" {
			c.Overrides.Path = "custom_rules.db"
		} else {
			c.Overrides.Path = defaultOverridesPath
		}
	}

	if c.Holidays.CacheSize < 0 {
		c.Holidays.CacheSize = 0
	}
	if c.Holidays.CacheTTL <= 0 {
		c.Holidays.CacheTTL = defaultCacheTTL
	}
	if c.Holidays.ICSCacheDir == "" {
		c.Holidays.ICSCacheDir = defaultICSCacheDir
	}
	if c.Holidays.ICS == nil {
		c.Holidays.ICS = []ICSConfig{}
	}
}

// Load reads the YAML config at path on top of DefaultConfig. A missing file
// is created with the defaults (0600) on first run; a failed write still
// returns the defaults together with the error. BIZDAY_* environment
// variables win over both.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				applyEnvOverrides(cfg)
				cfg.Normalize()
				return cfg, err
			}
			applyEnvOverrides(cfg)
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}

	// Start from defaults so that keys absent from the file keep their
	// default value (notably holidays.builtin). The overrides path is left
	// blank: its default depends on the driver and is filled by Normalize.
	cfg := DefaultConfig()
	cfg.Overrides.Path = ""
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	cfg.Normalize()

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BIZDAY_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("BIZDAY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BIZDAY_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BIZDAY_OVERRIDES_DRIVER"); v != "" {
		cfg.Overrides.Driver = v
	}
	if v := os.Getenv("BIZDAY_OVERRIDES_PATH"); v != "" {
		cfg.Overrides.Path = v
	}

	user := os.Getenv("BIZDAY_BASIC_AUTH_USER")
	pass := os.Getenv("BIZDAY_BASIC_AUTH_PASSWORD")
	if user != "" && pass != "" {
		cfg.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}
}

// Save normalizes cfg and writes it as YAML with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory followed by a rename, creating the parent directory if needed.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bizday-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// No-op once the rename succeeded.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
