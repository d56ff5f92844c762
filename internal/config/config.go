// Package config handles the XDG configuration directory and the layered
// settings loaded from it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"tasklist/internal/locale"
	"tasklist/internal/logging"
	"tasklist/internal/slot"
)

const (
	// AppName is the application directory name.
	AppName = "tasklist"

	// SettingsFile is the TOML settings filename.
	SettingsFile = "config.toml"

	// EnvFile holds TASKLIST_* overrides next to the settings file.
	EnvFile = ".env"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// DataDir is the file backend's directory, relative to Dir.
	DataDir = "data"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TASKLIST_"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `toml:"-"`

	// Debug enables debug logging.
	Debug bool `toml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `toml:"-"`

	Storage Storage `toml:"storage"`
	UI      UI      `toml:"ui"`
	Log     Log     `toml:"log"`
	Server  Server  `toml:"server"`
}

// Storage selects the persistent slot.
type Storage struct {
	Backend       string `toml:"backend"`
	Key           string `toml:"key"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	PostgresDSN   string `toml:"postgres_dsn"`
	MySQLDSN      string `toml:"mysql_dsn"`
}

// UI holds presentation settings.
type UI struct {
	Locale   string `toml:"locale"`
	NoticeMS int    `toml:"notice_ms"`
}

// Log holds logger settings.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Server holds the HTTP API settings.
type Server struct {
	Listen string `toml:"listen"`
}

// New creates a Config with defaults and the default or specified config
// directory. Nothing is read from disk.
// If configDir is empty, uses XDG_CONFIG_HOME/tasklist or $HOME/.config/tasklist.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir}
	cfg.setDefaults()
	return cfg, nil
}

// Load builds a Config from, in increasing priority: defaults,
// <dir>/config.toml, <dir>/.env and TASKLIST_* environment variables.
// Missing files are skipped. Flags are applied by the caller, which should
// then call Validate.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	if err := cfg.loadFile(cfg.SettingsPath()); err != nil {
		return nil, err
	}

	dotenv, err := readDotenv(cfg.EnvPath())
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.loadEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) setDefaults() {
	c.Storage = Storage{
		Backend: slot.BackendFile,
		Key:     "tasks",
	}
	c.UI = UI{
		Locale:   string(locale.English),
		NoticeMS: 2000,
	}
	c.Log = Log{
		Level:  "warn",
		Format: "text",
	}
	c.Server = Server{
		Listen: "127.0.0.1:8080",
	}
}

func (c *Config) loadFile(path string) error {
	_, err := toml.DecodeFile(path, c)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

func readDotenv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return env, nil
}

func (c *Config) loadEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BACKEND":        &c.Storage.Backend,
		"KEY":            &c.Storage.Key,
		"DATA_DIR":       &c.Storage.Dir,
		"REDIS_ADDR":     &c.Storage.RedisAddr,
		"REDIS_PASSWORD": &c.Storage.RedisPassword,
		"POSTGRES_DSN":   &c.Storage.PostgresDSN,
		"MYSQL_DSN":      &c.Storage.MySQLDSN,
		"LOCALE":         &c.UI.Locale,
		"LOG_LEVEL":      &c.Log.Level,
		"LOG_FORMAT":     &c.Log.Format,
		"LISTEN":         &c.Server.Listen,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REDIS_DB":  &c.Storage.RedisDB,
		"NOTICE_MS": &c.UI.NoticeMS,
	}
	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: not a number: %q", EnvPrefix, name, v)
		}
		*dst = n
	}
	return nil
}

// Validate checks the settings after all layers are applied.
func (c *Config) Validate() error {
	if !slot.IsBackend(c.Storage.Backend) {
		return fmt.Errorf("config: unknown storage backend: %q", c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return errors.New("config: storage key must not be empty")
	}
	if c.UI.NoticeMS <= 0 {
		return fmt.Errorf("config: notice_ms must be positive: %d", c.UI.NoticeMS)
	}
	if _, err := locale.Parse(c.UI.Locale); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := logging.ParseFormatter(c.Log.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Locale returns the configured label locale, falling back to English.
func (c *Config) Locale() locale.Locale {
	l, err := locale.Parse(c.UI.Locale)
	if err != nil {
		return locale.English
	}
	return l
}

// NoticeDuration returns how long the "added" notice stays visible.
func (c *Config) NoticeDuration() time.Duration {
	return time.Duration(c.UI.NoticeMS) * time.Millisecond
}

// LogLevel returns the effective log level name; --debug wins.
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Log.Level
}

// SlotOptions maps the storage settings to slot.Options.
func (c *Config) SlotOptions() slot.Options {
	dir := c.Storage.Dir
	if dir == "" {
		dir = filepath.Join(c.Dir, DataDir)
	}
	return slot.Options{
		Backend:       c.Storage.Backend,
		Dir:           dir,
		RedisAddr:     c.Storage.RedisAddr,
		RedisPassword: c.Storage.RedisPassword,
		RedisDB:       c.Storage.RedisDB,
		PostgresDSN:   c.Storage.PostgresDSN,
		MySQLDSN:      c.Storage.MySQLDSN,
	}
}

// SettingsPath returns the path to config.toml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// EnvPath returns the path to the .env file.
func (c *Config) EnvPath() string {
	return filepath.Join(c.Dir, EnvFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
