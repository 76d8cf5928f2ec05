package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"medula/internal/model"
)

// StorageConfig selects the blob store backing the event collection.
type StorageConfig struct {
	// Type is "file" (default), "sqlite" or "memory".
	Type string `yaml:"type" json:"type"`
	// Path is the data directory for file and sqlite storage.
	Path string `yaml:"path" json:"path"`
}

// SnapshotConfig drives the periodic full ICS export.
type SnapshotConfig struct {
	// Cron is a cron-style schedule (e.g. "0 * * * *"). Empty disables snapshots.
	Cron string `yaml:"cron" json:"cron"`
	// Path is where the exported calendar is written.
	Path string `yaml:"path" json:"path"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" envconfig:"LISTEN"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level" envconfig:"LOG_LEVEL"`

	Storage StorageConfig `yaml:"storage" json:"storage" ignored:"true"`

	// SeedOnEmpty adds three example appointments when the store loads empty.
	SeedOnEmpty bool `yaml:"seed_on_empty" json:"seed_on_empty" envconfig:"SEED_ON_EMPTY"`

	// DefaultView is used until a view has been persisted.
	DefaultView string `yaml:"default_view" json:"default_view" envconfig:"DEFAULT_VIEW"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot" ignored:"true"`

	// ImportTimeoutSeconds bounds each HTTP request made by a URL import.
	ImportTimeoutSeconds int `yaml:"import_timeout_seconds" json:"import_timeout_seconds" envconfig:"IMPORT_TIMEOUT_SECONDS"`

	// ImportAllowedHosts lists the hosts POST /api/import?url= may download
	// from. Empty disables URL import over HTTP; the CLI is not restricted.
	ImportAllowedHosts []string `yaml:"import_allowed_hosts,omitempty" json:"import_allowed_hosts,omitempty" envconfig:"IMPORT_ALLOWED_HOSTS"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" ignored:"true"`
}

// envOverrides are the nested settings that can also come from the
// environment. Only variables that are set take effect.
type envOverrides struct {
	StorageType  string `envconfig:"STORAGE_TYPE"`
	StoragePath  string `envconfig:"STORAGE_PATH"`
	SnapshotCron string `envconfig:"SNAPSHOT_CRON"`
	SnapshotPath string `envconfig:"SNAPSHOT_PATH"`
}

// EnvPrefix prefixes every environment override, e.g. MEDULA_LISTEN.
const EnvPrefix = "MEDULA"

const defaultDataDir = "./var/medula"

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		LogLevel: "info",
		Storage: StorageConfig{
			Type: "file",
			Path: defaultDataDir,
		},
		SeedOnEmpty: true,
		DefaultView: string(model.ViewMonth),
		Snapshot: SnapshotConfig{
			Path: filepath.Join(defaultDataDir, "medula_todos.ics"),
		},
		ImportTimeoutSeconds: 15,
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// files still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	switch c.LogLevel {
	case "debug", "info", "error":
	default:
		c.LogLevel = "info"
	}
	switch c.Storage.Type {
	case "file", "sqlite", "memory":
	default:
		c.Storage.Type = "file"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultDataDir
	}
	if _, ok := model.ParseView(c.DefaultView); !ok {
		c.DefaultView = string(model.ViewMonth)
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = filepath.Join(c.Storage.Path, "medula_todos.ics")
	}
	if c.ImportTimeoutSeconds <= 0 {
		c.ImportTimeoutSeconds = 15
	}
}

// Load reads the YAML file at path, applies .env and MEDULA_* environment
// overrides, and normalizes the result.
//
// A missing file is created with the defaults (0600) on first run.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := readFile(path)
	if err != nil {
		return cfg, err
	}

	// .env is optional.
	_ = godotenv.Load()

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to process environment variables: %w", err)
	}
	var o envOverrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return fmt.Errorf("failed to process environment variables: %w", err)
	}
	if o.StorageType != "" {
		cfg.Storage.Type = o.StorageType
	}
	if o.StoragePath != "" {
		cfg.Storage.Path = o.StoragePath
	}
	if o.SnapshotCron != "" {
		cfg.Snapshot.Cron = o.SnapshotCron
	}
	if o.SnapshotPath != "" {
		cfg.Snapshot.Path = o.SnapshotPath
	}
	return nil
}

// Save writes cfg to path atomically: temp file in the same directory,
// 0600, then rename. The parent directory is created with 0700.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".medula-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
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
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
