package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// StoreConfig selects and configures the layout persistence backend.
type StoreConfig struct {
	Backend          string   `yaml:"backend"`
	SQLitePath       string   `yaml:"sqlite_path"`
	FirestoreProject string   `yaml:"firestore_project"`
	FlushInterval    Duration `yaml:"flush_interval"`
}

// Config is the server configuration, loadable from a YAML file.
type Config struct {
	Addr             string      `yaml:"addr"`
	Store            StoreConfig `yaml:"store"`
	AutosaveInterval Duration    `yaml:"autosave_interval"`
	RegistryPath     string      `yaml:"registry_path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr: ":8080",
		Store: StoreConfig{
			Backend:       BackendMemory,
			SQLitePath:    "layouts.db",
			FlushInterval: Duration(5 * time.Second),
		},
		AutosaveInterval: Duration(30 * time.Second),
	}
}

// Load reads a YAML config file, filling unset fields with defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite, BackendFirestore:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendFirestore && c.Store.FirestoreProject == "" {
		return fmt.Errorf("firestore backend requires firestore_project")
	}
	return nil
}
