package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/internal/storage"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Storage.Driver != storage.DriverMemory {
		t.Errorf("Storage.Driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Storage.NATSBucket != storage.DefaultBucket {
		t.Errorf("Storage.NATSBucket = %q", cfg.Storage.NATSBucket)
	}
	if cfg.Events.SubjectPrefix != DefaultSubjectPrefix {
		t.Errorf("Events.SubjectPrefix = %q", cfg.Events.SubjectPrefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if !errors.Is(err, sferrors.ErrConfigNotFound) {
		t.Errorf("missing config: err = %v", err)
	}

	configJSON := `{
  "server": {
    "addr": "127.0.0.1:9000",
    "readTimeout": "5s",
    "allowedOrigins": ["https://admin.example.com"]
  },
  "storage": {
    "driver": "sqlite",
    "sqlitePath": "data/sf.db"
  },
  "export": {
    "bucket": "snapshots",
    "endpoint": "http://localhost:9000",
    "usePathStyle": true
  },
  "components": { "dir": "defs" },
  "logging": { "level": "debug", "format": "json" },
  "metrics": { "enabled": true }
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.ReadTimeout() != 5*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout())
	}
	if cfg.WriteTimeout() != 15*time.Second {
		t.Errorf("WriteTimeout default = %v", cfg.WriteTimeout())
	}
	if got := cfg.StorageOptions(); got.Driver != storage.DriverSQLite || got.SQLitePath != filepath.Join(tmpDir, "data/sf.db") {
		t.Errorf("StorageOptions = %+v", got)
	}
	if cfg.ComponentsPath() != filepath.Join(tmpDir, "defs") {
		t.Errorf("ComponentsPath = %q", cfg.ComponentsPath())
	}
	if !cfg.Export.UsePathStyle || cfg.Export.Region != "us-east-1" {
		t.Errorf("Export = %+v", cfg.Export)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel())
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{invalid"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmpDir); !errors.Is(err, sferrors.ErrConfigParse) {
		t.Errorf("err = %v, want ErrConfigParse", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAddr:     ":7000",
		EnvStorage:  "nats",
		EnvNATSURL:  "nats://nats:4222",
		EnvLogLevel: "warn",
		// Empty values do not override.
		EnvSQLitePath: "",
	}
	cfg := New()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	if cfg.Server.Addr != ":7000" || cfg.Storage.Driver != storage.DriverNATS {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Storage.NATSURL != "nats://nats:4222" || cfg.Events.NATSURL != "nats://nats:4222" {
		t.Errorf("nats urls = %q, %q", cfg.Storage.NATSURL, cfg.Events.NATSURL)
	}
	if cfg.Storage.SQLitePath != DefaultSQLitePath {
		t.Errorf("SQLitePath = %q", cfg.Storage.SQLitePath)
	}
	if cfg.LogLevel() != slog.LevelWarn {
		t.Errorf("LogLevel = %v", cfg.LogLevel())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad driver", func(c *Config) { c.Storage.Driver = "postgres" }, "storage.driver"},
		{"nats without url", func(c *Config) { c.Storage.Driver = storage.DriverNATS }, "storage.natsURL"},
		{"bad duration", func(c *Config) { c.Server.ReadTimeout = "soon" }, "server.readTimeout"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, sferrors.ErrConfigInvalid) {
				t.Fatalf("err = %v, want ErrConfigInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.Storage.Driver = storage.DriverSQLite
	cfg.Metrics.Enabled = true

	path := filepath.Join(tmpDir, ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}
	if cfg.Path() != path {
		t.Errorf("Path = %q", cfg.Path())
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Storage.Driver != storage.DriverSQLite || !loaded.Metrics.Enabled {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := FindProjectRoot(nested); !errors.Is(err, sferrors.ErrConfigNotFound) {
		t.Errorf("err = %v, want ErrConfigNotFound", err)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.Abs(tmpDir)
	if root != want {
		t.Errorf("root = %q, want %q", root, want)
	}
}
