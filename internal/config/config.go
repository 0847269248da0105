package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/internal/storage"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "storefront.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultSQLitePath is the database file used by the sqlite driver.
	DefaultSQLitePath = "storefront.db"

	// DefaultSubjectPrefix prefixes NATS event subjects.
	DefaultSubjectPrefix = "storefront"
)

// Config represents the complete storefront.json configuration.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Storage selects and configures the document backend.
	Storage StorageConfig `json:"storage,omitempty"`

	// Export configures S3 snapshots of published documents.
	Export ExportConfig `json:"export,omitempty"`

	// Events configures NATS lifecycle events.
	Events EventsConfig `json:"events,omitempty"`

	// Components configures extra component definitions.
	Components ComponentsConfig `json:"components,omitempty"`

	Logging LoggingConfig `json:"logging,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`
	Tracing TracingConfig `json:"tracing,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings. Durations use Go syntax
// ("15s", "1m").
type ServerConfig struct {
	Addr            string   `json:"addr,omitempty"`
	ReadTimeout     string   `json:"readTimeout,omitempty"`
	WriteTimeout    string   `json:"writeTimeout,omitempty"`
	ShutdownTimeout string   `json:"shutdownTimeout,omitempty"`
	AllowedOrigins  []string `json:"allowedOrigins,omitempty"`
}

// StorageConfig selects the document backend.
type StorageConfig struct {
	// Driver is one of memory, sqlite or nats.
	Driver     string `json:"driver,omitempty"`
	SQLitePath string `json:"sqlitePath,omitempty"`
	NATSURL    string `json:"natsURL,omitempty"`
	NATSBucket string `json:"natsBucket,omitempty"`
}

// ExportConfig configures S3 snapshots. An empty bucket disables export.
type ExportConfig struct {
	Bucket       string `json:"bucket,omitempty"`
	Prefix       string `json:"prefix,omitempty"`
	Region       string `json:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	UsePathStyle bool   `json:"usePathStyle,omitempty"`
}

// EventsConfig configures NATS events. An empty URL disables them.
type EventsConfig struct {
	NATSURL       string `json:"natsURL,omitempty"`
	SubjectPrefix string `json:"subjectPrefix,omitempty"`
}

// ComponentsConfig points at YAML component definitions.
type ComponentsConfig struct {
	// Dir holds *.yaml definition files, relative to the config file.
	Dir string `json:"dir,omitempty"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// MetricsConfig configures Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig configures OpenTelemetry spans.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
// It looks for storefront.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path, then applies
// defaults and environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E502").
				WithDetail("No storefront.json found in " + filepath.Dir(path))
		}
		return nil, errors.New("E501").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E501").
			WithDetail("Failed to parse storefront.json: " + err.Error()).
			WithSuggestion("Check that storefront.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	cfg.ApplyEnv(os.LookupEnv)

	return cfg, nil
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E501").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E501").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "15s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = storage.DriverMemory
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = DefaultSQLitePath
	}
	if c.Storage.NATSBucket == "" {
		c.Storage.NATSBucket = storage.DefaultBucket
	}

	if c.Export.Region == "" {
		c.Export.Region = "us-east-1"
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = DefaultSubjectPrefix
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "storefront"
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = "storefront"
	}
}

// Environment variables that override the file.
const (
	EnvAddr       = "STOREFRONT_ADDR"
	EnvStorage    = "STOREFRONT_STORAGE"
	EnvSQLitePath = "STOREFRONT_SQLITE_PATH"
	EnvNATSURL    = "STOREFRONT_NATS_URL"
	EnvLogLevel   = "STOREFRONT_LOG_LEVEL"
)

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside tests. STOREFRONT_NATS_URL sets both the KV backend and the
// event connection.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvAddr, &c.Server.Addr)
	set(EnvStorage, &c.Storage.Driver)
	set(EnvSQLitePath, &c.Storage.SQLitePath)
	set(EnvNATSURL, &c.Storage.NATSURL)
	set(EnvNATSURL, &c.Events.NATSURL)
	set(EnvLogLevel, &c.Logging.Level)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var problems []string
	for name, v := range map[string]string{
		"server.readTimeout":     c.Server.ReadTimeout,
		"server.writeTimeout":    c.Server.WriteTimeout,
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
	} {
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			problems = append(problems, name+" is not a duration: "+v)
		}
	}
	switch c.Storage.Driver {
	case storage.DriverMemory:
	case storage.DriverSQLite:
		if c.Storage.SQLitePath == "" {
			problems = append(problems, "storage.sqlitePath is required for the sqlite driver")
		}
	case storage.DriverNATS:
		if c.Storage.NATSURL == "" {
			problems = append(problems, "storage.natsURL is required for the nats driver")
		}
	default:
		problems = append(problems, "storage.driver must be memory, sqlite or nats, got "+c.Storage.Driver)
	}
	if _, ok := parseLevel(c.Logging.Level); !ok {
		problems = append(problems, "logging.level must be debug, info, warn or error, got "+c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		problems = append(problems, "logging.format must be text or json, got "+c.Logging.Format)
	}
	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return errors.New("E503").WithDetail(strings.Join(problems, "; "))
}

// ReadTimeout returns the parsed server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return duration(c.Server.ReadTimeout, 15*time.Second)
}

// WriteTimeout returns the parsed server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return duration(c.Server.WriteTimeout, 15*time.Second)
}

// ShutdownTimeout returns the parsed graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// LogLevel returns the slog level for Logging.Level.
func (c *Config) LogLevel() slog.Level {
	lvl, _ := parseLevel(c.Logging.Level)
	return lvl
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// StorageOptions converts the storage section for storage.Open. The
// SQLite path is resolved against the config directory.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:     c.Storage.Driver,
		SQLitePath: c.resolve(c.Storage.SQLitePath),
		NATSURL:    c.Storage.NATSURL,
		NATSBucket: c.Storage.NATSBucket,
	}
}

// ComponentsPath returns the absolute path to the definitions directory,
// or "" when none is configured.
func (c *Config) ComponentsPath() string {
	if c.Components.Dir == "" {
		return ""
	}
	return c.resolve(c.Components.Dir)
}

func (c *Config) resolve(path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing storefront.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E502").
				WithDetail("No storefront.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest storefront.json
// at or above the working directory. Without one it returns the defaults
// with environment overrides applied.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		cfg := New()
		cfg.ApplyEnv(os.LookupEnv)
		return cfg, nil
	}

	return Load(root)
}
