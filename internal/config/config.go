package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for wpm.
type Config struct {
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	Source      SourceConfig      `toml:"source"`
	Destination DestinationConfig `toml:"destination"`
	Output      OutputConfig      `toml:"output"`
	Database    DatabaseConfig    `toml:"database"`
	Archive     ArchiveConfig     `toml:"archive"`
	Encryption  EncryptionConfig  `toml:"encryption"`
}

// SourceConfig describes the WordPress site content is read from.
type SourceConfig struct {
	BaseURL           string  `toml:"base_url"`
	PerPage           int     `toml:"per_page"`
	RequestsPerSecond float64 `toml:"requests_per_second"` // 0 disables client-side throttling
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// DestinationConfig describes the Contentful space/environment content is written to.
type DestinationConfig struct {
	SpaceID           string  `toml:"space_id"`
	Environment       string  `toml:"environment"`
	Token             string  `toml:"token,omitempty"` // usually supplied via CONTENTFUL_MANAGEMENT_TOKEN
	Locale            string  `toml:"locale"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	AssetPollAttempts int     `toml:"asset_poll_attempts"`
	AssetPollInterval int     `toml:"asset_poll_interval_ms"`
	ConflictRetries   int     `toml:"conflict_retries"` // 0 makes a version conflict fatal
	ConflictBackoffMS int     `toml:"conflict_backoff_ms"`
}

// OutputConfig holds paths of files produced by a run.
type OutputConfig struct {
	RedirectsPath string `toml:"redirects_path"`
}

// DatabaseConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ArchiveConfig represents configuration for the run artifact archive.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "none" (default), "memory", "filesystem" or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"` // S3-compatible stores; enables path-style addressing
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for archive encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// Defaults applied by NewConfig and when a field is left empty in the file.
const (
	DefaultBaseURL           = "https://www.mamatulia.org"
	DefaultPerPage           = 100
	DefaultEnvironment       = "master"
	DefaultLocale            = "en-US"
	DefaultAssetPollAttempts = 20
	DefaultAssetPollInterval = 1500
	DefaultTimeoutSeconds    = 60
	DefaultRequestsPerSecond = 7
)

// NewConfig creates a new Config rooted at baseDir with default values.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Source: SourceConfig{
			BaseURL:        DefaultBaseURL,
			PerPage:        DefaultPerPage,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Destination: DestinationConfig{
			Environment:       DefaultEnvironment,
			Locale:            DefaultLocale,
			RequestsPerSecond: DefaultRequestsPerSecond,
			TimeoutSeconds:    DefaultTimeoutSeconds,
			AssetPollAttempts: DefaultAssetPollAttempts,
			AssetPollInterval: DefaultAssetPollInterval,
		},
		Output: OutputConfig{
			RedirectsPath: "redirects.csv",
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Archive: ArchiveConfig{Type: "none"},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "wpm.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "wpm.key"),
		},
	}
}

// fillDefaults sets zero-valued fields that have a sensible default.
func (c *Config) fillDefaults() {
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = DefaultBaseURL
	}
	if c.Source.PerPage <= 0 {
		c.Source.PerPage = DefaultPerPage
	}
	if c.Source.TimeoutSeconds <= 0 {
		c.Source.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Destination.Environment == "" {
		c.Destination.Environment = DefaultEnvironment
	}
	if c.Destination.Locale == "" {
		c.Destination.Locale = DefaultLocale
	}
	if c.Destination.TimeoutSeconds <= 0 {
		c.Destination.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Destination.AssetPollAttempts <= 0 {
		c.Destination.AssetPollAttempts = DefaultAssetPollAttempts
	}
	if c.Destination.AssetPollInterval <= 0 {
		c.Destination.AssetPollInterval = DefaultAssetPollInterval
	}
	if c.Output.RedirectsPath == "" {
		c.Output.RedirectsPath = "redirects.csv"
	}
}

// ApplyEnv overrides config values with the environment variables the
// importer has always honoured. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("WORDPRESS_BASE_URL"); v != "" {
		c.Source.BaseURL = v
	}
	if v := getenv("WORDPRESS_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Source.PerPage = n
		}
	}
	if v := getenv("CONTENTFUL_SPACE_ID"); v != "" {
		c.Destination.SpaceID = v
	}
	if v := getenv("CONTENTFUL_ENVIRONMENT"); v != "" {
		c.Destination.Environment = v
	}
	if v := getenv("CONTENTFUL_MANAGEMENT_TOKEN"); v != "" {
		c.Destination.Token = v
	}
}

// Validate reports the first required setting that is missing.
func (c *Config) Validate() error {
	if c.Source.BaseURL == "" {
		return errors.New("missing source base_url (WORDPRESS_BASE_URL)")
	}
	if c.Destination.SpaceID == "" {
		return errors.New("missing CONTENTFUL_SPACE_ID")
	}
	if c.Destination.Token == "" {
		return errors.New("missing CONTENTFUL_MANAGEMENT_TOKEN")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.fillDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file at path if it exists, falling back to defaults
// rooted at baseDir, then applies environment overrides. The result is not
// validated; commands that talk to Contentful call Validate themselves.
func Load(path, baseDir string, getenv func(string) string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); err == nil {
		cfg, err = ReadFromFile(path)
		if err != nil {
			return nil, err
		}
		if cfg.BaseDir == "" {
			cfg.BaseDir = baseDir
		}
		if cfg.LogDir == "" {
			cfg.LogDir = filepath.Join(cfg.BaseDir, "log")
		}
	} else if os.IsNotExist(err) {
		cfg = NewConfig(baseDir)
	} else {
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	cfg.ApplyEnv(getenv)
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold a management token.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
