package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the thread scraper
type Config struct {
	// Imageboard API hosts
	Chan ChanConfig `yaml:"chan" json:"chan"`

	// Output path and naming settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Thread cache settings
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Sync and download behavior
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ChanConfig holds the remote API endpoints and request settings
type ChanConfig struct {
	MetadataHost   string        `yaml:"metadata_host" json:"metadata_host"`
	FileHost       string        `yaml:"file_host" json:"file_host"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// OutputConfig holds destination path configuration
type OutputConfig struct {
	// BasePath is the directory every rendered path is joined under.
	BasePath string `yaml:"base_path" json:"base_path"`
	// Structure is the %(key) naming template for downloaded files.
	Structure string `yaml:"structure" json:"structure"`
	// TitleLength caps the thread title derived from the OP comment.
	TitleLength int `yaml:"title_length" json:"title_length"`
}

// CacheConfig holds thread cache configuration
type CacheConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// ScrapeConfig holds sync and download behavior configuration
type ScrapeConfig struct {
	// ModifiedSince controls conditional fetching: ignore, reuse or stop.
	ModifiedSince string `yaml:"modified_since" json:"modified_since"`
	// OnMatch controls collision handling: append, replace, skip or stop.
	OnMatch string `yaml:"on_match" json:"on_match"`
	// Reverse iterates posts newest-first when extracting files.
	Reverse bool `yaml:"reverse" json:"reverse"`
	// Clean removes the cache entry of a thread whose OP is archived.
	Clean bool `yaml:"clean" json:"clean"`
	// PaceInterval is the minimum wall-clock spacing between file requests.
	PaceInterval time.Duration `yaml:"pace_interval" json:"pace_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Chan: ChanConfig{
			MetadataHost:   "https://a.4cdn.org",
			FileHost:       "https://i.4cdn.org",
			UserAgent:      "sukureipu/1.0",
			RequestTimeout: 30 * time.Second,
		},
		Output: OutputConfig{
			BasePath:    ".",
			Structure:   "%(board)/%(thread)/%(id)",
			TitleLength: 16,
		},
		Cache: CacheConfig{
			Directory: filepath.Join(home, ".cache", "sukureipu"),
		},
		Scrape: ScrapeConfig{
			ModifiedSince: "reuse",
			OnMatch:       "skip",
			Reverse:       false,
			Clean:         false,
			PaceInterval:  time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("SUKUREIPU_METADATA_HOST"); host != "" {
		c.Chan.MetadataHost = host
	}
	if host := os.Getenv("SUKUREIPU_FILE_HOST"); host != "" {
		c.Chan.FileHost = host
	}
	if base := os.Getenv("SUKUREIPU_PATH"); base != "" {
		c.Output.BasePath = base
	}
	if structure := os.Getenv("SUKUREIPU_STRUCTURE"); structure != "" {
		c.Output.Structure = structure
	}
	if dir := os.Getenv("SUKUREIPU_CACHE_DIR"); dir != "" {
		c.Cache.Directory = dir
	}
	if mode := os.Getenv("SUKUREIPU_MODIFIED_SINCE"); mode != "" {
		c.Scrape.ModifiedSince = mode
	}
	if action := os.Getenv("SUKUREIPU_ON_MATCH"); action != "" {
		c.Scrape.OnMatch = action
	}
	if level := os.Getenv("SUKUREIPU_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".sukureipu.yaml",
		".sukureipu.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "sukureipu", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "sukureipu", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".sukureipu.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Unknown mode strings are a
// hard error rather than silently mapping to an undefined behavior.
func (c *Config) Validate() error {
	var errs []error

	if c.Chan.MetadataHost == "" {
		errs = append(errs, errors.New("metadata host is required"))
	}
	if c.Chan.FileHost == "" {
		errs = append(errs, errors.New("file host is required"))
	}
	if c.Chan.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Output.BasePath == "" {
		errs = append(errs, errors.New("output base path is required"))
	}
	if c.Output.Structure == "" {
		errs = append(errs, errors.New("structure template is required"))
	}
	if c.Output.TitleLength <= 0 {
		errs = append(errs, errors.New("title length must be positive"))
	}

	if c.Cache.Directory == "" {
		errs = append(errs, errors.New("cache directory is required"))
	}

	validModes := map[string]bool{
		"ignore": true, "reuse": true, "stop": true,
	}
	if !validModes[strings.ToLower(c.Scrape.ModifiedSince)] {
		errs = append(errs, fmt.Errorf("modified-since must be \"ignore\", \"reuse\" or \"stop\", got %q", c.Scrape.ModifiedSince))
	}

	validActions := map[string]bool{
		"append": true, "replace": true, "skip": true, "stop": true,
	}
	if !validActions[strings.ToLower(c.Scrape.OnMatch)] {
		errs = append(errs, fmt.Errorf("on-match must be \"append\", \"replace\", \"skip\" or \"stop\", got %q", c.Scrape.OnMatch))
	}

	if c.Scrape.PaceInterval <= 0 {
		errs = append(errs, errors.New("pace interval must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if base, ok := flags["path"].(string); ok && base != "" {
		c.Output.BasePath = base
	}
	if structure, ok := flags["structure"].(string); ok && structure != "" {
		c.Output.Structure = structure
	}
	if dir, ok := flags["cache"].(string); ok && dir != "" {
		c.Cache.Directory = dir
	}
	if mode, ok := flags["modified-since"].(string); ok && mode != "" {
		c.Scrape.ModifiedSince = mode
	}
	if action, ok := flags["on-match"].(string); ok && action != "" {
		c.Scrape.OnMatch = action
	}
	if reverse, ok := flags["reverse"].(bool); ok {
		c.Scrape.Reverse = reverse
	}
	if clean, ok := flags["clean"].(bool); ok {
		c.Scrape.Clean = clean
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".sukureipu.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
