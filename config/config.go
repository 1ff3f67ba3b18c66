package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/prylval/affiliates/internal/domain"
)

// Legacy single-feed environment variables, honored next to the feeds list.
const (
	EnvComputersalgFeed     = "AFFILIATES_FEED_COMPUTERSALG_URL"
	EnvComputersalgPriority = "AFFILIATES_FEED_COMPUTERSALG_PRIORITY"
	EnvValostoreFeed        = "AFFILIATES_FEED_VALOSTORE_URL"
	EnvValostorePriority    = "AFFILIATES_FEED_VALOSTORE_PRIORITY"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Feeds     []FeedConfig     `mapstructure:"feeds"`
	Feed      FeedClientConfig `mapstructure:"feed"`
	Matching  MatchingConfig   `mapstructure:"matching"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Decorator DecoratorConfig  `mapstructure:"decorator"`
	Log       LogConfig        `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// FeedConfig describes one merchant feed. Higher priority wins.
type FeedConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Merchant string `mapstructure:"merchant"`
	Priority int    `mapstructure:"priority"`
}

// FeedClientConfig holds feed download settings
type FeedClientConfig struct {
	TrustedPrefix string        `mapstructure:"trusted_prefix"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// MatchingConfig holds matcher thresholds
type MatchingConfig struct {
	MinConfidence     float64 `mapstructure:"min_confidence"`
	MinFuzzyKeyLength int     `mapstructure:"min_fuzzy_key_length"`
	MaxEditDistance   int     `mapstructure:"max_edit_distance"`
	OverwritePolicy   string  `mapstructure:"overwrite_policy"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	Type        string `mapstructure:"type"` // "file" or "redis"
	CatalogPath string `mapstructure:"catalog_path"`
	MapPath     string `mapstructure:"map_path"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisKey    string `mapstructure:"redis_key"`
}

// DecoratorConfig holds runtime decorator configuration
type DecoratorConfig struct {
	MapURL   string        `mapstructure:"map_url"` // empty reads storage
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/affiliates/")

	// AFFILIATES_STORAGE_MAP_PATH -> storage.map_path
	v.SetEnvPrefix("AFFILIATES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.Feeds = mergeFeeds(config.Feeds, legacyFeeds())

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"https://prylval.se", "https://*.prylval.se"})

	v.SetDefault("feed.trusted_prefix", "https://go.")
	v.SetDefault("feed.max_attempts", 3)
	v.SetDefault("feed.base_delay", "1s")
	v.SetDefault("feed.max_delay", "10s")
	v.SetDefault("feed.timeout", "30s")
	v.SetDefault("feed.rate_per_second", 2)
	v.SetDefault("feed.user_agent", "Prylval-Affiliate-Matcher/1.0")

	v.SetDefault("matching.min_confidence", 0.7)
	v.SetDefault("matching.min_fuzzy_key_length", 8)
	v.SetDefault("matching.max_edit_distance", 2)
	v.SetDefault("matching.overwrite_policy", "priority_then_confidence")

	v.SetDefault("storage.type", "file")
	v.SetDefault("storage.catalog_path", "data/editorial-products.json")
	v.SetDefault("storage.map_path", "data/affiliate-map.json")
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.redis_key", "affiliates:map")

	v.SetDefault("decorator.map_url", "")
	v.SetDefault("decorator.cache_ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/affiliates.log")
}

// loadEnvFile exports the variables of ./.env that are not already set.
// A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// legacyFeeds reads the two single-feed variables the first deployment used.
func legacyFeeds() []FeedConfig {
	return []FeedConfig{
		{Name: "computersalg", URL: os.Getenv(EnvComputersalgFeed), Merchant: "computersalg", Priority: envInt(EnvComputersalgPriority, 1)},
		{Name: "valostore", URL: os.Getenv(EnvValostoreFeed), Merchant: "valostore", Priority: envInt(EnvValostorePriority, 2)},
	}
}

func envInt(name string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return fallback
	}
	return n
}

// mergeFeeds appends extra feeds whose name is not configured yet and drops
// every feed without a URL.
func mergeFeeds(feeds, extra []FeedConfig) []FeedConfig {
	seen := make(map[string]bool, len(feeds))
	var out []FeedConfig
	for _, f := range append(feeds, extra...) {
		if f.URL == "" || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		if f.Merchant == "" {
			f.Merchant = f.Name
		}
		out = append(out, f)
	}
	return out
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Storage.Type != "file" && config.Storage.Type != "redis" {
		return fmt.Errorf("storage type must be 'file' or 'redis', got: %s", config.Storage.Type)
	}

	if config.Storage.Type == "redis" && config.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required when storage type is 'redis'")
	}

	if config.Matching.MinConfidence <= 0 || config.Matching.MinConfidence >= 1 {
		return fmt.Errorf("matching.min_confidence must be in (0, 1), got: %v", config.Matching.MinConfidence)
	}

	if config.Matching.MinFuzzyKeyLength < 1 {
		return fmt.Errorf("matching.min_fuzzy_key_length must be at least 1, got: %d", config.Matching.MinFuzzyKeyLength)
	}

	if config.Matching.MaxEditDistance < 1 {
		return fmt.Errorf("matching.max_edit_distance must be at least 1, got: %d", config.Matching.MaxEditDistance)
	}

	for _, f := range config.Feeds {
		if f.Name == "" {
			return fmt.Errorf("feed with url %s has no name", f.URL)
		}
	}

	return nil
}

// ValidateMatcher checks the settings only the batch matcher needs.
func ValidateMatcher(config *Config) error {
	if len(config.Feeds) == 0 {
		return fmt.Errorf("%w (set feeds in config.yaml, %s or %s)", domain.ErrNoFeeds, EnvComputersalgFeed, EnvValostoreFeed)
	}
	return nil
}
