// Package config provides centralized configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Oracle backends.
const (
	OracleOpenAI = "openai"
	OracleEcho   = "echo"
)

// Search providers.
const (
	SearchTavily = "tavily"
	SearchBrave  = "brave"
)

// OpenAI configures the chat-completions oracle and speech synthesis.
type OpenAI struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	TTSModel string `mapstructure:"tts_model"`
	Voice    string `mapstructure:"voice"`
}

// Search configures the web_search capability. It is registered only when
// the provider's key is set.
type Search struct {
	Provider     string `mapstructure:"provider"`
	TavilyAPIKey string `mapstructure:"tavily_api_key"`
	BraveAPIKey  string `mapstructure:"brave_api_key"`
	BaseURL      string `mapstructure:"base_url"`
}

// APIKey returns the key of the configured provider.
func (s Search) APIKey() string {
	if s.Provider == SearchBrave {
		return s.BraveAPIKey
	}
	return s.TavilyAPIKey
}

// Config holds all configuration values for jarvis.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Addr      string `mapstructure:"addr"`
	DataDir   string `mapstructure:"data_dir"`
	UserID    string `mapstructure:"user_id"`

	Store         string        `mapstructure:"store"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	CheckpointTTL time.Duration `mapstructure:"checkpoint_ttl"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
	// EncryptionKey, when set, encrypts checkpoints at rest (32 bytes, hex or raw).
	EncryptionKey string `mapstructure:"encryption_key"`

	MaxIterations     int           `mapstructure:"max_iterations"`
	OracleTimeout     time.Duration `mapstructure:"oracle_timeout"`
	CapabilityTimeout time.Duration `mapstructure:"capability_timeout"`
	CapabilityFile    string        `mapstructure:"capability_file"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`

	Oracle string `mapstructure:"oracle"`
	OpenAI OpenAI `mapstructure:"openai"`
	Search Search `mapstructure:"search"`
}

// envBindings lists the keys bound to explicit environment variables.
// Any other key is still read from JARVIS_<KEY> by AutomaticEnv.
var envBindings = map[string][]string{
	"openai.api_key":  {"JARVIS_OPENAI_API_KEY", "OPENAI_API_KEY"},
	"openai.model":    {"JARVIS_OPENAI_MODEL"},
	"openai.base_url": {"JARVIS_OPENAI_BASE_URL"},
	"redis_addr":      {"JARVIS_REDIS_ADDR", "REDIS_ADDR"},
	"allowed_origins": {"JARVIS_ALLOWED_ORIGINS"},

	"search.tavily_api_key": {"JARVIS_SEARCH_TAVILY_API_KEY", "TAVILY_API_KEY"},
	"search.brave_api_key":  {"JARVIS_SEARCH_BRAVE_API_KEY", "BRAVE_API_KEY"},
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"log-level":  "log_level",
	"log-format": "log_format",
	"addr":       "addr",
	"data-dir":   "data_dir",
	"user":       "user_id",
	"store":      "store",
	"oracle":     "oracle",
}

// Load loads configuration with full precedence:
// ENV vars > explicit file (or project config > global config) > defaults.
func Load(explicit string) (*Config, error) {
	return LoadWithFlags(explicit, nil)
}

// LoadWithFlags is Load with the changed flags of fs, named as in FlagKeys,
// taking precedence over everything else.
func LoadWithFlags(explicit string, fs *pflag.FlagSet) (*Config, error) {
	v := New()
	if fs != nil {
		for name, key := range FlagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", explicit, err)
		}
	} else {
		if globalPath := GlobalPath(); fileExists(globalPath) {
			v.SetConfigFile(globalPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading global config: %w", err)
			}
		}
		if projectPath := ProjectPath(); fileExists(projectPath) {
			v.SetConfigFile(projectPath)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}
	return Decode(v)
}

// New returns a viper instance with defaults and environment bindings applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("addr", ":8000")
	v.SetDefault("data_dir", ".jarvis")
	v.SetDefault("user_id", "default_user")
	v.SetDefault("store", StoreFile)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("checkpoint_ttl", 0)
	v.SetDefault("lock_ttl", 30*time.Second)
	v.SetDefault("encryption_key", "")
	v.SetDefault("max_iterations", 10)
	v.SetDefault("oracle_timeout", 60*time.Second)
	v.SetDefault("capability_timeout", 30*time.Second)
	v.SetDefault("capability_file", "")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("oracle", OracleOpenAI)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.tts_model", "gpt-4o-mini-tts")
	v.SetDefault("openai.voice", "alloy")
	v.SetDefault("search.provider", SearchTavily)
	v.SetDefault("search.tavily_api_key", "")
	v.SetDefault("search.brave_api_key", "")
	v.SetDefault("search.base_url", "")

	v.SetEnvPrefix("JARVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		// BindEnv only fails without a key.
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// Decode unmarshals and validates v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.CapabilityFile == "" {
		cfg.CapabilityFile = filepath.Join(cfg.DataDir, "capabilities.yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{StoreMemory, StoreFile, StoreRedis}, c.Store) {
		errs = append(errs, fmt.Errorf("store must be memory, file or redis, got %q", c.Store))
	}
	if !slices.Contains([]string{OracleOpenAI, OracleEcho}, c.Oracle) {
		errs = append(errs, fmt.Errorf("oracle must be openai or echo, got %q", c.Oracle))
	}
	if c.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations))
	}
	if c.OracleTimeout <= 0 || c.CapabilityTimeout <= 0 {
		errs = append(errs, errors.New("oracle_timeout and capability_timeout must be positive"))
	}
	if !slices.Contains([]string{SearchTavily, SearchBrave}, c.Search.Provider) {
		errs = append(errs, fmt.Errorf("search.provider must be tavily or brave, got %q", c.Search.Provider))
	}
	if c.Store == StoreRedis && c.LockTTL < time.Second {
		errs = append(errs, fmt.Errorf("lock_ttl must be at least 1s with the redis store, got %s", c.LockTTL))
	}
	return errors.Join(errs...)
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/jarvis/jarvis.yaml or $XDG_CONFIG_HOME/jarvis/jarvis.yaml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "jarvis", "jarvis.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "jarvis", "jarvis.yaml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "jarvis.yaml"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
