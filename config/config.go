package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the tripnote service
type Config struct {
	General GeneralConfig `mapstructure:"general"`
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string `mapstructure:"address"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// LLMConfig contains the generative provider configuration
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"` // openai for now
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxGroundingChars int           `mapstructure:"max_grounding_chars"`
}

// Load reads configuration from an optional file and environment
// variables. A missing config file falls back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tripnote")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TRIPNOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.max_upload_bytes", 20<<20)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", "45s")
	v.SetDefault("llm.max_grounding_chars", 50000)
}

// overrideFromEnv overrides sensitive values from the environment
func overrideFromEnv(v *viper.Viper) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		v.Set("llm.api_key", apiKey)
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		v.Set("llm.base_url", base)
	}
}

func validate(cfg *Config) error {
	if cfg.LLM.Provider == "" {
		return fmt.Errorf("llm.provider must be set")
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model must be set")
	}
	if cfg.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be > 0")
	}
	if cfg.LLM.MaxGroundingChars <= 0 {
		return fmt.Errorf("llm.max_grounding_chars must be > 0")
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be > 0")
	}
	return nil
}
