package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the typed view of the stored settings with environment overrides applied.
type Config struct {
	APIKey           string        `mapstructure:"api_key"`
	DefaultModelPath string        `mapstructure:"default_model_path"`
	Endpoint         string        `mapstructure:"endpoint"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RateLimit        float64       `mapstructure:"rate_limit"`
	CacheDir         string        `mapstructure:"cache_dir"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	Margin           float64       `mapstructure:"margin"`
	LogLevel         string        `mapstructure:"log_level"`
}

var defaults = map[string]string{
	"api_key":            "",
	"default_model_path": "",
	"endpoint":           "https://huggingface.co",
	"timeout":            "60s",
	"rate_limit":         "10",
	"cache_dir":          "~/.cache/hfest",
	"cache_ttl":          "1h",
	"margin":             "0.2",
	"log_level":          "warn",
}

// Defaults returns a copy of the default settings.
func Defaults() map[string]string {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// DefaultPath is ~/.config/hfest/config.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hfest", "config.json")
	}
	return filepath.Join(home, ".config", "hfest", "config.json")
}

// Load reads the store at path, layers HFEST_* environment variables on top,
// and decodes the result. HF_TOKEN and HF_API_KEY also supply the API key.
func Load(path string) (*Config, error) {
	values, err := NewStore(path).Read()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range values {
		if val == "" {
			val = defaults[k]
		}
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("HFEST")
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", "HFEST_API_KEY", "HF_TOKEN", "HF_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.CacheDir = expandHome(cfg.CacheDir)
	cfg.DefaultModelPath = expandHome(cfg.DefaultModelPath)
	return &cfg, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
