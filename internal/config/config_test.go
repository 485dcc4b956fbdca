package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HFEST_API_KEY", "HF_TOKEN", "HF_API_KEY", "HFEST_ENDPOINT", "HFEST_MARGIN", "HFEST_TIMEOUT"} {
		t.Setenv(k, "")
	}
}

func TestReadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hfest", "config.json")
	s := NewStore(path)

	values, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(values) != len(Keys()) {
		t.Errorf("got %d keys, want %d", len(values), len(Keys()))
	}
	if values["endpoint"] != "https://huggingface.co" || values["api_key"] != "" {
		t.Errorf("values = %v", values)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if !strings.Contains(string(data), `"default_model_path"`) {
		t.Errorf("config file = %s", data)
	}
}

func TestSetThenGet(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))

	if err := s.Set("api_key", "hf_abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("api_key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "hf_abc" {
		t.Errorf("api_key = %q", got)
	}

	if _, err := os.Stat(s.Path() + ".lock"); err != nil {
		t.Errorf("expected lock file: %v", err)
	}

	// A fresh store over the same file sees the update.
	again, err := NewStore(s.Path()).Get("api_key")
	if err != nil || again != "hf_abc" {
		t.Errorf("reopened api_key = %q, %v", again, err)
	}
}

func TestUnknownKey(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))

	if err := s.Set("colour", "blue"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set: expected ErrUnknownKey, got %v", err)
	}
	if _, err := s.Get("colour"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get: expected ErrUnknownKey, got %v", err)
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Error("rejected Set should not create the file")
	}
}

func TestReadLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	legacy := `{"api_key": null, "default_model_path": "/models"}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	values, err := NewStore(path).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if values["default_model_path"] != "/models" {
		t.Errorf("default_model_path = %q", values["default_model_path"])
	}
	if values["api_key"] != "" || values["margin"] != "0.2" {
		t.Errorf("values = %v", values)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	s := NewStore(path)
	for k, v := range map[string]string{"api_key": "hf_file", "timeout": "5s", "margin": "0.5", "rate_limit": "2.5"} {
		if err := s.Set(k, v); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "hf_file" || cfg.Timeout != 5*time.Second || cfg.Margin != 0.5 || cfg.RateLimit != 2.5 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if strings.HasPrefix(cfg.CacheDir, "~") {
		t.Errorf("CacheDir not expanded: %s", cfg.CacheDir)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := NewStore(path).Set("api_key", "hf_file"); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HF_TOKEN", "hf_env")
	t.Setenv("HFEST_MARGIN", "0.1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "hf_env" {
		t.Errorf("APIKey = %q, want hf_env", cfg.APIKey)
	}
	if cfg.Margin != 0.1 {
		t.Errorf("Margin = %v, want 0.1", cfg.Margin)
	}

	t.Setenv("HFEST_API_KEY", "hf_prefixed")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "hf_prefixed" {
		t.Errorf("APIKey = %q, want hf_prefixed", cfg.APIKey)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := map[string]string{
		"~":          home,
		"~/models":   filepath.Join(home, "models"),
		"/abs/path":  "/abs/path",
		"rel/path":   "rel/path",
		"~user/path": "~user/path",
	}
	for in, want := range tests {
		if got := expandHome(in); got != want {
			t.Errorf("expandHome(%q) = %q, want %q", in, got, want)
		}
	}
}
