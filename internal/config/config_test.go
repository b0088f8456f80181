package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	t.Setenv("QUANTDESK_POLYGON_API_KEY", "")
	os.Unsetenv("QUANTDESK_POLYGON_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Data.Provider != "yahoo" {
		t.Errorf("Data.Provider: got %q, want %q", cfg.Data.Provider, "yahoo")
	}
	if cfg.Data.CacheTTL != 300 {
		t.Errorf("Data.CacheTTL: got %d, want 300", cfg.Data.CacheTTL)
	}
	if cfg.Data.ConcurrentFetches != 4 {
		t.Errorf("Data.ConcurrentFetches: got %d, want 4", cfg.Data.ConcurrentFetches)
	}
	if cfg.Options.RiskFreeRate != 0.01 {
		t.Errorf("Options.RiskFreeRate: got %f, want 0.01", cfg.Options.RiskFreeRate)
	}
	if cfg.Options.StrikeRangeFactor != 0.25 {
		t.Errorf("Options.StrikeRangeFactor: got %f, want 0.25", cfg.Options.StrikeRangeFactor)
	}
	if cfg.Options.HorizonDays != 30 {
		t.Errorf("Options.HorizonDays: got %d, want 30", cfg.Options.HorizonDays)
	}
	if cfg.Options.SkewWindowDays != 21 {
		t.Errorf("Options.SkewWindowDays: got %d, want 21", cfg.Options.SkewWindowDays)
	}
	if cfg.Options.SurfaceResolution != 100 {
		t.Errorf("Options.SurfaceResolution: got %d, want 100", cfg.Options.SurfaceResolution)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port: got %d, want 8090", cfg.API.Port)
	}
	if cfg.Polygon.APIKey != "" {
		t.Errorf("Polygon.APIKey should be empty, got %q", cfg.Polygon.APIKey)
	}
}

func TestDefaultMatchesLoad(t *testing.T) {
	d := Default()
	if d.Options.StrikeRangeFactor != 0.25 || d.Data.Provider != "yahoo" {
		t.Errorf("Default: got %+v", d)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Default should validate: %v", err)
	}
}

// ── Environment overrides ──

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUANTDESK_OPTIONS_RISK_FREE_RATE", "0.045")
	t.Setenv("QUANTDESK_DATA_PROVIDER", "composite")
	t.Setenv("QUANTDESK_POLYGON_API_KEY", "pk_live_abcdefghijkl")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Options.RiskFreeRate != 0.045 {
		t.Errorf("RiskFreeRate: got %f, want 0.045", cfg.Options.RiskFreeRate)
	}
	if cfg.Data.Provider != "composite" {
		t.Errorf("Provider: got %q, want composite", cfg.Data.Provider)
	}
	if cfg.Polygon.APIKey != "pk_live_abcdefghijkl" {
		t.Errorf("Polygon.APIKey: got %q", cfg.Polygon.APIKey)
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quantdesk.yaml")
	yaml := `
options:
  strike_range_factor: 0.1
  horizon_days: 45
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Options.StrikeRangeFactor != 0.1 {
		t.Errorf("StrikeRangeFactor: got %f, want 0.1", cfg.Options.StrikeRangeFactor)
	}
	if cfg.Options.HorizonDays != 45 {
		t.Errorf("HorizonDays: got %d, want 45", cfg.Options.HorizonDays)
	}
	if cfg.Options.SkewWindowDays != 21 {
		t.Errorf("unset key should keep default, got %d", cfg.Options.SkewWindowDays)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q", cfg.Logging.Level)
	}
}

func TestLoadFromFileDotEnv(t *testing.T) {
	os.Unsetenv("QUANTDESK_POLYGON_API_KEY")
	t.Cleanup(func() { os.Unsetenv("QUANTDESK_POLYGON_API_KEY") })

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("data:\n  provider: polygon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("QUANTDESK_POLYGON_API_KEY=from_dotenv_123\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Polygon.APIKey != "from_dotenv_123" {
		t.Errorf("Polygon.APIKey: got %q, want value from .env", cfg.Polygon.APIKey)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFromFile should fail for a missing file")
	}
}

// ── Validate ──

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown provider", func(c *Config) { c.Data.Provider = "bloomberg" }, false},
		{"polygon without key", func(c *Config) { c.Data.Provider = "polygon" }, false},
		{"polygon with key", func(c *Config) { c.Data.Provider = "polygon"; c.Polygon.APIKey = "k" }, true},
		{"negative strike factor", func(c *Config) { c.Options.StrikeRangeFactor = -0.1 }, false},
		{"zero strike factor", func(c *Config) { c.Options.StrikeRangeFactor = 0 }, true},
		{"zero horizon", func(c *Config) { c.Options.HorizonDays = 0 }, false},
		{"zero resolution", func(c *Config) { c.Options.SurfaceResolution = 0 }, false},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: unexpected error %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate: got %v, want ErrInvalid", err)
			}
		})
	}
}

// ── API keys ──

func TestCheckAPIKeys(t *testing.T) {
	os.Unsetenv("QUANTDESK_POLYGON_API_KEY")
	cfg := Default()
	keys := CheckAPIKeys(cfg)
	if len(keys) != 1 {
		t.Fatalf("expected 1 key status, got %d", len(keys))
	}
	if keys[0].IsSet || keys[0].Source != KeySourceNone || keys[0].Required {
		t.Errorf("unset optional key: got %+v", keys[0])
	}

	cfg.Polygon.APIKey = "pk_abcdefghijkl"
	cfg.Data.Provider = "composite"
	keys = CheckAPIKeys(cfg)
	if !keys[0].IsSet || keys[0].Source != KeySourceConfig || !keys[0].Required {
		t.Errorf("configured key: got %+v", keys[0])
	}
	if keys[0].Masked != "pk_...jkl" {
		t.Errorf("Masked: got %q, want %q", keys[0].Masked, "pk_...jkl")
	}
}

func TestMaskKey(t *testing.T) {
	if got := maskKey("short"); got != "***" {
		t.Errorf("maskKey(short): got %q", got)
	}
	if got := maskKey("abcdefghijk"); got != "abc...ijk" {
		t.Errorf("maskKey: got %q", got)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Polygon.APIKey = "pk_live_123456"
	cfg.API.CORSOrigins = []string{"http://a"}

	out := cfg.Redacted()
	if out.Polygon.APIKey != "pk_...456" {
		t.Errorf("APIKey: got %q", out.Polygon.APIKey)
	}
	if cfg.Polygon.APIKey != "pk_live_123456" {
		t.Error("Redacted must not modify the receiver")
	}
	out.API.CORSOrigins[0] = "http://b"
	if cfg.API.CORSOrigins[0] != "http://a" {
		t.Error("Redacted must copy CORS origins")
	}
}
