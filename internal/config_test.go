package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/lexicon/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Dictionary.URL = "https://dict.example.com/v1/record"
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Fatalf("full config validate should catch auth error, got %v", err)
	}
}

func TestDefaultConfig_NeedsDictionaryURL(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without dictionary url should fail")
	}
	cfg.Dictionary.URL = "https://dict.example.com/v1/record"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with url should pass: %v", err)
	}
}

func TestDictionaryConfig_InvalidURL(t *testing.T) {
	cfg := NewDefaultConfig().Dictionary
	cfg.URL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid url should fail")
	}
}

func TestStorageConfig_Backend(t *testing.T) {
	cases := map[string]bool{
		StorageBackendSQLite: true,
		StorageBackendFS:     true,
		"redis":              false,
	}
	for backend, ok := range cases {
		cfg := StorageConfig{Backend: backend, Path: "./data"}
		if err := cfg.Validate(); (err == nil) != ok {
			t.Errorf("backend %q: err = %v, want ok=%v", backend, err, ok)
		}
	}
}

func TestSchedulerConfig_Durations(t *testing.T) {
	cfg := SchedulerConfig{QuietPeriod: 3 * time.Second, DebounceWindow: 600 * time.Millisecond}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default timings should pass: %v", err)
	}
	cfg.QuietPeriod = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero quiet period should fail")
	}
	cfg.QuietPeriod = time.Second
	cfg.DebounceWindow = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero debounce window should fail")
	}
}

func TestFullConfig_LoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("LEXICON_TEST_KEY", "k-123")
	content := `
app:
  http:
    port: 9090
document:
  source: ./page.html
dictionary:
  url: https://dict.example.com/v1/record
  access_key: ${LEXICON_TEST_KEY}
  ttl: 48h
scheduler:
  quiet_period: 2s
  debounce_window: 250ms
storage:
  backend: fs
  path: ./data
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Dictionary.AccessKey != "k-123" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Dictionary.TTL != 48*time.Hour || cfg.Scheduler.DebounceWindow != 250*time.Millisecond {
		t.Errorf("durations = %v %v", cfg.Dictionary.TTL, cfg.Scheduler.DebounceWindow)
	}
	if cfg.Dictionary.Timeout != 10*time.Second || !cfg.Scheduler.InitialScan {
		t.Errorf("defaults lost: %+v", cfg)
	}
}
