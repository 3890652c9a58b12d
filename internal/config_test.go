package internal

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestFetcherConfig_Timeout(t *testing.T) {
	cfg := FetcherConfig{TimeoutSeconds: 15}
	if cfg.Timeout() != 15*time.Second {
		t.Errorf("Timeout() = %v, want 15s", cfg.Timeout())
	}
}

func TestFetcherConfig_RequiresBaseURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Fetcher.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing base_url should fail validation")
	}
	cfg.Fetcher.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid base_url should fail validation")
	}
}

func TestFetcherConfig_ConcurrencyBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Fetcher.MaxConcurrent = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero max_concurrent should fail validation")
	}
	cfg.Fetcher.MaxConcurrent = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("excessive max_concurrent should fail validation")
	}
}

func TestPrintConfig_QualityBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	for _, q := range []int{0, 101, -5} {
		cfg.Print.JPEGQuality = q
		if err := cfg.Validate(); err == nil {
			t.Errorf("jpeg_quality %d should fail validation", q)
		}
	}
}

func TestPrintConfig_DimensionBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Print.CardWidthMM = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero card_width_mm should fail validation")
	}
	cfg.Print.CardWidthMM = 83
	cfg.Print.CardHeightMM = 0.5
	if err := cfg.Validate(); err == nil {
		t.Error("sub-millimetre card_height_mm should fail validation")
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
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
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
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}
