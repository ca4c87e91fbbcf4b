package config

import (
	"strings"
	"testing"
)

func TestValidateDefaultsAreClean(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should validate cleanly, got: %v", errs)
	}
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.FallbackChain = []string{"duplication", "magnifier"}
	errs := cfg.Validate()
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), `unknown backend "magnifier"`) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unknown backend error, got: %v", errs)
	}
}

func TestValidateDuplicateBackend(t *testing.T) {
	cfg := Default()
	cfg.FallbackChain = []string{"gdi", "gdi"}
	errs := cfg.Validate()
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "more than once") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected duplicate backend error, got: %v", errs)
	}
}

func TestValidateEmptyChainRestoresDefault(t *testing.T) {
	cfg := Default()
	cfg.FallbackChain = nil
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("empty chain should be reported")
	}
	if len(cfg.FallbackChain) == 0 {
		t.Fatal("empty chain should be replaced with the default")
	}
}

func TestValidateClampsThreshold(t *testing.T) {
	cfg := Default()
	cfg.LuminanceThreshold = 300
	cfg.Validate()
	if cfg.LuminanceThreshold != 128 {
		t.Fatalf("expected threshold clamped to 128, got %.1f", cfg.LuminanceThreshold)
	}

	cfg.LuminanceThreshold = -1
	cfg.Validate()
	if cfg.LuminanceThreshold != 0 {
		t.Fatalf("expected threshold clamped to 0, got %.1f", cfg.LuminanceThreshold)
	}
}

func TestValidateClampsTimeouts(t *testing.T) {
	cfg := Default()
	cfg.AcquireTimeoutMs = 0
	cfg.CompositionTimeoutMs = 999999
	cfg.Validate()
	if cfg.AcquireTimeoutMs != 1 {
		t.Fatalf("expected acquire timeout clamped to 1, got %d", cfg.AcquireTimeoutMs)
	}
	if cfg.CompositionTimeoutMs != 30000 {
		t.Fatalf("expected composition timeout clamped to 30000, got %d", cfg.CompositionTimeoutMs)
	}
}

func TestValidateLogSettings(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	cfg.LogFormat = "xml"
	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
}
