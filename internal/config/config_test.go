package config

import "testing"

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("CAPTURE_LOG_LEVEL", "debug")
	t.Setenv("CAPTURE_IPC_KEY", "from-env")
	t.Setenv("CAPTURE_ACQUIRE_TIMEOUT_MS", "750")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want env override", cfg.LogLevel)
	}
	if cfg.IPCKey != "from-env" {
		t.Errorf("ipc_key = %q, want env override", cfg.IPCKey)
	}
	if cfg.AcquireTimeoutMs != 750 {
		t.Errorf("acquire_timeout_ms = %d, want env override", cfg.AcquireTimeoutMs)
	}

	// Keys without an override keep their defaults.
	if cfg.LuminanceThreshold != Default().LuminanceThreshold {
		t.Errorf("luminance_threshold = %v, want default", cfg.LuminanceThreshold)
	}
}
