package config

import (
	"fmt"
	"log/slog"
	"strings"
)

var knownBackends = map[string]bool{
	"composition": true,
	"duplication": true,
	"affinity":    true,
	"printwindow": true,
	"gdi":         true,
	"zorder":      true,
	"screen":      true,
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the config for invalid values and returns all errors found.
// Dangerous zero-values that would cause panics are clamped to safe defaults.
// Other validation errors are logged as warnings but do not prevent startup.
func (c *Config) Validate() []error {
	var errs []error

	if c.ScreenshotDir == "" {
		errs = append(errs, fmt.Errorf("screenshot_dir is empty, using default"))
		c.ScreenshotDir = defaultScreenshotDir()
	}

	if len(c.FallbackChain) == 0 {
		errs = append(errs, fmt.Errorf("fallback_chain is empty, using default chain"))
		c.FallbackChain = Default().FallbackChain
	}
	seen := map[string]bool{}
	for _, name := range c.FallbackChain {
		lower := strings.ToLower(name)
		if !knownBackends[lower] {
			errs = append(errs, fmt.Errorf("unknown backend %q in fallback_chain", name))
		}
		if seen[lower] {
			errs = append(errs, fmt.Errorf("backend %q listed more than once in fallback_chain", name))
		}
		seen[lower] = true
	}

	// The threshold is a heuristic cutoff against near-black frames; values
	// at or above mid-gray would reject most legitimate content.
	if c.LuminanceThreshold < 0 {
		errs = append(errs, fmt.Errorf("luminance_threshold %.1f is negative, clamping to 0", c.LuminanceThreshold))
		c.LuminanceThreshold = 0
	} else if c.LuminanceThreshold > 128 {
		errs = append(errs, fmt.Errorf("luminance_threshold %.1f exceeds maximum 128, clamping", c.LuminanceThreshold))
		c.LuminanceThreshold = 128
	}

	if c.AcquireTimeoutMs < 1 {
		errs = append(errs, fmt.Errorf("acquire_timeout_ms %d is below minimum 1, clamping", c.AcquireTimeoutMs))
		c.AcquireTimeoutMs = 1
	} else if c.AcquireTimeoutMs > 10000 {
		errs = append(errs, fmt.Errorf("acquire_timeout_ms %d exceeds maximum 10000, clamping", c.AcquireTimeoutMs))
		c.AcquireTimeoutMs = 10000
	}

	if c.CompositionTimeoutMs < 1 {
		errs = append(errs, fmt.Errorf("composition_timeout_ms %d is below minimum 1, clamping", c.CompositionTimeoutMs))
		c.CompositionTimeoutMs = 1
	} else if c.CompositionTimeoutMs > 30000 {
		errs = append(errs, fmt.Errorf("composition_timeout_ms %d exceeds maximum 30000, clamping", c.CompositionTimeoutMs))
		c.CompositionTimeoutMs = 30000
	}

	if c.MaxWidth < 0 {
		errs = append(errs, fmt.Errorf("max_width %d is negative, disabling downscaling", c.MaxWidth))
		c.MaxWidth = 0
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	// Log validation errors as warnings
	for _, err := range errs {
		slog.Warn("config validation", "error", err)
	}

	return errs
}
