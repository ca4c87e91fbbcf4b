package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	ScreenshotDir        string   `mapstructure:"screenshot_dir"`
	FallbackChain        []string `mapstructure:"fallback_chain"`
	LuminanceThreshold   float64  `mapstructure:"luminance_threshold"`
	AcquireTimeoutMs     int      `mapstructure:"acquire_timeout_ms"`
	CompositionTimeoutMs int      `mapstructure:"composition_timeout_ms"`
	MaxWidth             int      `mapstructure:"max_width"`
	PipeName             string   `mapstructure:"pipe_name"`
	IPCKey               string   `mapstructure:"ipc_key"`
	LogLevel             string   `mapstructure:"log_level"`
	LogFormat            string   `mapstructure:"log_format"`
}

func Default() *Config {
	return &Config{
		ScreenshotDir: defaultScreenshotDir(),
		// Composition capture is tried first: it is the only backend that
		// targets one window directly instead of a whole output.
		FallbackChain: []string{
			"composition", "duplication", "affinity",
			"printwindow", "gdi", "zorder", "screen",
		},
		LuminanceThreshold:   5.0,
		AcquireTimeoutMs:     500,
		CompositionTimeoutMs: 2000,
		MaxWidth:             0, // 0 = no downscaling
		PipeName:             defaultPipeName(),
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("capture")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	// Viper only consults the environment for keys it knows about, so every
	// key gets a default before Unmarshal; CAPTURE_* overrides then apply
	// whether or not the key appears in the config file.
	setDefaults(cfg)
	viper.SetEnvPrefix("CAPTURE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(d *Config) {
	viper.SetDefault("screenshot_dir", d.ScreenshotDir)
	viper.SetDefault("fallback_chain", d.FallbackChain)
	viper.SetDefault("luminance_threshold", d.LuminanceThreshold)
	viper.SetDefault("acquire_timeout_ms", d.AcquireTimeoutMs)
	viper.SetDefault("composition_timeout_ms", d.CompositionTimeoutMs)
	viper.SetDefault("max_width", d.MaxWidth)
	viper.SetDefault("pipe_name", d.PipeName)
	viper.SetDefault("ipc_key", d.IPCKey)
	viper.SetDefault("log_level", d.LogLevel)
	viper.SetDefault("log_format", d.LogFormat)
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("screenshot_dir", cfg.ScreenshotDir)
	viper.Set("fallback_chain", cfg.FallbackChain)
	viper.Set("luminance_threshold", cfg.LuminanceThreshold)
	viper.Set("acquire_timeout_ms", cfg.AcquireTimeoutMs)
	viper.Set("composition_timeout_ms", cfg.CompositionTimeoutMs)
	viper.Set("max_width", cfg.MaxWidth)
	viper.Set("pipe_name", cfg.PipeName)
	viper.Set("ipc_key", cfg.IPCKey)
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("log_format", cfg.LogFormat)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "capture.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	if err := viper.WriteConfigAs(cfgPath); err != nil {
		return err
	}

	// Restrict config file to owner-only access (contains the IPC key)
	return os.Chmod(cfgPath, 0600)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "CaptureAgent")
	case "darwin":
		return "/Library/Application Support/CaptureAgent"
	default:
		return "/etc/capture-agent"
	}
}

func defaultScreenshotDir() string {
	return filepath.Join(configDir(), "screenshots")
}

func defaultPipeName() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\capture-agent`
	}
	return filepath.Join(os.TempDir(), "capture-agent.sock")
}
