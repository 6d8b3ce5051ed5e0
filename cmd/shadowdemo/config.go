package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = ".oxy-shadow"
	configType = "yaml"
	envPrefix  = "OXY_SHADOW"
)

const (
	BackendGL   = "gl"
	BackendWGPU = "wgpu"
)

const (
	DefaultBackend     = BackendGL
	DefaultResolution  = 1024
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultGrid        = 8
	DefaultDecoders    = 4
	DefaultLogLevel    = "info"
	DefaultMaxUnits    = 0
	DefaultFrames      = 0
	DefaultMetricsAddr = ""
)

var (
	ErrUnknownBackend  = errors.New("unknown backend")
	ErrInvalidSetting  = errors.New("invalid setting")
	ErrHeadlessBackend = errors.New("headless mode requires the wgpu backend")
	ErrHeadlessFrames  = errors.New("headless mode requires a frame count")
)

// Config holds every demo setting. Flags override OXY_SHADOW_* environment
// variables, which override the config file.
type Config struct {
	Backend     string   `mapstructure:"backend"`
	Headless    bool     `mapstructure:"headless"`
	Resolution  int      `mapstructure:"resolution"`
	Width       int      `mapstructure:"width"`
	Height      int      `mapstructure:"height"`
	Grid        int      `mapstructure:"grid"`
	Frames      int      `mapstructure:"frames"`
	MaxUnits    int      `mapstructure:"max_units"`
	Textures    []string `mapstructure:"textures"`
	Decoders    int      `mapstructure:"decoders"`
	MetricsAddr string   `mapstructure:"metrics_addr"`
	LogLevel    string   `mapstructure:"log_level"`
}

// Validate reports the first setting the demo cannot run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGL, BackendWGPU:
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend)
	}
	if c.Headless && c.Backend != BackendWGPU {
		return ErrHeadlessBackend
	}
	if c.Headless && c.Frames == 0 {
		return ErrHeadlessFrames
	}
	if c.Resolution < 0 {
		return fmt.Errorf("%w: resolution %d", ErrInvalidSetting, c.Resolution)
	}
	if c.Grid < 1 {
		return fmt.Errorf("%w: grid %d", ErrInvalidSetting, c.Grid)
	}
	if c.Backend == BackendWGPU && c.Grid*c.Grid+1 > gpu.WGPUMaxDrawsPerPass {
		return fmt.Errorf("%w: grid %d needs more than %d draws per pass", ErrInvalidSetting, c.Grid, gpu.WGPUMaxDrawsPerPass)
	}
	if c.Frames < 0 {
		return fmt.Errorf("%w: frames %d", ErrInvalidSetting, c.Frames)
	}
	if c.Decoders < 1 {
		return fmt.Errorf("%w: decoders %d", ErrInvalidSetting, c.Decoders)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("%w: log level %q", ErrInvalidSetting, c.LogLevel)
	}
	return level, nil
}

// registerFlags declares the demo flags. A dash in a flag name is an
// underscore in its config key.
func registerFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (default .oxy-shadow.yaml in . or $HOME)")
	flags.String("backend", DefaultBackend, "graphics backend: gl or wgpu")
	flags.Bool("headless", false, "render without a window (wgpu only)")
	flags.Int("resolution", DefaultResolution, "shadow map resolution in texels")
	flags.Int("width", DefaultWidth, "window width")
	flags.Int("height", DefaultHeight, "window height")
	flags.Int("grid", DefaultGrid, "cubes per side of the grid")
	flags.Int("frames", DefaultFrames, "frames to render before exiting, 0 runs until closed")
	flags.Int("max-units", DefaultMaxUnits, "image unit limit, 0 uses the device limit")
	flags.StringSlice("textures", nil, "image files to load onto image units")
	flags.Int("decoders", DefaultDecoders, "parallel image decoders")
	flags.String("metrics-addr", DefaultMetricsAddr, "serve Prometheus metrics on this address")
	flags.String("log-level", DefaultLogLevel, "debug, info, warn or error")
}

// LoadConfig merges defaults, the config file, the environment and flags.
// A missing config file is not an error.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("backend", DefaultBackend)
	v.SetDefault("headless", false)
	v.SetDefault("resolution", DefaultResolution)
	v.SetDefault("width", DefaultWidth)
	v.SetDefault("height", DefaultHeight)
	v.SetDefault("grid", DefaultGrid)
	v.SetDefault("frames", DefaultFrames)
	v.SetDefault("max_units", DefaultMaxUnits)
	v.SetDefault("textures", []string{})
	v.SetDefault("decoders", DefaultDecoders)
	v.SetDefault("metrics_addr", DefaultMetricsAddr)
	v.SetDefault("log_level", DefaultLogLevel)
}
