package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the static configuration handed to the recording session.
type Config struct {
	Audio     AudioConfig     `mapstructure:"audio" yaml:"audio"`
	Recording RecordingConfig `mapstructure:"recording" yaml:"recording"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
}

type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels   int `mapstructure:"channels" yaml:"channels"`
}

type RecordingConfig struct {
	// SegmentDuration is the fixed length of one segment.
	SegmentDuration time.Duration `mapstructure:"segment_duration" yaml:"segment_duration"`
	// SettleDelay is how long to wait after a stream stops before trusting
	// file sizes on disk. The encoder may keep flushing after stop resolves.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	Format      string        `mapstructure:"format" yaml:"format"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

type CaptureConfig struct {
	InputDevice  string `mapstructure:"input_device" yaml:"input_device"`
	OutputDevice string `mapstructure:"output_device" yaml:"output_device"`
	FFmpegPath   string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 44100,
			Channels:   1,
		},
		Recording: RecordingConfig{
			SegmentDuration: 60 * time.Second,
			SettleDelay:     2 * time.Second,
			Format:          "wav",
		},
		Output: OutputConfig{
			Directory: filepath.Join(os.Getenv("HOME"), "Audio", "DuoCap"),
		},
		Capture: CaptureConfig{
			InputDevice:  "default",
			OutputDevice: "",
			FFmpegPath:   "ffmpeg",
		},
	}
}

// Load reads the configuration file at path, applies defaults for missing
// values and validates the result. An empty path returns the validated
// defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	cfg.Output.Directory = expandPath(cfg.Output.Directory)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to the defaults when the
// file does not exist. Commands use this so a fresh install works without
// running 'config init' first.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	return Load(path)
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("recording.segment_duration", d.Recording.SegmentDuration)
	v.SetDefault("recording.settle_delay", d.Recording.SettleDelay)
	v.SetDefault("recording.format", d.Recording.Format)
	v.SetDefault("output.directory", d.Output.Directory)
	v.SetDefault("capture.input_device", d.Capture.InputDevice)
	v.SetDefault("capture.output_device", d.Capture.OutputDevice)
	v.SetDefault("capture.ffmpeg_path", d.Capture.FFmpegPath)
}

// Validate checks the configuration for values the session cannot work with.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels)
	}
	if c.Recording.SegmentDuration <= 0 {
		return fmt.Errorf("recording.segment_duration must be positive, got %s", c.Recording.SegmentDuration)
	}
	if c.Recording.SettleDelay < 0 {
		return fmt.Errorf("recording.settle_delay must not be negative, got %s", c.Recording.SettleDelay)
	}
	switch c.Recording.Format {
	case "wav", "flac":
	default:
		return fmt.Errorf("recording.format must be 'wav' or 'flac', got %q", c.Recording.Format)
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory must not be empty")
	}
	if c.Capture.InputDevice == "" {
		return fmt.Errorf("capture.input_device must not be empty")
	}
	return nil
}

// expandPath expands a leading ~/ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
