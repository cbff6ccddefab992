package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk representation. Nil fields keep their default.
type fileConfig struct {
	Tracker struct {
		PollInterval *string `yaml:"poll_interval" toml:"poll_interval"`
		PollAttempts *int    `yaml:"poll_attempts" toml:"poll_attempts"`
		CollectDelay *string `yaml:"collect_delay" toml:"collect_delay"`
		StartupWait  *string `yaml:"startup_wait" toml:"startup_wait"`
		StopTimeout  *string `yaml:"stop_timeout" toml:"stop_timeout"`
	} `yaml:"tracker" toml:"tracker"`

	Transport *string `yaml:"transport" toml:"transport"`

	Relay struct {
		URL           *string `yaml:"url" toml:"url"`
		Listen        *string `yaml:"listen" toml:"listen"`
		RetryInterval *string `yaml:"retry_interval" toml:"retry_interval"`
	} `yaml:"relay" toml:"relay"`

	Mirror struct {
		Enabled     *bool   `yaml:"enabled" toml:"enabled"`
		Endpoint    *string `yaml:"endpoint" toml:"endpoint"`
		UnitID      *int    `yaml:"unit_id" toml:"unit_id"`
		BaseAddress *int    `yaml:"base_address" toml:"base_address"`
		Timeout     *string `yaml:"timeout" toml:"timeout"`
	} `yaml:"mirror" toml:"mirror"`

	Log struct {
		Level *string `yaml:"level" toml:"level"`
	} `yaml:"log" toml:"log"`

	Metrics struct {
		Listen *string `yaml:"listen" toml:"listen"`
	} `yaml:"metrics" toml:"metrics"`

	Simulator struct {
		Channels []ChannelConfig `yaml:"channels" toml:"channels"`
	} `yaml:"simulator" toml:"simulator"`
}

// Load reads the configuration file at path and overlays it on the defaults.
// The format is chosen by extension: .yaml, .yml or .toml.
// The result is validated.
func Load(path string) (Config, error) {
	raw, err := decodeFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := raw.apply(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeFile(path string) (fileConfig, error) {
	var raw fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return fileConfig{}, fmt.Errorf("load config %s: %w", path, err)
		}
		for _, key := range meta.Undecoded() {
			log.Warn().Str("key", key.String()).Str("file", path).Msg("unknown configuration key")
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fileConfig{}, fmt.Errorf("load config %s: %w", path, err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		// an empty document is a valid configuration
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return fileConfig{}, fmt.Errorf("load config %s: %w", path, err)
		}
	default:
		return fileConfig{}, fmt.Errorf("load config %s: unsupported format, expected .yaml, .yml or .toml", path)
	}
	return raw, nil
}

func (raw fileConfig) apply(cfg *Config) error {
	durations := []struct {
		key    string
		value  *string
		target *time.Duration
	}{
		{"tracker.poll_interval", raw.Tracker.PollInterval, &cfg.Tracker.PollInterval},
		{"tracker.collect_delay", raw.Tracker.CollectDelay, &cfg.Tracker.CollectDelay},
		{"tracker.startup_wait", raw.Tracker.StartupWait, &cfg.Tracker.StartupWait},
		{"tracker.stop_timeout", raw.Tracker.StopTimeout, &cfg.Tracker.StopTimeout},
		{"relay.retry_interval", raw.Relay.RetryInterval, &cfg.Relay.RetryInterval},
		{"mirror.timeout", raw.Mirror.Timeout, &cfg.Mirror.Timeout},
	}
	for _, d := range durations {
		if d.value == nil {
			continue
		}
		value, err := time.ParseDuration(strings.TrimSpace(*d.value))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.target = value
	}

	if raw.Tracker.PollAttempts != nil {
		cfg.Tracker.PollAttempts = *raw.Tracker.PollAttempts
	}
	if raw.Transport != nil {
		cfg.Transport = strings.ToLower(strings.TrimSpace(*raw.Transport))
	}
	if raw.Relay.URL != nil {
		cfg.Relay.URL = strings.TrimSpace(*raw.Relay.URL)
	}
	if raw.Relay.Listen != nil {
		cfg.Relay.Listen = strings.TrimSpace(*raw.Relay.Listen)
	}
	if raw.Mirror.Enabled != nil {
		cfg.Mirror.Enabled = *raw.Mirror.Enabled
	}
	if raw.Mirror.Endpoint != nil {
		cfg.Mirror.Endpoint = strings.TrimSpace(*raw.Mirror.Endpoint)
	}
	if raw.Mirror.UnitID != nil {
		cfg.Mirror.UnitID = *raw.Mirror.UnitID
	}
	if raw.Mirror.BaseAddress != nil {
		cfg.Mirror.BaseAddress = *raw.Mirror.BaseAddress
	}
	if raw.Log.Level != nil {
		cfg.Log.Level = strings.TrimSpace(*raw.Log.Level)
	}
	if raw.Metrics.Listen != nil {
		cfg.Metrics.Listen = strings.TrimSpace(*raw.Metrics.Listen)
	}
	if raw.Simulator.Channels != nil {
		cfg.Simulator.Channels = raw.Simulator.Channels
	}
	return nil
}
