package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesurfer/mctg/client"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(&cfg))
	assert.Equal(t, client.DefaultConfig(), cfg.ClientConfig())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "mctg.yaml", `
tracker:
  poll_interval: 10ms
  poll_attempts: 5
transport: relay
relay:
  url: ws://10.0.0.5:40701
mirror:
  enabled: true
  endpoint: 10.0.0.9:502
  unit_id: 3
  base_address: 1000
log:
  level: debug
metrics:
  listen: localhost:9101
simulator:
  channels:
    - hardware: 700A
      com_port: 1
      axo_bus: 0
      channel: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.Tracker.PollInterval)
	assert.Equal(t, 5, cfg.Tracker.PollAttempts)
	assert.Equal(t, Default().Tracker.CollectDelay, cfg.Tracker.CollectDelay, "unset keys keep their default")
	assert.Equal(t, TransportRelay, cfg.Transport)
	assert.Equal(t, "ws://10.0.0.5:40701", cfg.Relay.URL)
	assert.True(t, cfg.Mirror.Enabled)
	assert.Equal(t, 3, cfg.Mirror.UnitID)
	assert.Equal(t, 1000, cfg.Mirror.BaseAddress)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "localhost:9101", cfg.Metrics.Listen)
	require.Len(t, cfg.Simulator.Channels, 1)

	id, err := cfg.Simulator.Channels[0].ElectrodeID()
	require.NoError(t, err)
	assert.Equal(t, client.ElectrodeID(0x00020001), id)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "mctg.toml", `
transport = "bus"

[tracker]
stop_timeout = "2s"

[mirror]
timeout = "250ms"

[[simulator.channels]]
hardware = "700B"
serial = 835133
channel = 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, TransportBus, cfg.Transport)
	assert.Equal(t, 2*time.Second, cfg.Tracker.StopTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Mirror.Timeout)
	require.Len(t, cfg.Simulator.Channels, 1)
	assert.Equal(t, uint32(835133), cfg.Simulator.Channels[0].Serial)
}

func TestLoad_EmptyYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tt := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "mctg.json", "{}"},
		{"unknown yaml key", "mctg.yaml", "trackr:\n  poll_attempts: 1\n"},
		{"bad duration", "mctg.yaml", "tracker:\n  poll_interval: soon\n"},
		{"bad toml", "mctg.toml", "transport = \n"},
		{"invalid value", "mctg.toml", "transport = \"carrier-pigeon\"\n"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.file, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tt := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"default", func(*Config) {}, true},
		{"zero poll interval", func(c *Config) { c.Tracker.PollInterval = 0 }, false},
		{"no poll attempts", func(c *Config) { c.Tracker.PollAttempts = 0 }, false},
		{"negative collect delay", func(c *Config) { c.Tracker.CollectDelay = -time.Millisecond }, false},
		{"zero collect delay", func(c *Config) { c.Tracker.CollectDelay = 0 }, true},
		{"zero stop timeout", func(c *Config) { c.Tracker.StopTimeout = 0 }, false},
		{"unknown transport", func(c *Config) { c.Transport = "serial" }, false},
		{"relay with http url", func(c *Config) {
			c.Transport = TransportRelay
			c.Relay.URL = "http://localhost:40701"
		}, false},
		{"relay with wss url", func(c *Config) {
			c.Transport = TransportRelay
			c.Relay.URL = "wss://lab.example:40701"
		}, true},
		{"mirror without endpoint", func(c *Config) { c.Mirror.Enabled = true }, false},
		{"unit id too large", func(c *Config) { c.Mirror.UnitID = 248 }, false},
		{"base address overflow", func(c *Config) { c.Mirror.BaseAddress = 0xFFFF }, false},
		{"base address at limit", func(c *Config) { c.Mirror.BaseAddress = 0x10000 - 256 }, true},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"unknown hardware", func(c *Config) {
			c.Simulator.Channels = []ChannelConfig{{Hardware: "900", Channel: 1}}
		}, false},
		{"channel zero", func(c *Config) {
			c.Simulator.Channels = []ChannelConfig{{Hardware: "700B", Serial: 1, Channel: 0}}
		}, false},
		{"duplicate channel", func(c *Config) {
			c.Simulator.Channels = append(c.Simulator.Channels, c.Simulator.Channels[0])
		}, false},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)
			err := Validate(&cfg)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
