package config

import (
	"fmt"
	"time"

	"github.com/wavesurfer/mctg/client"
	"github.com/wavesurfer/mctg/relay"
)

// Transport names.
const (
	TransportBus   = "bus"
	TransportRelay = "relay"
)

type Config struct {
	Tracker   TrackerConfig
	Transport string
	Relay     RelayConfig
	Mirror    MirrorConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Simulator SimulatorConfig
}

// ---- TRACKER ----

type TrackerConfig struct {
	PollInterval time.Duration
	PollAttempts int
	CollectDelay time.Duration
	StartupWait  time.Duration
	StopTimeout  time.Duration
}

// ---- RELAY ----

type RelayConfig struct {
	// URL the tracker and the simulator connect to.
	URL string
	// Listen is the address the relay hub binds to.
	Listen string
	// RetryInterval between reconnect attempts of long running peers.
	RetryInterval time.Duration
}

// ---- MIRROR ----

type MirrorConfig struct {
	Enabled     bool
	Endpoint    string
	UnitID      int
	BaseAddress int
	Timeout     time.Duration
}

// ---- LOG ----

type LogConfig struct {
	Level string
}

// ---- METRICS ----

type MetricsConfig struct {
	// Listen is the address of the monitor's /metrics endpoint. Empty disables it.
	Listen string
}

// ---- SIMULATOR ----

type SimulatorConfig struct {
	Channels []ChannelConfig
}

// ChannelConfig describes one simulated amplifier channel.
type ChannelConfig struct {
	Hardware string `yaml:"hardware" toml:"hardware"` // "700A" or "700B"
	ComPort  uint32 `yaml:"com_port" toml:"com_port"`
	AxoBus   uint32 `yaml:"axo_bus" toml:"axo_bus"`
	Serial   uint32 `yaml:"serial" toml:"serial"`
	Channel  uint32 `yaml:"channel" toml:"channel"`
}

// Default returns the reference configuration.
func Default() Config {
	tracker := client.DefaultConfig()
	return Config{
		Tracker: TrackerConfig{
			PollInterval: tracker.PollInterval,
			PollAttempts: tracker.PollAttempts,
			CollectDelay: tracker.CollectDelay,
			StartupWait:  tracker.StartupWait,
			StopTimeout:  tracker.StopTimeout,
		},
		Transport: TransportBus,
		Relay: RelayConfig{
			URL:           fmt.Sprintf("ws://localhost:%d", client.DefaultRelayPort),
			Listen:        relay.DefaultAddress,
			RetryInterval: 5 * time.Second,
		},
		Mirror: MirrorConfig{
			UnitID:  1,
			Timeout: time.Second,
		},
		Simulator: SimulatorConfig{
			Channels: []ChannelConfig{
				{Hardware: "700B", Serial: 835133, Channel: 1},
				{Hardware: "700B", Serial: 835133, Channel: 2},
			},
		},
	}
}

// ClientConfig converts the tracker section into the client configuration.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		PollInterval: c.Tracker.PollInterval,
		PollAttempts: c.Tracker.PollAttempts,
		CollectDelay: c.Tracker.CollectDelay,
		StartupWait:  c.Tracker.StartupWait,
		StopTimeout:  c.Tracker.StopTimeout,
	}
}

// ElectrodeID returns the packed address of the simulated channel.
func (c ChannelConfig) ElectrodeID() (client.ElectrodeID, error) {
	switch c.Hardware {
	case "700A":
		return client.Get700AID(c.ComPort, c.AxoBus, c.Channel)
	case "700B":
		return client.Get700BID(c.Serial, c.Channel)
	default:
		return 0, fmt.Errorf("unknown hardware %q, expected 700A or 700B", c.Hardware)
	}
}
