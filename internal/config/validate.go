package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wavesurfer/mctg/client"
	"github.com/wavesurfer/mctg/internal/logging"
	"github.com/wavesurfer/mctg/internal/mirror"
)

// Validate checks the configuration for consistency.
// It MUST NOT mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ---- tracker ----
	t := cfg.Tracker
	if t.PollInterval <= 0 {
		return fmt.Errorf("tracker.poll_interval must be positive")
	}
	if t.PollAttempts < 1 {
		return fmt.Errorf("tracker.poll_attempts must be at least 1")
	}
	if t.CollectDelay < 0 {
		return fmt.Errorf("tracker.collect_delay must not be negative")
	}
	if t.StartupWait <= 0 {
		return fmt.Errorf("tracker.startup_wait must be positive")
	}
	if t.StopTimeout <= 0 {
		return fmt.Errorf("tracker.stop_timeout must be positive")
	}

	// ---- transport ----
	switch cfg.Transport {
	case TransportBus:
	case TransportRelay:
		u, err := url.Parse(cfg.Relay.URL)
		if err != nil {
			return fmt.Errorf("relay.url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("relay.url must use ws or wss, got %q", cfg.Relay.URL)
		}
	default:
		return fmt.Errorf("transport must be %q or %q, got %q", TransportBus, TransportRelay, cfg.Transport)
	}
	if strings.TrimSpace(cfg.Relay.Listen) == "" {
		return fmt.Errorf("relay.listen is required")
	}
	if cfg.Relay.RetryInterval <= 0 {
		return fmt.Errorf("relay.retry_interval must be positive")
	}

	// ---- mirror ----
	m := cfg.Mirror
	if m.Enabled && strings.TrimSpace(m.Endpoint) == "" {
		return fmt.Errorf("mirror.endpoint is required when the mirror is enabled")
	}
	if m.UnitID < 0 || m.UnitID > 247 {
		return fmt.Errorf("mirror.unit_id out of range: %d", m.UnitID)
	}
	span := mirror.MaxElectrodes * mirror.RegistersPerElectrode
	if m.BaseAddress < 0 || m.BaseAddress+span > 0x10000 {
		return fmt.Errorf("mirror.base_address %d leaves no room for %d registers", m.BaseAddress, span)
	}
	if m.Timeout <= 0 {
		return fmt.Errorf("mirror.timeout must be positive")
	}

	// ---- log ----
	if cfg.Log.Level != "" {
		if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
			return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
		}
	}

	// ---- simulator ----
	seen := make(map[client.ElectrodeID]int, len(cfg.Simulator.Channels))
	for i, ch := range cfg.Simulator.Channels {
		id, err := ch.ElectrodeID()
		if err != nil {
			return fmt.Errorf("simulator.channels[%d]: %w", i, err)
		}
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("simulator.channels[%d]: duplicate of channels[%d] (%s)", i, prev, id)
		}
		seen[id] = i
	}

	return nil
}
