package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wavesurfer/mctg/client"
	"github.com/wavesurfer/mctg/internal/config"
	"github.com/wavesurfer/mctg/internal/logging"
	"github.com/wavesurfer/mctg/sim"
)

var rootFlags = struct {
	config   string
	relay    string
	logLevel string
}{}

var rootCmd = &cobra.Command{
	Use:               "mctg",
	Short:             "Track the state of Multiclamp amplifier channels through their telegraphs.",
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

// loaded configuration, set up by the persistent pre-run hook
var cfg = config.Default()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.config, "config", "", "configuration file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.relay, "relay", "", "connect to the relay at this websocket url instead of the configured transport")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error or off")
}

func setup(cmd *cobra.Command, _ []string) error {
	if rootFlags.config != "" {
		loaded, err := config.Load(rootFlags.config)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if rootFlags.relay != "" {
		cfg.Transport = config.TransportRelay
		cfg.Relay.URL = rootFlags.relay
	}
	if rootFlags.logLevel != "" {
		cfg.Log.Level = rootFlags.logLevel
	}
	if err := config.Validate(&cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.ConfigureRuntime(cfg.Log.Level)
	if level, _ := logging.ParseLevel(cfg.Log.Level); level > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Debug().Str("command", cmd.Name()).Str("transport", cfg.Transport).Msg("configuration loaded")
	return nil
}

// runWithClient creates the tracker on the configured transport and cancels the context on SIGINT/SIGTERM.
// With the in-process bus a simulated Commander serves the configured channels.
func runWithClient(f func(context.Context, *client.Client, *cobra.Command, []string)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		go handleCancelation(signals, cancel)

		transport, err := openTransport()
		if err != nil {
			log.Fatal().Err(err).Msg("cannot set up the transport")
		}
		if bus, ok := transport.(*client.Bus); ok {
			commander, err := newCommander(bus)
			if err != nil {
				log.Fatal().Err(err).Msg("cannot set up the simulated channels")
			}
			if err := commander.Start(); err != nil {
				log.Fatal().Err(err).Msg("cannot start the simulated commander")
			}
			defer commander.Stop()
		}

		c := client.New(transport, cfg.ClientConfig())
		defer c.Stop()

		f(ctx, c, cmd, args)
	}
}

func openTransport() (client.Transport, error) {
	switch cfg.Transport {
	case config.TransportBus:
		return client.NewBus(), nil
	case config.TransportRelay:
		return client.NewWebsocketTransport(cfg.Relay.URL), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func newCommander(transport client.Transport) (*sim.Commander, error) {
	channels := make([]client.Telegraph, 0, len(cfg.Simulator.Channels))
	for i, ch := range cfg.Simulator.Channels {
		switch ch.Hardware {
		case "700A":
			channels = append(channels, sim.Channel700A(ch.ComPort, ch.AxoBus, ch.Channel))
		case "700B":
			channels = append(channels, sim.Channel700B(ch.Serial, ch.Channel))
		default:
			return nil, fmt.Errorf("simulator channel %d: unknown hardware %q", i, ch.Hardware)
		}
	}
	return sim.NewCommander(transport, channels...), nil
}

func handleCancelation(signals <-chan os.Signal, cancel context.CancelFunc) {
	count := 0
	for {
		select {
		case <-signals:
			count++
			if count == 1 {
				cancel()
			} else {
				log.Fatal().Msg("hard shutdown")
			}
		}
	}
}
