package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wavesurfer/mctg/client"
	"github.com/wavesurfer/mctg/relay"
)

var relayCmd = &cobra.Command{
	Use:   "relay [address]",
	Short: "Run the relay hub that forwards telegraph messages between trackers and amplifier-control programs.",
	Args:  cobra.MaximumNArgs(1),
	Run:   runRelay,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Attach a simulated amplifier-control program with the configured channels to the relay.",
	Run:   runSimulate,
}

func init() {
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(simulateCmd)
}

func interruptibleContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go handleCancelation(signals, cancel)
	return ctx, cancel
}

func runRelay(_ *cobra.Command, args []string) {
	addr := cfg.Relay.Listen
	if len(args) > 0 {
		addr = args[0]
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	err := relay.NewServer().ListenAndServe(ctx, addr)
	if err != nil {
		log.Fatal().Err(err).Str("address", addr).Msg("relay failed")
	}
}

func runSimulate(_ *cobra.Command, _ []string) {
	ctx, cancel := interruptibleContext()
	defer cancel()

	for {
		keepSimulating(ctx, client.NewWebsocketTransport(cfg.Relay.URL))
		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.Relay.RetryInterval):
		}
	}
}

// keepSimulating serves the configured channels until ctx is done or the relay connection is lost.
func keepSimulating(ctx context.Context, transport client.Transport) {
	commander, err := newCommander(transport)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot set up the simulated channels")
	}
	if err := commander.Start(); err != nil {
		log.Error().Err(err).Str("relay", cfg.Relay.URL).Dur("retry", cfg.Relay.RetryInterval).Msg("cannot attach to the relay")
		return
	}
	defer commander.Stop()

	if err := commander.Reconnect(); err != nil {
		log.Error().Err(err).Msg("cannot announce the simulated channels")
	}
	for _, id := range commander.IDs() {
		log.Info().Stringer("id", id).Msg("simulating electrode")
	}

	select {
	case <-ctx.Done():
	case <-commander.Done():
		log.Warn().Str("relay", cfg.Relay.URL).Dur("retry", cfg.Relay.RetryInterval).Msg("relay connection lost")
	}
}
