package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wavesurfer/mctg/client"
)

var idsCmd = &cobra.Command{
	Use:   "ids",
	Short: "List the electrode ids of all channels that answer the identify broadcast.",
	Run:   runWithClient(ids),
}

var stateCmd = &cobra.Command{
	Use:   "state <id>",
	Short: "Request and print the state of one electrode. The id is hexadecimal (0x...) or decimal.",
	Args:  cobra.ExactArgs(1),
	Run:   runWithClient(state),
}

func init() {
	rootCmd.AddCommand(idsCmd)
	rootCmd.AddCommand(stateCmd)
}

func ids(ctx context.Context, c *client.Client, _ *cobra.Command, _ []string) {
	result, err := c.GetAllElectrodeIDs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot collect electrode ids")
	}
	for _, id := range result {
		fmt.Println(id)
	}
}

func state(ctx context.Context, c *client.Client, _ *cobra.Command, args []string) {
	id, err := client.ParseElectrodeID(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid electrode id")
	}

	result, ok, err := c.GetElectrodeState(ctx, id)
	if err != nil {
		log.Fatal().Err(err).Stringer("id", id).Msg("cannot get electrode state")
	}
	if !ok {
		fmt.Printf("%s: no data\n", id)
		return
	}
	fmt.Println(result)
}
