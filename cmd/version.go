package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wavesurfer/mctg/client"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the telegraph tracker.",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("mctg %s\n", client.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
