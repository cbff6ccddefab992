package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wavesurfer/mctg/client"
)

var id700aCmd = &cobra.Command{
	Use:   "id700a <comPort> <axoBus> <channel>",
	Short: "Print the electrode id of a 700A channel.",
	Args:  cobra.ExactArgs(3),
	RunE:  id700a,
}

var id700bCmd = &cobra.Command{
	Use:   "id700b <serial> <channel>",
	Short: "Print the electrode id of a 700B channel.",
	Args:  cobra.ExactArgs(2),
	RunE:  id700b,
}

func init() {
	rootCmd.AddCommand(id700aCmd)
	rootCmd.AddCommand(id700bCmd)
}

func id700a(_ *cobra.Command, args []string) error {
	fields, err := parseFields(args, "comPort", "axoBus", "channel")
	if err != nil {
		return err
	}
	id, err := client.Get700AID(fields[0], fields[1], fields[2])
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func id700b(_ *cobra.Command, args []string) error {
	fields, err := parseFields(args, "serial", "channel")
	if err != nil {
		return err
	}
	id, err := client.Get700BID(fields[0], fields[1])
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func parseFields(args []string, names ...string) ([]uint32, error) {
	result := make([]uint32, len(names))
	for i, name := range names {
		v, err := strconv.ParseUint(args[i], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", name, args[i], err)
		}
		result[i] = uint32(v)
	}
	return result, nil
}
