package cli

import (
	"github.com/canopy-network/spectroscope/lib"
	"github.com/spf13/cobra"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "manage the monitored validators through the rpc",
}

func init() {
	nodesCmd.AddCommand(addNodesCmd)
	nodesCmd.AddCommand(upNodesCmd)
	nodesCmd.AddCommand(delNodesCmd)
	nodesCmd.AddCommand(getNodesCmd)
	nodesCmd.AddCommand(watchListCmd)
}

var (
	addNodesCmd = &cobra.Command{
		Use:   "add <pubkey> <pubkey>...",
		Short: "start monitoring validators",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.AddNodes(argsToKeys(args)))
		},
	}

	upNodesCmd = &cobra.Command{
		Use:   "up <status> <pubkey> <pubkey>...",
		Short: "set the status of monitored validators, the status is a name (ex. ACTIVE) or a number",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			status, err := lib.ParseValidatorStatus(args[0])
			if err != nil {
				l.Fatal(err.Error())
			}
			writeToConsole(client.UpNodes(argsToKeys(args[1:]), status))
		},
	}

	delNodesCmd = &cobra.Command{
		Use:   "del <pubkey> <pubkey>...",
		Short: "stop monitoring validators",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.DelNodes(argsToKeys(args)))
		},
	}

	getNodesCmd = &cobra.Command{
		Use:   "get [pubkey]...",
		Short: "list the monitored validators, all of them without arguments",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.GetNodes(argsToKeys(args)))
		},
	}

	watchListCmd = &cobra.Command{
		Use:   "watchlist",
		Short: "list the validators currently streamed",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.WatchList())
		},
	}
)

// argsToKeys() parses hex encoded public keys
func argsToKeys(args []string) (keys []lib.HexBytes) {
	for _, arg := range args {
		k, err := lib.NewHexBytesFromString(arg)
		if err != nil {
			l.Fatal(err.Error())
		}
		keys = append(keys, k)
	}
	return
}
