package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/ledgerd/config"
	tmos "github.com/tendermint/ledgerd/libs/os"
)

// MakeInitFilesCommand returns the command that creates the home directory
// layout and writes config.toml. An existing file keeps its settings and
// only gains the ones it lacks.
func MakeInitFilesCommand(conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the ledgerd home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initFiles(cmd, conf)
		},
	}
	cmd.Flags().String("moniker", conf.Moniker, "node name")
	cmd.Flags().String("p2p.laddr", conf.P2P.ListenAddress, "UDP listen address")
	cmd.Flags().String("p2p.peers", conf.P2P.Peers, "comma-delimited host:port gossip peers")
	return cmd
}

func initFiles(cmd *cobra.Command, conf *config.Config) error {
	config.EnsureRoot(conf.RootDir)

	path := config.ConfigFile(conf.RootDir)
	if tmos.FileExists(path) {
		fmt.Fprintf(cmd.OutOrStdout(), "Found config file: %s\n", path)

		added, err := config.UpgradeConfigFile(cmd.Context(), path, conf)
		if err != nil {
			return err
		}
		for _, name := range added {
			fmt.Fprintf(cmd.OutOrStdout(), "Added setting: %s\n", name)
		}
		return nil
	}

	if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated config file: %s\n", path)
	return nil
}
