package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/ledgerd/version"
)

const versionCmdName = "version"

// NewVersionCmd returns the command that prints the version.
func NewVersionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   versionCmdName,
		Short: "Show version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return nil
			}

			values, err := json.MarshalIndent(struct {
				Ledgerd        string `json:"ledgerd"`
				GossipProtocol uint64 `json:"gossip_protocol"`
				BlockProtocol  uint64 `json:"block_protocol"`
			}{
				Ledgerd:        version.Version,
				GossipProtocol: version.GossipProtocol.Uint64(),
				BlockProtocol:  version.BlockProtocol.Uint64(),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(values))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show protocol versions")
	return cmd
}
