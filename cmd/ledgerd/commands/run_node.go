package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/ledgerd/config"
	tmos "github.com/tendermint/ledgerd/libs/os"
	"github.com/tendermint/ledgerd/node"
)

// AddNodeFlags exposes some common configuration options on the command-line
// These are exposed for convenience of commands embedding a ledgerd node
func AddNodeFlags(cmd *cobra.Command, conf *config.Config) {
	// bind flags
	cmd.Flags().String("moniker", conf.Moniker, "node name")

	// p2p flags
	cmd.Flags().String(
		"p2p.laddr",
		conf.P2P.ListenAddress,
		"UDP listen address. (0.0.0.0:0 means any interface, any port)")
	cmd.Flags().String("p2p.peers", conf.P2P.Peers, "comma-delimited host:port gossip peers")
	cmd.Flags().Int("p2p.gossip_fan_out", conf.P2P.GossipFanOut, "number of peers each event is sent to")

	// ledger flags
	cmd.Flags().Duration("ledger.block_interval", conf.Ledger.BlockInterval, "how often pending events are cut into a block")
	cmd.Flags().Int("ledger.max_block_events", conf.Ledger.MaxBlockEvents, "maximum number of events in one block")

	// instrumentation flags
	cmd.Flags().Bool("instrumentation.prometheus", conf.Instrumentation.Prometheus, "serve prometheus metrics")

	addDBFlags(cmd, conf)
}

func addDBFlags(cmd *cobra.Command, conf *config.Config) {
	cmd.Flags().String(
		"db_backend",
		conf.DBBackend,
		"database backend: goleveldb | memdb")
	cmd.Flags().String(
		"db_dir",
		conf.DBPath,
		"database directory")
}

// NewRunNodeCmd returns the command that allows the CLI to start a node.
func NewRunNodeCmd(conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the ledgerd node",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := NewLogger(conf)
			if err != nil {
				return err
			}

			n, err := node.New(conf, logger)
			if err != nil {
				return fmt.Errorf("failed to create node: %w", err)
			}

			if err := n.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start node: %w", err)
			}

			logger.Info("started node", "node", n.String(), "laddr", n.NetContext().Addr())

			// Stop upon receiving SIGTERM or CTRL-C.
			tmos.TrapSignal(logger, func() {
				if n.IsRunning() {
					if err := n.Stop(); err != nil {
						logger.Error("unable to stop the node", "error", err)
					}
				}
			})

			// Run until stopped.
			n.Wait()
			return nil
		},
	}

	AddNodeFlags(cmd, conf)
	return cmd
}
