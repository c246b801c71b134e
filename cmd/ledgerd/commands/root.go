package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tendermint/ledgerd/config"
	"github.com/tendermint/ledgerd/libs/cli"
	"github.com/tendermint/ledgerd/libs/log"
)

// EnvPrefix prefixes every environment variable ledgerd reads,
// e.g. LEDGERD_P2P_PEERS.
const EnvPrefix = "LEDGERD"

// ParseConfig retrieves the default environment configuration,
// sets up the ledgerd root and validates the result.
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point for ledgerd.
// Subcommands read the parsed configuration through conf.
func RootCommand(conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ledgerd",
		Short:        "UDP gossip node that batches events into a local chain",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == versionCmdName {
				return nil
			}

			pconf, err := ParseConfig(conf)
			if err != nil {
				return err
			}
			*conf = *pconf
			return nil
		},
	}
	cmd.PersistentFlags().String("log_level", conf.LogLevel, "log level")
	cmd.PersistentFlags().String("log_format", conf.LogFormat, "log format (plain | json)")
	return cli.PrepareBaseCmd(cmd, EnvPrefix, os.ExpandEnv(filepath.Join("$HOME", config.DefaultLedgerdDir)))
}

// NewLogger builds the process logger from the parsed configuration.
func NewLogger(conf *config.Config) (log.Logger, error) {
	return log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
}
