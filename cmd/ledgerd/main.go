package main

import (
	"context"
	"os"

	"github.com/tendermint/ledgerd/cmd/ledgerd/commands"
	"github.com/tendermint/ledgerd/config"
)

func main() {
	conf := config.DefaultConfig()

	rootCmd := commands.RootCommand(conf)
	rootCmd.AddCommand(
		commands.MakeInitFilesCommand(conf),
		commands.NewRunNodeCmd(conf),
		commands.NewSendEventCmd(),
		commands.NewVersionCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
