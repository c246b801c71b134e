package commands

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/tendermint/ledgerd/types"
)

// NewSendEventCmd returns the command that submits one event to a running
// node as a single datagram. Delivery is not confirmed.
func NewSendEventCmd() *cobra.Command {
	var (
		to     string
		origin string
	)

	cmd := &cobra.Command{
		Use:   "send-event <kind> [payload]",
		Short: "Submit an event to a node",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := types.Event{
				Kind:      args[0],
				Origin:    origin,
				Timestamp: types.Now(),
			}
			if len(args) == 2 {
				ev.Payload = []byte(args[1])
			}
			if err := ev.ValidateBasic(); err != nil {
				return err
			}

			bz, err := types.EncodeMessage(types.SubmitRequest(ev))
			if err != nil {
				return err
			}

			addr, err := net.ResolveUDPAddr("udp", to)
			if err != nil {
				return fmt.Errorf("invalid node address %q: %w", to, err)
			}
			conn, err := net.DialUDP("udp", nil, addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			if _, err := conn.Write(bz); err != nil {
				return fmt.Errorf("sending event: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%X\n", []byte(ev.Hash()))
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "127.0.0.1:26656", "UDP address of the node")
	cmd.Flags().StringVar(&origin, "origin", "", "origin of the event (defaults to the receiving node's moniker)")
	return cmd
}
