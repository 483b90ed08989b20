package cli

import (
	"fmt"

	"github.com/ottermq/otterconf/config"
	"github.com/ottermq/otterconf/internal/reconcile"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWaitCmd(cfg *config.Config, deps *Deps) *cobra.Command {
	opts := &brokerOptions{}
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait for the broker to become available",
		Long:  "Poll the management API, and the AMQP listener when --amqp-url is set, until the broker responds or --wait seconds have passed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := deps.NewGateway(opts.brokerURL, opts.credential(), opts.timeout)
			if err != nil {
				log.Error().Err(err).Str("broker", opts.brokerURL).Msg("Invalid broker address")
				return loggedExit(ExitUsage, err)
			}
			if !reconcile.WaitForBroker(cmd.Context(), opts.pinger(gw), opts.wait()) {
				return exitError(ExitUnreachable, fmt.Errorf("broker %s not available after %s", opts.brokerURL, opts.wait()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "broker %s is available\n", opts.brokerURL)
			return nil
		},
	}
	opts.bind(cmd, cfg)
	return cmd
}
