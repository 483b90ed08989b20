package cli

import (
	"errors"
	"fmt"

	"github.com/ottermq/otterconf/config"
	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/ottermq/otterconf/internal/loader"
	"github.com/ottermq/otterconf/internal/reconcile"
	"github.com/ottermq/otterconf/pkg/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	reconcileApply  = reconcile.ModeApply
	reconcileVerify = reconcile.ModeVerify
)

type reconcileOptions struct {
	brokerOptions
	configPath    string
	metricsFile   string
	journal       journalOptions
	failOnMissing bool
}

func newReconcileCmd(cfg *config.Config, deps *Deps, mode reconcile.Mode) *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, deps, mode, opts)
		},
	}
	switch mode {
	case reconcile.ModeApply:
		cmd.Use = "apply"
		cmd.Short = "Apply configuration to broker"
		cmd.Example = `  otterconf apply -c broker.yaml -b http://localhost:15672 -u guest -p guest -w 30`
	case reconcile.ModeVerify:
		cmd.Use = "verify"
		cmd.Short = "Verify broker configuration"
		cmd.Example = `  otterconf verify -c broker.toml -b http://localhost:15672 --fail-on-missing`
		cmd.Flags().BoolVar(&opts.failOnMissing, "fail-on-missing", false, "Exit with a non-zero status when declared objects are missing")
	}

	opts.brokerOptions.bind(cmd, cfg)
	opts.journal.bind(cmd, cfg)
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", cfg.ConfigPath, "Desired-state file (.yaml, .yml or .toml)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus metrics of the run to this textfile")
	return cmd
}

func runReconcile(cmd *cobra.Command, deps *Deps, mode reconcile.Mode, opts *reconcileOptions) error {
	ctx := cmd.Context()

	log.Info().Str("path", opts.configPath).Msg("Reading configuration")
	state, err := loader.Load(opts.configPath)
	if err != nil {
		log.Error().Msg("Failed to read configuration, exiting")
		return loggedExit(ExitUsage, err)
	}

	gw, err := deps.NewGateway(opts.brokerURL, opts.credential(), opts.timeout)
	if err != nil {
		log.Error().Err(err).Str("broker", opts.brokerURL).Msg("Invalid broker address")
		return loggedExit(ExitUsage, err)
	}

	if opts.waitSecs > 0 {
		// an unreachable broker is not fatal here; the run reports what fails
		if !reconcile.WaitForBroker(ctx, opts.pinger(gw), opts.wait()) {
			log.Warn().Str("broker", opts.brokerURL).Dur("waited", opts.wait()).Msg("Broker not available, trying anyway")
		}
	}

	journal := opts.journal.open()
	defer func() {
		if err := journal.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close journal")
		}
	}()

	engineOpts := []reconcile.Option{
		reconcile.WithJournal(journal),
		reconcile.WithSource(opts.configPath),
		reconcile.WithBroker(opts.brokerURL),
	}
	var collector *metrics.Collector
	if opts.metricsFile != "" {
		collector = metrics.NewCollector(metrics.DefaultConfig())
		engineOpts = append(engineOpts, reconcile.WithMetrics(collector))
	}

	engine := reconcile.NewEngine(gw, engineOpts...)
	report, runErr := engine.Run(ctx, mode, state)

	if collector != nil {
		if err := collector.WriteTextfile(opts.metricsFile); err != nil {
			log.Warn().Err(err).Str("path", opts.metricsFile).Msg("Failed to write metrics textfile")
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: created=%d unchanged=%d missing=%d errors=%d\n",
		report.Mode, report.RunID,
		report.Total(models.OutcomeCreated),
		report.Total(models.OutcomeUnchanged),
		report.Total(models.OutcomeMissing),
		report.Errors())

	if runErr != nil {
		var agg *reconcile.AggregateError
		if errors.As(runErr, &agg) {
			ev := log.Error().Int("errors", agg.Len())
			msgs := make([]string, 0, agg.Len())
			for _, e := range agg.Errors() {
				msgs = append(msgs, e.Error())
			}
			ev.Strs("messages", msgs).Msgf("Encountered %d errors, exiting", agg.Len())
		} else {
			log.Error().Err(runErr).Msg("Reconciliation failed")
		}
		return loggedExit(ExitFailed, runErr)
	}
	if opts.failOnMissing && report.Total(models.OutcomeMissing) > 0 {
		log.Error().Int("missing", report.Total(models.OutcomeMissing)).Msg("Declared objects are missing from the broker")
		return loggedExit(ExitDrift, fmt.Errorf("%d declared objects are missing", report.Total(models.OutcomeMissing)))
	}
	return nil
}
