package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/ottermq/otterconf/config"
	"github.com/ottermq/otterconf/internal/controller"
	"github.com/ottermq/otterconf/internal/loader"
	"github.com/ottermq/otterconf/internal/reconcile"
	"github.com/ottermq/otterconf/pkg/metrics"
	"github.com/ottermq/otterconf/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	brokerOptions
	journal         journalOptions
	configPath      string
	listen          string
	interval        time.Duration
	apiUsername     string
	apiPassword     string
	apiPasswordHash string
	jwtSecret       string
	accessLog       bool
}

func newServeCmd(cfg *config.Config, deps *Deps) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the broker converged and serve the HTTP API",
		Long: `Apply the desired-state document now and then on every --interval, re-reading
the document each time. The HTTP API exposes the last run, the journal and
on-demand runs behind a JWT login, plus Prometheus metrics on /metrics.`,
		Example: `  OTTERCONF_API_PASSWORD=changeme otterconf serve -c broker.yaml -b http://rabbit:15672 --interval 5m --journal /var/lib/otterconf/journal.db`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, deps, opts)
		},
	}
	opts.brokerOptions.bind(cmd, cfg)
	opts.journal.bind(cmd, cfg)
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", cfg.ConfigPath, "Desired-state file (.yaml, .yml or .toml)")
	cmd.Flags().StringVar(&opts.listen, "listen", cfg.ListenAddr, "Address of the HTTP API")
	cmd.Flags().DurationVar(&opts.interval, "interval", cfg.Interval, "Time between scheduled runs")
	cmd.Flags().StringVar(&opts.apiUsername, "api-user", cfg.ApiUsername, "Username of the HTTP API account")
	cmd.Flags().StringVar(&opts.apiPassword, "api-password", cfg.ApiPassword, "Password of the HTTP API account")
	cmd.Flags().BoolVar(&opts.accessLog, "access-log", false, "Log every HTTP request to stdout")
	opts.apiPasswordHash = cfg.ApiPasswordHash
	opts.jwtSecret = cfg.JwtSecret
	return cmd
}

func runServe(cmd *cobra.Command, deps *Deps, opts *serveOptions) error {
	ctx := cmd.Context()

	if opts.interval <= 0 {
		return exitError(ExitUsage, errors.New("--interval must be positive"))
	}
	if opts.apiPassword == "" && opts.apiPasswordHash == "" {
		return exitError(ExitUsage, errors.New("serve needs --api-password or OTTERCONF_API_PASSWORD_HASH"))
	}
	// fail fast on a broken document; later runs report it in their status
	if _, err := loader.Load(opts.configPath); err != nil {
		return loggedExit(ExitUsage, err)
	}

	gw, err := deps.NewGateway(opts.brokerURL, opts.credential(), opts.timeout)
	if err != nil {
		log.Error().Err(err).Str("broker", opts.brokerURL).Msg("Invalid broker address")
		return loggedExit(ExitUsage, err)
	}
	if opts.waitSecs > 0 && !reconcile.WaitForBroker(ctx, opts.pinger(gw), opts.wait()) {
		log.Warn().Str("broker", opts.brokerURL).Dur("waited", opts.wait()).Msg("Broker not available, starting anyway")
	}

	journal := opts.journal.open()
	defer func() {
		if err := journal.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close journal")
		}
	}()
	collector := metrics.NewCollector(metrics.DefaultConfig())
	engine := reconcile.NewEngine(gw,
		reconcile.WithJournal(journal),
		reconcile.WithMetrics(collector),
		reconcile.WithSource(opts.configPath),
		reconcile.WithBroker(opts.brokerURL),
	)
	ctrl := controller.New(opts.configPath, engine, opts.interval)

	jwtSecret := opts.jwtSecret
	if jwtSecret == "" {
		jwtSecret = uuid.NewString()
		log.Warn().Msg("OTTERCONF_JWT_SECRET not set, tokens will not survive a restart")
	}
	webConfig := &web.Config{
		Username:     opts.apiUsername,
		Password:     opts.apiPassword,
		PasswordHash: opts.apiPasswordHash,
		JwtKey:       jwtSecret,
		ApiPrefix:    "/api",
	}
	if opts.accessLog {
		webConfig.AccessLog = cmd.OutOrStdout()
	}
	ws, err := web.NewWebServer(webConfig, ctrl, journal, collector.Registry())
	if err != nil {
		return exitError(ExitUsage, err)
	}
	app := ws.SetupApp()

	ln, err := deps.listen(opts.listen)
	if err != nil {
		return exitError(ExitUsage, fmt.Errorf("listening on %s: %w", opts.listen, err))
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = ctrl.Run(loopCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("Starting web server")
		serveErr <- app.Listener(ln)
	}()

	var result error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down otterconf...")
	case err := <-serveErr:
		log.Error().Err(err).Msg("Web server error")
		result = loggedExit(ExitFailed, err)
	}

	stopLoop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown web server")
	}
	select {
	case <-loopDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Timeout reached waiting for the running reconciliation")
	}
	log.Info().Msg("Server gracefully stopped")
	return result
}

func (d *Deps) listen(addr string) (net.Listener, error) {
	if d.Listen != nil {
		return d.Listen(addr)
	}
	return net.Listen("tcp", addr)
}
