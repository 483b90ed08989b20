// Package cli implements the otterconf command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/ottermq/otterconf/config"
	"github.com/ottermq/otterconf/internal/gateway"
	"github.com/ottermq/otterconf/pkg/logger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailed      = 1 // reconciliation reported errors
	ExitUsage       = 2 // bad flags or unreadable desired state
	ExitUnreachable = 3 // wait gave up on the broker
	ExitDrift       = 4 // verify --fail-on-missing found missing objects
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error
	// Logged is set when the command already logged Err.
	Logged bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// loggedExit is exitError for a failure the command has already logged.
func loggedExit(code int, err error) error {
	return &ExitError{Code: code, Err: err, Logged: true}
}

// GatewayFactory builds the management API gateway for a run.
type GatewayFactory func(brokerURL string, cred gateway.Credential, timeout time.Duration) (gateway.Gateway, error)

// Deps are the collaborators commands reach outside the process through.
type Deps struct {
	NewGateway GatewayFactory
	// Listen opens the HTTP API listener of serve; nil means net.Listen.
	Listen func(addr string) (net.Listener, error)
	Out    io.Writer
	// InitLogger is called with the resolved --log-level before each command.
	InitLogger func(level string)
}

// DefaultDeps talks to a real broker and logs to stderr.
func DefaultDeps() *Deps {
	return &Deps{
		NewGateway: func(brokerURL string, cred gateway.Credential, timeout time.Duration) (gateway.Gateway, error) {
			return gateway.NewClient(brokerURL, cred, gateway.WithTimeout(timeout))
		},
		Out:        os.Stdout,
		InitLogger: logger.Init,
	}
}

// brokerOptions are the flags shared by every command that talks to a broker.
type brokerOptions struct {
	brokerURL string
	username  string
	password  string
	waitSecs  int
	amqpURL   string
	timeout   time.Duration
}

func (o *brokerOptions) bind(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVarP(&o.brokerURL, "broker", "b", cfg.BrokerURL, "HTTP URL of the broker management API")
	cmd.Flags().StringVarP(&o.username, "user", "u", cfg.Username, "Username")
	cmd.Flags().StringVarP(&o.password, "pass", "p", cfg.Password, "Password")
	cmd.Flags().IntVarP(&o.waitSecs, "wait", "w", int(cfg.Wait/time.Second), "Seconds to wait for the broker to become available")
	cmd.Flags().StringVar(&o.amqpURL, "amqp-url", cfg.AMQPURL, "AMQP URL that must also accept connections before the broker counts as available")
	cmd.Flags().DurationVar(&o.timeout, "http-timeout", cfg.HTTPTimeout, "Timeout of each management API request")
}

func (o *brokerOptions) credential() gateway.Credential {
	return gateway.Credential{Username: o.username, Password: o.password}
}

// pinger probes the management API and, when configured, the AMQP listener.
func (o *brokerOptions) pinger(gw gateway.Gateway) gateway.Pinger {
	if o.amqpURL == "" {
		return gw
	}
	return gateway.AllPingers{gw, &gateway.AMQPProbe{URL: o.amqpURL}}
}

func (o *brokerOptions) wait() time.Duration {
	return time.Duration(o.waitSecs) * time.Second
}

// NewRootCmd builds the command tree with flag defaults taken from cfg.
func NewRootCmd(cfg *config.Config, deps *Deps) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "otterconf",
		Short:         "Apply declarative topology to a RabbitMQ broker",
		Long:          "otterconf reads vhosts, users, permissions, exchanges, queues and bindings from a YAML or TOML document and makes sure they exist on a RabbitMQ broker. Existing objects are never modified or deleted.",
		Version:       cfg.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if deps.InitLogger != nil {
				deps.InitLogger(logLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	root.AddCommand(newReconcileCmd(cfg, deps, reconcileApply))
	root.AddCommand(newReconcileCmd(cfg, deps, reconcileVerify))
	root.AddCommand(newWaitCmd(cfg, deps))
	root.AddCommand(newHistoryCmd(cfg))
	root.AddCommand(newServeCmd(cfg, deps))
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, cfg *config.Config, deps *Deps, args []string) int {
	root := NewRootCmd(cfg, deps)
	root.SetArgs(args)
	root.SetOut(deps.Out)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil && !exitErr.Logged {
			log.Error().Err(exitErr.Err).Int("exit_code", exitErr.Code).Msg("Command failed")
		}
		return exitErr.Code
	}
	// cobra reports unknown commands and bad flags as plain errors
	log.Error().Err(err).Msg("Invalid command line")
	fmt.Fprintln(root.ErrOrStderr(), root.UsageString())
	return ExitUsage
}
