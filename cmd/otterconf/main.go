package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ottermq/otterconf/config"
	"github.com/ottermq/otterconf/internal/cli"
)

var (
	VERSION = ""
)

func main() {
	// Load configuration from .env file, environment variables, or defaults
	cfg := config.LoadConfig(VERSION)

	// Interrupts cancel in-flight management API calls; the run still reports
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cfg, cli.DefaultDeps(), os.Args[1:])
	stop()
	os.Exit(code)
}
