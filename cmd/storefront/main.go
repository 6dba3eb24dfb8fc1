package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/storefront/internal/app"
	"github.com/utafrali/storefront/internal/config"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes one command and returns the process exit code. Data goes to
// stdout, notices and logs to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	log := logger.NewWithFormat("storefront", cfg.LogLevel, cfg.LogFormat, stderr)
	ui := newTerminal(stderr, log)

	application, err := app.NewApp(ctx, cfg, log, ui, ui)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warn("shutdown incomplete", slog.String("error", err.Error()))
		}
	}()
	application.StartMetrics()

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: storefront %s %s\n", args[0], cmd.usage)
		fs.PrintDefaults()
	}

	env := &cmdEnv{app: application, ui: ui, out: stdout, flags: fs}
	if err := cmd.run(ctx, env, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if !cmd.notifies {
			ui.Error(apperrors.UserMessage(err))
		}
		log.Debug("command failed",
			slog.String("command", args[0]),
			slog.String("error", err.Error()),
		)
		return 1
	}
	return 0
}
