// Package main provides the demodeck operator command line.
package main

import (
	"context"
	"os"

	"github.com/dukex/demodeck/pkg/cmd"
	"github.com/dukex/demodeck/pkg/log"
	"github.com/urfave/cli/v3"
)

const serviceName = "demodeck"

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.WithModule("cli").Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                      serviceName,
		Usage:                     "Launch and track demos from an automation content catalog",
		EnableShellCompletion:     true,
		DisableSliceFlagSeparator: true,
		Flags:                     cmd.Flags(),
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"), command.String("log-format"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			syncCommand(),
			demosCommand(),
			configCommand(),
			launchCommand(),
			instancesCommand(),
			showCommand(),
			executeCommand(),
			reapplyCommand(),
			deleteCommand(),
			watchCommand(),
			eventsCommand(),
		},
	}
}

// withRuntime wires the backends for one command invocation and closes them after.
func withRuntime(fn func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		logger := log.WithModule("cli")

		runtime, err := cmd.NewRuntime(ctx, cmd.OptionsFrom(command, serviceName), logger)
		if err != nil {
			return err
		}

		defer func() {
			if err := runtime.Close(context.WithoutCancel(ctx)); err != nil {
				logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
			}
		}()

		return fn(ctx, command, runtime)
	}
}
