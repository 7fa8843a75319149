package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/demodeck/pkg/cmd"
	"github.com/dukex/demodeck/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort = 9091
	serviceName = "demodeck-api"
)

func main() {
	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Serve the demo catalog and instances over HTTP",
		EnableShellCompletion: true,
		Flags: append(cmd.Flags(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.DurationFlag{
				Name:    "sync-interval",
				Usage:   "Resync the catalog on this interval; disabled when zero",
				Sources: cli.EnvVars("SYNC_INTERVAL"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing demodeck API")

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			runtime, err := cmd.NewRuntime(ctx, cmd.OptionsFrom(command, serviceName), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := runtime.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			if interval := command.Duration("sync-interval"); interval > 0 {
				go func() {
					_ = runtime.Sync.RunEvery(ctx, interval, nil)
				}()
			}

			api := NewAPI(ctx, logger, runtime)

			return api.Start(ctx, command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("api").Error("demodeck-api failed", "error", err)
		os.Exit(1)
	}
}
