package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/demodeck/pkg/catalogsync"
	"github.com/dukex/demodeck/pkg/cmd"
	"github.com/urfave/cli/v3"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Acquire or refresh the configured catalog collection",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "every",
				Usage: "Keep running and resync on this interval",
			},
		},
		Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
			out := command.Root().Writer

			interval := command.Duration("every")
			if interval <= 0 {
				result, err := runtime.Sync.Sync(ctx)
				if err != nil {
					return err
				}

				printSyncResult(out, result)

				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runtime.Sync.RunEvery(ctx, interval, func(result *catalogsync.Result, err error) {
				if err != nil {
					fmt.Fprintf(out, "%s sync failed: %v\n", time.Now().Format(time.RFC3339), err)

					return
				}

				printSyncResult(out, result)
			})
		}),
	}
}

func demosCommand() *cli.Command {
	return &cli.Command{
		Name:      "demos",
		Usage:     "List the demos of the synced catalog, or describe one",
		ArgsUsage: "[demo-id]",
		Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
			out := command.Root().Writer

			if id := command.Args().First(); id != "" {
				def, err := runtime.Demos.Get(ctx, id)
				if err != nil {
					return err
				}

				return printJSON(out, def)
			}

			defs, err := runtime.Demos.List(ctx)
			if err != nil {
				return err
			}

			printDemos(out, defs)

			return nil
		}),
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or change the catalog configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
					return printJSON(command.Root().Writer, runtime.Config.Load(ctx))
				}),
			},
			{
				Name:  "set",
				Usage: "Change configuration fields; unset flags keep their value",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Usage: "Repository URL or namespace.collection registry identifier"},
					&cli.StringFlag{Name: "namespace", Usage: "Collection namespace"},
					&cli.StringFlag{Name: "collection-name", Usage: "Collection name"},
					&cli.StringFlag{Name: "collection-path", Usage: "Directory of a collection installed outside the base dir"},
					&cli.BoolFlag{Name: "use-local", Usage: "Use an already installed collection instead of acquiring one"},
					&cli.StringFlag{Name: "image", Usage: "Execution sandbox image"},
				},
				Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
					cfg := runtime.Config.Load(ctx)

					if command.IsSet("source") {
						cfg.Source = command.String("source")
					}

					if command.IsSet("namespace") {
						cfg.Namespace = command.String("namespace")
					}

					if command.IsSet("collection-name") {
						cfg.CollectionName = command.String("collection-name")
					}

					if command.IsSet("collection-path") {
						cfg.CollectionPath = command.String("collection-path")
					}

					if command.IsSet("use-local") {
						cfg.UseLocal = command.Bool("use-local")
					}

					if command.IsSet("image") {
						cfg.ExecutionSandboxImage = command.String("image")
					}

					if err := runtime.Config.Validate(cfg); err != nil {
						return err
					}

					if err := runtime.Config.Save(ctx, cfg); err != nil {
						return err
					}

					return printJSON(command.Root().Writer, runtime.Config.Load(ctx))
				}),
			},
		},
	}
}
