package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dukex/demodeck/pkg/cmd"
	"github.com/dukex/demodeck/pkg/eventbus"
	"github.com/dukex/demodeck/pkg/instances"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/urfave/cli/v3"
)

var errMissingID = errors.New("an instance id is required")

func launchCommand() *cli.Command {
	return &cli.Command{
		Name:      "launch",
		Usage:     "Create an instance of a demo and run it",
		ArgsUsage: "<demo-id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "set",
				Aliases: []string{"s"},
				Usage:   "Parameter value as name=value; repeatable",
			},
			&cli.BoolFlag{
				Name:  "detach",
				Usage: "Only create the instance; run it later with execute",
			},
		},
		Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
			demoID := command.Args().First()
			if demoID == "" {
				return errors.New("a demo id is required")
			}

			raw, err := parseAssignments(command.StringSlice("set"))
			if err != nil {
				return err
			}

			instance, err := runtime.Demos.LaunchRaw(ctx, demoID, raw)
			if err != nil {
				return err
			}

			out := command.Root().Writer
			fmt.Fprintf(out, "Created instance %s\n", instance.ID)

			if command.Bool("detach") {
				return nil
			}

			return streamExecution(ctx, command, runtime, instance.ID)
		}),
	}
}

func instancesCommand() *cli.Command {
	return &cli.Command{
		Name:  "instances",
		Usage: "List instances, newest first",
		Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
			list, err := runtime.Store.List(ctx)
			if err != nil {
				return err
			}

			printInstances(command.Root().Writer, list)

			return nil
		}),
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print an instance with its spec and status",
		ArgsUsage: "<instance-id>",
		Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
			id := command.Args().First()
			if id == "" {
				return errMissingID
			}

			instance, err := runtime.Store.Get(ctx, id)
			if err != nil {
				return err
			}

			return printJSON(command.Root().Writer, instance)
		}),
	}
}

func executeCommand() *cli.Command {
	return &cli.Command{
		Name:      "execute",
		Usage:     "Run an instance and stream its output",
		ArgsUsage: "<instance-id>",
		Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
			id := command.Args().First()
			if id == "" {
				return errMissingID
			}

			return streamExecution(ctx, command, runtime, id)
		}),
	}
}

func reapplyCommand() *cli.Command {
	return &cli.Command{
		Name:      "reapply",
		Usage:     "Mark an instance pending again so it can be rerun",
		ArgsUsage: "<instance-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "execute",
				Usage: "Run the instance right away",
			},
		},
		Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
			id := command.Args().First()
			if id == "" {
				return errMissingID
			}

			status, err := runtime.Orchestrator.Reapply(ctx, id)
			if err != nil {
				return err
			}

			if !command.Bool("execute") {
				fmt.Fprintf(command.Root().Writer, "%s is %s\n", id, status.State)

				return nil
			}

			return streamExecution(ctx, command, runtime, id)
		}),
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Remove an instance and its files",
		ArgsUsage: "<instance-id>",
		Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
			id := command.Args().First()
			if id == "" {
				return errMissingID
			}

			if err := runtime.Store.Delete(ctx, id); err != nil {
				return err
			}

			fmt.Fprintf(command.Root().Writer, "Deleted %s\n", id)

			return nil
		}),
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Follow the persisted status of an instance until it finishes",
		ArgsUsage: "<instance-id>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Polling interval",
				Value: instances.DefaultPollInterval,
			},
		},
		Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
			id := command.Args().First()
			if id == "" {
				return errMissingID
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := command.Root().Writer
			watcher := instances.NewWatcher(runtime.Store, command.Duration("interval"), runtime.Logger())

			return watcher.Watch(ctx, id, func(instance *models.Instance) {
				printStatusLine(out, instance)
			})
		}),
	}
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Print lifecycle events from the event bus until interrupted",
		Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := command.Root().Writer

			for _, eventType := range eventbus.EventTypes() {
				err := runtime.EventBus.Handle(eventType, func(_ context.Context, event any) error {
					return printJSONLine(out, event)
				})
				if err != nil {
					return err
				}
			}

			if err := runtime.EventBus.Subscribe(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			return nil
		}),
	}
}

// streamExecution runs the instance in the foreground, copying output as it arrives.
func streamExecution(ctx context.Context, command *cli.Command, runtime *cmd.Runtime, id string) error {
	out := command.Root().Writer
	output := make(chan string)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for chunk := range output {
			fmt.Fprint(out, chunk)
		}
	}()

	status, err := runtime.Orchestrator.Execute(ctx, id, output)

	close(output)
	<-done

	if status != nil {
		fmt.Fprintf(out, "\n%s: %s\n", status.State, statusDetail(status))
	}

	return err
}

func parseAssignments(assignments []string) (map[string]string, error) {
	raw := make(map[string]string, len(assignments))

	for _, assignment := range assignments {
		name, value, ok := strings.Cut(assignment, "=")
		name = strings.TrimSpace(name)

		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: expected name=value", assignment)
		}

		raw[name] = value
	}

	return raw, nil
}
