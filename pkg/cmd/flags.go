package cmd

import (
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/urfave/cli/v3"
)

// Flags are the backend and logging flags shared by every demodeck binary.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "base-dir",
			Usage:   "Directory holding the catalog mirror, config and instances",
			Value:   layout.DefaultBaseDir,
			Sources: cli.EnvVars("DEMODECK_BASE_DIR"),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Instance persistence URL (postgres://... or a directory); defaults to the base dir",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers for the kafka event bus",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "locker-url",
			Usage:   "Redis URL for cross-process status locking; in-process when empty",
			Sources: cli.EnvVars("LOCKER_URL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    "otel",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}
}

// OptionsFrom reads the shared flags.
func OptionsFrom(command *cli.Command, serviceName string) Options {
	return Options{
		ServiceName:  serviceName,
		BaseDir:      command.String("base-dir"),
		DatabaseURL:  command.String("database-url"),
		EventBus:     command.String("event-bus"),
		KafkaBrokers: command.String("kafka-brokers"),
		LockerURL:    command.String("locker-url"),
		OTelEnabled:  command.Bool("otel"),
	}
}
