package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"
)

const defaultTokenName = "default"

func main() {
	err := rootCommand(nil).Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// rootCommand builds the CLI. A nil transport uses the default HTTP stack.
func rootCommand(transport http.RoundTripper) *cli.Command {
	return &cli.Command{
		Name:                  "otomato",
		Usage:                 "Build and manage automation workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the workflow API",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("API_URL"),
			},
			&cli.StringFlag{
				Name:    "auth-token",
				Usage:   "Bearer token; falls back to the saved default token",
				Sources: cli.EnvVars("AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Local store for drafts and tokens (file://, sqlite://, postgres://, redis://, mongodb://)",
				Value:   "file://./.otomato",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Lifecycle event bus (gochannel, kafka); empty disables events",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Extra node catalog JSON loaded on top of the built-in one",
				Sources: cli.EnvVars("CATALOG_PATH"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP timeout for API calls",
				Value: 30 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "tracing",
				Usage: "Export OpenTelemetry traces over OTLP/HTTP",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Commands: []*cli.Command{
			authCommand(transport),
			workflowCommand(transport),
			edgeCommand(transport),
			draftCommand(transport),
			catalogCommand(),
			eventsCommand(),
		},
	}
}
