package main

import (
	"context"
	"os"

	"github.com/dukex/otomato/pkg/cmd"
	"github.com/dukex/otomato/pkg/log"
	"github.com/dukex/otomato/pkg/web"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "otomato-fakeapi",
		Usage:                 "Serve an in-memory workflow API for local development",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Extra node catalog JSON loaded on top of the built-in one",
				Sources: cli.EnvVars("CATALOG_PATH"),
			},
			&cli.BoolFlag{
				Name:    "auth-required",
				Usage:   "Reject workflow calls without a bearer token",
				Sources: cli.EnvVars("AUTH_REQUIRED"),
			},
			&cli.StringSliceFlag{
				Name:    "static-token",
				Usage:   "Token accepted without signing in, repeatable",
				Sources: cli.EnvVars("STATIC_TOKENS"),
			},
			&cli.DurationFlag{
				Name:  "token-ttl",
				Usage: "Lifetime of issued tokens",
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
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))
			logger := log.WithModule("fakeapi")

			logger.InfoContext(ctx, "Initializing fake workflow API")

			registry, err := cmd.NewRegistry(logger, command.String("catalog"))
			if err != nil {
				return err
			}

			opts := []web.Option{web.WithRequestLogging()}

			if command.Bool("auth-required") {
				opts = append(opts, web.WithAuthRequired(command.StringSlice("static-token")...))
			}

			if ttl := command.Duration("token-ttl"); ttl > 0 {
				opts = append(opts, web.WithTokenTTL(ttl))
			}

			api := web.NewAPI(logger, registry, opts...)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start fake API", "error", err)

				return err
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
