package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/dukex/otomato/pkg/cmd"
	"github.com/dukex/otomato/pkg/eventbus"
	"github.com/dukex/otomato/pkg/events"
	cli "github.com/urfave/cli/v3"
)

var errNoEventBus = errors.New("an event bus is required, set --event-bus")

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Follow workflow lifecycle events",
		Commands: []*cli.Command{
			{
				Name:  "watch",
				Usage: "Print lifecycle events as they are published",
				Action: withEnv(nil, envOptions{}, func(ctx context.Context, command *cli.Command, e *env) error {
					bus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), e.logger)
					if err != nil {
						return err
					}

					if bus == nil {
						return errNoEventBus
					}

					defer func() {
						if err := bus.Close(); err != nil {
							e.logger.ErrorContext(ctx, "failed to close event bus", "error", err)
						}
					}()

					for _, eventType := range events.Types() {
						err := bus.Handle(eventType, func(_ context.Context, key string, event eventbus.Event) error {
							return e.printJSON(map[string]any{"key": key, "type": event.GetType(), "event": event})
						})
						if err != nil {
							return err
						}
					}

					ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					if err := bus.Subscribe(ctx); err != nil {
						return err
					}

					e.logger.InfoContext(ctx, "watching events", "bus", command.String("event-bus"))

					<-ctx.Done()

					return nil
				}),
			},
		},
	}
}
