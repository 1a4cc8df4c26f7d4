package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dukex/otomato/pkg/client"
	"github.com/dukex/otomato/pkg/cmd"
	"github.com/dukex/otomato/pkg/eventbus"
	"github.com/dukex/otomato/pkg/log"
	"github.com/dukex/otomato/pkg/otelhelper"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/dukex/otomato/pkg/registry"
	"github.com/dukex/otomato/pkg/services"
	cli "github.com/urfave/cli/v3"
)

// env holds everything a command needs. Close releases it.
type env struct {
	logger      *slog.Logger
	out         io.Writer
	registry    *registry.Registry
	client      *client.Client
	workflows   *services.Workflow
	eventBus    eventbus.EventBus
	persistence persistence.Persistence

	closers []func(context.Context) error
}

type envOptions struct {
	persistence bool
	api         bool
}

func newEnv(ctx context.Context, command *cli.Command, transport http.RoundTripper, opts envOptions) (*env, error) {
	log.Setup(command.String("log-level"), command.String("log-format"))

	e := &env{
		logger: log.WithModule("cli"),
		out:    command.Root().Writer,
	}

	if e.out == nil {
		e.out = os.Stdout
	}

	if command.Bool("tracing") {
		_, shutdown, err := otelhelper.NewTracer(ctx, "otomato")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		e.closers = append(e.closers, shutdown)
	}

	reg, err := cmd.NewRegistry(e.logger, command.String("catalog"))
	if err != nil {
		return nil, e.fail(ctx, err)
	}

	e.registry = reg

	if opts.persistence || (opts.api && command.String("auth-token") == "") {
		p, err := cmd.NewPersistence(ctx, e.logger, command.String("database-url"))
		if err != nil {
			return nil, e.fail(ctx, err)
		}

		e.persistence = p
		e.closers = append(e.closers, p.Close)
	}

	if !opts.api {
		return e, nil
	}

	bus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), e.logger)
	if err != nil {
		return nil, e.fail(ctx, err)
	}

	if bus != nil {
		e.eventBus = bus
		e.closers = append(e.closers, func(context.Context) error { return bus.Close() })
	}

	token := command.String("auth-token")
	if token == "" {
		token = e.savedToken(ctx)
	}

	e.client = cmd.NewClient(command.String("api-url"), token,
		&http.Client{Transport: transport, Timeout: command.Duration("timeout")}, e.logger)

	svcOpts := []services.Option{services.WithLogger(e.logger)}
	if e.eventBus != nil {
		svcOpts = append(svcOpts, services.WithEventBus(e.eventBus))
	}

	e.workflows = services.NewWorkflow(e.client, e.registry, svcOpts...)

	return e, nil
}

// savedToken returns the default stored token, or "" when none is usable.
func (e *env) savedToken(ctx context.Context) string {
	if e.persistence == nil {
		return ""
	}

	token, err := e.persistence.TokenRepository().Get(ctx, defaultTokenName)
	if err != nil {
		if !persistence.IsTokenNotFound(err) {
			e.logger.WarnContext(ctx, "failed to read saved token", "error", err)
		}

		return ""
	}

	if token.Expired(time.Now()) {
		e.logger.WarnContext(ctx, "saved token has expired", "name", token.Name)

		return ""
	}

	return token.Token
}

func (e *env) drafts() *services.Drafts {
	opts := []services.Option{services.WithLogger(e.logger)}
	if e.eventBus != nil {
		opts = append(opts, services.WithEventBus(e.eventBus))
	}

	return services.NewDrafts(e.persistence.DraftRepository(), e.workflows, e.registry, opts...)
}

func (e *env) fail(ctx context.Context, err error) error {
	return errors.Join(err, e.Close(ctx))
}

func (e *env) Close(ctx context.Context) error {
	var errs []error

	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	e.closers = nil

	return errors.Join(errs...)
}

func (e *env) printJSON(v any) error {
	encoder := json.NewEncoder(e.out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

// withEnv wraps an action so that it runs with an env and releases it afterwards.
func withEnv(transport http.RoundTripper, opts envOptions, action func(context.Context, *cli.Command, *env) error) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		e, err := newEnv(ctx, command, transport, opts)
		if err != nil {
			return err
		}

		defer func() {
			if err := e.Close(ctx); err != nil {
				e.logger.ErrorContext(ctx, "failed to release resources", "error", err)
			}
		}()

		return action(ctx, command, e)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}

	return os.ReadFile(path)
}
