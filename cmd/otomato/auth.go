package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dukex/otomato/pkg/client"
	"github.com/dukex/otomato/pkg/models"
	cli "github.com/urfave/cli/v3"
)

func authCommand(transport http.RoundTripper) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in against the workflow API",
		Commands: []*cli.Command{
			{
				Name:  "payload",
				Usage: "Request the message a wallet must sign",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Usage: "Wallet address", Required: true},
					&cli.IntFlag{Name: "chain-id", Usage: "Chain id to sign in on", Value: 8453},
				},
				Action: withEnv(transport, envOptions{api: true}, func(ctx context.Context, command *cli.Command, e *env) error {
					payload, err := e.client.GenerateLoginPayload(ctx, client.LoginPayloadRequest{
						Address: command.String("address"),
						ChainID: command.Int("chain-id"),
					})
					if err != nil {
						return err
					}

					return e.printJSON(payload)
				}),
			},
			{
				Name:  "token",
				Usage: "Exchange a signed payload for a bearer token and save it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "payload", Usage: "File holding the payload JSON, - for stdin", Value: "-"},
					&cli.StringFlag{Name: "signature", Usage: "Signature of the payload", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Name to save the token under", Value: defaultTokenName},
				},
				Action: withEnv(transport, envOptions{api: true, persistence: true}, func(ctx context.Context, command *cli.Command, e *env) error {
					raw, err := readInput(command.String("payload"))
					if err != nil {
						return fmt.Errorf("failed to read payload: %w", err)
					}

					var payload client.LoginPayload
					if err := json.Unmarshal(raw, &payload); err != nil {
						return fmt.Errorf("invalid payload JSON: %w", err)
					}

					resp, err := e.client.Token(ctx, client.TokenRequest{
						Payload:   payload,
						Signature: command.String("signature"),
					})
					if err != nil {
						return err
					}

					address, _ := payload["address"].(string)

					err = e.persistence.TokenRepository().Save(ctx, &models.Token{
						Name:      command.String("name"),
						Token:     resp.Token,
						Address:   address,
						ExpiresAt: resp.ExpiresAt,
					})
					if err != nil {
						return err
					}

					return e.printJSON(map[string]any{"name": command.String("name"), "expiresAt": resp.ExpiresAt})
				}),
			},
			{
				Name:      "verify",
				Usage:     "Check a token; defaults to the one in use",
				ArgsUsage: "[TOKEN]",
				Action: withEnv(transport, envOptions{api: true, persistence: true}, func(ctx context.Context, command *cli.Command, e *env) error {
					token := command.Args().First()
					if token == "" {
						token = command.String("auth-token")
					}

					if token == "" {
						token = e.savedToken(ctx)
					}

					if strings.TrimSpace(token) == "" {
						return errors.New("no token to verify")
					}

					resp, err := e.client.VerifyToken(ctx, token)
					if err != nil {
						return err
					}

					return e.printJSON(resp)
				}),
			},
			{
				Name:  "contracts",
				Usage: "Check whether contract addresses are verified",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "chain-id", Value: 8453},
				},
				ArgsUsage: "ADDRESS...",
				Action: withEnv(transport, envOptions{api: true}, func(ctx context.Context, command *cli.Command, e *env) error {
					if command.Args().Len() == 0 {
						return errors.New("at least one address is required")
					}

					resp, err := e.client.VerifyContracts(ctx, client.VerifyContractsRequest{
						ChainID:   command.Int("chain-id"),
						Addresses: command.Args().Slice(),
					})
					if err != nil {
						return err
					}

					return e.printJSON(resp)
				}),
			},
			{
				Name:      "logout",
				Usage:     "Forget a saved token",
				ArgsUsage: "[NAME]",
				Action: withEnv(transport, envOptions{persistence: true}, func(ctx context.Context, command *cli.Command, e *env) error {
					name := command.Args().First()
					if name == "" {
						name = defaultTokenName
					}

					return e.persistence.TokenRepository().Delete(ctx, name)
				}),
			},
		},
	}
}
