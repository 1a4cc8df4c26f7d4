package main

import (
	"context"
	"net/http"

	cli "github.com/urfave/cli/v3"
)

func draftCommand(transport http.RoundTripper) *cli.Command {
	local := envOptions{persistence: true}

	return &cli.Command{
		Name:  "draft",
		Usage: "Keep workflows locally before pushing them",
		Commands: []*cli.Command{
			{
				Name:      "save",
				Usage:     "Store a workflow file as a draft",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Replace the draft with this id"},
				},
				Action: withEnv(transport, local, func(ctx context.Context, command *cli.Command, e *env) error {
					w, err := decodeWorkflowFile(command.Args().First(), e)
					if err != nil {
						return err
					}

					drafts := e.drafts()

					if id := command.String("id"); id != "" {
						draft, err := drafts.Replace(ctx, id, w)
						if err != nil {
							return err
						}

						return e.printJSON(draft)
					}

					draft, err := drafts.Save(ctx, w)
					if err != nil {
						return err
					}

					return e.printJSON(draft)
				}),
			},
			{
				Name:  "list",
				Usage: "List drafts",
				Action: withEnv(transport, local, func(ctx context.Context, _ *cli.Command, e *env) error {
					drafts, err := e.drafts().List(ctx)
					if err != nil {
						return err
					}

					return e.printJSON(drafts)
				}),
			},
			{
				Name:      "get",
				Usage:     "Print a draft",
				ArgsUsage: "ID",
				Action: withEnv(transport, local, func(ctx context.Context, command *cli.Command, e *env) error {
					id, err := requireArg(command)
					if err != nil {
						return err
					}

					draft, err := e.drafts().Get(ctx, id)
					if err != nil {
						return err
					}

					return e.printJSON(draft)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a draft",
				ArgsUsage: "ID",
				Action: withEnv(transport, local, func(ctx context.Context, command *cli.Command, e *env) error {
					id, err := requireArg(command)
					if err != nil {
						return err
					}

					return e.drafts().Delete(ctx, id)
				}),
			},
			{
				Name:      "push",
				Usage:     "Create the draft's workflow through the API and drop the draft",
				ArgsUsage: "ID",
				Action: withEnv(transport, envOptions{persistence: true, api: true}, func(ctx context.Context, command *cli.Command, e *env) error {
					id, err := requireArg(command)
					if err != nil {
						return err
					}

					w, err := e.drafts().Push(ctx, id)
					if err != nil {
						return err
					}

					return e.printJSON(workflowOutput(w))
				}),
			},
		},
	}
}
