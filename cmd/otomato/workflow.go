package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dukex/otomato/pkg/client"
	"github.com/dukex/otomato/pkg/models"
	cli "github.com/urfave/cli/v3"
)

var errMissingID = errors.New("missing id argument")

// workflowOutput is the printed form of a workflow, identity included.
func workflowOutput(w *models.Workflow) models.WorkflowJSON {
	data := w.ToJSON()
	data.ID = w.ID
	data.State = w.State()

	return data
}

func decodeWorkflowFile(path string, e *env) (*models.Workflow, error) {
	raw, err := readInput(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}

	var data models.WorkflowJSON
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid workflow JSON: %w", err)
	}

	w, err := models.WorkflowFromJSON(data, e.registry, models.ValidateParameters())
	if err != nil {
		return nil, err
	}

	// Files describe new graphs; identity comes from the API.
	w.ID = ""

	return w, nil
}

func requireArg(command *cli.Command) (string, error) {
	id := command.Args().First()
	if id == "" {
		return "", errMissingID
	}

	return id, nil
}

func workflowCommand(transport http.RoundTripper) *cli.Command {
	api := envOptions{api: true}

	// byID loads the workflow named by the first argument before running fn.
	byID := func(fn func(context.Context, *env, *models.Workflow) error) cli.ActionFunc {
		return withEnv(transport, api, func(ctx context.Context, command *cli.Command, e *env) error {
			id, err := requireArg(command)
			if err != nil {
				return err
			}

			w, err := e.workflows.Load(ctx, id)
			if err != nil {
				return err
			}

			return fn(ctx, e, w)
		})
	}

	printState := func(e *env, w *models.Workflow) error {
		return e.printJSON(map[string]string{"id": w.ID, "state": w.State()})
	}

	return &cli.Command{
		Name:    "workflow",
		Aliases: []string{"wf"},
		Usage:   "Manage remote workflows",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a workflow from a JSON file",
				ArgsUsage: "FILE",
				Action: withEnv(transport, api, func(ctx context.Context, command *cli.Command, e *env) error {
					w, err := decodeWorkflowFile(command.Args().First(), e)
					if err != nil {
						return err
					}

					if err := e.workflows.Create(ctx, w); err != nil {
						return err
					}

					return e.printJSON(workflowOutput(w))
				}),
			},
			{
				Name:      "update",
				Usage:     "Replace a workflow graph with the one in FILE",
				ArgsUsage: "ID FILE",
				Action: withEnv(transport, api, func(ctx context.Context, command *cli.Command, e *env) error {
					id, err := requireArg(command)
					if err != nil {
						return err
					}

					w, err := decodeWorkflowFile(command.Args().Get(1), e)
					if err != nil {
						return err
					}

					w.ID = id

					if err := e.workflows.Update(ctx, w); err != nil {
						return err
					}

					return e.printJSON(workflowOutput(w))
				}),
			},
			{
				Name:      "get",
				Usage:     "Print a workflow",
				ArgsUsage: "ID",
				Action: byID(func(_ context.Context, e *env, w *models.Workflow) error {
					return e.printJSON(workflowOutput(w))
				}),
			},
			{
				Name:  "list",
				Usage: "List workflows",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "offset", Usage: "Number of workflows to skip"},
					&cli.IntFlag{Name: "limit", Usage: "Page size", Value: 20},
					&cli.StringFlag{Name: "state", Usage: "Only workflows in this state"},
				},
				Action: withEnv(transport, api, func(ctx context.Context, command *cli.Command, e *env) error {
					page, err := e.client.ListWorkflows(ctx, client.ListWorkflowsRequest{
						Offset: command.Int("offset"),
						Limit:  command.Int("limit"),
						State:  command.String("state"),
					})
					if err != nil {
						return err
					}

					return e.printJSON(page)
				}),
			},
			{
				Name:      "run",
				Usage:     "Activate a workflow",
				ArgsUsage: "ID",
				Action: byID(func(ctx context.Context, e *env, w *models.Workflow) error {
					if err := e.workflows.Run(ctx, w); err != nil {
						return err
					}

					return printState(e, w)
				}),
			},
			{
				Name:      "stop",
				Usage:     "Deactivate a workflow",
				ArgsUsage: "ID",
				Action: byID(func(ctx context.Context, e *env, w *models.Workflow) error {
					if err := e.workflows.Stop(ctx, w); err != nil {
						return err
					}

					return printState(e, w)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a workflow",
				ArgsUsage: "ID",
				Action: withEnv(transport, api, func(ctx context.Context, command *cli.Command, e *env) error {
					id, err := requireArg(command)
					if err != nil {
						return err
					}

					// No need to fetch the graph to delete it.
					w, err := models.NewWorkflow("", nil, nil)
					if err != nil {
						return err
					}

					w.ID = id

					if err := e.workflows.Delete(ctx, w); err != nil {
						return err
					}

					return e.printJSON(map[string]string{"id": id, "deleted": "true"})
				}),
			},
			{
				Name:      "permissions",
				Usage:     "Print the session key permissions a workflow needs",
				ArgsUsage: "ID",
				Action: byID(func(ctx context.Context, e *env, w *models.Workflow) error {
					permissions, err := e.workflows.SessionKeyPermissions(ctx, w)
					if err != nil {
						return err
					}

					return e.printJSON(permissions)
				}),
			},
		},
	}
}

func edgeCommand(transport http.RoundTripper) *cli.Command {
	return &cli.Command{
		Name:  "edge",
		Usage: "Manage workflow edges",
		Commands: []*cli.Command{
			{
				Name:      "delete",
				Usage:     "Delete an edge by id",
				ArgsUsage: "ID",
				Action: withEnv(transport, envOptions{api: true}, func(ctx context.Context, command *cli.Command, e *env) error {
					id, err := requireArg(command)
					if err != nil {
						return err
					}

					if err := e.workflows.DeleteEdge(ctx, &models.Edge{ID: id}); err != nil {
						return err
					}

					return e.printJSON(map[string]string{"id": id, "deleted": "true"})
				}),
			},
		},
	}
}
