package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dukex/otomato/pkg/models"
	cli "github.com/urfave/cli/v3"
)

func catalogCommand() *cli.Command {
	list := func(pick func(e *env) []models.Descriptor) cli.ActionFunc {
		return withEnv(nil, envOptions{}, func(_ context.Context, command *cli.Command, e *env) error {
			descriptors := pick(e)

			if command.Bool("json") {
				return e.printJSON(descriptors)
			}

			return printDescriptors(e, descriptors)
		})
	}

	jsonFlag := &cli.BoolFlag{Name: "json", Usage: "Print descriptors as JSON"}

	return &cli.Command{
		Name:  "catalog",
		Usage: "Show the triggers and actions workflows can use",
		Commands: []*cli.Command{
			{
				Name:   "triggers",
				Usage:  "List trigger blocks",
				Flags:  []cli.Flag{jsonFlag},
				Action: list(func(e *env) []models.Descriptor { return e.registry.Triggers() }),
			},
			{
				Name:   "actions",
				Usage:  "List action blocks",
				Flags:  []cli.Flag{jsonFlag},
				Action: list(func(e *env) []models.Descriptor { return e.registry.Actions() }),
			},
		},
	}
}

func printDescriptors(e *env, descriptors []models.Descriptor) error {
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tNAME\tTYPE\tPARAMETERS")

	for _, d := range descriptors {
		keys := make([]string, 0, len(d.Parameters))
		for _, p := range d.Parameters {
			keys = append(keys, fmt.Sprintf("%s:%s", p.Key, p.Type))
		}

		kind := "-"
		if d.Category == models.CategoryTypeTrigger {
			kind = d.Type.String()
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.ID, d.Name, kind, strings.Join(keys, " "))
	}

	return w.Flush()
}
