package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/eventstack/pkg/inspect"
	"github.com/vulntor/eventstack/pkg/scenario"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "validate <scenario.yaml>",
		Short:   "Check a scenario file without running it",
		GroupID: "scenario",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			f := opts.formatter(cmd)
			if f.Mode() == inspect.ModeJSON {
				return f.PrintJSON(map[string]any{
					"valid":    true,
					"name":     sc.Name,
					"handlers": len(sc.Handlers),
					"steps":    len(sc.Steps),
				})
			}
			return f.PrintSummary(fmt.Sprintf("scenario %q is valid (%d handlers, %d steps)",
				sc.Name, len(sc.Handlers), len(sc.Steps)))
		},
	}
}
