package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vulntor/eventstack/pkg/inspect"
	"github.com/vulntor/eventstack/pkg/scenario"
)

func newEventsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "events <scenario.yaml>",
		Short:   "Run a scenario and list the registered events and subscribers it leaves behind",
		GroupID: "scenario",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := app(cmd)
			if err != nil {
				return err
			}
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			runner, err := mgr.Runner()
			if err != nil {
				return err
			}

			if err := mgr.Start(); err != nil {
				return err
			}
			_, runErr := runner.Run(cmd.Context(), sc)

			// List before Stop, which may clear every scope.
			snap := inspect.Take(mgr.Bus)
			stopErr := mgr.Stop()

			if err := inspect.Print(opts.formatter(cmd), snap); err != nil {
				return err
			}
			return errors.Join(runErr, stopErr)
		},
	}
}
