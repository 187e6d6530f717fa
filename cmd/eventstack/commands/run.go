package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/eventstack/pkg/inspect"
	"github.com/vulntor/eventstack/pkg/scenario"
	"github.com/vulntor/eventstack/pkg/stringutil"
)

var traceHeaders = []string{"Seq", "Step", "Event", "Handler", "Sender", "Data", "Outcome"}

// maxDataWidth bounds the data column of the trace table.
const maxDataWidth = 48

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		repeat   int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:     "run <scenario.yaml>",
		Short:   "Run a scenario and print its dispatch trace",
		GroupID: "scenario",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if repeat < 1 {
				return fmt.Errorf("--repeat must be at least 1, got %d", repeat)
			}

			mgr, err := app(cmd)
			if err != nil {
				return err
			}
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			// Long runs pick up config edits (e.g. bus.log_events) between repetitions.
			if repeat > 1 {
				if err := mgr.WatchConfig(); err != nil {
					log.Warn().Err(err).Msg("Config watcher unavailable")
				}
			}

			f := opts.formatter(cmd)
			ctx := cmd.Context()
			for i := range repeat {
				if i > 0 && interval > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(interval):
					}
				}
				if err := runOnce(ctx, cmd, f, sc); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&repeat, "repeat", 1, "Number of times to run the scenario")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between repetitions")

	return cmd
}

// runOnce executes one start/run/stop cycle and prints the trace, including
// the partial trace of a failed run.
func runOnce(ctx context.Context, cmd *cobra.Command, f inspect.Formatter, sc *scenario.Scenario) error {
	mgr, err := app(cmd)
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
	res, runErr := runner.Run(ctx, sc)
	stopErr := mgr.Stop()

	if res != nil {
		if err := printResult(f, res); err != nil {
			return err
		}
	}
	return errors.Join(runErr, stopErr)
}

func printResult(f inspect.Formatter, res *scenario.Result) error {
	if f.Mode() == inspect.ModeJSON {
		return f.PrintJSON(res)
	}

	rows := make([][]string, 0, len(res.Trace))
	for _, e := range res.Trace {
		rows = append(rows, []string{
			strconv.Itoa(e.Seq),
			strconv.Itoa(e.Step),
			e.Event,
			e.Handler,
			e.Sender,
			stringutil.Ellipsis(e.Data, maxDataWidth),
			string(e.Outcome),
		})
	}
	if err := f.PrintTable(traceHeaders, rows); err != nil {
		return err
	}
	return f.PrintSummary(fmt.Sprintf("scenario %q: %d steps, %d handler calls, depth %d",
		res.Name, res.Steps, len(res.Trace), res.Depth))
}
