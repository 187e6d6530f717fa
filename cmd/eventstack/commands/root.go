package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vulntor/eventstack/pkg/appctx"
	"github.com/vulntor/eventstack/pkg/config"
	"github.com/vulntor/eventstack/pkg/core"
	"github.com/vulntor/eventstack/pkg/inspect"
	"github.com/vulntor/eventstack/pkg/paths"
)

const cliExecutable = "eventstack"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	output     string
	noColor    bool
}

// formatter builds the output formatter for cmd.
func (o *rootOptions) formatter(cmd *cobra.Command) inspect.Formatter {
	color := !o.noColor
	if cfg, ok := appctx.Config(cmd.Context()); ok && cfg.Get().Log.NoColor {
		color = false
	}
	return inspect.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), inspect.ParseMode(o.output), color)
}

// app returns the AppManager prepared by the root command.
func app(cmd *cobra.Command) (*core.AppManager, error) {
	mgr, ok := appctx.App(cmd.Context())
	if !ok {
		return nil, fmt.Errorf("%s: application not initialized", cmd.Name())
	}
	return mgr, nil
}

// NewCommand constructs the top-level eventstack CLI command, wiring global
// flags and the AppManager lifecycle.
func NewCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// Execute runs the CLI with ctx. A failing command is reported through the
// output formatter, so --output json yields a JSON error object.
func Execute(ctx context.Context) error {
	cmd, opts := newRootCommand()
	return executeAndReport(ctx, cmd, opts)
}

func executeAndReport(ctx context.Context, cmd *cobra.Command, opts *rootOptions) error {
	err := cmd.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails.
	if mgr, ok := appctx.App(cmd.Context()); ok {
		err = errors.Join(err, mgr.Shutdown(ctx))
	}
	if err != nil {
		if printErr := opts.formatter(cmd).PrintError(err); printErr != nil {
			return errors.Join(err, printErr)
		}
	}
	return err
}

func newRootCommand() (*cobra.Command, *rootOptions) {
	var (
		opts       rootOptions
		appManager *core.AppManager
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "eventstack drives and inspects a scoped publish/subscribe event stack",
		Long: `eventstack runs YAML scenarios against a nestable event stack and prints
the resulting dispatch trace, registered events and subscribers.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := inspect.ValidateMode(opts.output); err != nil {
				return err
			}

			configFile := opts.configFile
			if configFile == "" {
				configFile = paths.DefaultConfigFile()
			}

			cfg := config.NewManager()
			if err := cfg.Load(cmd.Flags(), configFile); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			core.SetupLogger(cfg.Get().Log)

			appManager = core.NewAppManager(cfg)
			if err := appManager.Init(); err != nil {
				return fmt.Errorf("initialize AppManager: %w", err)
			}

			ctx := appctx.WithConfig(cmd.Context(), cfg)
			ctx = appctx.WithApp(ctx, appManager)

			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appManager != nil {
				return appManager.Shutdown(cmd.Context())
			}
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", os.Getenv("EVENTSTACK_CONFIG"), "Configuration file path (default $XDG_CONFIG_HOME/eventstack/config.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", string(inspect.ModeTable), "Output format: table or json")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddGroup(&cobra.Group{ID: "scenario", Title: "Scenario Commands"})
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands"})

	cmd.AddCommand(newRunCommand(&opts))
	cmd.AddCommand(newValidateCommand(&opts))
	cmd.AddCommand(newEventsCommand(&opts))
	cmd.AddCommand(newVersionCommand(&opts))

	return cmd, &opts
}
