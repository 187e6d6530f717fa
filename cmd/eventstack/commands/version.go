package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/vulntor/eventstack/pkg/inspect"
	"github.com/vulntor/eventstack/pkg/version"
)

func newVersionCommand(opts *rootOptions) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Print version information",
		GroupID: "core",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			f := opts.formatter(cmd)
			if f.Mode() == inspect.ModeJSON {
				return f.PrintJSON(info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version: %s\n", cliExecutable, info.Version)
			if short {
				return nil
			}
			fmt.Fprintf(out, "Commit: %s\n", info.Commit)
			fmt.Fprintf(out, "Build Date: %s\n", info.BuildDate)
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")

	return cmd
}
