package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hgpack/hgpack/pkg/bundler"
	"github.com/hgpack/hgpack/pkg/defaults"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
	"github.com/hgpack/hgpack/pkg/logging"
)

const name = "hgpack"

var (
	// overridden during build with ldflags
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// EffectiveArgs returns the argument list the command is dispatched with.
// When args holds only the program name the default action is appended.
// The input slice is never modified.
func EffectiveArgs(args []string) []string {
	if len(args) == 1 {
		return []string{args[0], defaults.DefaultAction}
	}
	return slices.Clone(args)
}

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, args []string) int {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var metricsFile string

	cmd := newRootCmd(stdout, stderr, &metricsFile)
	err := cmd.Run(ctx, EffectiveArgs(args))

	if metricsFile != "" {
		if mErr := bundler.WriteMetricsFile(metricsFile); mErr != nil {
			slog.Warn("failed to write metrics file", "path", metricsFile, "error", mErr)
		}
	}

	if err != nil {
		slog.Error("command failed", "error", err)
		return hgerrors.ExitCode(err)
	}
	return hgerrors.ExitOK
}

func newRootCmd(stdout, stderr io.Writer, metricsFile *string) *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "Package git-remote-hg into a self-contained executable",
		Version:               version + " (" + commit + ", " + date + ")",
		EnableShellCompletion: true,
		Writer:                stdout,
		ErrWriter:             stderr,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("HGPACK_DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "Emit logs as JSON",
				Sources: cli.EnvVars("HGPACK_LOG_JSON"),
			},
			&cli.StringFlag{
				Name:        "metrics-file",
				Usage:       "Write build metrics in Prometheus text format to this file on exit",
				Sources:     cli.EnvVars("HGPACK_METRICS_FILE"),
				Destination: metricsFile,
			},
		}, buildFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.Setup(logging.Options{
				Debug:  cmd.Bool("debug"),
				JSON:   cmd.Bool("log-json"),
				Output: stderr,
			})
			return ctx, nil
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			buildSingleExeCmd(),
			buildCmd(),
			inspectCmd(),
			pushCmd(),
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Present() {
				return hgerrors.Configuration("unknown action %q (available: %s)",
					cmd.Args().First(), strings.Join(actionNames(cmd), ", "))
			}
			return hgerrors.Configuration("no action given (available: %s)", strings.Join(actionNames(cmd), ", "))
		},
	}
}

func actionNames(cmd *cli.Command) []string {
	names := make([]string, 0, len(cmd.Commands))
	for _, c := range cmd.Commands {
		if c.Name == "help" {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}
