package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hgpack/hgpack/pkg/bundler"
	"github.com/hgpack/hgpack/pkg/bundler/config"
	"github.com/hgpack/hgpack/pkg/bundler/result"
	"github.com/hgpack/hgpack/pkg/bundler/types"
	"github.com/hgpack/hgpack/pkg/defaults"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
)

func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML file with build settings; flags and environment take precedence",
			Sources: cli.EnvVars("HGPACK_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "entry",
			Aliases: []string{"e"},
			Value:   defaults.EntryPoint,
			Usage:   "Script used as the program's main module",
			Sources: cli.EnvVars("HGPACK_ENTRY"),
		},
		&cli.StringSliceFlag{
			Name:    "include",
			Aliases: []string{"i"},
			Value:   defaults.ForcedIncludes(),
			Usage:   "Module embedded even if not statically imported (can be repeated)",
			Sources: cli.EnvVars("HGPACK_INCLUDE"),
		},
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Value:   defaults.BundleMode,
			Usage:   fmt.Sprintf("Bundle mode (%s)", strings.Join(config.SupportedBundleModes(), ", ")),
			Sources: cli.EnvVars("HGPACK_MODE"),
		},
		&cli.StringFlag{
			Name:    "encoding",
			Value:   defaults.EncodingMode,
			Usage:   fmt.Sprintf("Source encoding policy (%s)", strings.Join(config.SupportedEncodingModes(), ", ")),
			Sources: cli.EnvVars("HGPACK_ENCODING"),
		},
		&cli.StringSliceFlag{
			Name:    "search-path",
			Usage:   "Module search root (can be repeated; default: directory of the entry point)",
			Sources: cli.EnvVars("HGPACK_SEARCH_PATH"),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   defaults.OutputDir,
			Usage:   "Directory the artifact is written to",
			Sources: cli.EnvVars("HGPACK_OUTPUT"),
		},
		&cli.StringFlag{
			Name:    "interpreter",
			Value:   defaults.Interpreter,
			Usage:   "Interpreter written into the launcher line",
			Sources: cli.EnvVars("HGPACK_INTERPRETER"),
		},
		&cli.StringFlag{
			Name:    "backend",
			Value:   defaults.Backend,
			Usage:   fmt.Sprintf("Packaging backend (%s)", strings.Join(types.SupportedTypesAsStrings(), ", ")),
			Sources: cli.EnvVars("HGPACK_BACKEND"),
		},
	}
}

func buildSingleExeCmd() *cli.Command {
	return &cli.Command{
		Name:  defaults.DefaultAction,
		Usage: "Build one self-contained executable (default action)",
		Description: `Bundles the entry point and every module it needs into a single
executable file. The configured bundle mode is ignored.

# Examples

  hgpack
  hgpack build-single-exe --entry ./git-remote-hg --output ./dist`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			_, err = runBuild(ctx, cmd, cfg.Derive(config.WithBundleMode(config.BundleModeSingleFile)))
			return err
		},
	}
}

func buildCmd() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build the artifact with the configured bundle mode",
		Description: `Like build-single-exe but honors --mode, so multi-file mode writes a
launcher plus a <name>.<sha8>.lib.zip library archive.

# Examples

  hgpack build --mode multi-file
  hgpack build --config hgpack.yaml --include mercurial.cext.osutil`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			_, err = runBuild(ctx, cmd, cfg)
			return err
		},
	}
}

func runBuild(ctx context.Context, cmd *cli.Command, cfg *config.Config) (*result.Output, error) {
	slog.Debug("effective configuration", "config", cfg.String())

	out, err := bundler.New().Make(ctx, cfg)
	if err != nil {
		return nil, err
	}
	printBuildSummary(cmd, out)
	return out, nil
}

func printBuildSummary(cmd *cli.Command, out *result.Output) {
	w := cmd.Root().Writer
	fmt.Fprintln(w, out.Summary())
	for _, f := range out.Artifact.Files {
		fmt.Fprintf(w, "  %s (%s, %d bytes)\n", f.Path, f.Role, f.Size)
	}
}

// configFromCommand assembles the build configuration. Values come from,
// in increasing precedence: literal defaults, the --config file,
// environment variables and flags.
func configFromCommand(cmd *cli.Command) (*config.Config, error) {
	var opts []config.Option

	if path := cmd.String("config"); path != "" {
		fileOpts, err := loadConfigFile(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fileOpts...)
	}

	flagOpts, err := flagOptions(cmd)
	if err != nil {
		return nil, err
	}
	opts = append(opts, flagOpts...)

	buildTime, ok, err := sourceDateEpoch()
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, config.WithBuildTime(buildTime))
	}

	opts = append(opts, config.WithVersion(version))
	return config.NewConfig(opts...), nil
}

func flagOptions(cmd *cli.Command) ([]config.Option, error) {
	var opts []config.Option

	if cmd.IsSet("entry") {
		opts = append(opts, config.WithEntryPoint(cmd.String("entry")))
	}
	if cmd.IsSet("include") {
		opts = append(opts, config.WithForcedIncludes(cmd.StringSlice("include")...))
	}
	if cmd.IsSet("mode") {
		mode, err := config.ParseBundleMode(cmd.String("mode"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithBundleMode(mode))
	}
	if cmd.IsSet("encoding") {
		enc, err := config.ParseEncodingMode(cmd.String("encoding"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithEncodingMode(enc))
	}
	if cmd.IsSet("search-path") {
		opts = append(opts, config.WithSearchPaths(cmd.StringSlice("search-path")...))
	}
	if cmd.IsSet("output") {
		opts = append(opts, config.WithOutputDir(cmd.String("output")))
	}
	if cmd.IsSet("interpreter") {
		opts = append(opts, config.WithInterpreter(cmd.String("interpreter")))
	}
	if cmd.IsSet("backend") {
		opts = append(opts, config.WithBackend(cmd.String("backend")))
	}
	return opts, nil
}

// sourceDateEpoch reads the reproducible-builds timestamp, if set.
func sourceDateEpoch() (time.Time, bool, error) {
	raw := strings.TrimSpace(os.Getenv(defaults.SourceDateEpochEnv))
	if raw == "" {
		return time.Time{}, false, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs < 0 {
		return time.Time{}, false, hgerrors.Configuration("invalid %s %q: must be a non-negative integer", defaults.SourceDateEpochEnv, raw)
	}
	return time.Unix(secs, 0).UTC(), true, nil
}
