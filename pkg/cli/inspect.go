package cli

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/hgpack/hgpack/pkg/bundler/zipapp"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
	"github.com/hgpack/hgpack/pkg/serializer"
)

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the manifest embedded in a built artifact",
		ArgsUsage: "<artifact>",
		Description: `Reads the manifest of an artifact produced by build or build-single-exe
and prints it. The manifest lists every embedded module with its SHA256.

# Examples

  hgpack inspect dist/git-remote-hg
  hgpack inspect --format table dist/git-remote-hg`,
		Flags: []cli.Flag{
			formatFlag(),
			&cli.StringFlag{
				Name:  "to",
				Usage: "output file path (default: stdout)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}
			if cmd.Args().Len() != 1 {
				return hgerrors.Configuration("inspect takes exactly one artifact path, got %d", cmd.Args().Len())
			}

			m, err := zipapp.ReadManifest(cmd.Args().First())
			if err != nil {
				return hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "cannot inspect artifact", err)
			}

			var ser serializer.Serializer
			if to := cmd.String("to"); to != "" {
				ser, err = serializer.NewFileWriterOrStdout(outFormat, to)
				if err != nil {
					return hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "invalid output", err)
				}
			} else {
				ser = serializer.NewWriter(outFormat, cmd.Root().Writer)
			}
			if c, ok := ser.(serializer.Closer); ok {
				defer func() {
					if err := c.Close(); err != nil {
						slog.Warn("failed to close serializer", "error", err)
					}
				}()
			}

			return ser.Serialize(ctx, m)
		},
	}
}
