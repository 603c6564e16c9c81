package cli

import (
	"context"
	"log/slog"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/urfave/cli/v3"

	"github.com/hgpack/hgpack/pkg/defaults"
	"github.com/hgpack/hgpack/pkg/oci"
	"github.com/hgpack/hgpack/pkg/serializer"
)

func pushCmd() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Build the artifact and push it to an OCI registry",
		Description: `Builds with the configured bundle mode, then publishes the produced files
as layers of one OCI artifact (artifact type ` + oci.ArtifactType + `).
Registry credentials are read from the Docker config file.

# Examples

  hgpack push --registry ghcr.io --repository example/git-remote-hg --tag v1.0.0
  hgpack push --registry localhost:5000 --repository hgpack --plain-http`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "registry",
				Usage:    "OCI registry host (e.g., ghcr.io, localhost:5000)",
				Sources:  cli.EnvVars("HGPACK_REGISTRY"),
				Required: true,
			},
			&cli.StringFlag{
				Name:     "repository",
				Usage:    "OCI repository path (e.g., example/git-remote-hg)",
				Sources:  cli.EnvVars("HGPACK_REPOSITORY"),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "tag",
				Value:   oci.DefaultTag,
				Usage:   "OCI tag",
				Sources: cli.EnvVars("HGPACK_TAG"),
			},
			&cli.BoolFlag{
				Name:  "insecure-tls",
				Usage: "Skip TLS certificate verification for the registry",
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: "Use HTTP instead of HTTPS (for local development)",
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			registryHost := cmd.String("registry")
			repository := cmd.String("repository")
			if err := oci.ValidateRegistryReference(registryHost, repository); err != nil {
				return err
			}

			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			out, err := runBuild(ctx, cmd, cfg)
			if err != nil {
				return err
			}

			annotations := map[string]string{ocispec.AnnotationVersion: cfg.Version()}
			if bt, ok := cfg.BuildTime(); ok {
				annotations[ocispec.AnnotationCreated] = bt.Format(time.RFC3339)
			}

			slog.Info("pushing artifact to OCI registry",
				"registry", registryHost,
				"repository", repository,
				"tag", cmd.String("tag"),
			)

			pushCtx, cancel := context.WithTimeout(ctx, defaults.PushTimeout)
			defer cancel()

			res, err := oci.Push(pushCtx, out.Artifact.Files, oci.PushOptions{
				Registry:    registryHost,
				Repository:  repository,
				Tag:         cmd.String("tag"),
				PlainHTTP:   cmd.Bool("plain-http"),
				InsecureTLS: cmd.Bool("insecure-tls"),
				Annotations: annotations,
			})
			if err != nil {
				return err
			}

			slog.Info("artifact pushed", "reference", res.Reference, "digest", res.Digest)
			return serializer.NewWriter(outFormat, cmd.Root().Writer).Serialize(ctx, res)
		},
	}
}
